package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/example/roomboard/internal/persistence"
	"github.com/example/roomboard/internal/testfixtures"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "roomboard.db")
	s, err := Open(dsn, testfixtures.NewIDGenerator("rec").NextFunc())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(id string) persistence.Record {
	return persistence.Record{
		ID:        id,
		Room:      "Phòng họp lầu 3",
		Date:      "15/03/2024",
		StartTime: "09:00",
		EndTime:   "10:00",
		Purpose:   "Họp",
		Title:     "Giao ban",
		Organizer: "Lan",
	}
}

func TestStore_CreateAndFetchAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, sample("m1")); err != nil {
		t.Fatalf("create m1: %v", err)
	}
	later := sample("m2")
	later.StartTime = "13:00"
	later.EndTime = "14:00"
	if _, err := s.Create(ctx, later); err != nil {
		t.Fatalf("create m2: %v", err)
	}

	records, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].ID != "m1" || records[1].ID != "m2" {
		t.Errorf("order = [%s %s]", records[0].ID, records[1].ID)
	}
	got := records[0]
	if got.Room != "Phòng họp lầu 3" || got.Date != "15/03/2024" || got.StartTime != "09:00" {
		t.Errorf("record = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be stamped on create")
	}
}

func TestStore_Create_AssignsMissingID(t *testing.T) {
	s := openTestStore(t)

	record := sample("")
	created, err := s.Create(context.Background(), record)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "rec-1" {
		t.Errorf("id = %q, want generated rec-1", created.ID)
	}
}

func TestStore_Update(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, sample("m1")); err != nil {
		t.Fatal(err)
	}

	changed := sample("m1")
	changed.Title = "Giao ban (dời lịch)"
	changed.StartTime = "10:00"
	changed.EndTime = "11:00"
	changed.IsEnded = true
	if err := s.Update(ctx, changed); err != nil {
		t.Fatalf("update: %v", err)
	}

	records, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Title != "Giao ban (dời lịch)" || records[0].StartTime != "10:00" || !records[0].IsEnded {
		t.Errorf("record = %+v", records[0])
	}

	if err := s.Update(ctx, sample("ghost")); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, sample("m1")); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	records, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("len = %d, want 0", len(records))
	}
	if err := s.Delete(ctx, "m1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "roomboard.db")
	first, err := Open(dsn, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Create(context.Background(), sample("m1")); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := Open(dsn, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	records, err := second.FetchAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("len = %d, want the persisted record", len(records))
	}
}
