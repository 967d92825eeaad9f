package application

import (
	"errors"
	"testing"

	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/testfixtures"
)

func TestRoomFilter_StartsAtAll(t *testing.T) {
	f := NewRoomFilter(testfixtures.NewRegistry())
	if f.Current() != FilterAll {
		t.Errorf("Current() = %q, want %q", f.Current(), FilterAll)
	}
}

func TestRoomFilter_Set_CanonicalisesRawLabels(t *testing.T) {
	f := NewRoomFilter(testfixtures.NewRegistry())
	if err := f.Set("lầu 4"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if f.Current() != "Phòng họp lầu 4" {
		t.Errorf("Current() = %q, want the canonical key", f.Current())
	}
	if err := f.Set(FilterAll); err != nil {
		t.Fatalf("Set(all) returned error: %v", err)
	}
	if f.Current() != FilterAll {
		t.Errorf("Current() = %q, want %q", f.Current(), FilterAll)
	}
}

func TestRoomFilter_Set_RejectsUnknownRoom(t *testing.T) {
	f := NewRoomFilter(testfixtures.NewRegistry())
	err := f.Set("phòng bí mật")
	var vErr *meeting.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if f.Current() != FilterAll {
		t.Error("a rejected Set must not change the filter")
	}
}

func TestRoomFilter_Set_NotifiesOnlyOnChange(t *testing.T) {
	f := NewRoomFilter(testfixtures.NewRegistry())
	var seen []string
	release := f.Subscribe(func(value string) { seen = append(seen, value) })
	defer release()

	if err := f.Set("Phòng họp lầu 3"); err != nil {
		t.Fatal(err)
	}
	if err := f.Set("lầu 3"); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != "Phòng họp lầu 3" {
		t.Errorf("seen = %v, want one notification for the change", seen)
	}
}

func TestApply(t *testing.T) {
	list := []meeting.Meeting{
		{ID: "m1", Room: "Phòng họp lầu 3"},
		{ID: "m2", Room: "Phòng họp lầu 4"},
		{ID: "m3", Room: "lầu 3"},
	}

	if got := Apply(list, FilterAll); len(got) != 3 {
		t.Errorf("all filter kept %d records", len(got))
	}
	got := Apply(list, "Phòng họp lầu 3")
	if len(got) != 2 || got[0].ID != "m1" || got[1].ID != "m3" {
		t.Errorf("room filter kept %v", got)
	}
}
