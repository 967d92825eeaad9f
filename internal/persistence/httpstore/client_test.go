package httpstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/roomboard/internal/persistence"
)

func TestClient_FetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/meetings" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"m1","room":"Phòng họp lầu 3","date":"15/03/2024","startTime":"09:00","endTime":"10:00","title":"Giao ban"},{"id":"m2","room":"Phòng họp lầu 4","date":45366,"startTime":"13:00","endTime":"14:00","title":"Review"}]`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	records, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].ID != "m1" || records[0].StartTime != "09:00" {
		t.Errorf("records[0] = %+v", records[0])
	}
	// Serial date numbers survive as numeric values for the normaliser.
	if _, ok := records[1].Date.(float64); !ok {
		t.Errorf("records[1].Date = %T, want float64", records[1].Date)
	}
}

func TestClient_Create_ReturnsStoredRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/meetings" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var record persistence.Record
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			t.Errorf("decode body: %v", err)
		}
		record.ID = "srv-9"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(record)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	created, err := client.Create(context.Background(), persistence.Record{
		Room:      "Phòng họp lầu 3",
		Date:      "15/03/2024",
		StartTime: "09:00",
		EndTime:   "10:00",
		Title:     "Giao ban",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != "srv-9" {
		t.Errorf("created id = %q, want srv-9", created.ID)
	}
}

func TestClient_Update_PutsUnderID(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, nil)
	if err := client.Update(context.Background(), persistence.Record{ID: "m1", Title: "x"}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if gotPath != "PUT /api/meetings/m1" {
		t.Errorf("request = %q", gotPath)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusConflict, persistence.ErrConflict},
		{http.StatusNotFound, persistence.ErrNotFound},
		{http.StatusInternalServerError, persistence.ErrNetwork},
		{http.StatusBadGateway, persistence.ErrNetwork},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := New(server.URL, time.Second, nil)
		err := client.Delete(context.Background(), "m1")
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: got %v, want %v", tc.status, err, tc.want)
		}
		server.Close()
	}
}

func TestClient_UnreachableHostIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening any more

	client := New(server.URL, time.Second, nil)
	_, err := client.FetchAll(context.Background())
	if !errors.Is(err, persistence.ErrNetwork) {
		t.Errorf("want ErrNetwork, got %v", err)
	}
}

func TestClient_DeadlineMapsToTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := New(server.URL, 50*time.Millisecond, nil)
	_, err := client.FetchAll(context.Background())
	if !errors.Is(err, persistence.ErrTimeout) {
		t.Errorf("want ErrTimeout, got %v", err)
	}
}
