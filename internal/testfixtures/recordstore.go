package testfixtures

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/roomboard/internal/persistence"
)

// RecordStore is an in-memory persistence collaborator for tests. Any call
// whose context is already done returns ErrTimeout, and FailNext arms a
// one-shot error so tests can exercise failure paths.
type RecordStore struct {
	mu      sync.Mutex
	records map[string]persistence.Record
	order   []string
	nextID  uint64
	nextErr error

	Fetches int
	Creates int
	Updates int
	Deletes int
}

// NewRecordStore returns an empty store preloaded with the given records.
func NewRecordStore(seed ...persistence.Record) *RecordStore {
	s := &RecordStore{records: make(map[string]persistence.Record)}
	for _, record := range seed {
		s.records[record.ID] = record
		s.order = append(s.order, record.ID)
	}
	return s
}

// FailNext arms a one-shot error returned by the next call.
func (s *RecordStore) FailNext(err error) {
	s.mu.Lock()
	s.nextErr = err
	s.mu.Unlock()
}

func (s *RecordStore) consumeErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return persistence.ErrTimeout
	}
	if s.nextErr != nil {
		err := s.nextErr
		s.nextErr = nil
		return err
	}
	return nil
}

// FetchAll returns the stored records in insertion order.
func (s *RecordStore) FetchAll(ctx context.Context) ([]persistence.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetches++
	if err := s.consumeErr(ctx); err != nil {
		return nil, err
	}
	out := make([]persistence.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out, nil
}

// Create stores the record, assigning an identifier when absent.
func (s *RecordStore) Create(ctx context.Context, record persistence.Record) (persistence.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Creates++
	if err := s.consumeErr(ctx); err != nil {
		return persistence.Record{}, err
	}
	if record.ID == "" {
		s.nextID++
		record.ID = fmt.Sprintf("rec-%d", s.nextID)
	}
	s.records[record.ID] = record
	s.order = append(s.order, record.ID)
	return record, nil
}

// Update replaces the stored record with the same identifier.
func (s *RecordStore) Update(ctx context.Context, record persistence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Updates++
	if err := s.consumeErr(ctx); err != nil {
		return err
	}
	if _, ok := s.records[record.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.records[record.ID] = record
	return nil
}

// Delete removes the record with the given identifier.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes++
	if err := s.consumeErr(ctx); err != nil {
		return err
	}
	if _, ok := s.records[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Record returns the stored record and whether it exists.
func (s *RecordStore) Record(id string) (persistence.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	return record, ok
}

// Len reports the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
