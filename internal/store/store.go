// Package store owns the in-memory meeting collection. It is the single
// point of mutation for records: every commit re-checks the disjointness
// invariant, and listeners observe commits synchronously in commit order.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/roomboard/internal/engine"
	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/registry"
	"github.com/example/roomboard/internal/temporal"
)

// EventKind labels a committed store mutation.
type EventKind string

const (
	// EventReplaced follows an atomic replace-all import.
	EventReplaced EventKind = "replaced"
	// EventInserted follows a single-record insert.
	EventInserted EventKind = "inserted"
	// EventUpdated follows an update or force-end.
	EventUpdated EventKind = "updated"
	// EventDeleted follows a hard delete.
	EventDeleted EventKind = "deleted"
)

// Event describes one committed mutation. Meeting is set for record-scoped
// kinds; ID is always set for record-scoped kinds.
type Event struct {
	Kind    EventKind
	ID      string
	Meeting *meeting.Meeting
}

// Listener receives committed events synchronously in registration order.
type Listener func(Event)

// Filter narrows List results. An empty Room matches everything; room
// comparison follows the fuzzy room-match policy.
type Filter struct {
	Room string
	Date *temporal.Date
}

// Store is the mutex-guarded record collection. All operations are
// synchronous with respect to the internal lock.
type Store struct {
	mu        sync.Mutex
	meetings  map[string]meeting.Meeting
	listeners map[int]Listener
	nextSub   int
	notifying bool
	now       func() time.Time
}

// New builds an empty store. A nil clock falls back to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		meetings:  make(map[string]meeting.Meeting),
		listeners: make(map[int]Listener),
		now:       now,
	}
}

// Subscribe registers a listener for committed events and returns its
// release function. Leaked subscriptions keep listeners alive, so callers
// own the release.
func (s *Store) Subscribe(listener Listener) func() {
	if s == nil || listener == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ReplaceAll atomically swaps the full record set, as happens on import and
// refresh. Records must already be canonical; duplicate ids reject the whole
// batch. Conflicts between imported records are tolerated because legacy
// spreadsheets contain them; disjointness is enforced on insert and update.
func (s *Store) ReplaceAll(records []meeting.Meeting) error {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return ErrBusy
	}

	next := make(map[string]meeting.Meeting, len(records))
	for _, m := range records {
		if m.ID == "" {
			s.mu.Unlock()
			return fmt.Errorf("store: record without id: %w", ErrNotFound)
		}
		if _, exists := next[m.ID]; exists {
			s.mu.Unlock()
			return fmt.Errorf("store: id %s: %w", m.ID, ErrDuplicateID)
		}
		next[m.ID] = m
	}
	s.meetings = next
	s.notifyLocked(Event{Kind: EventReplaced})
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return meeting.Meeting{}, ErrNotFound
	}
	return m, nil
}

// List returns records matching the filter, ordered by (date, start, id).
func (s *Store) List(filter Filter) []meeting.Meeting {
	s.mu.Lock()
	out := make([]meeting.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		if filter.Room != "" && !registry.SameRoom(m.Room, filter.Room) {
			continue
		}
		if filter.Date != nil && !m.Date.Equal(*filter.Date) {
			continue
		}
		out = append(out, m)
	}
	s.mu.Unlock()

	meeting.SortChronological(out)
	return out
}

// Snapshot returns every record unordered. The scheduler evaluates over
// snapshots so ticks never hold the store lock mid-computation.
func (s *Store) Snapshot() []meeting.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]meeting.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, m)
	}
	return out
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meetings)
}

// Insert commits a new record. Id collisions and disjointness violations
// against non-ended records are hard rejections; conflicts surface the
// contending ids.
func (s *Store) Insert(m meeting.Meeting) error {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return ErrBusy
	}
	if _, exists := s.meetings[m.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("store: id %s: %w", m.ID, ErrDuplicateID)
	}
	if err := s.checkDisjointLocked(m); err != nil {
		s.mu.Unlock()
		return err
	}

	m.UpdatedAt = s.now()
	s.meetings[m.ID] = m
	s.notifyLocked(Event{Kind: EventInserted, ID: m.ID, Meeting: &m})
	return nil
}

// Update commits changes to an existing record, re-checking disjointness
// against everything except the record itself. Time fields of an ended
// record are frozen.
func (s *Store) Update(m meeting.Meeting) error {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return ErrBusy
	}
	existing, ok := s.meetings[m.ID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if existing.IsEnded && timeFieldsChanged(existing, m) {
		s.mu.Unlock()
		vErr := &meeting.ValidationError{}
		vErr.Add("time", "ended meetings cannot be rescheduled")
		return vErr
	}
	if err := s.checkDisjointLocked(m); err != nil {
		s.mu.Unlock()
		return err
	}

	m.UpdatedAt = s.now()
	s.meetings[m.ID] = m
	s.notifyLocked(Event{Kind: EventUpdated, ID: m.ID, Meeting: &m})
	return nil
}

// Delete removes a record permanently.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return ErrBusy
	}
	m, ok := s.meetings[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.meetings, id)
	s.notifyLocked(Event{Kind: EventDeleted, ID: id, Meeting: &m})
	return nil
}

// ForceEnd soft-terminates an in-progress record: the record survives with
// both ended flags set and drops out of every derived status. Already-ended
// records are a silent no-op.
func (s *Store) ForceEnd(id string) error {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return ErrBusy
	}
	m, ok := s.meetings[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if m.IsEnded || m.ForceEndedByUser {
		s.mu.Unlock()
		return nil
	}

	m.IsEnded = true
	m.ForceEndedByUser = true
	m.UpdatedAt = s.now()
	s.meetings[id] = m
	s.notifyLocked(Event{Kind: EventUpdated, ID: id, Meeting: &m})
	return nil
}

// checkDisjointLocked enforces the per-(room, date) disjointness invariant
// against non-ended records, excluding the candidate's own id.
func (s *Store) checkDisjointLocked(candidate meeting.Meeting) error {
	existing := make([]meeting.Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		existing = append(existing, m)
	}
	meeting.SortChronological(existing)

	conflicts := engine.DetectConflicts(existing, candidate)
	if len(conflicts) == 0 {
		return nil
	}
	return &ConflictError{IDs: engine.ConflictIDs(conflicts)}
}

// notifyLocked publishes the event to listeners in registration order and
// releases the lock. Mutations attempted from inside a listener observe the
// notifying flag and fail with ErrBusy instead of deadlocking.
func (s *Store) notifyLocked(event Event) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	// map iteration is unordered; registration ids restore it
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}

	s.notifying = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.notifying = false
		s.mu.Unlock()
	}()

	for _, listener := range listeners {
		listener(event)
	}
}

func timeFieldsChanged(before, after meeting.Meeting) bool {
	return !before.Date.Equal(after.Date) ||
		before.StartMinutes != after.StartMinutes ||
		before.EndMinutes != after.EndMinutes
}
