// Package scheduler drives the periodic refresh of derived room states. It
// owns exactly one timer, evaluates over store snapshots, and fans changed
// states out to subscribers in registration order.
package scheduler

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/roomboard/internal/engine"
	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/registry"
	"github.com/example/roomboard/internal/store"
	"github.com/example/roomboard/internal/temporal"
)

// DefaultPeriod is the tick cadence when none is configured.
const DefaultPeriod = 15 * time.Second

// Listener receives a room state whenever its status, active meeting, or
// next meeting changes between recomputations.
type Listener func(engine.RoomState)

// Scheduler recomputes room states on a fixed cadence and on demand. Store
// changes and external refresh requests funnel into Refresh; rapid
// successive requests coalesce into a single recomputation.
type Scheduler struct {
	stored *store.Store
	rooms  *registry.Registry
	clock  *temporal.Clock
	period time.Duration
	logger *slog.Logger

	cron       *cron.Cron
	unsubStore func()

	mu        sync.Mutex
	started   bool
	last      map[string]engine.RoomState
	listeners map[int]Listener
	nextSub   int
	failure   func(message string)

	signals chan struct{}
	done    chan struct{}

	warn *warnThrottle
}

// New wires a scheduler over the store and registry. A nil clock falls back
// to wall time at the default offset; a non-positive period falls back to
// DefaultPeriod.
func New(stored *store.Store, rooms *registry.Registry, clock *temporal.Clock, period time.Duration, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = temporal.NewClock(nil, 0)
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		stored:    stored,
		rooms:     rooms,
		clock:     clock,
		period:    period,
		logger:    logger.With("component", "scheduler"),
		last:      make(map[string]engine.RoomState),
		listeners: make(map[int]Listener),
		signals:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		warn:      newWarnThrottle(time.Minute, clock.Now),
	}
}

// OnFailure installs a sink for tick-failure warnings so failures reach the
// presentation collaborator, not just the log. The sink fires under the same
// throttle as the log entry: at most once per minute.
func (s *Scheduler) OnFailure(sink func(message string)) {
	s.mu.Lock()
	s.failure = sink
	s.mu.Unlock()
}

// Subscribe registers a room-state listener and returns its release
// function. Subscription handles are owned by subscribers; releasing them
// prevents listener leaks.
func (s *Scheduler) Subscribe(listener Listener) func() {
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

// Start claims the timer, hooks store change notifications, publishes a
// baseline, and begins ticking. Starting twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	// Fresh channels per run so a stopped scheduler can be started again:
	// the previous done channel is already closed and the previous drain
	// goroutine has exited with it.
	s.signals = make(chan struct{}, 1)
	s.done = make(chan struct{})
	signals, done := s.signals, s.done
	s.mu.Unlock()

	if s.stored != nil {
		s.unsubStore = s.stored.Subscribe(func(store.Event) {
			s.Refresh()
		})
	}

	s.cron = cron.New(cron.WithSeconds())
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.period), s.Tick); err != nil {
		return fmt.Errorf("scheduler: register tick: %w", err)
	}

	go s.drainSignals(signals, done)
	s.Tick()
	s.cron.Start()

	s.logger.Info("scheduler started", "period", s.period.String())
	return nil
}

// Stop releases the timer and the store subscription. Individual ticks are
// not cancellable; Stop waits for none of them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	done := s.done
	s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
	}
	if s.unsubStore != nil {
		s.unsubStore()
		s.unsubStore = nil
	}
	close(done)
	s.logger.Info("scheduler stopped")
}

// Refresh requests an immediate recomputation from the latest store
// snapshot. Requests arriving while one is already pending are coalesced.
func (s *Scheduler) Refresh() {
	s.mu.Lock()
	signals := s.signals
	s.mu.Unlock()
	select {
	case signals <- struct{}{}:
	default:
	}
}

// Tick performs one recomputation. The cron timer calls it on cadence; tests
// call it directly.
func (s *Scheduler) Tick() {
	defer func() {
		r := recover()
		if r == nil || !s.warn.Allow() {
			return
		}
		s.logger.Warn("tick failed, keeping last published states", "panic", fmt.Sprint(r))
		s.mu.Lock()
		sink := s.failure
		s.mu.Unlock()
		if sink != nil {
			sink("room status refresh failed, last known states remain visible")
		}
	}()

	// Snapshot first; no I/O and no locks are held during evaluation.
	snapshot := s.stored.Snapshot()
	at := s.clock.Instant()
	states := engine.EvaluateAll(s.rooms, snapshot, at)

	changed := make([]engine.RoomState, 0, len(states))
	s.mu.Lock()
	for _, state := range states {
		previous, seen := s.last[state.Room]
		if seen && !stateChanged(previous, state) {
			continue
		}
		s.last[state.Room] = state
		changed = append(changed, state)
	}
	listeners := s.orderedListenersLocked()
	s.mu.Unlock()

	for _, state := range changed {
		for _, listener := range listeners {
			listener(state)
		}
	}
}

// States returns the last published state per room in registry order.
func (s *Scheduler) States() []engine.RoomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.RoomState, 0, len(s.last))
	for _, key := range s.rooms.Keys() {
		if state, ok := s.last[key]; ok {
			out = append(out, state)
		}
	}
	return out
}

func (s *Scheduler) drainSignals(signals, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-signals:
			s.Tick()
		}
	}
}

func (s *Scheduler) orderedListenersLocked() []Listener {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

// stateChanged compares the fields subscribers care about: status, active
// meeting id, next meeting id.
func stateChanged(before, after engine.RoomState) bool {
	if before.Status != after.Status {
		return true
	}
	if meetingID(before.Active) != meetingID(after.Active) {
		return true
	}
	return meetingID(before.Next) != meetingID(after.Next)
}

func meetingID(m *meeting.Meeting) string {
	if m == nil {
		return ""
	}
	return m.ID
}
