// Package application assembles the roomboard core: the booking workflow,
// the room filter, notifications, the password gate, and the App factory
// that wires every component together.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/roomboard/internal/bridge"
	"github.com/example/roomboard/internal/engine"
	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/persistence"
	"github.com/example/roomboard/internal/registry"
	"github.com/example/roomboard/internal/scheduler"
	"github.com/example/roomboard/internal/store"
	"github.com/example/roomboard/internal/temporal"
)

// Options parameterises the App factory. Records is the only required
// collaborator; everything else has a default.
type Options struct {
	Rooms          []registry.Room
	Records        persistence.RecordStore
	Bridge         bridge.Bridge
	Now            func() time.Time
	TZOffsetHours  int
	TickPeriod     time.Duration
	Working        WorkingHours
	PersistTimeout time.Duration
	GatePassword   string
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// App owns the wired core. The store is the single point of record
// mutation, the scheduler the single timer, and all process-wide state lives
// behind these handles rather than in globals.
type App struct {
	Rooms      *registry.Registry
	Clock      *temporal.Clock
	Store      *store.Store
	Scheduler  *scheduler.Scheduler
	Booking    *BookingService
	Filter     *RoomFilter
	Notifier   *Notifier
	Gate       *PasswordGate
	Normalizer *meeting.Normalizer

	records persistence.RecordStore
	sensors bridge.Bridge
	logger  *slog.Logger
	timeout time.Duration

	mu        sync.Mutex
	telemetry map[int]bridge.TelemetryHandler
	nextSub   int
	started   bool
}

// New wires the core from the given options.
func New(opts Options) (*App, error) {
	if opts.Records == nil {
		return nil, fmt.Errorf("application: record store is required")
	}
	if len(opts.Rooms) == 0 {
		return nil, fmt.Errorf("application: at least one room is required")
	}
	logger := defaultLogger(opts.Logger)
	if opts.Bridge == nil {
		opts.Bridge = bridge.Nop{}
	}

	rooms := registry.New(opts.Rooms)
	clock := temporal.NewClock(opts.Now, opts.TZOffsetHours)
	stored := store.New(clock.Now)
	normalizer := meeting.NewNormalizer(rooms, nil, clock.Now)
	notifier := NewNotifier()
	sched := scheduler.New(stored, rooms, clock, opts.TickPeriod, logger)
	sched.OnFailure(func(message string) {
		notifier.Publish(NoticeWarn, message)
	})
	booking := NewBookingService(stored, opts.Records, normalizer, opts.Working, opts.PersistTimeout, notifier, logger)
	gate := NewPasswordGate(opts.GatePassword, opts.SessionTTL, clock.Now, nil, logger)

	app := &App{
		Rooms:      rooms,
		Clock:      clock,
		Store:      stored,
		Scheduler:  sched,
		Booking:    booking,
		Filter:     NewRoomFilter(rooms),
		Notifier:   notifier,
		Gate:       gate,
		Normalizer: normalizer,
		records:    opts.Records,
		sensors:    opts.Bridge,
		logger:     logger.With("component", "app"),
		timeout:    opts.PersistTimeout,
		telemetry:  make(map[int]bridge.TelemetryHandler),
	}
	return app, nil
}

// Start loads the record set from the persistence collaborator, hooks the
// sensor bridge, and begins the scheduler's tick loop.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	if err := a.Reload(ctx); err != nil {
		return err
	}

	a.sensors.OnTelemetry(a.dispatchTelemetry)

	if err := a.Scheduler.Start(); err != nil {
		return err
	}
	a.logger.Info("core started", "rooms", len(a.Rooms.Keys()), "meetings", a.Store.Len())
	return nil
}

// Stop releases the scheduler's timer and the sensor bridge connection.
func (a *App) Stop() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	a.mu.Unlock()

	a.Scheduler.Stop()
	if err := a.sensors.Close(); err != nil {
		a.logger.Warn("sensor bridge close failed", "error", err)
	}
	a.logger.Info("core stopped")
}

// Reload fetches every record from the persistence collaborator, normalises
// the batch, and atomically replaces the store contents. The store is left
// untouched on any failure.
func (a *App) Reload(ctx context.Context) error {
	timeout := a.timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	records, err := a.records.FetchAll(callCtx)
	if err != nil {
		a.logger.Error("record fetch failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	canonical, err := a.Normalizer.NormalizeAll(persistence.RawAll(records))
	if err != nil {
		a.logger.Error("record import rejected", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := a.Store.ReplaceAll(canonical); err != nil {
		return err
	}
	a.logger.Info("records loaded", "count", len(canonical))
	return nil
}

// RoomState computes the current state of one room from a fresh snapshot.
func (a *App) RoomState(room string) (engine.RoomState, error) {
	key, ok := a.Rooms.Match(room)
	if !ok {
		vErr := &meeting.ValidationError{}
		vErr.Add("room", "unknown room")
		return engine.RoomState{}, vErr
	}
	return engine.Evaluate(a.Store.Snapshot(), key, a.Clock.Instant()), nil
}

// RoomStates computes current states for every registered room.
func (a *App) RoomStates() []engine.RoomState {
	return engine.EvaluateAll(a.Rooms, a.Store.Snapshot(), a.Clock.Instant())
}

// TriggerLight forwards a light-control action to the sensor bridge.
func (a *App) TriggerLight(room string, on bool) error {
	key, ok := a.Rooms.Match(room)
	if !ok {
		vErr := &meeting.ValidationError{}
		vErr.Add("room", "unknown room")
		return vErr
	}
	return a.sensors.TriggerLight(key, on)
}

// SubscribeTelemetry registers a handler for sensor samples and returns its
// release function.
func (a *App) SubscribeTelemetry(handler bridge.TelemetryHandler) func() {
	if a == nil || handler == nil {
		return func() {}
	}
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.telemetry[id] = handler
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.telemetry, id)
		a.mu.Unlock()
	}
}

func (a *App) dispatchTelemetry(sample bridge.Sample) {
	a.mu.Lock()
	ids := make([]int, 0, len(a.telemetry))
	for id := range a.telemetry {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]bridge.TelemetryHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, a.telemetry[id])
	}
	a.mu.Unlock()

	for _, handler := range handlers {
		handler(sample)
	}
}
