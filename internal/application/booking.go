package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/example/roomboard/internal/engine"
	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/persistence"
	"github.com/example/roomboard/internal/store"
	"github.com/example/roomboard/internal/temporal"
)

// bookingTimeFormat is the only time shape accepted from the booking form.
// The looser legacy formats are for imported data, not interactive input.
var bookingTimeFormat = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// WorkingHours bounds interactively booked times when enforcement is on.
type WorkingHours struct {
	Enforce      bool
	StartMinutes int
	EndMinutes   int
}

// DefaultWorkingHours is the 07:00–19:00 window.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{Enforce: false, StartMinutes: 7 * 60, EndMinutes: 19 * 60}
}

// BookingState names the workflow's current phase.
type BookingState string

const (
	BookingIdle       BookingState = "idle"
	BookingValidating BookingState = "validating"
	BookingSubmitting BookingState = "submitting"
)

// BookingInput is a prospective meeting as entered by a user.
type BookingInput struct {
	Room        string
	Date        string
	StartTime   string
	EndTime     string
	Purpose     string
	Title       string
	Content     string
	Description string
	Department  string
	Organizer   string
}

// BookingService validates prospective meetings, writes them through the
// persistence collaborator, and reconciles the in-memory store on success.
// At most one submission is in flight at a time; concurrent attempts fail
// busy.
type BookingService struct {
	stored     *store.Store
	records    persistence.RecordStore
	normalizer *meeting.Normalizer
	working    WorkingHours
	timeout    time.Duration
	notifier   *Notifier
	logger     *slog.Logger

	// guards state only; never held across I/O
	mu    sync.Mutex
	state BookingState
}

// NewBookingService wires the booking workflow.
func NewBookingService(stored *store.Store, records persistence.RecordStore, normalizer *meeting.Normalizer, working WorkingHours, timeout time.Duration, notifier *Notifier, logger *slog.Logger) *BookingService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if working.EndMinutes == 0 {
		working = DefaultWorkingHours()
	}
	return &BookingService{
		stored:     stored,
		records:    records,
		normalizer: normalizer,
		working:    working,
		timeout:    timeout,
		notifier:   notifier,
		logger:     defaultLogger(logger),
		state:      BookingIdle,
	}
}

// State reports the workflow phase.
func (s *BookingService) State() BookingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// acquire claims the single submission slot or fails busy.
func (s *BookingService) acquire(state BookingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != BookingIdle {
		return ErrBusy
	}
	s.state = state
	return nil
}

func (s *BookingService) release() {
	s.mu.Lock()
	s.state = BookingIdle
	s.mu.Unlock()
}

func (s *BookingService) transition(state BookingState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Create validates a prospective meeting and books it: POST to the
// persistence collaborator, then insert into the store.
func (s *BookingService) Create(ctx context.Context, input BookingInput) (booked meeting.Meeting, err error) {
	logger := s.loggerWith(ctx, "Create", "room", input.Room, "date", input.Date)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking failed", "error", err, "error_kind", ErrorKind(err))
			s.notifyError(err)
			return
		}
		logger.With("meeting_id", booked.ID).InfoContext(ctx, "meeting booked")
		s.notify(NoticeSuccess, fmt.Sprintf("Booked %s %s–%s", booked.Room, booked.StartTime(), booked.EndTime()))
	}()

	if err = s.acquire(BookingValidating); err != nil {
		return
	}
	defer s.release()

	var candidate meeting.Meeting
	candidate, err = s.validate(input, "")
	if err != nil {
		return
	}

	s.transition(BookingSubmitting)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, submitErr := s.records.Create(callCtx, persistence.FromMeeting(candidate))
	if submitErr != nil {
		err = submitErr
		return
	}
	if created.ID != "" {
		candidate.ID = created.ID
	}

	if err = s.stored.Insert(candidate); err != nil {
		return
	}
	booked = candidate
	return
}

// Update validates changes to an existing meeting and applies them: PUT to
// the persistence collaborator, then update the store.
func (s *BookingService) Update(ctx context.Context, id string, input BookingInput) (updated meeting.Meeting, err error) {
	logger := s.loggerWith(ctx, "Update", "meeting_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking update failed", "error", err, "error_kind", ErrorKind(err))
			s.notifyError(err)
			return
		}
		logger.InfoContext(ctx, "meeting updated")
		s.notify(NoticeSuccess, fmt.Sprintf("Updated %s", updated.Title))
	}()

	if err = s.acquire(BookingValidating); err != nil {
		return
	}
	defer s.release()

	existing, getErr := s.stored.Get(id)
	if getErr != nil {
		err = getErr
		return
	}

	var candidate meeting.Meeting
	candidate, err = s.validate(input, id)
	if err != nil {
		return
	}
	candidate.ID = id
	candidate.IsEnded = existing.IsEnded
	candidate.ForceEndedByUser = existing.ForceEndedByUser

	s.transition(BookingSubmitting)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err = s.records.Update(callCtx, persistence.FromMeeting(candidate)); err != nil {
		return
	}
	if err = s.stored.Update(candidate); err != nil {
		return
	}
	updated = candidate
	return
}

// Delete removes a meeting remotely and locally.
func (s *BookingService) Delete(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "Delete", "meeting_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "booking delete failed", "error", err, "error_kind", ErrorKind(err))
			s.notifyError(err)
			return
		}
		logger.InfoContext(ctx, "meeting deleted")
	}()

	if err = s.acquire(BookingSubmitting); err != nil {
		return
	}
	defer s.release()

	if _, err = s.stored.Get(id); err != nil {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err = s.records.Delete(callCtx, id); err != nil {
		return
	}
	err = s.stored.Delete(id)
	return
}

// ForceEnd soft-terminates an in-progress meeting before its scheduled end.
func (s *BookingService) ForceEnd(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "ForceEnd", "meeting_id", id)
	var alreadyEnded bool
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "force-end failed", "error", err, "error_kind", ErrorKind(err))
			s.notifyError(err)
		case alreadyEnded:
			logger.InfoContext(ctx, "force-end skipped, meeting already ended")
		default:
			logger.InfoContext(ctx, "meeting force-ended")
		}
	}()

	if err = s.acquire(BookingSubmitting); err != nil {
		return
	}
	defer s.release()

	existing, getErr := s.stored.Get(id)
	if getErr != nil {
		err = getErr
		return
	}
	if existing.IsEnded || existing.ForceEndedByUser {
		alreadyEnded = true
		return nil
	}

	ended := existing
	ended.IsEnded = true
	ended.ForceEndedByUser = true

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err = s.records.Update(callCtx, persistence.FromMeeting(ended)); err != nil {
		return
	}
	err = s.stored.ForceEnd(id)
	return
}

// validate applies the booking rules in order; the first failing rule wins
// and is reported with the offending field. excludeID exempts the record
// being edited from conflict detection.
func (s *BookingService) validate(input BookingInput, excludeID string) (meeting.Meeting, error) {
	required := []struct {
		field string
		value string
	}{
		{"room", input.Room},
		{"date", input.Date},
		{"startTime", input.StartTime},
		{"endTime", input.EndTime},
		{"purpose", input.Purpose},
		{"title", input.Title},
	}
	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			return meeting.Meeting{}, fieldError(item.field, "is required")
		}
	}

	if !bookingTimeFormat.MatchString(strings.TrimSpace(input.StartTime)) {
		return meeting.Meeting{}, fieldError("startTime", "must be HH:MM")
	}
	if !bookingTimeFormat.MatchString(strings.TrimSpace(input.EndTime)) {
		return meeting.Meeting{}, fieldError("endTime", "must be HH:MM")
	}

	start, _ := temporal.ParseTime(input.StartTime)
	end, _ := temporal.ParseTime(input.EndTime)
	if start >= end {
		return meeting.Meeting{}, fieldError("time", "start must be before end")
	}

	if s.working.Enforce {
		if start < s.working.StartMinutes {
			return meeting.Meeting{}, fieldError("startTime", fmt.Sprintf("before working hours (%s)", temporal.FormatTime(s.working.StartMinutes)))
		}
		if end > s.working.EndMinutes {
			return meeting.Meeting{}, fieldError("endTime", fmt.Sprintf("after working hours (%s)", temporal.FormatTime(s.working.EndMinutes)))
		}
	}

	candidate, err := s.normalizer.Normalize(meeting.RawRecord{
		ID:          excludeID,
		Room:        input.Room,
		Date:        input.Date,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Purpose:     input.Purpose,
		Title:       input.Title,
		Content:     input.Content,
		Description: input.Description,
		Department:  input.Department,
		Organizer:   input.Organizer,
	})
	if err != nil {
		return meeting.Meeting{}, err
	}

	conflicts := engine.DetectConflicts(s.stored.List(store.Filter{Room: candidate.Room, Date: &candidate.Date}), candidate)
	if len(conflicts) > 0 {
		return meeting.Meeting{}, &store.ConflictError{IDs: engine.ConflictIDs(conflicts)}
	}

	return candidate, nil
}

func (s *BookingService) notify(kind NoticeKind, message string) {
	if s.notifier != nil {
		s.notifier.Publish(kind, message)
	}
}

func (s *BookingService) notifyError(err error) {
	if s.notifier == nil {
		return
	}
	switch ErrorKind(err) {
	case "validation", "conflict":
		s.notifier.Publish(NoticeWarn, err.Error())
	case "busy":
		s.notifier.Publish(NoticeWarn, "another booking is still being submitted")
	case "not_found":
		s.notifier.Publish(NoticeError, "meeting no longer exists, refresh and retry")
	case "network", "timeout":
		s.notifier.Publish(NoticeError, "meeting service unreachable, nothing was saved")
	default:
		s.notifier.Publish(NoticeError, "unexpected error, nothing was saved")
	}
}

func fieldError(field, message string) *meeting.ValidationError {
	vErr := &meeting.ValidationError{}
	vErr.Add(field, message)
	return vErr
}
