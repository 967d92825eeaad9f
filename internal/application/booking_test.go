package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/persistence"
	"github.com/example/roomboard/internal/store"
	"github.com/example/roomboard/internal/testfixtures"
)

func newBookingHarness(t *testing.T) (*BookingService, *store.Store, *testfixtures.RecordStore, *Notifier) {
	t.Helper()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	rooms := testfixtures.NewRegistry()
	stored := store.New(clock.NowFunc())
	normalizer := meeting.NewNormalizer(rooms, testfixtures.NewIDGenerator("mtg").NextFunc(), clock.NowFunc())
	records := testfixtures.NewRecordStore()
	notifier := NewNotifier()
	service := NewBookingService(stored, records, normalizer, DefaultWorkingHours(), 0, notifier, nil)
	return service, stored, records, notifier
}

func validInput() BookingInput {
	return BookingInput{
		Room:      "Phòng họp lầu 3",
		Date:      "15/03/2024",
		StartTime: "09:00",
		EndTime:   "10:00",
		Purpose:   "Họp",
		Title:     "Giao ban",
	}
}

func TestBookingService_Create_PersistsThenCommits(t *testing.T) {
	service, stored, records, notifier := newBookingHarness(t)

	var notices []Notification
	release := notifier.Subscribe(func(n Notification) { notices = append(notices, n) })
	defer release()

	booked, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if booked.Room != "Phòng họp lầu 3" || booked.StartMinutes != 9*60 {
		t.Errorf("booked = %+v", booked)
	}
	if records.Creates != 1 {
		t.Errorf("Creates = %d, want 1", records.Creates)
	}
	if _, err := stored.Get(booked.ID); err != nil {
		t.Errorf("booked meeting missing from store: %v", err)
	}
	if len(notices) != 1 || notices[0].Kind != NoticeSuccess {
		t.Errorf("notices = %v, want one success", notices)
	}
	if service.State() != BookingIdle {
		t.Errorf("state = %q, want idle after completion", service.State())
	}
}

// renamingRecordStore simulates a backend that assigns its own ids on create.
type renamingRecordStore struct {
	*testfixtures.RecordStore
}

func (r *renamingRecordStore) Create(ctx context.Context, record persistence.Record) (persistence.Record, error) {
	record.ID = "srv-1"
	return r.RecordStore.Create(ctx, record)
}

func TestBookingService_Create_AdoptsServerAssignedID(t *testing.T) {
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	rooms := testfixtures.NewRegistry()
	stored := store.New(clock.NowFunc())
	normalizer := meeting.NewNormalizer(rooms, testfixtures.NewIDGenerator("mtg").NextFunc(), clock.NowFunc())
	records := &renamingRecordStore{RecordStore: testfixtures.NewRecordStore()}
	service := NewBookingService(stored, records, normalizer, DefaultWorkingHours(), 0, nil, nil)

	booked, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	// The store must carry the server's id, not the provisional one.
	if booked.ID != "srv-1" {
		t.Errorf("booked id = %q, want srv-1", booked.ID)
	}
	if _, err := stored.Get("srv-1"); err != nil {
		t.Errorf("store does not hold the persisted id: %v", err)
	}
}

func TestBookingService_Create_ValidatesInOrder(t *testing.T) {
	service, _, records, _ := newBookingHarness(t)

	cases := []struct {
		name   string
		mutate func(*BookingInput)
		field  string
	}{
		{"missing room", func(in *BookingInput) { in.Room = " " }, "room"},
		{"missing date", func(in *BookingInput) { in.Date = "" }, "date"},
		{"missing start", func(in *BookingInput) { in.StartTime = "" }, "startTime"},
		{"missing end", func(in *BookingInput) { in.EndTime = "" }, "endTime"},
		{"missing purpose", func(in *BookingInput) { in.Purpose = "" }, "purpose"},
		{"missing title", func(in *BookingInput) { in.Title = "" }, "title"},
		{"legacy time shape rejected", func(in *BookingInput) { in.StartTime = "9h00" }, "startTime"},
		{"out of range time", func(in *BookingInput) { in.EndTime = "24:00" }, "endTime"},
		{"inverted window", func(in *BookingInput) { in.StartTime = "11:00"; in.EndTime = "10:00" }, "time"},
		{"equal start and end", func(in *BookingInput) { in.EndTime = "09:00" }, "time"},
		{"unknown room", func(in *BookingInput) { in.Room = "phòng bí mật" }, "room"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := service.Create(context.Background(), input)
			var vErr *meeting.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Errorf("fields = %v, want %q", vErr.FieldErrors, tc.field)
			}
		})
	}
	if records.Creates != 0 {
		t.Errorf("validation failures must not reach persistence, Creates = %d", records.Creates)
	}
}

func TestBookingService_Create_EnforcesWorkingHoursWhenConfigured(t *testing.T) {
	service, stored, records, notifier := newBookingHarness(t)
	working := DefaultWorkingHours()
	working.Enforce = true
	service = NewBookingService(stored, records, service.normalizer, working, 0, notifier, nil)

	early := validInput()
	early.StartTime = "06:30"
	early.EndTime = "07:30"
	if _, err := service.Create(context.Background(), early); err == nil {
		t.Error("booking before working hours should fail when enforced")
	}

	late := validInput()
	late.StartTime = "18:30"
	late.EndTime = "19:30"
	if _, err := service.Create(context.Background(), late); err == nil {
		t.Error("booking past working hours should fail when enforced")
	}

	edge := validInput()
	edge.StartTime = "07:00"
	edge.EndTime = "19:00"
	if _, err := service.Create(context.Background(), edge); err != nil {
		t.Errorf("the full working window should be bookable: %v", err)
	}
}

func TestBookingService_Create_RejectsConflicts(t *testing.T) {
	service, stored, records, _ := newBookingHarness(t)
	if _, err := service.Create(context.Background(), validInput()); err != nil {
		t.Fatal(err)
	}
	before := stored.Len()

	overlapping := validInput()
	overlapping.StartTime = "09:30"
	overlapping.EndTime = "10:30"
	_, err := service.Create(context.Background(), overlapping)
	var conflict *store.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if stored.Len() != before || records.Creates != 1 {
		t.Error("conflicting booking must not persist anywhere")
	}

	adjacent := validInput()
	adjacent.StartTime = "10:00"
	adjacent.EndTime = "11:00"
	if _, err := service.Create(context.Background(), adjacent); err != nil {
		t.Errorf("back-to-back booking rejected: %v", err)
	}
}

func TestBookingService_Create_LeavesStoreUntouchedOnPersistenceFailure(t *testing.T) {
	service, stored, records, notifier := newBookingHarness(t)

	var notices []Notification
	release := notifier.Subscribe(func(n Notification) { notices = append(notices, n) })
	defer release()

	records.FailNext(persistence.ErrNetwork)
	_, err := service.Create(context.Background(), validInput())
	if !errors.Is(err, persistence.ErrNetwork) {
		t.Fatalf("want ErrNetwork, got %v", err)
	}
	if stored.Len() != 0 {
		t.Error("failed persistence must not commit locally")
	}
	if len(notices) != 1 || notices[0].Kind != NoticeError {
		t.Errorf("notices = %v, want one error notice", notices)
	}
	if service.State() != BookingIdle {
		t.Errorf("state = %q, want idle after failure", service.State())
	}
}

func TestBookingService_Create_FailsBusyWhileSubmitting(t *testing.T) {
	service, _, _, _ := newBookingHarness(t)

	// Claim the submission slot as a concurrent attempt would.
	if err := service.acquire(BookingSubmitting); err != nil {
		t.Fatal(err)
	}
	defer service.release()

	_, err := service.Create(context.Background(), validInput())
	if !errors.Is(err, ErrBusy) {
		t.Errorf("want ErrBusy, got %v", err)
	}
}

func TestBookingService_Update_ExcludesSelfFromConflicts(t *testing.T) {
	service, _, _, _ := newBookingHarness(t)
	booked, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	shifted := validInput()
	shifted.StartTime = "09:15"
	updated, err := service.Update(context.Background(), booked.ID, shifted)
	if err != nil {
		t.Fatalf("shifting within the own slot failed: %v", err)
	}
	if updated.StartMinutes != 9*60+15 {
		t.Errorf("start = %d", updated.StartMinutes)
	}
}

func TestBookingService_Update_RejectsOverlapWithOtherMeeting(t *testing.T) {
	service, _, _, _ := newBookingHarness(t)
	first, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}
	second := validInput()
	second.StartTime = "11:00"
	second.EndTime = "12:00"
	other, err := service.Create(context.Background(), second)
	if err != nil {
		t.Fatal(err)
	}

	onto := validInput()
	onto.StartTime = "11:30"
	onto.EndTime = "12:30"
	_, err = service.Update(context.Background(), first.ID, onto)
	var conflict *store.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("want ConflictError, got %v", err)
	}
	if conflict.IDs[0] != other.ID {
		t.Errorf("conflict ids = %v, want [%s]", conflict.IDs, other.ID)
	}
}

func TestBookingService_Update_UnknownIDIsNotFound(t *testing.T) {
	service, _, records, _ := newBookingHarness(t)
	_, err := service.Update(context.Background(), "ghost", validInput())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if records.Updates != 0 {
		t.Error("missing records must not reach persistence")
	}
}

func TestBookingService_Delete_RemovesRemotelyThenLocally(t *testing.T) {
	service, stored, records, _ := newBookingHarness(t)
	booked, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	if err := service.Delete(context.Background(), booked.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if records.Deletes != 1 {
		t.Errorf("Deletes = %d, want 1", records.Deletes)
	}
	if _, err := stored.Get(booked.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("meeting should be gone from the store")
	}
}

func TestBookingService_Delete_KeepsStoreOnPersistenceFailure(t *testing.T) {
	service, stored, records, _ := newBookingHarness(t)
	booked, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	records.FailNext(persistence.ErrTimeout)
	if err := service.Delete(context.Background(), booked.ID); !errors.Is(err, persistence.ErrTimeout) {
		t.Fatalf("want ErrTimeout, got %v", err)
	}
	if _, err := stored.Get(booked.ID); err != nil {
		t.Error("meeting must survive a failed remote delete")
	}
}

func TestBookingService_ForceEnd(t *testing.T) {
	service, stored, records, _ := newBookingHarness(t)
	booked, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}

	if err := service.ForceEnd(context.Background(), booked.ID); err != nil {
		t.Fatalf("ForceEnd returned error: %v", err)
	}
	ended, err := stored.Get(booked.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !ended.IsEnded || !ended.ForceEndedByUser {
		t.Errorf("flags = (%v, %v), want both set", ended.IsEnded, ended.ForceEndedByUser)
	}
	record, ok := records.Record(booked.ID)
	if !ok || !record.IsEnded || !record.ForceEndedByUser {
		t.Errorf("persisted record = %+v, want ended flags", record)
	}

	// Ending again is a no-op and stays off the wire.
	updatesBefore := records.Updates
	if err := service.ForceEnd(context.Background(), booked.ID); err != nil {
		t.Fatalf("repeated ForceEnd: %v", err)
	}
	if records.Updates != updatesBefore {
		t.Error("a no-op force end must not call persistence")
	}
}

// messageRecorder collects log messages so tests can assert on them.
type messageRecorder struct {
	messages []string
}

func (r *messageRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *messageRecorder) Handle(_ context.Context, record slog.Record) error {
	r.messages = append(r.messages, record.Message)
	return nil
}

func (r *messageRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *messageRecorder) WithGroup(string) slog.Handler      { return r }

func (r *messageRecorder) contains(message string) bool {
	for _, m := range r.messages {
		if m == message {
			return true
		}
	}
	return false
}

func TestBookingService_ForceEnd_NoOpLogsSkipNotSuccess(t *testing.T) {
	recorder := &messageRecorder{}
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	rooms := testfixtures.NewRegistry()
	stored := store.New(clock.NowFunc())
	normalizer := meeting.NewNormalizer(rooms, testfixtures.NewIDGenerator("mtg").NextFunc(), clock.NowFunc())
	service := NewBookingService(stored, testfixtures.NewRecordStore(), normalizer, DefaultWorkingHours(), 0, nil, slog.New(recorder))

	booked, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}
	if err := service.ForceEnd(context.Background(), booked.ID); err != nil {
		t.Fatal(err)
	}
	if !recorder.contains("meeting force-ended") {
		t.Errorf("first force-end should log completion, got %v", recorder.messages)
	}

	recorder.messages = nil
	if err := service.ForceEnd(context.Background(), booked.ID); err != nil {
		t.Fatal(err)
	}
	if recorder.contains("meeting force-ended") {
		t.Error("a no-op must not be reported as a force-end")
	}
	if !recorder.contains("force-end skipped, meeting already ended") {
		t.Errorf("no-op should log the skip, got %v", recorder.messages)
	}
}

func TestBookingService_Update_PreservesEndedFlags(t *testing.T) {
	service, stored, _, _ := newBookingHarness(t)
	booked, err := service.Create(context.Background(), validInput())
	if err != nil {
		t.Fatal(err)
	}
	if err := service.ForceEnd(context.Background(), booked.ID); err != nil {
		t.Fatal(err)
	}

	renamed := validInput()
	renamed.Title = "Giao ban (đã kết thúc)"
	updated, err := service.Update(context.Background(), booked.ID, renamed)
	if err != nil {
		t.Fatalf("renaming an ended meeting failed: %v", err)
	}
	if !updated.IsEnded || !updated.ForceEndedByUser {
		t.Error("ended flags must survive an update")
	}
	current, _ := stored.Get(booked.ID)
	if current.Title != "Giao ban (đã kết thúc)" {
		t.Errorf("title = %q", current.Title)
	}
}

func TestErrorKind_Taxonomy(t *testing.T) {
	vErr := &meeting.ValidationError{}
	vErr.Add("room", "unknown room")

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{vErr, "validation"},
		{&store.ConflictError{IDs: []string{"m1"}}, "conflict"},
		{store.ErrDuplicateID, "conflict"},
		{persistence.ErrConflict, "conflict"},
		{store.ErrNotFound, "not_found"},
		{persistence.ErrNotFound, "not_found"},
		{ErrBusy, "busy"},
		{store.ErrBusy, "busy"},
		{persistence.ErrTimeout, "timeout"},
		{persistence.ErrNetwork, "network"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
