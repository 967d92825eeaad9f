package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/roomboard/internal/meeting"
	"github.com/example/roomboard/internal/registry"
	"github.com/example/roomboard/internal/temporal"
)

var meetingCounter uint64

var referenceTime = time.Date(2024, time.March, 15, 9, 0, 0, 0, time.FixedZone("ICT", 7*3600))

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar day ReferenceTime falls on.
func ReferenceDate() temporal.Date {
	return temporal.DateFromTime(referenceTime)
}

// NewRegistry returns a small registry with the two rooms most fixtures use.
func NewRegistry() *registry.Registry {
	return registry.New([]registry.Room{
		{Key: "Phòng họp lầu 3", DisplayName: "Phòng họp lầu 3"},
		{Key: "Phòng họp lầu 4", DisplayName: "Phòng họp lầu 4"},
	})
}

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*meeting.Meeting)

// WithID overrides the generated identifier.
func WithID(id string) MeetingOption {
	return func(m *meeting.Meeting) { m.ID = id }
}

// WithRoom places the meeting in the given room.
func WithRoom(room string) MeetingOption {
	return func(m *meeting.Meeting) { m.Room = room }
}

// WithDate moves the meeting to the given day.
func WithDate(d temporal.Date) MeetingOption {
	return func(m *meeting.Meeting) { m.Date = d }
}

// WithTimes sets the start and end minutes of the meeting.
func WithTimes(start, end int) MeetingOption {
	return func(m *meeting.Meeting) {
		m.StartMinutes = start
		m.EndMinutes = end
	}
}

// WithPurpose sets the meeting purpose.
func WithPurpose(p meeting.Purpose) MeetingOption {
	return func(m *meeting.Meeting) { m.Purpose = p }
}

// WithTitle sets the meeting title.
func WithTitle(title string) MeetingOption {
	return func(m *meeting.Meeting) { m.Title = title }
}

// Ended marks the meeting as ended.
func Ended() MeetingOption {
	return func(m *meeting.Meeting) { m.IsEnded = true }
}

// NewMeeting returns a deterministic one-hour meeting on the reference day
// with optional overrides. Each call yields a distinct identifier and a start
// slot one hour after the previous fixture, so un-overridden fixtures never
// collide.
func NewMeeting(opts ...MeetingOption) meeting.Meeting {
	idx := atomic.AddUint64(&meetingCounter, 1)
	start := 8*60 + int(idx%10)*60
	m := meeting.Meeting{
		ID:           fmt.Sprintf("mtg-%03d", idx),
		Room:         "Phòng họp lầu 3",
		Date:         ReferenceDate(),
		StartMinutes: start,
		EndMinutes:   start + 60,
		Purpose:      meeting.PurposeMeeting,
		Title:        fmt.Sprintf("Meeting %03d", idx),
		Organizer:    fmt.Sprintf("organizer-%03d", idx),
		Department:   "Engineering",
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}
