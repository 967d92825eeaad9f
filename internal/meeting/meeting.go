// Package meeting defines the canonical meeting record and the normaliser
// that collapses heterogeneous raw inputs into it.
package meeting

import (
	"sort"
	"time"

	"github.com/example/roomboard/internal/temporal"
)

// Purpose classifies what a meeting is for. The values mirror the categories
// used by the upstream data sources.
type Purpose string

const (
	PurposeMeeting    Purpose = "Họp"
	PurposeTraining   Purpose = "Đào tạo"
	PurposeInterview  Purpose = "Phỏng vấn"
	PurposeDiscussion Purpose = "Thảo luận"
	PurposeReport     Purpose = "Báo cáo"
	PurposeOther      Purpose = "Khác"
)

// Purposes lists every recognised purpose value.
func Purposes() []Purpose {
	return []Purpose{
		PurposeMeeting,
		PurposeTraining,
		PurposeInterview,
		PurposeDiscussion,
		PurposeReport,
		PurposeOther,
	}
}

// KnownPurpose reports whether the value is one of the recognised categories.
func KnownPurpose(p Purpose) bool {
	for _, known := range Purposes() {
		if p == known {
			return true
		}
	}
	return false
}

// Meeting is the canonical record shape every component operates on. Room is
// always a registry key, the date is structured, and times are minute-of-day
// ordinals in the half-open window [StartMinutes, EndMinutes).
type Meeting struct {
	ID               string
	Room             string
	Date             temporal.Date
	StartMinutes     int
	EndMinutes       int
	Purpose          Purpose
	Title            string
	Content          string
	Description      string
	Department       string
	Organizer        string
	IsEnded          bool
	ForceEndedByUser bool
	UpdatedAt        time.Time
}

// StartTime renders the start as canonical HH:MM.
func (m Meeting) StartTime() string {
	return temporal.FormatTime(m.StartMinutes)
}

// EndTime renders the end as canonical HH:MM.
func (m Meeting) EndTime() string {
	return temporal.FormatTime(m.EndMinutes)
}

// Ended reports whether the record is excluded from status computations: an
// explicit ended flag, a user force-end, or wall time at-or-past the end on
// the record's own day. Days strictly in the past are ended as well.
func (m Meeting) Ended(at temporal.Instant) bool {
	if m.IsEnded || m.ForceEndedByUser {
		return true
	}
	if m.Date.Before(at.Date) {
		return true
	}
	if m.Date.Equal(at.Date) && m.EndMinutes <= at.Minutes {
		return true
	}
	return false
}

// RunningAt reports whether the record's window covers the instant on the
// record's own day. Force-ended and ended records never run.
func (m Meeting) RunningAt(at temporal.Instant) bool {
	if m.IsEnded || m.ForceEndedByUser {
		return false
	}
	return m.Date.Equal(at.Date) && temporal.InRange(at.Minutes, m.StartMinutes, m.EndMinutes)
}

// Overlaps reports whether two records contend for the same room at the same
// time: same canonical room, same day, intersecting half-open windows.
func Overlaps(a, b Meeting) bool {
	if a.Room != b.Room || !a.Date.Equal(b.Date) {
		return false
	}
	return temporal.Overlaps(a.StartMinutes, a.EndMinutes, b.StartMinutes, b.EndMinutes)
}

// SortChronological orders records by (date, start, id) in place.
func SortChronological(meetings []Meeting) {
	sort.SliceStable(meetings, func(i, j int) bool {
		if cmp := meetings[i].Date.Compare(meetings[j].Date); cmp != 0 {
			return cmp < 0
		}
		if meetings[i].StartMinutes != meetings[j].StartMinutes {
			return meetings[i].StartMinutes < meetings[j].StartMinutes
		}
		return meetings[i].ID < meetings[j].ID
	})
}
