package engine

import "github.com/example/roomboard/internal/meeting"

// Conflict names an existing record that contends with a candidate for the
// same room and time window.
type Conflict struct {
	WithMeetingID string
	Room          string
	Date          string
	StartTime     string
	EndTime       string
}

// DetectConflicts identifies every existing record whose window intersects
// the candidate's on the same canonical room and day. Ended and force-ended
// records never conflict, nor does the record the candidate is replacing.
// Back-to-back windows are not conflicts: intervals are half-open.
func DetectConflicts(existing []meeting.Meeting, candidate meeting.Meeting) []Conflict {
	var conflicts []Conflict
	for _, m := range existing {
		if m.ID == candidate.ID {
			continue
		}
		if m.IsEnded || m.ForceEndedByUser {
			continue
		}
		if !meeting.Overlaps(m, candidate) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithMeetingID: m.ID,
			Room:          m.Room,
			Date:          m.Date.String(),
			StartTime:     m.StartTime(),
			EndTime:       m.EndTime(),
		})
	}
	return conflicts
}

// ConflictIDs projects the conflicting record ids for error reporting.
func ConflictIDs(conflicts []Conflict) []string {
	if len(conflicts) == 0 {
		return nil
	}
	ids := make([]string, len(conflicts))
	for i, c := range conflicts {
		ids[i] = c.WithMeetingID
	}
	return ids
}
