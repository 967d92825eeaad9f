package meeting

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/roomboard/internal/registry"
	"github.com/example/roomboard/internal/temporal"
)

// purposeKeywords maps content fragments to purposes. Order matters: the
// first matching rule wins.
var purposeKeywords = []struct {
	keyword string
	purpose Purpose
}{
	{"họp", PurposeMeeting},
	{"đào tạo", PurposeTraining},
	{"pv", PurposeInterview},
	{"phỏng vấn", PurposeInterview},
	{"thảo luận", PurposeDiscussion},
	{"báo cáo", PurposeReport},
}

// ClassifyPurpose derives a purpose from free text using the ordered keyword
// rules. Unmatched text classifies as Khác.
func ClassifyPurpose(text string) Purpose {
	folded := strings.ToLower(text)
	for _, rule := range purposeKeywords {
		if strings.Contains(folded, rule.keyword) {
			return rule.purpose
		}
	}
	return PurposeOther
}

// RawRecord is a meeting as it arrives from a spreadsheet row or an API
// payload, before any validation. Date is any because the sources emit
// strings in several locales, serial day numbers, and instant values.
type RawRecord struct {
	ID               string
	Room             string
	Date             any
	StartTime        string
	EndTime          string
	Purpose          string
	Title            string
	Content          string
	Description      string
	Department       string
	Organizer        string
	IsEnded          bool
	ForceEndedByUser bool
	UpdatedAt        time.Time
}

// Normalizer collapses raw records into canonical meetings against a room
// registry. It owns id assignment and update stamping for records that lack
// them.
type Normalizer struct {
	rooms *registry.Registry
	newID func() string
	now   func() time.Time
}

// NewNormalizer wires a normaliser. A nil id generator falls back to UUIDs
// and a nil clock to time.Now.
func NewNormalizer(rooms *registry.Registry, newID func() string, now func() time.Time) *Normalizer {
	if newID == nil {
		newID = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{rooms: rooms, newID: newID, now: now}
}

// Normalize validates and canonicalises one raw record. On failure it returns
// a ValidationError listing every failing field rather than stopping at the
// first.
func (n *Normalizer) Normalize(raw RawRecord) (Meeting, error) {
	vErr := &ValidationError{}

	roomKey, ok := n.rooms.Match(raw.Room)
	if !ok {
		vErr.Add("room", "unknown room")
	}

	date, dateErr := temporal.ParseDateValue(raw.Date)
	if dateErr != nil {
		vErr.Add("date", "invalid date")
	}

	start, startErr := temporal.ParseTime(raw.StartTime)
	if startErr != nil {
		vErr.Add("startTime", "invalid time")
	}
	end, endErr := temporal.ParseTime(raw.EndTime)
	if endErr != nil {
		vErr.Add("endTime", "invalid time")
	}
	if startErr == nil && endErr == nil && start >= end {
		vErr.Add("time", "start must be before end")
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		vErr.Add("title", "title is required")
	}

	if vErr.HasErrors() {
		return Meeting{}, vErr
	}

	purpose := Purpose(strings.TrimSpace(raw.Purpose))
	if !KnownPurpose(purpose) {
		classified := ClassifyPurpose(strings.Join([]string{raw.Purpose, title, raw.Content, raw.Description}, " "))
		purpose = classified
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = n.newID()
	}

	updatedAt := raw.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = n.now()
	}

	return Meeting{
		ID:               id,
		Room:             roomKey,
		Date:             date,
		StartMinutes:     start,
		EndMinutes:       end,
		Purpose:          purpose,
		Title:            title,
		Content:          raw.Content,
		Description:      raw.Description,
		Department:       strings.TrimSpace(raw.Department),
		Organizer:        strings.TrimSpace(raw.Organizer),
		IsEnded:          raw.IsEnded,
		ForceEndedByUser: raw.ForceEndedByUser,
		UpdatedAt:        updatedAt,
	}, nil
}

// NormalizeAll canonicalises a batch, returning the first record-level error
// annotated with its position, or every canonical record on success.
func (n *Normalizer) NormalizeAll(raws []RawRecord) ([]Meeting, error) {
	out := make([]Meeting, 0, len(raws))
	for _, raw := range raws {
		m, err := n.Normalize(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
