// Package persistence defines the record-store contract the core writes
// through, plus the wire representation of a meeting record. The durable
// storage itself belongs to the collaborator behind the contract.
package persistence

import (
	"context"
	"time"

	"github.com/example/roomboard/internal/meeting"
)

// Record is a meeting as carried on the wire and in durable storage. Date is
// any because upstream sources emit strings in several formats as well as
// spreadsheet serial numbers; the normaliser collapses the variance.
type Record struct {
	ID               string    `json:"id,omitempty"`
	Room             string    `json:"room"`
	Date             any       `json:"date"`
	StartTime        string    `json:"startTime"`
	EndTime          string    `json:"endTime"`
	Purpose          string    `json:"purpose,omitempty"`
	Title            string    `json:"title"`
	Content          string    `json:"content,omitempty"`
	Description      string    `json:"description,omitempty"`
	Department       string    `json:"department,omitempty"`
	Organizer        string    `json:"organizer,omitempty"`
	IsEnded          bool      `json:"isEnded,omitempty"`
	ForceEndedByUser bool      `json:"forceEndedByUser,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt,omitempty"`
}

// RecordStore is the persistence collaborator contract. Calls carry a
// bounded deadline via ctx; exceeding it maps to ErrTimeout without mutating
// anything.
type RecordStore interface {
	FetchAll(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, record Record) (Record, error)
	Update(ctx context.Context, record Record) error
	Delete(ctx context.Context, id string) error
}

// Raw converts the wire record into the normaliser's input shape.
func (r Record) Raw() meeting.RawRecord {
	return meeting.RawRecord{
		ID:               r.ID,
		Room:             r.Room,
		Date:             r.Date,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		Purpose:          r.Purpose,
		Title:            r.Title,
		Content:          r.Content,
		Description:      r.Description,
		Department:       r.Department,
		Organizer:        r.Organizer,
		IsEnded:          r.IsEnded,
		ForceEndedByUser: r.ForceEndedByUser,
		UpdatedAt:        r.UpdatedAt,
	}
}

// FromMeeting renders a canonical meeting as a wire record.
func FromMeeting(m meeting.Meeting) Record {
	return Record{
		ID:               m.ID,
		Room:             m.Room,
		Date:             m.Date.String(),
		StartTime:        m.StartTime(),
		EndTime:          m.EndTime(),
		Purpose:          string(m.Purpose),
		Title:            m.Title,
		Content:          m.Content,
		Description:      m.Description,
		Department:       m.Department,
		Organizer:        m.Organizer,
		IsEnded:          m.IsEnded,
		ForceEndedByUser: m.ForceEndedByUser,
		UpdatedAt:        m.UpdatedAt,
	}
}

// RawAll converts a fetched batch into normaliser inputs.
func RawAll(records []Record) []meeting.RawRecord {
	out := make([]meeting.RawRecord, len(records))
	for i, record := range records {
		out[i] = record.Raw()
	}
	return out
}
