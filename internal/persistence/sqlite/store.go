// Package sqlite implements the record-store contract against a local
// SQLite database, so the dashboard can run standalone without a remote
// meetings API.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/example/roomboard/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS meetings (
	id           TEXT PRIMARY KEY,
	room         TEXT NOT NULL,
	date         TEXT NOT NULL,
	start_time   TEXT NOT NULL,
	end_time     TEXT NOT NULL,
	purpose      TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	department   TEXT NOT NULL DEFAULT '',
	organizer    TEXT NOT NULL DEFAULT '',
	is_ended     INTEGER NOT NULL DEFAULT 0,
	force_ended  INTEGER NOT NULL DEFAULT 0,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_meetings_room_date ON meetings (room, date);
`

// Store is a local, single-table record store. The schema is applied
// idempotently at open.
type Store struct {
	db    *sql.DB
	newID func() string
}

// Open connects to the database at the given DSN and ensures the schema. A
// nil id generator falls back to UUIDs.
func Open(dsn string, newID func() string) (*Store, error) {
	if newID == nil {
		newID = uuid.NewString
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db, newID: newID}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FetchAll returns every stored record.
func (s *Store) FetchAll(ctx context.Context) ([]persistence.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room, date, start_time, end_time, purpose, title, content,
		       description, department, organizer, is_ended, force_ended, updated_at
		FROM meetings
		ORDER BY date, start_time, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var records []persistence.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

// Create inserts a record, assigning an id when the caller supplies none.
func (s *Store) Create(ctx context.Context, record persistence.Record) (persistence.Record, error) {
	if record.ID == "" {
		record.ID = s.newID()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (id, room, date, start_time, end_time, purpose, title,
		                      content, description, department, organizer, is_ended,
		                      force_ended, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Room, dateText(record.Date), record.StartTime, record.EndTime,
		record.Purpose, record.Title, record.Content, record.Description,
		record.Department, record.Organizer, boolInt(record.IsEnded),
		boolInt(record.ForceEndedByUser), record.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return persistence.Record{}, mapError(err)
	}
	return record, nil
}

// Update overwrites the record with the given id.
func (s *Store) Update(ctx context.Context, record persistence.Record) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE meetings
		SET room = ?, date = ?, start_time = ?, end_time = ?, purpose = ?, title = ?,
		    content = ?, description = ?, department = ?, organizer = ?, is_ended = ?,
		    force_ended = ?, updated_at = ?
		WHERE id = ?`,
		record.Room, dateText(record.Date), record.StartTime, record.EndTime,
		record.Purpose, record.Title, record.Content, record.Description,
		record.Department, record.Organizer, boolInt(record.IsEnded),
		boolInt(record.ForceEndedByUser), record.UpdatedAt.Format(time.RFC3339),
		record.ID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanRecord(rows *sql.Rows) (persistence.Record, error) {
	var record persistence.Record
	var date, updatedAt string
	var isEnded, forceEnd int
	if err := rows.Scan(&record.ID, &record.Room, &date, &record.StartTime,
		&record.EndTime, &record.Purpose, &record.Title, &record.Content,
		&record.Description, &record.Department, &record.Organizer,
		&isEnded, &forceEnd, &updatedAt); err != nil {
		return persistence.Record{}, mapError(err)
	}

	record.Date = date
	record.IsEnded = isEnded != 0
	record.ForceEndedByUser = forceEnd != 0
	if parsed, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		record.UpdatedAt = parsed
	}
	return record, nil
}

func dateText(v any) string {
	return fmt.Sprint(v)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return persistence.ErrTimeout
	}
	return err
}
