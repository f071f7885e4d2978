// Package store persists the three input collections (power events, attacks,
// and schedule intervals) in SQLite and loads them back as timeline inputs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/grid-timeline/internal/domain"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width UTC so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store reads and writes input records. Calendar conversions use loc.
type Store struct {
	db     *sql.DB
	loc    *time.Location
	logger *slog.Logger
}

// Counts is the number of stored rows per table.
type Counts struct {
	Events   int `json:"events"`
	Attacks  int `json:"attacks"`
	Schedule int `json:"schedule"`
}

// New wraps an open database handle.
func New(db *sql.DB, loc *time.Location, logger *slog.Logger) *Store {
	return &Store{db: db, loc: loc, logger: logger}
}

// Open opens (creating if needed) the SQLite file at path. SQLite allows a
// single writer, so the pool is capped at one connection.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// InsertRecord stores a parsed record. Records already stored under the same
// ID are left untouched; inserted reports whether a new row was written.
func (s *Store) InsertRecord(ctx context.Context, rec domain.Record) (inserted bool, err error) {
	var res sql.Result
	received := formatTime(rec.ReceivedAt)

	switch {
	case rec.Event != nil:
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO events (id, event_time, state, received_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, rec.ID, formatTime(rec.Event.Timestamp), string(rec.Event.State), received)
	case rec.Attack != nil:
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO attacks (id, start_time, duration_hours, description, received_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, rec.ID, formatTime(rec.Attack.Start), rec.Attack.DurationHours, rec.Attack.Description, received)
	case rec.Slot != nil:
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO schedule (id, start_time, end_time, kind, received_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, rec.ID, formatTime(rec.Slot.Start), formatTime(rec.Slot.End), string(rec.Slot.Kind), received)
	default:
		return false, fmt.Errorf("record %q has no payload", rec.ID)
	}
	if err != nil {
		return false, fmt.Errorf("insert %s record: %w", rec.Type, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s record: %w", rec.Type, err)
	}
	return n > 0, nil
}

// LoadInputs reads every stored record. Events come back ascending by time,
// attacks are pinned to local dates, and schedule rows are split at local
// midnights.
func (s *Store) LoadInputs(ctx context.Context) (domain.Inputs, error) {
	events, err := s.loadEvents(ctx)
	if err != nil {
		return domain.Inputs{}, fmt.Errorf("load events: %w", err)
	}
	attacks, err := s.loadAttacks(ctx)
	if err != nil {
		return domain.Inputs{}, fmt.Errorf("load attacks: %w", err)
	}
	book, err := s.loadSchedule(ctx)
	if err != nil {
		return domain.Inputs{}, fmt.Errorf("load schedule: %w", err)
	}
	return domain.Inputs{Events: events, Attacks: attacks, Schedule: book}, nil
}

func (s *Store) loadEvents(ctx context.Context) ([]domain.PowerEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_time, state FROM events ORDER BY event_time ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.PowerEvent
	for rows.Next() {
		var ts, state string
		if err := rows.Scan(&ts, &state); err != nil {
			return nil, err
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		events = append(events, domain.PowerEvent{Timestamp: t, State: domain.PowerState(state)})
	}
	return events, rows.Err()
}

func (s *Store) loadAttacks(ctx context.Context) ([]domain.AttackRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT start_time, duration_hours, description FROM attacks ORDER BY start_time ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attacks []domain.AttackRecord
	for rows.Next() {
		var (
			start string
			entry domain.AttackEntry
		)
		if err := rows.Scan(&start, &entry.DurationHours, &entry.Description); err != nil {
			return nil, err
		}
		if entry.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		attacks = append(attacks, entry.In(s.loc))
	}
	return attacks, rows.Err()
}

func (s *Store) loadSchedule(ctx context.Context) (*domain.ScheduleBook, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT start_time, end_time, kind FROM schedule ORDER BY start_time ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	book := domain.NewScheduleBook()
	for rows.Next() {
		var start, end, kind string
		if err := rows.Scan(&start, &end, &kind); err != nil {
			return nil, err
		}
		iv := domain.ScheduleInterval{Kind: domain.SlotKind(kind)}
		if iv.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if iv.End, err = parseTime(end); err != nil {
			return nil, err
		}
		book.Add(iv, s.loc)
	}
	return book, rows.Err()
}

// Counts returns the number of rows in each input table.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM attacks),
			(SELECT COUNT(*) FROM schedule)
	`).Scan(&c.Events, &c.Attacks, &c.Schedule)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
