package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"geowatch/internal/modules/location/domain"
	locationout "geowatch/internal/modules/location/port/out"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteJournal keeps session transitions across runs.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	journal := &SQLiteJournal{db: db}
	if err := journal.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return journal, nil
}

var _ locationout.TransitionJournal = (*SQLiteJournal)(nil)

func (j *SQLiteJournal) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS transitions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  at TEXT NOT NULL,
  from_state TEXT NOT NULL,
  to_state TEXT NOT NULL,
  handle_id TEXT,
  reason TEXT
);
`
	if _, err := j.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create transitions table: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Record(ctx context.Context, transition domain.Transition) error {
	const stmt = `
INSERT INTO transitions (at, from_state, to_state, handle_id, reason)
VALUES (?, ?, ?, ?, ?);
`
	_, err := j.db.ExecContext(ctx, stmt,
		transition.At.UTC().Format(timeLayout),
		string(transition.From),
		string(transition.To),
		transition.HandleID,
		transition.Reason,
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// Recent returns up to limit transitions, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]domain.Transition, error) {
	const query = `
SELECT at, from_state, to_state, COALESCE(handle_id, ''), COALESCE(reason, '')
FROM transitions
ORDER BY seq DESC
LIMIT ?;
`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transition, 0, limit)
	for rows.Next() {
		var (
			at       string
			from, to string
			t        domain.Transition
		)
		if err := rows.Scan(&at, &from, &to, &t.HandleID, &t.Reason); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		parsed, err := time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("parse transition time: %w", err)
		}
		t.At = parsed
		t.From = domain.State(from)
		t.To = domain.State(to)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return out, nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
