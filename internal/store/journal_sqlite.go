package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const journalFileName = "journal.sqlite"

// Outcomes recorded in the journal.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeStale     = "stale"
)

// JournalEntry is one resolved field edit.
type JournalEntry struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Table    string    `json:"table"`
	RecordID int64     `json:"recordId"`
	Field    string    `json:"field"`
	Value    string    `json:"value"`
	Previous string    `json:"previous"`
	Outcome  string    `json:"outcome"`
	Error    string    `json:"error,omitempty"`
	// Derived is set for follow-up writes (name, title, doc_date).
	Derived bool `json:"derived,omitempty"`
}

// Journal is the local sqlite log of edits sent to the backend.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

func (s Store) journalPath() string {
	return filepath.Join(s.Dir, journalFileName)
}

// OpenJournal opens (and migrates) the edit journal.
func (s Store) OpenJournal(ctx context.Context) (*Journal, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.journalPath())
	if err != nil {
		return nil, err
	}
	// WAL: the TUI and a CLI invocation may write at the same time.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateJournal(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

func migrateJournal(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS edits (
			edit_id TEXT PRIMARY KEY,
			at_unixms INTEGER NOT NULL,
			record_table TEXT NOT NULL,
			record_id INTEGER NOT NULL,
			field TEXT NOT NULL,
			value TEXT NOT NULL,
			previous TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			derived INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_record ON edits(record_table, record_id, at_unixms);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_at ON edits(at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append stores an entry, assigning its id and timestamp when unset.
func (j *Journal) Append(ctx context.Context, e JournalEntry) error {
	if j == nil || j.db == nil {
		return errors.New("journal: not open")
	}
	if strings.TrimSpace(e.ID) == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = j.now()
	}
	derived := 0
	if e.Derived {
		derived = 1
	}
	var errText any
	if e.Error != "" {
		errText = e.Error
	}
	_, err := j.db.ExecContext(ctx, `INSERT INTO edits(
		edit_id, at_unixms, record_table, record_id, field, value, previous, outcome, error, derived
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.UnixMilli(), e.Table, e.RecordID, e.Field, e.Value, e.Previous, e.Outcome, errText, derived,
	)
	return err
}

// Recent returns the newest entries first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	return j.query(ctx, `SELECT edit_id, at_unixms, record_table, record_id, field, value, previous, outcome, error, derived
		FROM edits ORDER BY at_unixms DESC, rowid DESC LIMIT ?`, limitOrDefault(limit))
}

// ForRecord returns the newest entries of one record first.
func (j *Journal) ForRecord(ctx context.Context, table string, id int64, limit int) ([]JournalEntry, error) {
	return j.query(ctx, `SELECT edit_id, at_unixms, record_table, record_id, field, value, previous, outcome, error, derived
		FROM edits WHERE record_table = ? AND record_id = ?
		ORDER BY at_unixms DESC, rowid DESC LIMIT ?`, table, id, limitOrDefault(limit))
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 50
	}
	return n
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]JournalEntry, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("journal: not open")
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JournalEntry
	for rows.Next() {
		var (
			e       JournalEntry
			atMS    int64
			errText sql.NullString
			derived int
		)
		if err := rows.Scan(&e.ID, &atMS, &e.Table, &e.RecordID, &e.Field, &e.Value, &e.Previous, &e.Outcome, &errText, &derived); err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(atMS).UTC()
		e.Error = errText.String
		e.Derived = derived != 0
		out = append(out, e)
	}
	return out, rows.Err()
}
