// Package journal stores the activity log parents review: what was blocked,
// when the budget ran out, when the network was cut.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// DefaultMaxEntries bounds the journal; older entries are pruned on insert.
const DefaultMaxEntries = 500

// SQLiteJournal implements domain.ActivityJournal on an SQLite file.
type SQLiteJournal struct {
	db         *sql.DB
	maxEntries int
	now        func() time.Time
}

// Open opens (or creates) the journal at path. Use ":memory:" for a
// throwaway journal.
func Open(path string, maxEntries int) (*SQLiteJournal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One connection: writes are serialised and ":memory:" stays one database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	j := &SQLiteJournal{db: db, maxEntries: maxEntries, now: time.Now}
	if err := j.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) createSchema() error {
	_, err := j.db.Exec(`
	CREATE TABLE IF NOT EXISTS activity (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		profile_id TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activity_profile ON activity(profile_id, seq);
	`)
	return err
}

// Record appends ev, assigning an ID and timestamp when missing, and prunes
// the journal down to its maximum size.
func (j *SQLiteJournal) Record(ctx context.Context, ev domain.ActivityEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = j.now()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO activity (id, profile_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.ProfileID, string(ev.Kind), ev.Detail, ev.Timestamp.UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM activity WHERE seq <= (SELECT seq FROM activity ORDER BY seq DESC LIMIT 1 OFFSET ?)`,
		j.maxEntries,
	); err != nil {
		return fmt.Errorf("failed to prune activity: %w", err)
	}
	return tx.Commit()
}

// List returns up to limit events, newest first. An empty profileID
// matches every profile; limit <= 0 returns everything kept.
func (j *SQLiteJournal) List(ctx context.Context, profileID string, limit int) ([]domain.ActivityEvent, error) {
	if limit <= 0 {
		limit = j.maxEntries
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, profile_id, kind, detail, created_at FROM activity
		WHERE ? = '' OR profile_id = ?
		ORDER BY seq DESC LIMIT ?`,
		profileID, profileID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.ActivityEvent, 0)
	for rows.Next() {
		var (
			ev        domain.ActivityEvent
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&ev.ID, &ev.ProfileID, &kind, &ev.Detail, &createdAt); err != nil {
			return nil, err
		}
		ev.Kind = domain.EventKind(kind)
		ev.Timestamp = time.UnixMilli(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close releases the database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Ensure SQLiteJournal implements domain.ActivityJournal.
var _ domain.ActivityJournal = (*SQLiteJournal)(nil)
