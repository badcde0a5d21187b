// Package ledger persists which messages were already triaged and keeps an
// audit trail of past runs in a local SQLite database.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"mailsift/internal/model"
)

// Ledger stores processed message UIDs and run reports.
type Ledger struct {
	db *sqlx.DB
}

// Open opens (or creates) a SQLite database at dbPath, enables WAL mode,
// and runs any pending schema migrations.
func Open(dbPath string) (*Ledger, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return l, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (l *Ledger) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := l.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = l.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := l.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// ProcessedUIDs returns the set of message UIDs already handled in mailbox.
func (l *Ledger) ProcessedUIDs(ctx context.Context, mailboxName string) (map[uint32]bool, error) {
	rows, err := l.db.QueryxContext(ctx,
		"SELECT uid FROM processed_messages WHERE mailbox = ?", mailboxName,
	)
	if err != nil {
		return nil, fmt.Errorf("querying processed messages: %w", err)
	}
	defer rows.Close()

	uids := make(map[uint32]bool)
	for rows.Next() {
		var uid uint32
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scanning processed uid: %w", err)
		}
		uids[uid] = true
	}

	return uids, rows.Err()
}

// MarkProcessed records uids as handled in mailbox. Re-marking a UID is a
// no-op so retried runs stay idempotent.
func (l *Ledger) MarkProcessed(ctx context.Context, mailboxName string, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR IGNORE INTO processed_messages (uid, mailbox, processed_at)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing mark statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, uid := range uids {
		if _, err := stmt.ExecContext(ctx, uid, mailboxName, now); err != nil {
			return fmt.Errorf("marking uid %d processed: %w", uid, err)
		}
	}

	return tx.Commit()
}

// RecordRun persists a run report and its entries.
func (l *Ledger) RecordRun(ctx context.Context, report *model.RunReport) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, mailbox, model, dry_run, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID, report.Mailbox, report.Model,
		boolToInt(report.DryRun),
		report.StartedAt.UTC(), report.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", report.ID, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO run_entries (run_id, uid, subject, category, action, target, outcome, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entry statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range report.Entries {
		_, err := stmt.ExecContext(ctx,
			report.ID, e.MessageUID, e.Subject, e.Category,
			string(e.Action), e.TargetFolder, string(e.Outcome), e.Detail,
		)
		if err != nil {
			return fmt.Errorf("inserting entry for uid %d: %w", e.MessageUID, err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID         string    `db:"id"`
	Mailbox    string    `db:"mailbox"`
	Model      string    `db:"model"`
	DryRun     bool      `db:"dry_run"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Entries    int       `db:"entries"`
}

// RecentRuns returns the most recent runs, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.QueryxContext(ctx, `
		SELECT r.id, r.mailbox, r.model, r.dry_run, r.started_at, r.finished_at,
		       COUNT(e.run_id) AS entries
		FROM runs r
		LEFT JOIN run_entries e ON e.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			s      RunSummary
			dryRun int
		)
		err := rows.Scan(
			&s.ID, &s.Mailbox, &s.Model, &dryRun,
			&s.StartedAt, &s.FinishedAt, &s.Entries,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		s.DryRun = dryRun != 0
		runs = append(runs, s)
	}

	return runs, rows.Err()
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
