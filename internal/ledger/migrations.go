package ledger

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_messages (
	uid          INTEGER NOT NULL,
	mailbox      TEXT NOT NULL,
	processed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (mailbox, uid)
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	mailbox     TEXT NOT NULL,
	model       TEXT NOT NULL DEFAULT '',
	dry_run     INTEGER NOT NULL DEFAULT 0 CHECK(dry_run IN (0, 1)),
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS run_entries (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	uid      INTEGER NOT NULL,
	subject  TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	action   TEXT NOT NULL DEFAULT 'none',
	target   TEXT NOT NULL DEFAULT '',
	outcome  TEXT NOT NULL,
	detail   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_processed_mailbox ON processed_messages(mailbox);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_entries_run_id ON run_entries(run_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
