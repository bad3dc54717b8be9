package store

// schemaVersion is the target schema version for this build.
const schemaVersion = 1

var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	scenario    TEXT NOT NULL,
	base_url    TEXT,
	state       TEXT NOT NULL,
	failed_step INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario, started_at);

CREATE TABLE IF NOT EXISTS run_steps (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx        INTEGER NOT NULL,
	label      TEXT NOT NULL,
	status     TEXT NOT NULL,
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	artifact   TEXT,
	condition  TEXT,
	error      TEXT,
	PRIMARY KEY (run_id, idx)
);
`
