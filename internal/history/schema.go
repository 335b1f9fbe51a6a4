package history

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	objective TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	plan_objective TEXT NOT NULL DEFAULT '',
	steps TEXT NOT NULL DEFAULT '[]', -- JSON array
	completed INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL, -- complete, failed, canceled
	error TEXT NOT NULL DEFAULT '',
	report TEXT NOT NULL DEFAULT '',
	tool_calls INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tool_calls TEXT, -- JSON
	tool_call_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
