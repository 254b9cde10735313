package history

// Schema creates the event journal table.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	job_id     TEXT NOT NULL DEFAULT '',
	disk_id    TEXT NOT NULL,
	action     TEXT NOT NULL,
	amount_gb  REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_disk_id ON events(disk_id);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
`
