package journal

// Schema creates the journal tables. Idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id      TEXT PRIMARY KEY,
    started_at  INTEGER NOT NULL,
    finished_at INTEGER,
    status      TEXT NOT NULL DEFAULT 'running',
    config      TEXT,
    output      TEXT,
    error       TEXT
);

CREATE TABLE IF NOT EXISTS run_events (
    event_id    TEXT PRIMARY KEY,
    run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    at          INTEGER NOT NULL,
    doc_type    TEXT NOT NULL DEFAULT '',
    stage       TEXT NOT NULL,
    status      TEXT NOT NULL,
    path        TEXT NOT NULL DEFAULT '',
    pages       INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    message     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id, at);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
