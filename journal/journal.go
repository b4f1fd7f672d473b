// CLAUDE:SUMMARY SQLite run journal: one row per bundle run, one row per per-type stage outcome (convert, composite, merge...).
// CLAUDE:DEPENDS dbopen, idgen
// Package journal keeps a history of bundle runs in SQLite so a failed or
// degraded run can be inspected after the fact.
//
// Usage:
//
//	j, err := journal.Open("runs.db")
//	runID, err := j.Begin(ctx, "bundle.yaml")
//	j.Record(ctx, journal.Event{RunID: runID, Type: "kst", Stage: journal.StageComposite, Status: journal.StatusOK})
//	j.Finish(ctx, runID, journal.StatusOK, "Output/Gesamtdokument.pdf", nil)
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pdfbundle/dbopen"
	"github.com/hazyhaar/pdfbundle/idgen"
)

// Stages of per-type work.
const (
	StageConvert   = "convert"
	StageAssemble  = "assemble"
	StageComposite = "composite"
	StageBrand     = "brand"
	StageMerge     = "merge"
	StageArchive   = "archive"
)

// Outcome statuses shared by runs and events.
const (
	StatusRunning  = "running"
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
)

// Run is one row of the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Config     string
	Output     string
	Error      string
}

// Event is one stage outcome inside a run.
type Event struct {
	ID       string
	RunID    string
	At       time.Time
	Type     string // document type ID, empty for run-level stages
	Stage    string
	Status   string
	Path     string
	Pages    int
	Duration time.Duration
	Message  string
}

// Journal writes and reads run history.
type Journal struct {
	db         *sql.DB
	newRunID   idgen.Generator
	newEventID idgen.Generator
	now        func() time.Time
}

// Option configures a Journal.
type Option func(*Journal)

// WithIDGenerators replaces the run and event ID generators.
func WithIDGenerators(run, event idgen.Generator) Option {
	return func(j *Journal) {
		j.newRunID = run
		j.newEventID = event
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// Open opens (creating if needed) the journal database at path.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an already opened database carrying Schema.
func New(db *sql.DB, opts ...Option) *Journal {
	j := &Journal{
		db:         db,
		newRunID:   idgen.Prefixed("run_", idgen.Default),
		newEventID: idgen.Prefixed("evt_", idgen.Default),
		now:        time.Now,
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

// Begin inserts a running run and returns its ID. config is a free-form
// description of the configuration used (usually the config file path).
func (j *Journal) Begin(ctx context.Context, config string) (string, error) {
	id := j.newRunID()
	_, err := dbopen.Exec(ctx, j.db,
		`INSERT INTO runs (run_id, started_at, status, config) VALUES (?, ?, ?, ?)`,
		id, j.now().UnixMilli(), StatusRunning, config)
	if err != nil {
		return "", fmt.Errorf("journal begin: %w", err)
	}
	return id, nil
}

// Record appends ev to its run. ID and At are filled in when empty.
func (j *Journal) Record(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = j.newEventID()
	}
	if ev.At.IsZero() {
		ev.At = j.now()
	}
	_, err := dbopen.Exec(ctx, j.db,
		`INSERT INTO run_events (event_id, run_id, at, doc_type, stage, status, path, pages, duration_ms, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.RunID, ev.At.UnixMilli(), ev.Type, ev.Stage, ev.Status, ev.Path,
		ev.Pages, ev.Duration.Milliseconds(), ev.Message)
	if err != nil {
		return fmt.Errorf("journal record %s/%s: %w", ev.Type, ev.Stage, err)
	}
	return nil
}

// Finish closes a run with its final status and output path.
func (j *Journal) Finish(ctx context.Context, runID, status, output string, runErr error) error {
	var msg string
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := dbopen.Exec(ctx, j.db,
		`UPDATE runs SET finished_at = ?, status = ?, output = ?, error = ? WHERE run_id = ?`,
		j.now().UnixMilli(), status, output, msg, runID)
	if err != nil {
		return fmt.Errorf("journal finish: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("journal finish: unknown run %s", runID)
	}
	return nil
}

// Events returns the events of runID in insertion order.
func (j *Journal) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT event_id, run_id, at, doc_type, stage, status, path, pages, duration_ms, message
		 FROM run_events WHERE run_id = ? ORDER BY at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev        Event
			at, durMs int64
		)
		if err := rows.Scan(&ev.ID, &ev.RunID, &at, &ev.Type, &ev.Stage, &ev.Status,
			&ev.Path, &ev.Pages, &durMs, &ev.Message); err != nil {
			return nil, fmt.Errorf("journal events scan: %w", err)
		}
		ev.At = time.UnixMilli(at)
		ev.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, ev)
	}
	return out, rows.Err()
}

// LastRuns returns the n most recent runs, newest first.
func (j *Journal) LastRuns(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, status, config, output, error
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("journal runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
			output   sql.NullString
			errMsg   sql.NullString
			config   sql.NullString
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Status, &config, &output, &errMsg); err != nil {
			return nil, fmt.Errorf("journal runs scan: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			r.FinishedAt = time.UnixMilli(finished.Int64)
		}
		r.Config, r.Output, r.Error = config.String, output.String, errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}
