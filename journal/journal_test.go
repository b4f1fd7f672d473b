package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/pdfbundle/dbopen"
	"github.com/hazyhaar/pdfbundle/idgen"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return New(db,
		WithIDGenerators(idgen.Sequence("run_"), idgen.Sequence("evt_")),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
}

func TestJournal_RunLifecycle(t *testing.T) {
	// WHAT: a run is begun, collects events in order and is finished.
	// WHY: `pdfbundle runs` reads exactly these rows back.
	j := testJournal(t)
	ctx := context.Background()

	runID, err := j.Begin(ctx, "bundle.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if runID != "run_1" {
		t.Fatalf("run id = %q", runID)
	}

	events := []Event{
		{RunID: runID, Type: "anschreiben", Stage: StageConvert, Status: StatusOK, Path: "Input/BaM.docx", Duration: 1500 * time.Millisecond},
		{RunID: runID, Type: "kst", Stage: StageComposite, Status: StatusDegraded, Message: "overlay missing", Pages: 3},
		{RunID: runID, Stage: StageMerge, Status: StatusOK, Pages: 5},
	}
	for _, ev := range events {
		if err := j.Record(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := j.Finish(ctx, runID, StatusDegraded, "Output/Gesamtdokument.pdf", nil); err != nil {
		t.Fatal(err)
	}

	got, err := j.Events(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	type row struct {
		ID, Type, Stage, Status, Message string
		Pages                            int
		Duration                         time.Duration
	}
	var rows []row
	for _, ev := range got {
		rows = append(rows, row{ev.ID, ev.Type, ev.Stage, ev.Status, ev.Message, ev.Pages, ev.Duration})
	}
	want := []row{
		{"evt_1", "anschreiben", StageConvert, StatusOK, "", 0, 1500 * time.Millisecond},
		{"evt_2", "kst", StageComposite, StatusDegraded, "overlay missing", 3, 0},
		{"evt_3", "", StageMerge, StatusOK, "", 5, 0},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	runs, err := j.LastRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d", len(runs))
	}
	r := runs[0]
	if r.Status != StatusDegraded || r.Output != "Output/Gesamtdokument.pdf" || r.Config != "bundle.yaml" || r.Error != "" {
		t.Fatalf("run = %+v", r)
	}
	if !r.FinishedAt.After(r.StartedAt) {
		t.Fatalf("finished %v not after started %v", r.FinishedAt, r.StartedAt)
	}
}

func TestJournal_LastRunsNewestFirst(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		id, err := j.Begin(ctx, "bundle.yaml")
		if err != nil {
			t.Fatal(err)
		}
		if err := j.Finish(ctx, id, StatusFailed, "", errors.New("no section produced")); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := j.LastRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{runs[0].ID, runs[1].ID}
	if diff := cmp.Diff([]string{"run_3", "run_2"}, ids); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
	if runs[0].Error != "no section produced" {
		t.Fatalf("error = %q", runs[0].Error)
	}
}

func TestJournal_Running(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()
	if _, err := j.Begin(ctx, ""); err != nil {
		t.Fatal(err)
	}
	runs, err := j.LastRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].Status != StatusRunning || !runs[0].FinishedAt.IsZero() {
		t.Fatalf("open run = %+v", runs[0])
	}
}

func TestJournal_Errors(t *testing.T) {
	j := testJournal(t)
	ctx := context.Background()
	if err := j.Finish(ctx, "run_missing", StatusOK, "", nil); err == nil {
		t.Error("expected error finishing an unknown run")
	}
	if err := j.Record(ctx, Event{RunID: "run_missing", Stage: StageMerge, Status: StatusOK}); err == nil {
		t.Error("expected foreign key error for an unknown run")
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "runs.db")
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	id, err := j.Begin(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idgen.Parse(id[len("run_"):]); err != nil {
		t.Fatalf("default run id %q: %v", id, err)
	}
}
