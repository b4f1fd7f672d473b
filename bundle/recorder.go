package bundle

import (
	"context"

	"github.com/hazyhaar/pdfbundle/journal"
)

// Recorder receives the run history. *journal.Journal implements it.
type Recorder interface {
	Begin(ctx context.Context, config string) (string, error)
	Record(ctx context.Context, ev journal.Event) error
	Finish(ctx context.Context, runID, status, output string, runErr error) error
}

var _ Recorder = (*journal.Journal)(nil)

// nopRecorder is used when no journal is configured.
type nopRecorder struct{}

func (nopRecorder) Begin(context.Context, string) (string, error)               { return "", nil }
func (nopRecorder) Record(context.Context, journal.Event) error                 { return nil }
func (nopRecorder) Finish(context.Context, string, string, string, error) error { return nil }
