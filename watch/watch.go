// Package watch provides a "poll, detect change, debounce, act" loop used to
// rebuild the bundle whenever the input directory changes.
//
// Typical usage:
//
//	w := watch.New(watch.Options{Detector: watch.DirFingerprint(dir), Debounce: 3 * time.Second})
//	w.OnChange(ctx, func(ctx context.Context) error { _, err := p.Run(ctx); return err })
package watch

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Detector returns a version token. Two calls that return different values
// mean "something changed".
type Detector func(ctx context.Context) (uint64, error)

// Options tunes the watcher behaviour.
type Options struct {
	// Detector is required.
	Detector Detector
	// Interval is the polling frequency. Default: 2s.
	Interval time.Duration
	// Debounce is the quiet period after a change before the action fires.
	// Further changes during the window restart it. 0 fires immediately.
	Debounce time.Duration
	Logger   *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls a Detector and runs an action after each settled change.
type Watcher struct {
	opts    Options
	version atomic.Uint64

	checks   atomic.Int64
	changes  atomic.Int64
	errors   atomic.Int64
	runs     atomic.Int64
	failures atomic.Int64
}

// Stats are point-in-time counters.
type Stats struct {
	Checks          int64 `json:"checks"`
	ChangesDetected int64 `json:"changes_detected"`
	Errors          int64 `json:"errors"`
	Runs            int64 `json:"runs"`
	Failures        int64 `json:"failures"`
}

// New creates a Watcher. Call OnChange to start the loop.
func New(opts Options) *Watcher {
	opts.defaults()
	return &Watcher{opts: opts}
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Checks:          w.checks.Load(),
		ChangesDetected: w.changes.Load(),
		Errors:          w.errors.Load(),
		Runs:            w.runs.Load(),
		Failures:        w.failures.Load(),
	}
}

// OnChange blocks until ctx is cancelled. The first observed version is the
// baseline; every later change that stays quiet for Debounce calls action.
//
// After action returns, the version is re-read, so changes made by the
// action itself (archiving processed inputs) do not trigger another run.
// A failed action is not retried until the next change.
func (w *Watcher) OnChange(ctx context.Context, action func(context.Context) error) error {
	if w.opts.Detector == nil {
		return errors.New("watch: no detector")
	}
	log := w.opts.Logger

	v, err := w.opts.Detector(ctx)
	if err != nil {
		log.Warn("watch: initial version check failed", "error", err)
	} else {
		w.version.Store(v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var (
		debounce   *time.Timer
		debounceCh <-chan time.Time
		pending    uint64
		hasPending bool
	)
	log.Info("watch: started", "interval", w.opts.Interval, "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			log.Info("watch: stopped")
			return ctx.Err()

		case <-ticker.C:
			w.checks.Add(1)
			cur, err := w.opts.Detector(ctx)
			if err != nil {
				w.errors.Add(1)
				log.Warn("watch: version check failed", "error", err)
				continue
			}
			if cur == w.version.Load() || (hasPending && cur == pending) {
				continue
			}
			w.changes.Add(1)
			pending, hasPending = cur, true
			if w.opts.Debounce <= 0 {
				w.fire(ctx, action)
				hasPending = false
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(w.opts.Debounce)
			debounceCh = debounce.C
			log.Debug("watch: change detected, debouncing", "version", cur)

		case <-debounceCh:
			debounceCh = nil
			if hasPending {
				w.fire(ctx, action)
				hasPending = false
			}
		}
	}
}

func (w *Watcher) fire(ctx context.Context, action func(context.Context) error) {
	log := w.opts.Logger
	start := time.Now()
	w.runs.Add(1)
	if err := action(ctx); err != nil {
		w.failures.Add(1)
		log.Error("watch: run failed", "error", err, "duration", time.Since(start))
	} else {
		log.Info("watch: run complete", "duration", time.Since(start))
	}
	if v, err := w.opts.Detector(ctx); err == nil {
		w.version.Store(v)
	} else {
		w.errors.Add(1)
		log.Warn("watch: version check failed", "error", err)
	}
}

// DirFingerprint hashes the name, size and modification time of every
// regular, non-hidden file directly inside dir.
func DirFingerprint(dir string) Detector {
	return func(context.Context) (uint64, error) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return 0, err
		}
		h := fnv.New64a()
		var buf [16]byte
		for _, e := range entries {
			if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			fi, err := e.Info()
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue // removed between ReadDir and Info
				}
				return 0, err
			}
			h.Write([]byte(e.Name()))
			h.Write([]byte{0})
			binary.LittleEndian.PutUint64(buf[:8], uint64(fi.Size()))
			binary.LittleEndian.PutUint64(buf[8:], uint64(fi.ModTime().UnixNano()))
			h.Write(buf[:])
		}
		return h.Sum64(), nil
	}
}
