package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/pdfbundle/bundle"
	"github.com/hazyhaar/pdfbundle/journal"
	"github.com/hazyhaar/pdfbundle/overlay"
	"github.com/hazyhaar/pdfbundle/watch"
)

func newRunCmd() *cobra.Command {
	var flags struct {
		config   string
		zOrder   string
		workers  int
		keepWork bool
		watch    bool
		interval time.Duration
		debounce time.Duration
	}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the output document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.config)
			if err != nil {
				return err
			}
			if flags.zOrder != "" {
				if cfg.ZOrder, err = overlay.ParseZOrder(flags.zOrder); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = flags.workers
			}
			if flags.keepWork {
				cfg.KeepWork = true
			}

			opts := []bundle.Option{bundle.WithLabel(flags.config)}
			if cfg.JournalDB != "" {
				j, err := journal.Open(cfg.JournalDB)
				if err != nil {
					slog.Warn("journal unavailable, run not recorded", "path", cfg.JournalDB, "error", err)
				} else {
					defer j.Close()
					opts = append(opts, bundle.WithRecorder(j))
				}
			}

			p, err := bundle.New(*cfg, opts...)
			if err != nil {
				return err
			}
			runOnce := func(ctx context.Context) error {
				report, err := p.Run(ctx)
				if report != nil {
					fmt.Fprint(cmd.OutOrStdout(), reportTable(report, p.Config().MergeOrder))
				}
				return err
			}
			if !flags.watch {
				return runOnce(cmd.Context())
			}

			// Build once, then again whenever the input dir settles after a change.
			if err := runOnce(cmd.Context()); err != nil && !errors.Is(err, bundle.ErrEmptyResult) {
				slog.Error("initial run failed", "error", err)
			}
			w := watch.New(watch.Options{
				Detector: watch.DirFingerprint(cfg.InputDir),
				Interval: flags.interval,
				Debounce: flags.debounce,
			})
			if err := w.OnChange(cmd.Context(), runOnce); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	configFlag(cmd, &flags.config)
	f := cmd.Flags()
	f.StringVar(&flags.zOrder, "z-order", "", "overlay placement: behind or front (overrides config)")
	f.IntVar(&flags.workers, "workers", 1, "types processed in parallel (overrides config)")
	f.BoolVar(&flags.keepWork, "keep-work", false, "keep the intermediate files of the run")
	f.BoolVar(&flags.watch, "watch", false, "keep running and rebuild when the input directory changes")
	f.DurationVar(&flags.interval, "interval", 2*time.Second, "input directory polling interval (with --watch)")
	f.DurationVar(&flags.debounce, "debounce", 3*time.Second, "quiet period before a rebuild (with --watch)")
	return cmd
}

// reportTable renders one row per type that had files, in merge order
// first, then the types that were not merged.
func reportTable(r *bundle.Report, mergeOrder []string) string {
	t := newTable()
	t.AppendHeader(row("#", "Type", "Status", "Files", "Pages", "Error"))

	seen := map[string]bool{}
	pos := 0
	add := func(id string) {
		res, ok := r.Results[id]
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		idx, pages := "-", "-"
		if res.Section != nil {
			pos++
			idx, pages = fmt.Sprint(pos), fmt.Sprint(res.Section.Pages)
		}
		files := fmt.Sprint(len(res.Converted))
		if len(res.Failed) > 0 {
			files += fmt.Sprintf(" (%d failed)", len(res.Failed))
		}
		msg := ""
		if res.Err != nil {
			msg = strings.ReplaceAll(res.Err.Error(), "\n", "; ")
		}
		t.AppendRow(row(idx, id, string(res.Status), files, pages, msg))
	}
	for _, id := range mergeOrder {
		add(id)
	}
	for _, id := range sortedKeys(r.Results) {
		add(id)
	}

	output := r.Output
	if output == "" {
		output = "(not written)"
	}
	t.AppendFooter(row("", string(r.Status()), "", "", r.Pages, output))
	return t.Render() + "\n"
}
