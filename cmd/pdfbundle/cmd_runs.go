package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/pdfbundle/journal"
)

func newRunsCmd() *cobra.Command {
	var flags struct {
		config string
		limit  int
		run    string
	}
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the journal, or the events of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.config)
			if err != nil {
				return err
			}
			if cfg.JournalDB == "" {
				return errors.New("journal_db is not configured")
			}
			j, err := journal.Open(cfg.JournalDB)
			if err != nil {
				return err
			}
			defer j.Close()

			t := newTable()
			if flags.run != "" {
				events, err := j.Events(cmd.Context(), flags.run)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					return fmt.Errorf("no events for run %s", flags.run)
				}
				t.AppendHeader(row("At", "Type", "Stage", "Status", "Pages", "Duration", "Path / message"))
				for _, ev := range events {
					detail := ev.Path
					if ev.Message != "" {
						detail = ev.Message
					}
					t.AppendRow(row(ev.At.Format(time.TimeOnly), ev.Type, ev.Stage, ev.Status,
						ev.Pages, ev.Duration.Round(time.Millisecond), detail))
				}
			} else {
				runs, err := j.LastRuns(cmd.Context(), flags.limit)
				if err != nil {
					return err
				}
				t.AppendHeader(row("Run", "Started", "Duration", "Status", "Output", "Error"))
				for _, r := range runs {
					dur := "-"
					if !r.FinishedAt.IsZero() {
						dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
					}
					t.AppendRow(row(r.ID, r.StartedAt.Format(time.DateTime), dur, r.Status, r.Output, r.Error))
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	configFlag(cmd, &flags.config)
	cmd.Flags().IntVar(&flags.limit, "limit", 20, "number of runs to list")
	cmd.Flags().StringVar(&flags.run, "run", "", "show the events of this run")
	return cmd
}
