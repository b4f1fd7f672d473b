package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/pdfbundle/geometry"
	"github.com/hazyhaar/pdfbundle/pdfinfo"
)

func newInspectCmd() *cobra.Command {
	var sample int
	cmd := &cobra.Command{
		Use:   "inspect file.pdf...",
		Short: "Print page count, page geometry and a text sample of PDF files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := newTable()
			t.AppendHeader(row("File", "Pages", "Geometry", "Text"))
			failed := 0
			for _, path := range args {
				info, err := pdfinfo.Read(path, sample)
				if err != nil {
					failed++
					t.AppendRow(row(filepath.Base(path), "-", "error", err.Error()))
					continue
				}
				t.AppendRow(row(filepath.Base(path), info.PageCount, geometrySummary(info.Pages), oneLine(info.TextSample)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			if failed > 0 {
				return fmt.Errorf("%d of %d files unreadable", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&sample, "sample", 60, "first-page text sample length in characters (0 disables)")
	return cmd
}

// geometrySummary lists the distinct page geometries in page order, e.g.
// "595x842" or "595x842, 842x595 rot 90".
func geometrySummary(pages []geometry.Page) string {
	var out []string
	seen := map[geometry.Page]bool{}
	for _, p := range pages {
		if seen[p] {
			continue
		}
		seen[p] = true
		s := num(p.Width) + "x" + num(p.Height)
		if p.Rotation != 0 {
			s += " rot " + strconv.Itoa(p.Rotation)
		}
		out = append(out, s)
	}
	return strings.Join(out, ", ")
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func oneLine(s string) string { return strings.Join(strings.Fields(s), " ") }
