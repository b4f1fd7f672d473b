package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/disiqueira/gotree/v3"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/pdfbundle/bundle"
	"github.com/hazyhaar/pdfbundle/convert"
	"github.com/hazyhaar/pdfbundle/pdfinfo"
)

func newDiscoverCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Show how the input files would be classified, in merge order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			p, err := bundle.New(*cfg)
			if err != nil {
				return err
			}
			plan, err := p.Plan()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), discoveryTree(p.Config(), plan))
			return nil
		},
	}
	configFlag(cmd, &configPath)
	return cmd
}

// discoveryTree renders the plan as output -> type -> file, followed by the
// expected section sequence.
func discoveryTree(cfg bundle.Config, plan *bundle.Plan) string {
	root := gotree.New(fmt.Sprintf("%s (%d files in %s)", cfg.OutputName, len(plan.Files), cfg.InputDir))

	var sequence []string
	for _, id := range cfg.MergeOrder {
		files, ok := plan.Classified[id]
		if !ok || slices.Contains(sequence, id) {
			continue
		}
		sequence = append(sequence, id)
		node := root.Add(fmt.Sprintf("%d. %s (%s)", len(sequence), id, watermarkLabel(cfg.Types[id].Watermark)))
		for _, f := range files {
			node.Add(f.Name + " " + fileNote(f.Path))
		}
	}

	var skipped []string
	for _, id := range sortedKeys(plan.Classified) {
		if !slices.Contains(sequence, id) {
			skipped = append(skipped, id)
		}
	}
	if len(skipped) > 0 {
		node := root.Add("not in merge_order")
		for _, id := range skipped {
			t := node.Add(id)
			for _, f := range plan.Classified[id] {
				t.Add(f.Name)
			}
		}
	}
	if len(plan.Unmatched) > 0 {
		node := root.Add("unmatched")
		for _, f := range plan.Unmatched {
			node.Add(f.Name)
		}
	}

	out := root.Print()
	if len(sequence) == 0 {
		return out + "sequence: (empty, no output would be written)\n"
	}
	return out + "sequence: " + strings.Join(sequence, " > ") + "\n"
}

func watermarkLabel(w bundle.WatermarkRef) string {
	switch w := w.(type) {
	case bundle.SingleWatermark:
		return w.Name
	case bundle.PagedWatermark:
		return w.First + " / " + w.Rest
	}
	return "no watermark"
}

// fileNote reports the page count of PDFs and the pending conversion of
// everything else.
func fileNote(path string) string {
	format, err := convert.Detect(path)
	if err != nil {
		return "[unknown format]"
	}
	if format.Convertible() {
		return "[" + string(format) + ", converted at run time]"
	}
	n, err := pdfinfo.PageCount(path)
	if err != nil {
		return "[unreadable]"
	}
	if n == 1 {
		return "[1 page]"
	}
	return fmt.Sprintf("[%d pages]", n)
}
