// CLAUDE:SUMMARY Reads PDFs through pdfcpu: page count, per-page geometry (media box + inherited /Rotate), first-page text sample.
// CLAUDE:DEPENDS geometry
// Package pdfinfo answers the questions the bundle asks about a PDF before
// touching it: how many pages, what size and rotation each page declares,
// and what the first page says.
package pdfinfo

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/hazyhaar/pdfbundle/geometry"
)

// Info summarizes one PDF file.
type Info struct {
	Path       string          `json:"path"`
	PageCount  int             `json:"page_count"`
	Pages      []geometry.Page `json:"pages"`
	TextSample string          `json:"text_sample,omitempty"`
}

// NewConfiguration returns the pdfcpu configuration used across the module.
func NewConfiguration() *model.Configuration {
	return model.NewDefaultConfiguration()
}

// Open reads and validates a PDF file into a pdfcpu context.
func Open(path string, conf *model.Configuration) (*model.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if conf == nil {
		conf = NewConfiguration()
	}
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read %s: %w", path, err)
	}
	return ctx, nil
}

// Read opens path and collects page count, geometry and a text sample of at
// most sampleLen runes (0 disables sampling).
func Read(path string, sampleLen int) (*Info, error) {
	ctx, err := Open(path, nil)
	if err != nil {
		return nil, err
	}

	info := &Info{Path: path, PageCount: ctx.PageCount}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		g, _, err := PageGeometry(ctx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		info.Pages = append(info.Pages, g)
	}
	if sampleLen > 0 && ctx.PageCount > 0 {
		info.TextSample = truncateRunes(extractPageText(ctx, 1), sampleLen)
	}
	return info, nil
}

// PageCount returns the number of pages in path.
func PageCount(path string) (int, error) {
	ctx, err := Open(path, nil)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

// PageGeometry returns the declared geometry of pageNr together with its
// media box. The rotation honours /Rotate inherited from the page tree.
func PageGeometry(ctx *model.Context, pageNr int) (geometry.Page, *types.Rectangle, error) {
	d, _, inh, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return geometry.Page{}, nil, fmt.Errorf("page %d: %w", pageNr, err)
	}
	if d == nil || inh == nil || inh.MediaBox == nil {
		return geometry.Page{}, nil, fmt.Errorf("page %d: no media box", pageNr)
	}

	rot := inh.Rotate
	if r := d.IntEntry("Rotate"); r != nil {
		rot = *r
	}

	box := inh.MediaBox
	g := geometry.Page{Width: box.Width(), Height: box.Height(), Rotation: rot}
	if err := g.Validate(); err != nil {
		return geometry.Page{}, nil, fmt.Errorf("page %d: %w", pageNr, err)
	}
	return g, box, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
