// CLAUDE:SUMMARY Compositor: merges target + overlay pages with pdfcpu, turns overlay pages into form XObjects, restacks page content per z-order.
// CLAUDE:DEPENDS geometry, pdfinfo, overlay/form.go
package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/hazyhaar/pdfbundle/geometry"
	"github.com/hazyhaar/pdfbundle/pdfinfo"
)

// Compositor places overlays onto PDF pages.
type Compositor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Compositor with the given configuration.
func New(cfg Config) *Compositor {
	cfg.defaults()
	return &Compositor{cfg: cfg, logger: cfg.Logger}
}

// Composite writes targetPath with ov applied to every page to outPath.
// targetPath is never modified. Any error leaves outPath unwritten or
// incomplete; callers fall back to the unmodified target.
func (c *Compositor) Composite(ctx context.Context, targetPath, outPath string, ov Overlay, opts Options) error {
	if ov == nil {
		return fmt.Errorf("composite %s: no overlay", filepath.Base(targetPath))
	}
	for _, src := range ov.sources() {
		if src == "" {
			return fmt.Errorf("composite %s: empty overlay path", filepath.Base(targetPath))
		}
	}
	return c.composite(ctx, targetPath, outPath, ov.sources(), func(pageNr int, _ geometry.Page) int {
		return ov.pick(pageNr)
	}, opts)
}

// pickFunc chooses the overlay for a target page.
type pickFunc func(pageNr int, g geometry.Page) int

func (c *Compositor) composite(ctx context.Context, targetPath, outPath string, overlays []string, pick pickFunc, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	z, err := ParseZOrder(string(opts.Z))
	if err != nil {
		return err
	}

	// Page counts decide where each overlay's first page lands once
	// everything is merged into one document.
	targetPages, err := pdfinfo.PageCount(targetPath)
	if err != nil {
		return fmt.Errorf("read target: %w", err)
	}
	firstPage := make([]int, len(overlays))
	next := targetPages + 1
	for i, src := range overlays {
		n, err := pdfinfo.PageCount(src)
		if err != nil {
			return fmt.Errorf("read overlay %s: %w", filepath.Base(src), err)
		}
		if n < 1 {
			return fmt.Errorf("overlay %s has no pages", filepath.Base(src))
		}
		if n > 1 {
			c.logger.Debug("overlay has extra pages, using page 1", "overlay", src, "pages", n)
		}
		firstPage[i] = next
		next += n
	}

	scratch, err := os.MkdirTemp(c.cfg.WorkDir, "composite-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	combined := filepath.Join(scratch, "combined.pdf")
	inFiles := append([]string{targetPath}, overlays...)
	if err := api.MergeCreateFile(inFiles, combined, false, c.cfg.PDF); err != nil {
		return fmt.Errorf("merge overlay pages: %w", err)
	}

	pctx, err := pdfinfo.Open(combined, c.cfg.PDF)
	if err != nil {
		return err
	}
	if pctx.PageCount != next-1 {
		return fmt.Errorf("merged page count %d, want %d", pctx.PageCount, next-1)
	}

	forms := make([]*form, len(overlays))
	for i := range overlays {
		f, err := newForm(pctx, firstPage[i])
		if err != nil {
			return fmt.Errorf("overlay %s: %w", filepath.Base(overlays[i]), err)
		}
		forms[i] = f
	}

	stamped := 0
	for pageNr := 1; pageNr <= targetPages; pageNr++ {
		if opts.SkipFirstPage && pageNr == 1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		g, box, err := pdfinfo.PageGeometry(pctx, pageNr)
		if err != nil {
			return err
		}
		idx := pick(pageNr, g)
		if idx < 0 || idx >= len(forms) {
			return fmt.Errorf("page %d: overlay index %d out of range", pageNr, idx)
		}
		f := forms[idx]

		m, err := geometry.Place(g, f.geom)
		if err != nil {
			return fmt.Errorf("page %d: %w", pageNr, err)
		}
		// The target media box may start away from the origin.
		m = m.Multiply(geometry.Translate(box.LL.X, box.LL.Y))

		if err := stampPage(pctx, pageNr, f.ref, m, z); err != nil {
			return fmt.Errorf("page %d: %w", pageNr, err)
		}
		stamped++
	}

	withOverlays := filepath.Join(scratch, "stamped.pdf")
	if err := api.WriteContextFile(pctx, withOverlays); err != nil {
		return fmt.Errorf("write stamped pdf: %w", err)
	}

	// The overlay pages were only carried along as form sources.
	drop := []string{strconv.Itoa(targetPages+1) + "-" + strconv.Itoa(next-1)}
	if err := api.RemovePagesFile(withOverlays, outPath, drop, c.cfg.PDF); err != nil {
		return fmt.Errorf("drop overlay pages: %w", err)
	}

	c.logger.Debug("composited overlay",
		"path", targetPath, "pages", targetPages, "stamped", stamped, "z_order", string(z))
	return nil
}
