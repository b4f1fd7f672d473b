// CLAUDE:SUMMARY Overlay sources (single / paged pair), z-order policy and compositor configuration.
// Package overlay composites one-page PDF overlays (watermarks, branding
// bars) onto every page of a target PDF.
//
// Placement follows geometry.Place: uniform scale-to-fit, centered, with
// rotation compensation for pages that declare /Rotate. The z-order is a
// caller decision passed per call:
//
//	ZBehind  overlay under the page content (content stays fully legible)
//	ZFront   overlay over the page content (overlay always visible)
//
// Usage:
//
//	c := overlay.New(overlay.Config{})
//	err := c.Composite(ctx, "in.pdf", "out.pdf", overlay.Single{Path: "WZ.pdf"}, overlay.Options{Z: overlay.ZBehind})
package overlay

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/hazyhaar/pdfbundle/pdfinfo"
)

// ZOrder selects whether the overlay renders behind or in front of content.
type ZOrder string

const (
	ZBehind ZOrder = "behind"
	ZFront  ZOrder = "front"
)

// ParseZOrder validates a z-order name. The empty string means ZBehind.
func ParseZOrder(s string) (ZOrder, error) {
	switch z := ZOrder(strings.ToLower(strings.TrimSpace(s))); z {
	case "":
		return ZBehind, nil
	case ZBehind, ZFront:
		return z, nil
	}
	return "", fmt.Errorf("unknown z-order %q (want behind or front)", s)
}

// Overlay names the one-page PDFs to composite. It is either Single or Paged.
type Overlay interface {
	// sources returns the distinct overlay files; pick maps a 1-based target
	// page number to an index into sources.
	sources() []string
	pick(pageNr int) int
}

// Single applies the same overlay to every page.
type Single struct {
	Path string
}

func (s Single) sources() []string { return []string{s.Path} }
func (Single) pick(int) int         { return 0 }

// Paged applies First to page 1 and Rest to every following page.
type Paged struct {
	First string
	Rest  string
}

func (p Paged) sources() []string {
	if p.First == p.Rest {
		return []string{p.First}
	}
	return []string{p.First, p.Rest}
}

func (p Paged) pick(pageNr int) int {
	if pageNr == 1 || p.First == p.Rest {
		return 0
	}
	return 1
}

// Options controls one Composite call.
type Options struct {
	Z ZOrder
	// SkipFirstPage leaves page 1 untouched (cover letters).
	SkipFirstPage bool
}

// Config configures a Compositor.
type Config struct {
	// WorkDir holds intermediate files (default: os.TempDir()).
	WorkDir string `json:"work_dir" yaml:"work_dir"`

	// PDF is the pdfcpu configuration (default: pdfinfo.NewConfiguration()).
	PDF *model.Configuration `json:"-" yaml:"-"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.PDF == nil {
		c.PDF = pdfinfo.NewConfiguration()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
