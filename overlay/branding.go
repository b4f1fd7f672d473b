package overlay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/font"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/hazyhaar/pdfbundle/geometry"
	"github.com/hazyhaar/pdfbundle/internal/pdfgen"
	"github.com/hazyhaar/pdfbundle/pdfinfo"
)

// Bar positions.
const (
	BarBottom = "bottom"
	BarTop    = "top"
	BarBoth   = "both"
)

const brandingFont = "Helvetica-Bold"

// BrandingConfig describes the branding bars drawn across a page.
type BrandingConfig struct {
	Label      string  `json:"label" yaml:"label"`
	BarHeight  float64 `json:"bar_height" yaml:"bar_height"`
	Color      string  `json:"color" yaml:"color"`
	LabelColor string  `json:"label_color" yaml:"label_color"`
	Position   string  `json:"position" yaml:"position"`
}

func (c *BrandingConfig) defaults() {
	if c.BarHeight <= 0 {
		c.BarHeight = 20
	}
	if c.Color == "" {
		c.Color = "#f27f1c"
	}
	if c.LabelColor == "" {
		c.LabelColor = "#ffffff"
	}
	if c.Position == "" {
		c.Position = BarBottom
	}
}

// Branding synthesizes one-page branding overlays sized to a target page.
type Branding struct {
	cfg        BrandingConfig
	bar, label rgb
	text       []byte // label in WinAnsi
}

type rgb [3]float64

// NewBranding validates cfg and returns a generator.
func NewBranding(cfg BrandingConfig) (*Branding, error) {
	cfg.defaults()
	b := &Branding{cfg: cfg}

	var err error
	if b.bar, err = parseColor(cfg.Color); err != nil {
		return nil, fmt.Errorf("branding color: %w", err)
	}
	if b.label, err = parseColor(cfg.LabelColor); err != nil {
		return nil, fmt.Errorf("branding label_color: %w", err)
	}
	switch cfg.Position {
	case BarBottom, BarTop, BarBoth:
	default:
		return nil, fmt.Errorf("branding position %q (want bottom, top or both)", cfg.Position)
	}

	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	if b.text, err = enc.Bytes([]byte(cfg.Label)); err != nil {
		return nil, fmt.Errorf("encode branding label: %w", err)
	}
	return b, nil
}

// Config returns the effective configuration.
func (b *Branding) Config() BrandingConfig { return b.cfg }

// Generate returns a one-page PDF the size of target's visual frame with the
// configured bars and centered label. Placed with geometry.Place the bars
// land on the edges the reader sees as bottom and top.
func (b *Branding) Generate(target geometry.Page) ([]byte, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	v := target.Visual()
	bars := 1
	if b.cfg.Position == BarBoth {
		bars = 2
	}
	if b.cfg.BarHeight*float64(bars) > v.Height {
		return nil, fmt.Errorf("bar height %s does not fit page %s", pdfgen.Num(b.cfg.BarHeight), v)
	}

	var sb strings.Builder
	if b.cfg.Position == BarBottom || b.cfg.Position == BarBoth {
		b.drawBar(&sb, v.Width, 0)
	}
	if b.cfg.Position == BarTop || b.cfg.Position == BarBoth {
		b.drawBar(&sb, v.Width, v.Height-b.cfg.BarHeight)
	}

	page := pdfgen.Page{
		Width:   v.Width,
		Height:  v.Height,
		Content: sb.String(),
	}
	if len(b.text) > 0 {
		page.Fonts = map[string]string{"F1": brandingFont}
	}
	return pdfgen.Build([]pdfgen.Page{page}), nil
}

// LabelOrigin returns where the label baseline starts inside a bar whose
// lower edge is at y on a page of the given width.
func (b *Branding) LabelOrigin(width, y float64) (x, baseline float64) {
	size := b.fontSize()
	w := font.TextWidth(string(b.text), brandingFont, 1000) * size / 1000
	return (width - w) / 2, y + b.cfg.BarHeight/2 - 0.2*b.cfg.BarHeight
}

func (b *Branding) fontSize() float64 { return 0.6 * b.cfg.BarHeight }

func (b *Branding) drawBar(sb *strings.Builder, width, y float64) {
	h := b.cfg.BarHeight
	fmt.Fprintf(sb, "q\n%s rg\n0 %s %s %s re\nf\nQ\n", b.bar.operand(), pdfgen.Num(y), pdfgen.Num(width), pdfgen.Num(h))
	if len(b.text) == 0 {
		return
	}
	x, baseline := b.LabelOrigin(width, y)
	fmt.Fprintf(sb, "BT\n%s rg\n/F1 %s Tf\n%s %s Td\n%s Tj\nET\n",
		b.label.operand(), pdfgen.Num(b.fontSize()), pdfgen.Num(x), pdfgen.Num(baseline), pdfgen.String(b.text))
}

// Brand composites a branding overlay onto every page of targetPath. Pages
// sharing a visual frame share one generated overlay.
func (c *Compositor) Brand(ctx context.Context, targetPath, outPath string, b *Branding, opts Options) error {
	if b == nil {
		return fmt.Errorf("brand %s: no branding", filepath.Base(targetPath))
	}
	info, err := pdfinfo.Read(targetPath, 0)
	if err != nil {
		return fmt.Errorf("read target: %w", err)
	}

	scratch, err := os.MkdirTemp(c.cfg.WorkDir, "branding-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	type frame struct{ w, h float64 }
	index := map[frame]int{}
	var overlays []string
	for pageNr, g := range info.Pages {
		v := g.Visual()
		key := frame{v.Width, v.Height}
		if _, ok := index[key]; ok {
			continue
		}
		data, err := b.Generate(g)
		if err != nil {
			return fmt.Errorf("page %d: %w", pageNr+1, err)
		}
		path := filepath.Join(scratch, "branding-"+strconv.Itoa(len(overlays))+".pdf")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write branding overlay: %w", err)
		}
		index[key] = len(overlays)
		overlays = append(overlays, path)
	}
	if len(overlays) == 0 {
		return fmt.Errorf("brand %s: no pages", filepath.Base(targetPath))
	}

	return c.composite(ctx, targetPath, outPath, overlays, func(_ int, g geometry.Page) int {
		v := g.Visual()
		return index[frame{v.Width, v.Height}]
	}, opts)
}

func parseColor(s string) (rgb, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return rgb{}, fmt.Errorf("color %q: want #rrggbb", s)
	}
	var c rgb
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return rgb{}, fmt.Errorf("color %q: %w", s, err)
		}
		c[i] = float64(v) / 255
	}
	return c, nil
}

func (c rgb) operand() string {
	parts := make([]string, 3)
	for i, v := range c {
		parts[i] = strconv.FormatFloat(v, 'f', 4, 64)
		parts[i] = strings.TrimRight(strings.TrimRight(parts[i], "0"), ".")
		if parts[i] == "" {
			parts[i] = "0"
		}
	}
	return strings.Join(parts, " ")
}
