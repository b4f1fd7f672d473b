package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/pdfbundle/convert"
	"github.com/hazyhaar/pdfbundle/internal/pdfgen"
	"github.com/hazyhaar/pdfbundle/overlay"
)

const sampleYAML = `
input_dir: Input
watermark_dir: Watermarks
output_dir: Output
processed_dir: Erledigt
z_order: front
workers: 3
converter:
  binary: /opt/libreoffice/program/soffice
  timeout: 90s
branding:
  enabled: true
  label: Muster GmbH
  bar_height: 18
special_watermark:
  first: WZ_Deckblatt.pdf
  rest: WZ_Allgemein.pdf
types:
  anschreiben:
    prefixes: [BaM]
    watermark: WZ_Anschreiben.pdf
    format: docx
    branding: false
  jahresabschluss:
    prefixes: [JA]
    watermark:
      first: WZ_Deckblatt.pdf
      rest: WZ_Allgemein.pdf
  kst:
    prefixes: [KSt]
    exclude: [Freizeichnungsdokument]
    watermark: special
    skip_first_page: true
  sonstiges:
    prefixes: [Anlage]
    watermark: null
merge_order: [anschreiben, kst, jahresabschluss]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	base := filepath.Dir(path)

	if cfg.InputDir != filepath.Join(base, "Input") || cfg.ProcessedDir != filepath.Join(base, "Erledigt") {
		t.Errorf("paths not resolved: %q %q", cfg.InputDir, cfg.ProcessedDir)
	}
	if cfg.ZOrder != overlay.ZFront || cfg.Workers != 3 {
		t.Errorf("z_order %q workers %d", cfg.ZOrder, cfg.Workers)
	}
	if cfg.Converter.Timeout != 90*time.Second || cfg.Converter.Binary != "/opt/libreoffice/program/soffice" {
		t.Errorf("converter = %+v", cfg.Converter)
	}
	if !cfg.Branding.Enabled || cfg.Branding.Label != "Muster GmbH" || cfg.Branding.BarHeight != 18 {
		t.Errorf("branding = %+v", cfg.Branding)
	}

	no := false
	want := map[string]DocumentType{
		"anschreiben": {
			ID: "anschreiben", Prefixes: []string{"BaM"},
			Watermark: SingleWatermark{Name: "WZ_Anschreiben.pdf"},
			Format:    convert.FormatDocx, Branding: &no,
		},
		"jahresabschluss": {
			ID: "jahresabschluss", Prefixes: []string{"JA"},
			Watermark: PagedWatermark{First: "WZ_Deckblatt.pdf", Rest: "WZ_Allgemein.pdf"},
		},
		"kst": {
			ID: "kst", Prefixes: []string{"KSt"}, Exclude: []string{"Freizeichnungsdokument"},
			Watermark:     PagedWatermark{First: "WZ_Deckblatt.pdf", Rest: "WZ_Allgemein.pdf"},
			SkipFirstPage: true,
		},
		"sonstiges": {
			ID: "sonstiges", Prefixes: []string{"Anlage"},
			Watermark: NoWatermark{},
		},
	}
	if diff := cmp.Diff(want, cfg.Types); diff != "" {
		t.Fatalf("types (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"anschreiben", "kst", "jahresabschluss"}, cfg.MergeOrder); diff != "" {
		t.Fatalf("merge_order (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"special without pair", "types:\n  kst:\n    prefixes: [KSt]\n    watermark: special\n", "special_watermark"},
		{"half paged", "types:\n  ja:\n    prefixes: [JA]\n    watermark: {first: a.pdf}\n", "first and rest"},
		{"list watermark", "types:\n  ja:\n    prefixes: [JA]\n    watermark: [a.pdf]\n", "want a file name"},
		{"unknown format", "types:\n  ja:\n    prefixes: [JA]\n    format: xlsx\n", "unknown format"},
		{"bad yaml", "types: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: %v", err)
	}
}

func TestValidate_Defaults(t *testing.T) {
	// WHAT: an almost empty config falls back to the built-in types and orders.
	cfg := Config{InputDir: t.TempDir(), OutputDir: t.TempDir(), WatermarkDir: t.TempDir()}
	for _, name := range []string{WatermarkAnschreiben, WatermarkDeckblatt, WatermarkAllgemein} {
		writePDF(t, filepath.Join(cfg.WatermarkDir, name), pdfgen.BoxPage(595, 842))
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.OutputName != DefaultOutputName || cfg.ZOrder != overlay.ZBehind || cfg.Workers != 1 {
		t.Errorf("defaults: %q %q %d", cfg.OutputName, cfg.ZOrder, cfg.Workers)
	}
	if cfg.Converter.Binary != "soffice" || cfg.Converter.Timeout != 2*time.Minute {
		t.Errorf("converter defaults: %+v", cfg.Converter)
	}
	if diff := cmp.Diff(DefaultDiscoveryOrder(), cfg.DiscoveryOrder); diff != "" {
		t.Errorf("discovery (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultMergeOrder(), cfg.MergeOrder); diff != "" {
		t.Errorf("merge (-want +got):\n%s", diff)
	}
	if cfg.Logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestValidate_OrderDefaults(t *testing.T) {
	// WHAT: without orders, discovery is the sorted type IDs and merge
	// follows discovery.
	cfg := Config{
		InputDir: t.TempDir(), OutputDir: t.TempDir(),
		Types: map[string]DocumentType{
			"zeta":  {Prefixes: []string{"Z"}},
			"alpha": {Prefixes: []string{"A"}},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"alpha", "zeta"}, cfg.DiscoveryOrder); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(cfg.DiscoveryOrder, cfg.MergeOrder); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if _, ok := cfg.Types["alpha"].Watermark.(NoWatermark); !ok || cfg.Types["alpha"].ID != "alpha" {
		t.Errorf("type not normalized: %+v", cfg.Types["alpha"])
	}
}

func TestValidate_Errors(t *testing.T) {
	base := func(t *testing.T) Config {
		return Config{
			InputDir: t.TempDir(), OutputDir: t.TempDir(), WatermarkDir: t.TempDir(),
			Types: map[string]DocumentType{"kst": {Prefixes: []string{"KSt"}}},
		}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing input", func(c *Config) { c.InputDir = "" }, "input_dir"},
		{"input not found", func(c *Config) { c.InputDir = filepath.Join(c.InputDir, "nope") }, "input_dir"},
		{"missing output", func(c *Config) { c.OutputDir = "" }, "output_dir"},
		{"not a pdf name", func(c *Config) { c.OutputName = "bundle.docx" }, "output_name"},
		{"path in name", func(c *Config) { c.OutputName = "../x.pdf" }, "output_name"},
		{"z order", func(c *Config) { c.ZOrder = "middle" }, "z_order"},
		{"unknown merge type", func(c *Config) { c.MergeOrder = []string{"kst", "ust"} }, "merge_order"},
		{"unknown discovery type", func(c *Config) { c.DiscoveryOrder = []string{"est"} }, "discovery_order"},
		{"type missing from discovery", func(c *Config) {
			c.Types["ust"] = DocumentType{Prefixes: []string{"USt"}}
			c.DiscoveryOrder = []string{"kst"}
		}, "discovery_order (type ust)"},
		{"bad id", func(c *Config) { c.Types["k st"] = DocumentType{Prefixes: []string{"x"}} }, "types"},
		{"no prefix", func(c *Config) { c.Types["kst"] = DocumentType{} }, "types.kst.prefixes"},
		{"blank prefix", func(c *Config) { c.Types["kst"] = DocumentType{Prefixes: []string{" _ "}} }, "types.kst.prefixes"},
		{"missing watermark", func(c *Config) {
			c.Types["kst"] = DocumentType{Prefixes: []string{"KSt"}, Watermark: SingleWatermark{Name: "WZ.pdf"}}
		}, "types.kst.watermark"},
		{"escaping watermark", func(c *Config) {
			c.Types["kst"] = DocumentType{Prefixes: []string{"KSt"}, Watermark: SingleWatermark{Name: "../WZ.pdf"}}
		}, "types.kst.watermark"},
		{"bad branding", func(c *Config) {
			c.Branding = BrandingConfig{Enabled: true, BrandingConfig: overlay.BrandingConfig{Color: "orange"}}
		}, "branding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if !strings.Contains(err.Error(), "config "+tt.field) {
				t.Fatalf("err = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Config{MergeOrder: []string{"nope"}, OutputName: "x.txt"}
	err := cfg.Validate()
	for _, field := range []string{"input_dir", "output_dir", "output_name", "merge_order"} {
		if !strings.Contains(err.Error(), "config "+field) {
			t.Errorf("missing %s in %v", field, err)
		}
	}
}

func TestConfig_WatermarkPath(t *testing.T) {
	cfg := Config{WatermarkDir: "/res"}
	if p, err := cfg.WatermarkPath("WZ_Allgemein.pdf"); err != nil || p != filepath.Join("/res", "WZ_Allgemein.pdf") {
		t.Fatalf("= %q, %v", p, err)
	}
	if _, err := cfg.WatermarkPath("../../etc/passwd"); err == nil {
		t.Fatal("traversal accepted")
	}
}

func TestConfig_CloneIsolated(t *testing.T) {
	cfg := Config{
		Types:      map[string]DocumentType{"kst": {Prefixes: []string{"KSt"}}},
		MergeOrder: []string{"kst"},
	}
	c := cfg.clone()
	c.Types["kst"].Prefixes[0] = "changed"
	c.MergeOrder[0] = "changed"
	if cfg.Types["kst"].Prefixes[0] != "KSt" || cfg.MergeOrder[0] != "kst" {
		t.Fatal("clone shares storage with the original")
	}
}
