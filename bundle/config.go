// CLAUDE:SUMMARY Run configuration: YAML loader (paths relative to the config file), defaults, tagged watermark decoding and fail-fast validation.
package bundle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/pdfbundle/convert"
	"github.com/hazyhaar/pdfbundle/horosafe"
	"github.com/hazyhaar/pdfbundle/overlay"
)

// DefaultOutputName is the output file name when none is configured.
const DefaultOutputName = "Gesamtdokument.pdf"

// legacySpecial is the old watermark value meaning "use special_watermark".
const legacySpecial = "special"

// Config is the immutable input of a run.
type Config struct {
	InputDir     string `json:"input_dir" yaml:"input_dir"`
	WatermarkDir string `json:"watermark_dir" yaml:"watermark_dir"`
	OutputDir    string `json:"output_dir" yaml:"output_dir"`
	OutputName   string `json:"output_name" yaml:"output_name"`

	// ProcessedDir receives converted source files after a successful run,
	// ErrorDir the files that failed conversion. Empty disables archival.
	ProcessedDir string `json:"processed_dir,omitempty" yaml:"processed_dir"`
	ErrorDir     string `json:"error_dir,omitempty" yaml:"error_dir"`

	ZOrder overlay.ZOrder `json:"z_order" yaml:"z_order"`

	// Workers bounds the number of types processed in parallel (1 = sequential).
	Workers int `json:"workers" yaml:"workers"`

	// WorkDir is the parent of the per-run temp dir (default: os.TempDir()).
	WorkDir  string `json:"work_dir,omitempty" yaml:"work_dir"`
	KeepWork bool   `json:"keep_work,omitempty" yaml:"keep_work"`

	// JournalDB is the SQLite run journal. Empty disables it.
	JournalDB string `json:"journal_db,omitempty" yaml:"journal_db"`

	Converter ConverterConfig `json:"converter" yaml:"converter"`
	Branding  BrandingConfig  `json:"branding" yaml:"branding"`

	// SpecialWatermark backs the legacy `watermark: special` value.
	SpecialWatermark *PagedWatermark `json:"special_watermark,omitempty" yaml:"special_watermark"`

	Types          map[string]DocumentType `json:"types" yaml:"-"`
	DiscoveryOrder []string                `json:"discovery_order" yaml:"discovery_order"`
	MergeOrder     []string                `json:"merge_order" yaml:"merge_order"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

// ConverterConfig configures the LibreOffice converter.
type ConverterConfig struct {
	Binary  string        `json:"binary" yaml:"binary"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// BrandingConfig enables the branding bar for all types (overridable per
// type).
type BrandingConfig struct {
	Enabled                bool `json:"enabled" yaml:"enabled"`
	overlay.BrandingConfig `yaml:",inline"`
}

func (c *Config) defaults() {
	if c.OutputName == "" {
		c.OutputName = DefaultOutputName
	}
	if c.ZOrder == "" {
		c.ZOrder = overlay.ZBehind
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Converter.Binary == "" {
		c.Converter.Binary = "soffice"
	}
	if c.Converter.Timeout <= 0 {
		c.Converter.Timeout = 2 * time.Minute
	}
	if len(c.Types) == 0 {
		c.Types = DefaultTypes()
		if len(c.DiscoveryOrder) == 0 {
			c.DiscoveryOrder = DefaultDiscoveryOrder()
		}
		if len(c.MergeOrder) == 0 {
			c.MergeOrder = DefaultMergeOrder()
		}
	}
	if len(c.DiscoveryOrder) == 0 {
		for id := range c.Types {
			c.DiscoveryOrder = append(c.DiscoveryOrder, id)
		}
		sort.Strings(c.DiscoveryOrder)
	}
	if len(c.MergeOrder) == 0 {
		c.MergeOrder = append([]string(nil), c.DiscoveryOrder...)
	}
	for id, dt := range c.Types {
		dt.ID = id
		if dt.Watermark == nil {
			dt.Watermark = NoWatermark{}
		}
		c.Types[id] = dt
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// rawType is the YAML shape of a document type; the watermark is decoded
// by hand into a WatermarkRef.
type rawType struct {
	Prefixes      []string  `yaml:"prefixes"`
	Exclude       []string  `yaml:"exclude"`
	Watermark     yaml.Node `yaml:"watermark"`
	Format        string    `yaml:"format"`
	SkipFirstPage bool      `yaml:"skip_first_page"`
	Branding      *bool     `yaml:"branding"`
}

// UnmarshalYAML decodes the config and resolves each type's watermark:
// a scalar is a single resource, a {first, rest} mapping a paged pair,
// "special" the configured special_watermark pair.
func (c *Config) UnmarshalYAML(n *yaml.Node) error {
	type plain Config
	if err := n.Decode((*plain)(c)); err != nil {
		return err
	}
	var raw struct {
		Types map[string]rawType `yaml:"types"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	if raw.Types == nil {
		return nil
	}

	c.Types = make(map[string]DocumentType, len(raw.Types))
	for id, rt := range raw.Types {
		wm, err := decodeWatermark(&rt.Watermark, c.SpecialWatermark)
		if err != nil {
			return &ConfigError{Field: "types." + id + ".watermark", Type: id, Reason: "invalid watermark", Cause: err}
		}
		var format convert.Format
		if rt.Format != "" {
			if format, err = convert.ParseFormat(rt.Format); err != nil {
				return &ConfigError{Field: "types." + id + ".format", Type: id, Reason: "unknown format", Cause: err}
			}
		}
		c.Types[id] = DocumentType{
			ID:            id,
			Prefixes:      rt.Prefixes,
			Exclude:       rt.Exclude,
			Watermark:     wm,
			Format:        format,
			SkipFirstPage: rt.SkipFirstPage,
			Branding:      rt.Branding,
		}
	}
	return nil
}

func decodeWatermark(n *yaml.Node, special *PagedWatermark) (WatermarkRef, error) {
	switch n.Kind {
	case 0:
		return NoWatermark{}, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return NoWatermark{}, nil
		}
		name := strings.TrimSpace(n.Value)
		switch name {
		case "":
			return NoWatermark{}, nil
		case legacySpecial:
			if special == nil {
				return nil, errors.New(`"special" needs special_watermark {first, rest}`)
			}
			return *special, nil
		}
		return SingleWatermark{Name: name}, nil
	case yaml.MappingNode:
		var p PagedWatermark
		if err := n.Decode(&p); err != nil {
			return nil, err
		}
		if p.First == "" || p.Rest == "" {
			return nil, errors.New("paged watermark needs both first and rest")
		}
		return p, nil
	}
	return nil, fmt.Errorf("line %d: want a file name or {first, rest}", n.Line)
}

// LoadConfigFile reads a YAML config file. Relative directories are
// resolved against the directory holding the file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.ResolvePaths(filepath.Dir(abs))
	return cfg, nil
}

// ResolvePaths makes every relative directory of c absolute against base.
func (c *Config) ResolvePaths(base string) {
	for _, p := range []*string{
		&c.InputDir, &c.WatermarkDir, &c.OutputDir,
		&c.ProcessedDir, &c.ErrorDir, &c.WorkDir, &c.JournalDB,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// OutputPath is where the output document is written.
func (c *Config) OutputPath() string {
	return filepath.Join(c.OutputDir, c.OutputName)
}

// WatermarkPath returns the path of a watermark resource.
func (c *Config) WatermarkPath(name string) (string, error) {
	return horosafe.SafePath(c.WatermarkDir, name)
}

// Validate applies defaults and checks everything a run needs before any
// file is touched. The returned error joins one *ConfigError per problem.
func (c *Config) Validate() error {
	c.defaults()

	var errs []error
	fail := func(field, typ, reason string, cause error) {
		errs = append(errs, &ConfigError{Field: field, Type: typ, Reason: reason, Cause: cause})
	}

	if c.InputDir == "" {
		fail("input_dir", "", "required", nil)
	} else if fi, err := os.Stat(c.InputDir); err != nil {
		fail("input_dir", "", "not readable", err)
	} else if !fi.IsDir() {
		fail("input_dir", "", "not a directory", nil)
	}
	if c.OutputDir == "" {
		fail("output_dir", "", "required", nil)
	}
	if err := horosafe.ValidateFileName(c.OutputName); err != nil {
		fail("output_name", "", "invalid file name", err)
	} else if !strings.EqualFold(filepath.Ext(c.OutputName), ".pdf") {
		fail("output_name", "", "must end in .pdf", nil)
	}
	if _, err := overlay.ParseZOrder(string(c.ZOrder)); err != nil {
		fail("z_order", "", "invalid", err)
	}
	if c.Branding.Enabled || anyBrandingOverride(c.Types) {
		if _, err := overlay.NewBranding(c.Branding.BrandingConfig); err != nil {
			fail("branding", "", "invalid", err)
		}
	}

	ids := make([]string, 0, len(c.Types))
	for id := range c.Types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c.validateType(c.Types[id], fail)
	}

	for _, o := range []struct {
		field string
		ids   []string
	}{{"discovery_order", c.DiscoveryOrder}, {"merge_order", c.MergeOrder}} {
		for _, id := range o.ids {
			if _, ok := c.Types[id]; !ok {
				fail(o.field, id, "unknown type", nil)
			}
		}
	}
	for _, id := range ids {
		if !slices.Contains(c.DiscoveryOrder, id) {
			fail("discovery_order", id, "missing, its files would never be classified", nil)
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateType(dt DocumentType, fail func(field, typ, reason string, cause error)) {
	id := dt.ID
	if err := horosafe.ValidateIdentifier(id); err != nil {
		fail("types", id, "invalid type id", err)
	}
	if len(dt.Prefixes) == 0 {
		fail("types."+id+".prefixes", id, "at least one prefix required", nil)
	}
	for _, p := range dt.Prefixes {
		if strings.TrimSpace(Normalize(p)) == "" {
			fail("types."+id+".prefixes", id, "blank prefix", nil)
		}
	}
	if dt.Format != "" {
		if _, err := convert.ParseFormat(string(dt.Format)); err != nil {
			fail("types."+id+".format", id, "unknown format", err)
		}
	}
	for _, name := range dt.Watermark.Names() {
		if err := horosafe.ValidateFileName(name); err != nil {
			fail("types."+id+".watermark", id, "invalid resource name", err)
			continue
		}
		if c.WatermarkDir == "" {
			fail("watermark_dir", id, "required by watermark "+name, nil)
			continue
		}
		path, err := c.WatermarkPath(name)
		if err != nil {
			fail("types."+id+".watermark", id, "invalid resource name", err)
			continue
		}
		if _, err := os.Stat(path); err != nil {
			fail("types."+id+".watermark", id, "missing resource "+name, err)
		}
	}
}

func anyBrandingOverride(types map[string]DocumentType) bool {
	for _, dt := range types {
		if dt.Branding != nil && *dt.Branding {
			return true
		}
	}
	return false
}

// brandingEnabled reports whether dt gets the branding bar.
func (c *Config) brandingEnabled(dt DocumentType) bool {
	if dt.Branding != nil {
		return *dt.Branding
	}
	return c.Branding.Enabled
}
