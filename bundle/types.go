// CLAUDE:SUMMARY Bundle data model: document types, tagged watermark references, input files, classified sets, sections and per-type results.
// Package bundle assembles one output PDF from a directory of loosely named
// input documents.
//
// A run discovers the input files, binds each to at most one document type
// by filename rules (Classify), converts non-PDF inputs, concatenates the
// files of each type (Assemble), composites the type's watermark and an
// optional branding bar onto every page, and finally concatenates the
// sections in merge order (Merge).
//
// Usage:
//
//	cfg, err := bundle.LoadConfigFile("bundle.yaml")
//	p, err := bundle.New(*cfg)
//	report, err := p.Run(ctx)
package bundle

import (
	"github.com/hazyhaar/pdfbundle/convert"
	"github.com/hazyhaar/pdfbundle/overlay"
)

// DocumentType is the matching and processing rule set for one logical type.
type DocumentType struct {
	ID string `json:"id" yaml:"-"`

	// Prefixes match anywhere in the normalized file name.
	Prefixes []string `json:"prefixes" yaml:"prefixes"`

	// Exclude rejects a prefix match when any substring occurs in the
	// normalized name.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	Watermark WatermarkRef `json:"-" yaml:"-"`

	// Format is the expected source format. Conversion routes on the
	// detected format of each file.
	Format convert.Format `json:"format" yaml:"format"`

	SkipFirstPage bool `json:"skip_first_page,omitempty" yaml:"skip_first_page,omitempty"`

	// Branding overrides Config.Branding.Enabled for this type.
	Branding *bool `json:"branding,omitempty" yaml:"branding,omitempty"`
}

// WatermarkRef names the overlay resources of a type. It is one of
// SingleWatermark, PagedWatermark or NoWatermark.
type WatermarkRef interface {
	// Names lists the resource file names referenced.
	Names() []string
	watermarkRef()
}

// SingleWatermark applies one resource to every page.
type SingleWatermark struct {
	Name string
}

// PagedWatermark applies First to page 1 and Rest to every later page.
type PagedWatermark struct {
	First string `json:"first" yaml:"first"`
	Rest  string `json:"rest" yaml:"rest"`
}

// NoWatermark leaves the section without a watermark.
type NoWatermark struct{}

func (w SingleWatermark) Names() []string { return []string{w.Name} }
func (w PagedWatermark) Names() []string  { return []string{w.First, w.Rest} }
func (NoWatermark) Names() []string       { return nil }

func (SingleWatermark) watermarkRef() {}
func (PagedWatermark) watermarkRef()  {}
func (NoWatermark) watermarkRef()     {}

// overlayFor resolves w against the watermark root. ok is false for
// NoWatermark.
func overlayFor(w WatermarkRef, resolve func(string) string) (ov overlay.Overlay, ok bool) {
	switch w := w.(type) {
	case SingleWatermark:
		return overlay.Single{Path: resolve(w.Name)}, true
	case PagedWatermark:
		return overlay.Paged{First: resolve(w.First), Rest: resolve(w.Rest)}, true
	}
	return nil, false
}

// InputFile is a discovered source file. The pipeline never modifies it.
type InputFile struct {
	Path string `json:"path"` // absolute
	Name string `json:"name"` // base name
}

// ClassifiedSet maps type IDs to their files in discovery listing order.
// Types without files are absent.
type ClassifiedSet map[string][]InputFile

// Section is the processed PDF of one type.
type Section struct {
	Type  string `json:"type"`
	Path  string `json:"path"`
	Pages int    `json:"pages"`
}

// Status is the outcome of one type's work.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded" // watermark or branding dropped
	StatusFailed   Status = "failed"   // no section produced
)

// TypeResult carries the outcome of one type. Section is nil when Status
// is StatusFailed. Err holds every recovered error of the type.
type TypeResult struct {
	Type    string   `json:"type"`
	Section *Section `json:"section,omitempty"`
	Status  Status   `json:"status"`
	Err     error    `json:"-"`

	// Converted lists source files that converted (or passed through)
	// successfully; Failed lists the ones dropped.
	Converted []InputFile `json:"converted,omitempty"`
	Failed    []InputFile `json:"failed,omitempty"`
}

// Report summarizes a run.
type Report struct {
	RunID      string                 `json:"run_id,omitempty"`
	Output     string                 `json:"output,omitempty"`
	Pages      int                    `json:"pages"`
	Classified ClassifiedSet          `json:"classified"`
	Results    map[string]*TypeResult `json:"results"`
	// Merged lists the type IDs in output order.
	Merged []string `json:"merged"`
}

// Status folds the per-type results into one run status.
func (r *Report) Status() Status {
	if r == nil || len(r.Merged) == 0 {
		return StatusFailed
	}
	for _, res := range r.Results {
		if res.Status != StatusOK {
			return StatusDegraded
		}
	}
	return StatusOK
}
