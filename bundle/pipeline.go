// CLAUDE:SUMMARY Pipeline driver: discover -> classify -> per-type convert/assemble/watermark/brand (errgroup, no sibling cancel) -> merge in MergeOrder -> archive.
// CLAUDE:DEPENDS convert, overlay, pdfinfo, journal
package bundle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/pdfbundle/convert"
	"github.com/hazyhaar/pdfbundle/journal"
	"github.com/hazyhaar/pdfbundle/overlay"
	"github.com/hazyhaar/pdfbundle/pdfinfo"
)

// Pipeline runs one bundle configuration.
type Pipeline struct {
	cfg      Config
	conv     convert.Converter
	comp     *overlay.Compositor
	branding *overlay.Branding
	rec      Recorder
	label    string
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConverter replaces the LibreOffice converter.
func WithConverter(c convert.Converter) Option {
	return func(p *Pipeline) { p.conv = c }
}

// WithRecorder sends the run history to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.rec = r
		}
	}
}

// WithLabel sets the configuration description stored with each run
// (usually the config file path).
func WithLabel(label string) Option {
	return func(p *Pipeline) { p.label = label }
}

// New validates cfg and returns a pipeline. Configuration errors are
// returned before any file is touched.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	cfg = cfg.clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, rec: nopRecorder{}, label: cfg.InputDir, logger: cfg.Logger}
	for _, o := range opts {
		o(p)
	}
	if p.conv == nil {
		p.conv = convert.ByFormat{Office: convert.Soffice{
			Binary:  cfg.Converter.Binary,
			Timeout: cfg.Converter.Timeout,
			Logger:  cfg.Logger,
		}}
	}
	p.comp = overlay.New(overlay.Config{WorkDir: cfg.WorkDir, Logger: cfg.Logger})

	for _, dt := range cfg.Types {
		if cfg.brandingEnabled(dt) {
			b, err := overlay.NewBranding(cfg.Branding.BrandingConfig)
			if err != nil {
				return nil, &ConfigError{Field: "branding", Reason: "invalid", Cause: err}
			}
			p.branding = b
			break
		}
	}
	return p, nil
}

// Config returns the validated configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Plan is the classification of the input directory.
type Plan struct {
	Files      []InputFile
	Classified ClassifiedSet
	Unmatched  []InputFile
}

// Plan discovers and classifies the input files without processing them.
func (p *Pipeline) Plan() (*Plan, error) {
	files, err := Discover(p.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	set := Classify(files, p.cfg.Types, p.cfg.DiscoveryOrder)

	bound := map[string]bool{}
	for _, fs := range set {
		for _, f := range fs {
			bound[f.Path] = true
		}
	}
	plan := &Plan{Files: files, Classified: set}
	for _, f := range files {
		if !bound[f.Path] {
			plan.Unmatched = append(plan.Unmatched, f)
		}
	}
	return plan, nil
}

// Run executes the whole bundle and writes the output document. Per-file
// and per-type failures are recovered and reported in the Report; the
// returned error is non-nil only for ErrEmptyResult, an *OutputError, a
// discovery failure or cancellation.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	runID, err := p.rec.Begin(ctx, p.label)
	if err != nil {
		p.logger.Warn("journal begin failed", "error", err)
	}
	report := &Report{RunID: runID, Results: map[string]*TypeResult{}}

	err = p.run(ctx, report)
	status := report.Status()
	if err != nil {
		status = StatusFailed
	}
	if ferr := p.rec.Finish(context.WithoutCancel(ctx), runID, string(status), report.Output, err); ferr != nil {
		p.logger.Warn("journal finish failed", "run_id", runID, "error", ferr)
	}

	if err != nil {
		p.logger.Error("bundle run failed", "run_id", runID, "error", err, "duration", time.Since(start))
		return report, err
	}
	p.logger.Info("bundle written",
		"run_id", runID, "path", report.Output, "pages", report.Pages,
		"sections", len(report.Merged), "status", string(status), "duration", time.Since(start))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, report *Report) error {
	plan, err := p.Plan()
	if err != nil {
		return err
	}
	report.Classified = plan.Classified
	for _, f := range plan.Unmatched {
		p.logger.Debug("file matches no type", "path", f.Path)
	}

	work, err := os.MkdirTemp(p.cfg.WorkDir, "pdfbundle-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	if p.cfg.KeepWork {
		p.logger.Info("keeping work dir", "path", work)
	} else {
		defer func() {
			if err := os.RemoveAll(work); err != nil && !errors.Is(err, os.ErrNotExist) {
				p.logger.Warn("remove work dir", "path", work, "error", err)
			}
		}()
	}

	var (
		mu        sync.Mutex
		g         errgroup.Group
		scheduled = map[string]bool{}
	)
	g.SetLimit(p.cfg.Workers)
	for _, id := range p.cfg.DiscoveryOrder {
		files, ok := plan.Classified[id]
		if !ok || scheduled[id] {
			continue
		}
		scheduled[id] = true
		if !slices.Contains(p.cfg.MergeOrder, id) {
			p.logger.Warn("type not in merge_order, skipped", "type", id, "files", len(files))
			continue
		}
		g.Go(func() error {
			res := p.processType(ctx, report.RunID, work, p.cfg.Types[id], files)
			mu.Lock()
			report.Results[id] = res
			mu.Unlock()
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sections := make(map[string]Section, len(report.Results))
	for id, res := range report.Results {
		if res.Section != nil {
			sections[id] = *res.Section
		}
	}

	out := p.cfg.OutputPath()
	mergeStart := time.Now()
	merged, err := Merge(ctx, sections, p.cfg.MergeOrder, out)
	if err != nil {
		p.record(ctx, journal.Event{RunID: report.RunID, Stage: journal.StageMerge, Status: journal.StatusFailed,
			Path: out, Message: err.Error(), Duration: time.Since(mergeStart)})
		return err
	}
	report.Output = out
	report.Merged = merged
	if report.Pages, err = pdfinfo.PageCount(out); err != nil {
		p.logger.Warn("count output pages", "path", out, "error", err)
	}
	p.record(ctx, journal.Event{RunID: report.RunID, Stage: journal.StageMerge, Status: journal.StatusOK,
		Path: out, Pages: report.Pages, Duration: time.Since(mergeStart)})

	if p.cfg.ProcessedDir != "" {
		p.archiveProcessed(ctx, report)
	}
	return nil
}

// processType turns the files of one type into a section. Conversion
// failures drop the file, watermark and branding failures fall back to the
// uncomposited section; only a type without any usable file fails.
func (p *Pipeline) processType(ctx context.Context, runID, work string, dt DocumentType, files []InputFile) *TypeResult {
	res := &TypeResult{Type: dt.ID, Status: StatusOK}
	log := p.logger.With("type", dt.ID, "run_id", runID)
	var errs []error

	dir := filepath.Join(work, dt.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		res.Status, res.Err = StatusFailed, &AssembleError{Type: dt.ID, Cause: err}
		return res
	}

	var pdfs []string
	for _, f := range files {
		path, err := p.convertFile(ctx, runID, dir, dt, f)
		if err != nil {
			errs = append(errs, err)
			res.Failed = append(res.Failed, f)
			log.Error("conversion failed, file dropped", "path", f.Path, "error", err)
			if p.cfg.ErrorDir != "" {
				p.archive(ctx, runID, dt.ID, f, p.cfg.ErrorDir)
			}
			continue
		}
		res.Converted = append(res.Converted, f)
		pdfs = append(pdfs, path)
	}
	if len(pdfs) == 0 {
		res.Status, res.Err = StatusFailed, errors.Join(errs...)
		log.Error("no usable file, type skipped", "files", len(files))
		return res
	}

	stageStart := time.Now()
	current, err := Assemble(ctx, pdfs, filepath.Join(dir, "assembled.pdf"))
	if err != nil {
		errs = append(errs, &AssembleError{Type: dt.ID, Cause: err})
		res.Status, res.Err = StatusFailed, errors.Join(errs...)
		p.record(ctx, journal.Event{RunID: runID, Type: dt.ID, Stage: journal.StageAssemble,
			Status: journal.StatusFailed, Message: err.Error(), Duration: time.Since(stageStart)})
		log.Error("assemble failed, type skipped", "error", err)
		return res
	}
	if len(pdfs) > 1 {
		p.record(ctx, journal.Event{RunID: runID, Type: dt.ID, Stage: journal.StageAssemble,
			Status: journal.StatusOK, Path: current, Duration: time.Since(stageStart)})
	}

	opts := overlay.Options{Z: p.cfg.ZOrder, SkipFirstPage: dt.SkipFirstPage}
	if ov, ok := overlayFor(dt.Watermark, p.watermarkPath); ok {
		out := filepath.Join(dir, "watermarked.pdf")
		current = p.compositeStage(ctx, runID, dt.ID, "watermark", journal.StageComposite, current, out, &errs, func() error {
			return p.comp.Composite(ctx, current, out, ov, opts)
		})
	}
	if p.branding != nil && p.cfg.brandingEnabled(dt) {
		out := filepath.Join(dir, "branded.pdf")
		brandOpts := overlay.Options{Z: overlay.ZFront, SkipFirstPage: dt.SkipFirstPage}
		current = p.compositeStage(ctx, runID, dt.ID, "branding", journal.StageBrand, current, out, &errs, func() error {
			return p.comp.Brand(ctx, current, out, p.branding, brandOpts)
		})
	}

	pages, err := pdfinfo.PageCount(current)
	if err != nil {
		log.Warn("count section pages", "path", current, "error", err)
	}
	res.Section = &Section{Type: dt.ID, Path: current, Pages: pages}
	if len(errs) > 0 {
		res.Status, res.Err = StatusDegraded, errors.Join(errs...)
	}
	log.Info("section ready", "status", string(res.Status), "files", len(pdfs), "pages", pages)
	return res
}

// compositeStage runs one overlay pass. On failure the input is returned so
// the section keeps its content without the overlay.
func (p *Pipeline) compositeStage(ctx context.Context, runID, typ, what, stage, in, out string, errs *[]error, fn func() error) string {
	start := time.Now()
	if err := fn(); err != nil {
		cerr := &CompositeError{Type: typ, Stage: what, Cause: err}
		*errs = append(*errs, cerr)
		p.logger.Warn(what+" failed, section kept without it", "type", typ, "run_id", runID, "error", err)
		p.record(ctx, journal.Event{RunID: runID, Type: typ, Stage: stage, Status: journal.StatusDegraded,
			Path: in, Message: err.Error(), Duration: time.Since(start)})
		return in
	}
	p.record(ctx, journal.Event{RunID: runID, Type: typ, Stage: stage, Status: journal.StatusOK,
		Path: out, Duration: time.Since(start)})
	return out
}

// convertFile returns a readable PDF for f.
func (p *Pipeline) convertFile(ctx context.Context, runID, dir string, dt DocumentType, f InputFile) (string, error) {
	start := time.Now()
	fail := func(err error) (string, error) {
		cerr := &ConversionError{Type: dt.ID, Path: f.Path, Cause: err}
		p.record(ctx, journal.Event{RunID: runID, Type: dt.ID, Stage: journal.StageConvert, Status: journal.StatusFailed,
			Path: f.Path, Message: err.Error(), Duration: time.Since(start)})
		return "", cerr
	}

	if format, err := convert.Detect(f.Path); err == nil && dt.Format != "" && format != dt.Format {
		p.logger.Warn("unexpected source format", "type", dt.ID, "path", f.Path,
			"format", string(format), "expected", string(dt.Format))
	}

	out, err := p.conv.Convert(ctx, f.Path, filepath.Join(dir, "converted"))
	if err != nil {
		return fail(err)
	}
	pages, err := pdfinfo.PageCount(out)
	if err != nil {
		return fail(err)
	}
	if pages == 0 {
		return fail(errors.New("pdf has no pages"))
	}
	p.record(ctx, journal.Event{RunID: runID, Type: dt.ID, Stage: journal.StageConvert, Status: journal.StatusOK,
		Path: f.Path, Pages: pages, Duration: time.Since(start)})
	return out, nil
}

func (p *Pipeline) watermarkPath(name string) string {
	path, err := p.cfg.WatermarkPath(name)
	if err != nil {
		return ""
	}
	return path
}

// archiveProcessed moves every successfully used source file of the merged
// types to ProcessedDir.
func (p *Pipeline) archiveProcessed(ctx context.Context, report *Report) {
	for _, id := range report.Merged {
		for _, f := range report.Results[id].Converted {
			p.archive(ctx, report.RunID, id, f, p.cfg.ProcessedDir)
		}
	}
}

func (p *Pipeline) archive(ctx context.Context, runID, typ string, f InputFile, dir string) {
	dst, err := Relocate(f.Path, dir)
	if err != nil {
		p.logger.Warn("archive failed", "type", typ, "path", f.Path, "dir", dir, "error", err)
		p.record(ctx, journal.Event{RunID: runID, Type: typ, Stage: journal.StageArchive,
			Status: journal.StatusFailed, Path: f.Path, Message: err.Error()})
		return
	}
	p.logger.Debug("archived", "type", typ, "path", f.Path, "to", dst)
	p.record(ctx, journal.Event{RunID: runID, Type: typ, Stage: journal.StageArchive,
		Status: journal.StatusOK, Path: dst})
}

func (p *Pipeline) record(ctx context.Context, ev journal.Event) {
	if ev.RunID == "" {
		return
	}
	if err := p.rec.Record(context.WithoutCancel(ctx), ev); err != nil {
		p.logger.Warn("journal record failed", "stage", ev.Stage, "type", ev.Type, "error", err)
	}
}

// clone copies c deeply enough that the caller's maps and slices are never
// shared with a running pipeline.
func (c Config) clone() Config {
	out := c
	if c.Types != nil {
		out.Types = make(map[string]DocumentType, len(c.Types))
		for id, dt := range c.Types {
			dt.Prefixes = slices.Clone(dt.Prefixes)
			dt.Exclude = slices.Clone(dt.Exclude)
			out.Types[id] = dt
		}
	}
	out.DiscoveryOrder = slices.Clone(c.DiscoveryOrder)
	out.MergeOrder = slices.Clone(c.MergeOrder)
	if c.SpecialWatermark != nil {
		sw := *c.SpecialWatermark
		out.SpecialWatermark = &sw
	}
	return out
}
