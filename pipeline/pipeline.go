// Package pipeline converts a chord chart into Nashville numbers.
//
// A run moves through a fixed sequence of stages:
//
//	Ingest -> Detect -> Extract -> Identify -> Convert -> Render -> Done
//
// Each stage returns a [StageResult]; the first failure ends the run and
// becomes the run's single [StructuredError]. Only per-chord conversion
// failures are recovered inline: the chord keeps its original text and a
// warning is recorded. The ingested document is removed from temp storage
// on every exit path.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tsawler/nashville/chord"
	"github.com/tsawler/nashville/compose"
	"github.com/tsawler/nashville/extract"
	"github.com/tsawler/nashville/model"
	"github.com/tsawler/nashville/observe"
	"github.com/tsawler/nashville/overlay"
	"github.com/tsawler/nashville/storage"
	"github.com/tsawler/nashville/transpose"
)

// inputName is the artifact name of the ingested document.
const inputName = "input.pdf"

// Extractor reads page geometry and words from a document.
type Extractor interface {
	Inspect(data []byte) (extract.Summary, error)
	Extract(data []byte) ([][]model.TextToken, error)
}

// Compositor paints overlays onto a document.
type Compositor interface {
	Compose(original []byte, pages []model.PageInfo, overlays []overlay.PageOverlay) ([]byte, error)
}

// Store keeps per-run artifacts.
type Store interface {
	Put(ctx context.Context, correlationID, name string, data []byte) (string, error)
	Get(ctx context.Context, location string) ([]byte, error)
	Delete(ctx context.Context, location string) error
	Purge(ctx context.Context, correlationID string) error
}

type converterFunc func(c chord.Chord, key string, mode transpose.Mode) (transpose.Conversion, error)

// Pipeline runs conversions. It is safe for concurrent use as long as
// its collaborators are.
type Pipeline struct {
	cfg        Config
	extractor  Extractor
	compositor Compositor
	store      Store
	renderer   *overlay.Renderer
	sink       observe.Sink
	convert    converterFunc
	now        func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithExtractor replaces the default PDF extractor.
func WithExtractor(e Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithCompositor replaces the default PDF compositor.
func WithCompositor(c Compositor) Option {
	return func(p *Pipeline) { p.compositor = c }
}

// WithStore replaces the default temp store.
func WithStore(s Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithSink sends stage events to s.
func WithSink(s observe.Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithRenderer replaces the default overlay renderer.
func WithRenderer(r *overlay.Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// New returns a pipeline using the PDF extractor, compositor and a local
// temp store unless options say otherwise.
func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		extractor:  extract.New(),
		compositor: compose.New(),
		store:      storage.New(""),
		renderer:   overlay.New(),
		sink:       observe.Nop(),
		convert:    transpose.ConvertDetailed,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the thresholds the pipeline checks against.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run converts data and returns the result and, on success, the output
// document. Run never panics and never returns a nil result.
func (p *Pipeline) Run(ctx context.Context, data []byte, req ConversionRequest) (*ConversionResult, []byte) {
	start := p.now()
	scope := observe.NewScope(req.CorrelationID, p.sink)

	res := &ConversionResult{
		CorrelationID: req.CorrelationID,
		Key:           req.Key,
		Mode:          req.Mode,
		Warnings:      []string{},
	}
	if p.cfg.Debug || req.Debug {
		res.Debug = newDebug(req.CorrelationID)
	}
	finish := func(err *StructuredError) (*ConversionResult, []byte) {
		res.Error = err
		res.ProcessingTimeSeconds = p.now().Sub(start).Seconds()
		return res, nil
	}

	mode, err := p.resolveMode(req)
	if err != nil {
		se := newError(StageIngest, KindInvalidRequest, "Invalid request: %v", err)
		scope.Error(StageIngest.String(), se.Message)
		return finish(se)
	}
	res.Mode = mode

	var location string
	defer func() {
		p.cleanup(ctx, scope, req.CorrelationID, location)
	}()

	// Ingest
	ing := runStage(scope, StageIngest, observe.Fields{"file_size_bytes": len(data)}, func() StageResult[IngestOutput] {
		return p.ingest(ctx, data, req.CorrelationID)
	})
	location = ing.Value.Location
	p.record(res, ing.Stage, ing.Metrics)
	if !ing.OK() {
		return finish(ing.Err)
	}
	res.Fingerprint = ing.Value.Fingerprint

	// Detect
	det := runStage(scope, StageDetect, observe.Fields{"location": location}, func() StageResult[DetectOutput] {
		return p.detect(ctx, location)
	})
	p.record(res, det.Stage, det.Metrics)
	if !det.OK() {
		return finish(det.Err)
	}
	res.Pages = det.Value.Pages

	// Extract
	ext := runStage(scope, StageExtract, observe.Fields{"num_pages": len(det.Value.Pages)}, func() StageResult[ExtractOutput] {
		return p.extract(ctx, location)
	})
	p.record(res, ext.Stage, ext.Metrics)
	if !ext.OK() {
		return finish(ext.Err)
	}
	res.TokensExtracted = len(ext.Value.Tokens)
	if res.Debug != nil {
		res.Debug.tokens(ext.Value.Tokens)
	}

	// Identify
	idf := runStage(scope, StageIdentify, observe.Fields{"total_tokens": len(ext.Value.Tokens)}, func() StageResult[IdentifyOutput] {
		return p.identify(ext.Value.Tokens)
	})
	p.record(res, idf.Stage, idf.Metrics)
	if !idf.OK() {
		return finish(idf.Err)
	}
	res.ChordsIdentified = len(idf.Value.Chords)
	if res.Debug != nil {
		res.Debug.chords(idf.Value.Chords)
	}

	// Convert
	cvt := runStage(scope, StageConvert, observe.Fields{"total_chords": len(idf.Value.Chords), "key": req.Key, "mode": string(mode)}, func() StageResult[ConvertOutput] {
		return p.convertChords(scope, idf.Value.Chords, req.Key, mode, req.AutoMode)
	})
	p.record(res, cvt.Stage, cvt.Metrics)
	if !cvt.OK() {
		return finish(cvt.Err)
	}
	res.Mode = cvt.Value.Mode
	res.ChordsConverted = len(cvt.Value.Conversions)
	res.Warnings = append(res.Warnings, cvt.Value.Warnings...)
	if res.Debug != nil {
		res.Debug.conversions(cvt.Value.Conversions)
	}

	// Render
	rnd := runStage(scope, StageRender, observe.Fields{"total_conversions": len(cvt.Value.Conversions)}, func() StageResult[RenderOutput] {
		return p.render(ctx, location, det.Value.Pages, cvt.Value.Conversions)
	})
	p.record(res, rnd.Stage, rnd.Metrics)
	if !rnd.OK() {
		return finish(rnd.Err)
	}
	if rnd.Value.Overlay != nil {
		for _, s := range rnd.Value.Overlay.Skipped {
			res.SkippedAnnotations = append(res.SkippedAnnotations, s.String())
		}
	}

	res.Success = true
	res.ProcessingTimeSeconds = p.now().Sub(start).Seconds()
	return res, rnd.Value.Document
}

func (p *Pipeline) resolveMode(req ConversionRequest) (transpose.Mode, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if req.AutoMode {
		return transpose.Major, nil
	}
	return transpose.ParseMode(string(req.Mode))
}

func (p *Pipeline) record(res *ConversionResult, stage Stage, metrics observe.Fields) {
	if res.Debug != nil && metrics != nil {
		res.Debug.StageMetrics[stage] = metrics
	}
}

// cleanup removes the ingested document and the run's namespace. The
// namespace is purged even when ingest failed before reporting a location.
// Failures are reported but never change the result.
func (p *Pipeline) cleanup(ctx context.Context, scope observe.Scope, correlationID, location string) {
	if location != "" {
		if err := p.store.Delete(ctx, location); err != nil {
			scope.Warn(fmt.Sprintf("failed to delete %s: %v", location, err))
		}
	}
	if err := p.store.Purge(ctx, correlationID); err != nil {
		scope.Warn(fmt.Sprintf("failed to purge %s: %v", correlationID, err))
	}
}

// runStage runs fn, reporting its start and outcome to the scope. A panic
// inside fn becomes an internal error tagged with the stage.
func runStage[T any](scope observe.Scope, stage Stage, fields observe.Fields, fn func() StageResult[T]) (res StageResult[T]) {
	start := time.Now()
	scope.Start(stage.String(), fields)

	defer func() {
		if r := recover(); r != nil {
			res = Fail[T](stage, newError(stage, KindInternal, "Internal processing error: %v", r))
		}
		res.Stage = stage
		if res.Err != nil {
			scope.Error(stage.String(), res.Err.Message)
			return
		}
		scope.Complete(stage.String(), time.Since(start), res.Metrics)
	}()

	return fn()
}
