package pipeline

import (
	"context"
	"errors"

	"github.com/tsawler/nashville/observe"
)

// sampleLimit caps the chords listed by Validate.
const sampleLimit = 5

// ValidationResult reports whether a document can be converted.
type ValidationResult struct {
	Valid         bool             `json:"valid"`
	CorrelationID string           `json:"correlation_id"`
	IsTextBased   bool             `json:"is_text_based"`
	NumPages      int              `json:"num_pages"`
	SampleChords  []string         `json:"sample_chords"`
	Error         *StructuredError `json:"error,omitempty"`
}

// Validate runs a document through ingest, detection, extraction and chord
// identification without converting or rendering anything. A document with
// no recognisable chords is still valid; its sample is empty.
func (p *Pipeline) Validate(ctx context.Context, data []byte, correlationID string) *ValidationResult {
	scope := observe.NewScope(correlationID, p.sink)
	res := &ValidationResult{CorrelationID: correlationID, SampleChords: []string{}}
	if correlationID == "" {
		res.Error = newError(StageIngest, KindInvalidRequest, "Invalid request: %v", ErrMissingCorrelationID)
		return res
	}

	var location string
	defer func() {
		p.cleanup(ctx, scope, correlationID, location)
	}()

	ing := runStage(scope, StageIngest, nil, func() StageResult[IngestOutput] {
		return p.ingest(ctx, data, correlationID)
	})
	location = ing.Value.Location
	if !ing.OK() {
		res.Error = ing.Err
		return res
	}

	det := runStage(scope, StageDetect, nil, func() StageResult[DetectOutput] {
		return p.detect(ctx, location)
	})
	if !det.OK() {
		res.Error = det.Err
		return res
	}
	res.IsTextBased = true
	res.NumPages = len(det.Value.Pages)

	ext := runStage(scope, StageExtract, nil, func() StageResult[ExtractOutput] {
		return p.extract(ctx, location)
	})
	if !ext.OK() {
		res.Error = ext.Err
		return res
	}

	idf := runStage(scope, StageIdentify, nil, func() StageResult[IdentifyOutput] {
		return p.identify(ext.Value.Tokens)
	})
	if !idf.OK() && !errors.Is(idf.Err, &StructuredError{Stage: StageIdentify, Kind: KindNoChordsFound}) {
		res.Error = idf.Err
		return res
	}
	for _, c := range idf.Value.Chords[:min(len(idf.Value.Chords), sampleLimit)] {
		res.SampleChords = append(res.SampleChords, c.Token.Text)
	}
	res.Valid = true
	return res
}
