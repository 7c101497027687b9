package pipeline

import (
	"github.com/tsawler/nashville/format"
	"github.com/tsawler/nashville/model"
	"github.com/tsawler/nashville/observe"
	"github.com/tsawler/nashville/overlay"
	"github.com/tsawler/nashville/transpose"
)

// StageResult is the outcome of one stage: either a value or an error.
type StageResult[T any] struct {
	Stage   Stage
	Value   T
	Err     *StructuredError
	Metrics observe.Fields
}

// Succeed returns a successful result.
func Succeed[T any](stage Stage, value T, metrics observe.Fields) StageResult[T] {
	return StageResult[T]{Stage: stage, Value: value, Metrics: metrics}
}

// Fail returns a failed result. The error is tagged with stage if it is
// not tagged already.
func Fail[T any](stage Stage, err *StructuredError) StageResult[T] {
	if err.Stage == "" {
		err.Stage = stage
	}
	return StageResult[T]{Stage: stage, Err: err}
}

// OK reports whether the stage succeeded.
func (r StageResult[T]) OK() bool {
	return r.Err == nil
}

// IngestOutput records where the accepted document was stored.
type IngestOutput struct {
	Location    string
	Size        int
	Format      format.Format
	Fingerprint string // highwayhash-64, hex
}

// DetectOutput describes a document that has enough text to process.
type DetectOutput struct {
	Pages         []model.PageInfo
	FirstPageText int
}

// ExtractOutput holds every word of the document, in page order.
type ExtractOutput struct {
	Tokens       []model.TextToken
	TokensByPage []int
}

// IdentifyOutput holds the words recognised as chords.
type IdentifyOutput struct {
	Chords []model.ChordToken
}

// ConvertOutput holds one conversion per identified chord. Failures lists
// the chords that fell back to their original text.
type ConvertOutput struct {
	Mode        transpose.Mode
	Conversions []model.NashvilleConversion
	Failures    []*StructuredError
	Warnings    []string
}

// RenderOutput holds the composed document.
type RenderOutput struct {
	Document []byte
	Overlay  *overlay.Result
}
