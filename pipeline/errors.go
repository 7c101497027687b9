package pipeline

import (
	"errors"
	"fmt"
)

// Stage names a step of the conversion pipeline.
type Stage string

// Stages in execution order.
const (
	StageIngest   Stage = "ingest"
	StageDetect   Stage = "detect"
	StageExtract  Stage = "extract"
	StageIdentify Stage = "identify"
	StageConvert  Stage = "convert"
	StageRender   Stage = "render"
)

// Stages returns every stage in execution order.
func Stages() []Stage {
	return []Stage{StageIngest, StageDetect, StageExtract, StageIdentify, StageConvert, StageRender}
}

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	// KindInvalidRequest is a request with a bad key, mode or id.
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindInvalidDocument covers size, signature, corrupted and encrypted input.
	KindInvalidDocument ErrorKind = "invalid_document"
	// KindUnsupportedDocument is a document without extractable text.
	KindUnsupportedDocument ErrorKind = "unsupported_document"
	KindExtractionFailure   ErrorKind = "extraction_failure"
	KindNoChordsFound       ErrorKind = "no_chords_found"
	// KindChordConversionFailure is recoverable: the chord keeps its text.
	KindChordConversionFailure ErrorKind = "chord_conversion_failure"
	KindRenderFailure          ErrorKind = "render_failure"
	// KindInternal covers panics inside a stage and storage failures.
	KindInternal ErrorKind = "internal_error"
)

// Messages shown to users for content-based failures.
const (
	msgNoChords = "No chord symbols detected in PDF. Ensure the PDF contains chord symbols (C, Dm, G7, etc.) and is not encrypted."
	msgScanned  = "This PDF appears to be a scanned image. Only text-based PDFs with selectable text are supported. Please use an OCR tool to convert the PDF to text first."
)

// StructuredError is the single error carried by a failed run.
type StructuredError struct {
	Stage       Stage          `json:"stage"`
	Kind        ErrorKind      `json:"error_type"`
	Message     string         `json:"message"`
	Recoverable bool           `json:"recoverable"`
	Details     map[string]any `json:"details,omitempty"`
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Message)
}

// Is matches another *StructuredError with the same stage and kind, so
// callers can test with errors.Is against a template value.
func (e *StructuredError) Is(target error) bool {
	t, ok := target.(*StructuredError)
	if !ok {
		return false
	}
	return (t.Stage == "" || t.Stage == e.Stage) && (t.Kind == "" || t.Kind == e.Kind)
}

// AsStructured unwraps err to a *StructuredError.
func AsStructured(err error) (*StructuredError, bool) {
	var se *StructuredError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func newError(stage Stage, kind ErrorKind, format string, args ...any) *StructuredError {
	return &StructuredError{Stage: stage, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *StructuredError) with(key string, value any) *StructuredError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}
