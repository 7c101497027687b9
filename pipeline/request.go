package pipeline

import (
	"errors"
	"fmt"

	"github.com/tsawler/nashville/model"
	"github.com/tsawler/nashville/observe"
	"github.com/tsawler/nashville/transpose"
)

// ErrMissingCorrelationID is returned by Validate for an empty id.
var ErrMissingCorrelationID = errors.New("correlation id is required")

// ConversionRequest asks for one document to be converted in a key.
type ConversionRequest struct {
	CorrelationID string
	Key           string
	Mode          transpose.Mode
	// AutoMode guesses the mode from the chords found; Mode is ignored.
	AutoMode bool
	// Debug collects a DebugOutput even when the pipeline is not in debug mode.
	Debug bool
}

// Validate checks the key and mode.
func (r ConversionRequest) Validate() error {
	if r.CorrelationID == "" {
		return ErrMissingCorrelationID
	}
	if err := transpose.ValidateKey(r.Key); err != nil {
		return err
	}
	if r.AutoMode {
		return nil
	}
	if _, err := transpose.ParseMode(string(r.Mode)); err != nil {
		return err
	}
	return nil
}

// ConversionResult summarises a run.
type ConversionResult struct {
	Success               bool             `json:"success"`
	CorrelationID         string           `json:"correlation_id"`
	Key                   string           `json:"key"`
	Mode                  transpose.Mode   `json:"mode"`
	TokensExtracted       int              `json:"total_tokens_extracted"`
	ChordsIdentified      int              `json:"total_chords_identified"`
	ChordsConverted       int              `json:"total_chords_converted"`
	ProcessingTimeSeconds float64          `json:"processing_time_seconds"`
	Pages                 []model.PageInfo `json:"pages,omitempty"`
	Fingerprint           string           `json:"fingerprint,omitempty"`
	Error                 *StructuredError `json:"error,omitempty"`
	Warnings              []string         `json:"warnings"`
	SkippedAnnotations    []string         `json:"skipped_annotations,omitempty"`
	Debug                 *DebugOutput     `json:"debug,omitempty"`
}

// Err returns the run's error as an error value, or nil.
func (r *ConversionResult) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// debugLimit caps each debug listing.
const debugLimit = 50

// DebugOutput exposes intermediate results of a run.
type DebugOutput struct {
	CorrelationID    string                   `json:"correlation_id"`
	ExtractedTokens  []DebugToken             `json:"extracted_tokens"`
	IdentifiedChords []DebugChord             `json:"identified_chords"`
	Conversions      []DebugConversion        `json:"conversions"`
	StageMetrics     map[Stage]observe.Fields `json:"stage_metrics"`
}

type DebugToken struct {
	Text string     `json:"text"`
	Page int        `json:"page"`
	BBox [4]float64 `json:"bbox"`
}

type DebugChord struct {
	Chord string `json:"chord"`
	Page  int    `json:"page"`
}

type DebugConversion struct {
	Original  string `json:"original"`
	Nashville string `json:"nashville"`
	Chromatic bool   `json:"chromatic"`
}

func newDebug(correlationID string) *DebugOutput {
	return &DebugOutput{
		CorrelationID: correlationID,
		StageMetrics:  make(map[Stage]observe.Fields),
	}
}

func (d *DebugOutput) tokens(tokens []model.TextToken) {
	for _, t := range tokens[:min(len(tokens), debugLimit)] {
		d.ExtractedTokens = append(d.ExtractedTokens, DebugToken{
			Text: t.Text,
			Page: t.Page,
			BBox: [4]float64{t.Box.X0, t.Box.Y0, t.Box.X1, t.Box.Y1},
		})
	}
}

func (d *DebugOutput) chords(chords []model.ChordToken) {
	for _, c := range chords[:min(len(chords), debugLimit)] {
		d.IdentifiedChords = append(d.IdentifiedChords, DebugChord{Chord: c.Chord.String(), Page: c.Token.Page})
	}
}

func (d *DebugOutput) conversions(convs []model.NashvilleConversion) {
	for _, c := range convs[:min(len(convs), debugLimit)] {
		d.Conversions = append(d.Conversions, DebugConversion{
			Original:  c.ChordToken.Chord.String(),
			Nashville: c.Number,
			Chromatic: c.Chromatic,
		})
	}
}

// Config holds the thresholds a run is checked against.
type Config struct {
	MaxFileBytes int64   // largest accepted document
	MinTextChars int     // page-one text below this means a scanned document
	MinFontSize  float64 // chords are looked for in [MinFontSize, MaxFontSize]
	MaxFontSize  float64
	Debug        bool
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MaxFileBytes: 10 * 1024 * 1024,
		MinTextChars: 50,
		MinFontSize:  8,
		MaxFontSize:  24,
	}
}

// Validate reports inconsistent thresholds.
func (c Config) Validate() error {
	switch {
	case c.MaxFileBytes <= 0:
		return fmt.Errorf("max file size must be positive, got %d", c.MaxFileBytes)
	case c.MinTextChars < 0:
		return fmt.Errorf("min text must not be negative, got %d", c.MinTextChars)
	case c.MinFontSize <= 0 || c.MaxFontSize < c.MinFontSize:
		return fmt.Errorf("font size band [%.1f, %.1f] is invalid", c.MinFontSize, c.MaxFontSize)
	}
	return nil
}
