package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/minio/highwayhash"

	"github.com/tsawler/nashville/chord"
	"github.com/tsawler/nashville/extract"
	"github.com/tsawler/nashville/format"
	"github.com/tsawler/nashville/model"
	"github.com/tsawler/nashville/observe"
	"github.com/tsawler/nashville/overlay"
	"github.com/tsawler/nashville/transpose"
)

// maxChordLength is the longest word considered a chord candidate.
const maxChordLength = 10

// fingerprintKey keys the highwayhash fingerprint of ingested documents.
var fingerprintKey = []byte("nashville-number-system-key-0001")

func fingerprint(data []byte) (string, error) {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", err
	}
	if _, err := h.Write(data); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

const mb = 1024 * 1024

// ingest checks size and signature, then stores the document.
func (p *Pipeline) ingest(ctx context.Context, data []byte, correlationID string) StageResult[IngestOutput] {
	if len(data) == 0 {
		return Fail[IngestOutput](StageIngest, newError(StageIngest, KindInvalidDocument, "File is empty"))
	}
	if int64(len(data)) > p.cfg.MaxFileBytes {
		return Fail[IngestOutput](StageIngest, newError(StageIngest, KindInvalidDocument,
			"File size (%.1f MB) exceeds maximum allowed size (%.0f MB)",
			float64(len(data))/mb, float64(p.cfg.MaxFileBytes)/mb).
			with("file_size_bytes", len(data)).
			with("max_file_size_bytes", p.cfg.MaxFileBytes))
	}
	if f := format.DetectFromMagic(data); f != format.PDF {
		return Fail[IngestOutput](StageIngest, newError(StageIngest, KindInvalidDocument,
			"File is not a valid PDF (magic bytes check failed)").
			with("detected_format", f.String()))
	}

	sum, err := fingerprint(data)
	if err != nil {
		return Fail[IngestOutput](StageIngest, newError(StageIngest, KindInternal, "Failed to fingerprint document: %v", err))
	}
	location, err := p.store.Put(ctx, correlationID, inputName, data)
	if err != nil {
		return Fail[IngestOutput](StageIngest, newError(StageIngest, KindInternal, "Failed to store document: %v", err))
	}

	out := IngestOutput{Location: location, Size: len(data), Format: format.PDF, Fingerprint: sum}
	return Succeed(StageIngest, out, observe.Fields{
		"file_size_bytes": len(data),
		"fingerprint":     sum,
	})
}

// load reads the ingested document back from the store.
func (p *Pipeline) load(ctx context.Context, stage Stage, location string) ([]byte, *StructuredError) {
	data, err := p.store.Get(ctx, location)
	if err != nil {
		return nil, newError(stage, KindInternal, "Failed to read stored document: %v", err)
	}
	return data, nil
}

// detect rejects unreadable, empty and image-only documents.
func (p *Pipeline) detect(ctx context.Context, location string) StageResult[DetectOutput] {
	data, serr := p.load(ctx, StageDetect, location)
	if serr != nil {
		return Fail[DetectOutput](StageDetect, serr)
	}

	summary, err := p.extractor.Inspect(data)
	switch {
	case errors.Is(err, extract.ErrEncrypted):
		return Fail[DetectOutput](StageDetect, newError(StageDetect, KindInvalidDocument,
			"PDF is encrypted. Remove the password protection and try again."))
	case err != nil:
		return Fail[DetectOutput](StageDetect, newError(StageDetect, KindInvalidDocument, "Failed to read PDF: %v", err))
	case summary.PageCount() == 0:
		return Fail[DetectOutput](StageDetect, newError(StageDetect, KindInvalidDocument, "PDF has no pages"))
	case !summary.HasText(p.cfg.MinTextChars):
		return Fail[DetectOutput](StageDetect, newError(StageDetect, KindUnsupportedDocument, msgScanned).
			with("first_page_text_length", summary.FirstPageText).
			with("min_text_length", p.cfg.MinTextChars))
	}

	out := DetectOutput{Pages: summary.Pages, FirstPageText: summary.FirstPageText}
	return Succeed(StageDetect, out, observe.Fields{
		"num_pages":              summary.PageCount(),
		"first_page_text_length": summary.FirstPageText,
	})
}

// extract collects every word of the document.
func (p *Pipeline) extract(ctx context.Context, location string) StageResult[ExtractOutput] {
	data, serr := p.load(ctx, StageExtract, location)
	if serr != nil {
		return Fail[ExtractOutput](StageExtract, serr)
	}

	pages, err := p.extractor.Extract(data)
	if err != nil {
		return Fail[ExtractOutput](StageExtract, newError(StageExtract, KindExtractionFailure, "Failed to extract text: %v", err))
	}

	var out ExtractOutput
	for _, words := range pages {
		out.Tokens = append(out.Tokens, words...)
		out.TokensByPage = append(out.TokensByPage, len(words))
	}
	return Succeed(StageExtract, out, observe.Fields{
		"tokens_found": len(out.Tokens),
		"pages":        len(pages),
	})
}

// identify keeps the words that read as chord symbols. Finding none is a
// failure even though nothing went wrong.
func (p *Pipeline) identify(tokens []model.TextToken) StageResult[IdentifyOutput] {
	var out IdentifyOutput
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok.Text) > maxChordLength {
			continue
		}
		if tok.FontSize < p.cfg.MinFontSize || tok.FontSize > p.cfg.MaxFontSize {
			continue
		}
		if !chord.IsLikelyChord(tok.Text) {
			continue
		}
		c, ok := chord.Parse(tok.Text)
		if !ok {
			continue
		}
		out.Chords = append(out.Chords, model.ChordToken{Token: tok, Chord: c, Confidence: 1})
	}

	if len(out.Chords) == 0 {
		return Fail[IdentifyOutput](StageIdentify, newError(StageIdentify, KindNoChordsFound, msgNoChords).
			with("total_tokens", len(tokens)))
	}

	rate := float64(len(out.Chords)) / float64(len(tokens))
	return Succeed(StageIdentify, out, observe.Fields{
		"total_tokens":        len(tokens),
		"identified_chords":   len(out.Chords),
		"identification_rate": rate,
	})
}

// convertChords converts every chord. A chord that cannot be converted
// keeps its own text and is reported as a warning.
func (p *Pipeline) convertChords(scope observe.Scope, chords []model.ChordToken, key string, mode transpose.Mode, auto bool) StageResult[ConvertOutput] {
	if auto {
		found := make([]chord.Chord, 0, len(chords))
		for _, ct := range chords {
			found = append(found, ct.Chord)
		}
		mode = transpose.DetectMode(found, key)
	}

	out := ConvertOutput{Mode: mode, Conversions: make([]model.NashvilleConversion, 0, len(chords))}
	chromatic := 0
	for _, ct := range chords {
		conv, err := p.convertOne(ct.Chord, key, mode)
		if err != nil {
			warning := fmt.Sprintf("Failed to convert chord '%s': %v", ct.Chord, err)
			out.Warnings = append(out.Warnings, warning)
			se := newError(StageConvert, KindChordConversionFailure, "%s", warning).with("chord", ct.Chord.String())
			se.Recoverable = true
			out.Failures = append(out.Failures, se)
			scope.Warn(warning)
			conv = transpose.Conversion{Number: ct.Chord.String(), Chromatic: true}
		}
		if conv.Chromatic {
			chromatic++
		}
		out.Conversions = append(out.Conversions, model.NashvilleConversion{
			ChordToken: ct,
			Number:     conv.Number,
			Chromatic:  conv.Chromatic,
		})
	}

	return Succeed(StageConvert, out, observe.Fields{
		"total_conversions": len(out.Conversions),
		"chromatic_chords":  chromatic,
		"warnings":          len(out.Warnings),
		"mode":              string(mode),
	})
}

// convertOne isolates a single conversion so that a panic only affects
// its own chord.
func (p *Pipeline) convertOne(c chord.Chord, key string, mode transpose.Mode) (conv transpose.Conversion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return p.convert(c, key, mode)
}

// render draws the conversions over the stored document.
func (p *Pipeline) render(ctx context.Context, location string, pages []model.PageInfo, conversions []model.NashvilleConversion) StageResult[RenderOutput] {
	result, err := p.renderer.Render(overlay.FromConversions(conversions), pages)
	if err != nil {
		return Fail[RenderOutput](StageRender, newError(StageRender, KindRenderFailure, "Failed to compute overlay: %v", err))
	}

	data, err := p.store.Get(ctx, location)
	if err != nil {
		return Fail[RenderOutput](StageRender, newError(StageRender, KindRenderFailure, "Failed to read stored document: %v", err))
	}

	doc, err := p.compositor.Compose(data, pages, result.Pages)
	if err != nil {
		return Fail[RenderOutput](StageRender, newError(StageRender, KindRenderFailure, "Failed to render output PDF: %v", err))
	}
	if len(doc) == 0 {
		return Fail[RenderOutput](StageRender, newError(StageRender, KindRenderFailure, "Failed to render output PDF: empty output"))
	}

	return Succeed(StageRender, RenderOutput{Document: doc, Overlay: result}, observe.Fields{
		"pages_rendered":      len(result.Pages),
		"instructions":        result.InstructionCount(),
		"skipped_annotations": len(result.Skipped),
		"output_size_bytes":   len(doc),
	})
}
