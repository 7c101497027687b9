// Package overlay turns converted chords into per-page drawing instructions.
//
// Each annotation becomes an opaque cover rectangle over the original chord
// plus the replacement text, positioned and sized in the destination frame
// (origin bottom-left, y up). The instructions are consumed by a compositor
// that paints them over the original pages.
package overlay

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/nashville/coords"
	"github.com/tsawler/nashville/font"
	"github.com/tsawler/nashville/model"
)

// DefaultPadding is added on every side of a cover rectangle.
const DefaultPadding = 2.0

var (
	// ErrMalformedAnnotation is recorded for annotations that cannot be drawn.
	ErrMalformedAnnotation = errors.New("malformed annotation")
	// ErrPageFailed is returned when the only page of a document fails.
	ErrPageFailed = errors.New("page overlay failed")
)

// Annotation is one replacement to draw: the text goes where the source
// box was.
type Annotation struct {
	Page     int
	Box      model.BBox // source frame
	Text     string
	FontName string
	FontSize float64
}

// FromConversions builds one annotation per conversion.
func FromConversions(conversions []model.NashvilleConversion) []Annotation {
	anns := make([]Annotation, 0, len(conversions))
	for _, c := range conversions {
		tok := c.ChordToken.Token
		anns = append(anns, Annotation{
			Page:     tok.Page,
			Box:      tok.Box,
			Text:     c.Number,
			FontName: tok.FontName,
			FontSize: tok.FontSize,
		})
	}
	return anns
}

// Instruction draws a white cover rectangle, then Text at (X, Baseline).
type Instruction struct {
	Cover    model.BBox // destination frame, padded
	Text     string
	Face     font.Face
	FontSize float64
	X        float64
	Baseline float64
	Shrunk   bool
}

// PageOverlay holds the instructions for one page, in annotation order.
type PageOverlay struct {
	Page         model.PageInfo
	Instructions []Instruction
}

// Skip records an annotation or page that was not rendered.
type Skip struct {
	Page   int
	Text   string
	Reason string
}

// String returns a short description
func (s Skip) String() string {
	if s.Text == "" {
		return fmt.Sprintf("page %d: %s", s.Page, s.Reason)
	}
	return fmt.Sprintf("page %d: %q: %s", s.Page, s.Text, s.Reason)
}

// Result is the output of Render. Pages is sorted by page index and only
// contains pages that had annotations.
type Result struct {
	Pages   []PageOverlay
	Skipped []Skip
}

// InstructionCount returns the number of instructions across all pages.
func (r *Result) InstructionCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Instructions)
	}
	return n
}

// Renderer computes overlays. The zero value is usable.
type Renderer struct {
	// Padding around each cover rectangle; zero means DefaultPadding.
	Padding float64
	// Workers bounds how many pages are computed at once; zero means
	// runtime.NumCPU().
	Workers int
}

// New returns a Renderer with default settings.
func New() *Renderer {
	return &Renderer{Padding: DefaultPadding}
}

// pageJob is the input and output of one page computation.
type pageJob struct {
	index   int
	anns    []Annotation
	overlay PageOverlay
	skipped []Skip
	err     error
}

// Render groups annotations by page and computes every page's overlay.
// Pages are computed concurrently; the result is in page order.
//
// A malformed annotation is skipped and recorded. A page that cannot be
// rendered at all is skipped and recorded, unless the document has a single
// page, in which case its error is returned.
func (r *Renderer) Render(anns []Annotation, pages []model.PageInfo) (*Result, error) {
	byIndex := make(map[int]model.PageInfo, len(pages))
	for _, p := range pages {
		byIndex[p.Index] = p
	}

	grouped := make(map[int][]Annotation)
	for _, a := range anns {
		grouped[a.Page] = append(grouped[a.Page], a)
	}
	jobs := make([]*pageJob, 0, len(grouped))
	for index, group := range grouped {
		jobs = append(jobs, &pageJob{index: index, anns: group})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].index < jobs[j].index })

	var g errgroup.Group
	g.SetLimit(r.workers())
	for _, job := range jobs {
		g.Go(func() error {
			page, ok := byIndex[job.index]
			if !ok {
				job.err = fmt.Errorf("%w: page %d not in document", ErrPageFailed, job.index)
				return nil
			}
			job.overlay, job.skipped, job.err = r.renderPage(page, job.anns)
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{}
	for _, job := range jobs {
		if job.err != nil {
			if len(pages) <= 1 {
				return nil, job.err
			}
			res.Skipped = append(res.Skipped, Skip{Page: job.index, Reason: job.err.Error()})
			continue
		}
		res.Pages = append(res.Pages, job.overlay)
		res.Skipped = append(res.Skipped, job.skipped...)
	}
	return res, nil
}

func (r *Renderer) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

func (r *Renderer) padding() float64 {
	if r.Padding > 0 {
		return r.Padding
	}
	return DefaultPadding
}

// renderPage computes the instructions for one page. It recovers from
// panics so that one bad page cannot take the others down.
func (r *Renderer) renderPage(page model.PageInfo, anns []Annotation) (po PageOverlay, skipped []Skip, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: page %d: %v", ErrPageFailed, page.Index, rec)
		}
	}()

	if !(page.Width > 0) || !(page.Height > 0) {
		return PageOverlay{}, nil, fmt.Errorf("%w: page %d: %w", ErrPageFailed, page.Index, coords.ErrInvalidPage)
	}

	po.Page = page
	for _, a := range anns {
		ins, err := r.instruction(a, page)
		if err != nil {
			skipped = append(skipped, Skip{Page: a.Page, Text: a.Text, Reason: err.Error()})
			continue
		}
		po.Instructions = append(po.Instructions, ins)
	}
	return po, skipped, nil
}

// instruction positions a single annotation.
func (r *Renderer) instruction(a Annotation, page model.PageInfo) (Instruction, error) {
	if strings.TrimSpace(a.Text) == "" {
		return Instruction{}, fmt.Errorf("%w: empty text", ErrMalformedAnnotation)
	}
	if !(a.FontSize > 0) {
		return Instruction{}, fmt.Errorf("%w: font size %.2f", ErrMalformedAnnotation, a.FontSize)
	}

	dest, err := coords.ToDestination(a.Box, page.Height)
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: %w", ErrMalformedAnnotation, err)
	}

	size, shrunk := coords.FitFontSize(a.Text, a.FontSize, dest.Width(), font.Classify(a.FontName))

	return Instruction{
		Cover:    dest.Expand(r.padding()),
		Text:     a.Text,
		Face:     font.CoreFace(a.FontName),
		FontSize: size,
		X:        dest.X0,
		Baseline: coords.Baseline(dest, size),
		Shrunk:   shrunk,
	}, nil
}
