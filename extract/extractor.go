package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/tsawler/nashville/model"
)

var (
	// ErrEncrypted is returned for password-protected documents.
	ErrEncrypted = errors.New("document is encrypted")
	// ErrMalformed is returned when the document cannot be parsed.
	ErrMalformed = errors.New("malformed PDF")
)

// Letter size, used when a page has no usable media box.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Summary describes a document without extracting its words.
type Summary struct {
	Pages         []model.PageInfo
	FirstPageText int // runes of trimmed page-one text
}

// PageCount returns the number of pages.
func (s Summary) PageCount() int {
	return len(s.Pages)
}

// HasText reports whether page one carries at least min characters of
// selectable text. Scanned documents fail this check.
func (s Summary) HasText(min int) bool {
	return len(s.Pages) > 0 && s.FirstPageText >= min
}

// Extractor reads text-based PDFs.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Inspect reports page count, page sizes and the amount of text on page one.
func (e *Extractor) Inspect(data []byte) (summary Summary, err error) {
	defer recoverInto(&err)

	r, err := open(data)
	if err != nil {
		return Summary{}, err
	}

	n := r.NumPage()
	for i := 1; i <= n; i++ {
		_, info := pageGeometry(r.Page(i), i-1)
		summary.Pages = append(summary.Pages, info)
	}
	if n == 0 {
		return summary, nil
	}

	text, err := r.Page(1).GetPlainText(nil)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: page 1: %v", ErrMalformed, err)
	}
	summary.FirstPageText = utf8.RuneCountInString(strings.TrimSpace(text))
	return summary, nil
}

// Extract returns the words on every page, indexed by page. Pages without
// text yield an empty slice.
func (e *Extractor) Extract(data []byte) (pages [][]model.TextToken, err error) {
	defer recoverInto(&err)

	r, err := open(data)
	if err != nil {
		return nil, err
	}

	n := r.NumPage()
	pages = make([][]model.TextToken, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			return nil, fmt.Errorf("%w: page %d missing", ErrMalformed, i)
		}
		frame, _ := pageGeometry(p, i-1)

		content := p.Content()
		glyphs := make([]glyph, 0, len(content.Text))
		for _, t := range content.Text {
			glyphs = append(glyphs, glyph{S: t.S, Font: t.Font, Size: t.FontSize, X: t.X, Y: t.Y, W: t.W})
		}
		pages[i-1] = groupWords(glyphs, frame)
	}
	return pages, nil
}

// open parses data, mapping password failures to ErrEncrypted.
func open(data []byte) (*pdf.Reader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) || strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return r, nil
}

// pageGeometry reads the media box of a page.
func pageGeometry(p pdf.Page, index int) (pageFrame, model.PageInfo) {
	frame := pageFrame{Index: index, Top: defaultPageHeight}
	info := model.PageInfo{Index: index, Width: defaultPageWidth, Height: defaultPageHeight}

	box := inherited(p.V, "MediaBox")
	if box.Len() != 4 {
		return frame, info
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	if x1-x0 <= 0 || y1-y0 <= 0 {
		return frame, info
	}

	frame.X0, frame.Top = x0, y1
	info.Width, info.Height = x1-x0, y1-y0
	return frame, info
}

// inherited looks a page attribute up through the page tree.
func inherited(v pdf.Value, key string) pdf.Value {
	for depth := 0; !v.IsNull() && depth < 32; depth++ {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

// recoverInto converts a panic from the PDF library into an error.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformed, r)
	}
}
