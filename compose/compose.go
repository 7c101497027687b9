// Package compose paints overlay instructions onto the pages of an existing
// PDF and writes the result as a new document.
//
// Every original page is imported as a form template at its own size, so
// page count and order are preserved and pages without instructions keep
// their content unchanged. Instructions are given in the destination frame
// (origin bottom-left); the writer works top-down, so y is flipped against
// the page height when drawing.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"

	"github.com/tsawler/nashville/model"
	"github.com/tsawler/nashville/overlay"
)

// ErrCompose wraps every failure to produce the output document.
var ErrCompose = errors.New("compose failed")

// Compositor writes overlaid documents.
type Compositor struct {
	// Creator is written to the document info dictionary when set.
	Creator  string
	compress bool
}

// New returns a Compositor that compresses its output streams.
func New() *Compositor {
	return &Compositor{Creator: "nashville", compress: true}
}

// Compose imports every page of original, in the order given by pages, and
// draws the matching overlay on top of it.
func (c *Compositor) Compose(original []byte, pages []model.PageInfo, overlays []overlay.PageOverlay) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrCompose, r)
		}
	}()

	if len(original) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrCompose)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrCompose)
	}

	byPage := make(map[int]overlay.PageOverlay, len(overlays))
	for _, po := range overlays {
		byPage[po.Page.Index] = po
	}

	first := pages[0]
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetCompression(c.compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	if c.Creator != "" {
		pdf.SetCreator(c.Creator, false)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	var rs io.ReadSeeker = bytes.NewReader(original)
	imp := gofpdi.NewImporter()

	for _, page := range pages {
		if !(page.Width > 0) || !(page.Height > 0) {
			return nil, fmt.Errorf("%w: page %d has size %.2fx%.2f", ErrCompose, page.Index, page.Width, page.Height)
		}
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.Width, Ht: page.Height})

		tpl := imp.ImportPageFromStream(pdf, &rs, page.Index+1, "/MediaBox")
		imp.UseImportedTemplate(pdf, tpl, 0, 0, page.Width, page.Height)

		if po, ok := byPage[page.Index]; ok {
			drawOverlay(pdf, page, po.Instructions, tr)
		}
		if pdf.Err() {
			return nil, fmt.Errorf("%w: page %d: %v", ErrCompose, page.Index, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompose, err)
	}
	return buf.Bytes(), nil
}

// drawOverlay paints every cover rectangle of a page before any text.
func drawOverlay(pdf *fpdf.Fpdf, page model.PageInfo, instructions []overlay.Instruction, tr func(string) string) {
	pdf.SetFillColor(255, 255, 255)
	for _, ins := range instructions {
		box := ins.Cover
		pdf.Rect(box.X0, page.Height-box.Y1, box.Width(), box.Height(), "F")
	}

	pdf.SetTextColor(0, 0, 0)
	for _, ins := range instructions {
		pdf.SetFont(ins.Face.Family, ins.Face.Style, ins.FontSize)
		pdf.Text(ins.X, page.Height-ins.Baseline, tr(ins.Text))
	}
}
