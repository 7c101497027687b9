package extract

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/nashville/model"
)

const lyric = "Amazing grace how sweet the sound that saved a wretch like me"

type placed struct {
	x, y float64 // top-down, as fpdf takes them
	text string
}

// buildPDF writes one Letter page per entry, each string drawn by its own
// text operator at 12pt Helvetica.
func buildPDF(t *testing.T, protect bool, pages ...[]placed) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetCompression(false)
	if protect {
		doc.SetProtection(fpdf.CnProtectPrint, "secret", "owner")
	}
	for _, items := range pages {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 12)
		for _, it := range items {
			doc.Text(it.x, it.y, it.text)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func chart() []placed {
	return []placed{
		{72, 100, "C"},
		{132, 100, "G"},
		{192, 100, "Am"},
		{72, 120, lyric},
	}
}

func texts(tokens []model.TextToken) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Text)
	}
	return out
}

func TestInspect(t *testing.T) {
	data := buildPDF(t, false, chart(), []placed{{72, 100, "F"}})

	s, err := New().Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 2, s.PageCount())
	for i, p := range s.Pages {
		assert.Equal(t, i, p.Index)
		assert.InDelta(t, 612, p.Width, 0.01)
		assert.InDelta(t, 792, p.Height, 0.01)
	}
	assert.GreaterOrEqual(t, s.FirstPageText, len(lyric))
	assert.True(t, s.HasText(50))
}

func TestInspect_NotEnoughText(t *testing.T) {
	data := buildPDF(t, false, []placed{{72, 100, "C"}}, nil)

	s, err := New().Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 2, s.PageCount())
	assert.False(t, s.HasText(50))
}

func TestInspect_Errors(t *testing.T) {
	_, err := New().Inspect(nil)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = New().Inspect([]byte("%PDF-1.4\nnot really"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = New().Inspect(buildPDF(t, true, chart()))
	assert.ErrorIs(t, err, ErrEncrypted)
}

func TestExtract(t *testing.T) {
	data := buildPDF(t, false, chart(), []placed{{300, 400, "Dm7"}})

	pages, err := New().Extract(data)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	first := texts(pages[0])
	require.GreaterOrEqual(t, len(first), 4)
	assert.Equal(t, []string{"C", "G", "Am"}, first[:3])
	assert.Contains(t, first, "Amazing")
	assert.Contains(t, first, "wretch")

	require.Len(t, pages[1], 1)
	tok := pages[1][0]
	assert.Equal(t, "Dm7", tok.Text)
	assert.Equal(t, 1, tok.Page)
	assert.Equal(t, model.Source, tok.Box.Frame)
	assert.Contains(t, tok.FontName, "Helvetica")
	assert.InDelta(t, 12, tok.FontSize, 0.01)

	// Baseline at y=400 from the top: box spans 0.8em above, 0.2em below.
	assert.InDelta(t, 300, tok.Box.X0, 0.01)
	assert.InDelta(t, 400-9.6, tok.Box.Y0, 0.01)
	assert.InDelta(t, 400+2.4, tok.Box.Y1, 0.01)
	assert.Greater(t, tok.Box.X1, tok.Box.X0)
}

func TestGroupWords(t *testing.T) {
	frame := pageFrame{Index: 0, Top: 792}
	glyphs := []glyph{
		// second line first in stream order
		{S: "x", Size: 10, X: 72, Y: 600, W: 5},
		{S: "C", Font: "Helvetica", Size: 10, X: 72, Y: 700, W: 7},
		{S: "m", Font: "Helvetica", Size: 10, X: 79, Y: 700.5, W: 8},
		{S: " ", Font: "Helvetica", Size: 10, X: 87, Y: 700, W: 3},
		{S: "G", Font: "Helvetica", Size: 10, X: 90, Y: 700, W: 7},
		// gap of 10 splits words
		{S: "D", Font: "Helvetica", Size: 10, X: 107, Y: 700, W: 7},
	}

	tokens := groupWords(glyphs, frame)
	assert.Equal(t, []string{"Cm", "G", "D", "x"}, texts(tokens))

	// Lines are top to bottom in the source frame.
	assert.Less(t, tokens[0].Box.Y0, tokens[3].Box.Y0)

	cm := tokens[0]
	assert.InDelta(t, 72, cm.Box.X0, 1e-9)
	// C=722 m=833 at 10pt is wider than the reported advances.
	assert.InDelta(t, 72+15.55, cm.Box.X1, 1e-9)
	assert.InDelta(t, 792-(700+8), cm.Box.Y0, 1e-9)
	assert.InDelta(t, 792-(700-2), cm.Box.Y1, 1e-9)
}

func TestGroupWords_ZeroWidths(t *testing.T) {
	// One text operator: every glyph reports the operator's origin.
	glyphs := []glyph{
		{S: "A", Size: 12, X: 72, Y: 700},
		{S: "m", Size: 12, X: 72, Y: 700},
		{S: "7", Size: 12, X: 72, Y: 700},
		{S: " ", Size: 12, X: 72, Y: 700},
		{S: "F", Size: 12, X: 72, Y: 700},
		// a separate operator starts a new run
		{S: "G", Size: 12, X: 200, Y: 700},
	}

	tokens := groupWords(glyphs, pageFrame{Top: 792})
	require.Equal(t, []string{"Am7", "F", "G"}, texts(tokens))
	// A=667 m=833 7=556 space=278 at 12pt
	assert.InDelta(t, 72, tokens[0].Box.X0, 1e-9)
	assert.InDelta(t, 72+24.672, tokens[0].Box.X1, 1e-9)
	assert.InDelta(t, 72+28.008, tokens[1].Box.X0, 1e-9)
	assert.InDelta(t, 72+28.008+7.332, tokens[1].Box.X1, 1e-9)
	assert.InDelta(t, 200, tokens[2].Box.X0, 1e-9)
}

func TestExtract_SingleStringChordLine(t *testing.T) {
	data := buildPDF(t, false, []placed{{72, 100, "C       G/B     Am7"}})

	pages, err := New().Extract(data)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, []string{"C", "G/B", "Am7"}, texts(pages[0]))

	c, gb, am := pages[0][0].Box, pages[0][1].Box, pages[0][2].Box
	assert.InDelta(t, 72, c.X0, 0.5)
	// C=722 plus seven spaces of 278 at 12pt
	assert.InDelta(t, 72+8.664+23.352, gb.X0, 2)
	assert.Greater(t, gb.X0, c.X1)
	assert.Greater(t, am.X0, gb.X1)
}

func TestGroupWords_Empty(t *testing.T) {
	assert.Empty(t, groupWords(nil, pageFrame{Top: 792}))
	assert.Empty(t, groupWords([]glyph{{S: " ", Size: 12, X: 1, Y: 1}}, pageFrame{Top: 792}))
}

func TestGroupWords_DefaultSizeAndOffsetMediaBox(t *testing.T) {
	frame := pageFrame{Index: 3, X0: 10, Top: 800}
	tokens := groupWords([]glyph{{S: "E", X: 50, Y: 500, W: 6}}, frame)
	require.Len(t, tokens, 1)
	assert.Equal(t, 3, tokens[0].Page)
	assert.Equal(t, defaultSize, tokens[0].FontSize)
	assert.InDelta(t, 40, tokens[0].Box.X0, 1e-9)
	assert.InDelta(t, 800-(500+0.8*defaultSize), tokens[0].Box.Y0, 1e-9)
}
