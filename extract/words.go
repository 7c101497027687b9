package extract

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/tsawler/nashville/font"
	"github.com/tsawler/nashville/model"
)

const (
	// ascent and descent split the font size around the baseline.
	ascent  = 0.8
	descent = 0.2
	// lineTolerance is the share of the glyph size two baselines may
	// differ by and still be on the same line.
	lineTolerance = 0.5
	// spaceRatio estimates the width of a space as a share of the size.
	spaceRatio = 0.25
	// gapRatio is the share of a space width that separates two words.
	gapRatio = 0.5
	// defaultSize is used for glyphs that report no size.
	defaultSize = 12.0
	// sameSpot is how close two glyph origins must be to count as one.
	sameSpot = 1e-6
)

// glyph is a single positioned character in PDF user space (y up).
type glyph struct {
	S    string
	Font string
	Size float64
	X, Y float64
	W    float64
}

// pageFrame locates a page's media box in user space.
type pageFrame struct {
	Index int
	X0    float64 // left edge of the media box
	Top   float64 // top edge of the media box
}

// groupWords turns a page's glyph stream into word tokens, in reading
// order (lines top to bottom, words left to right).
func groupWords(glyphs []glyph, frame pageFrame) []model.TextToken {
	var tokens []model.TextToken
	for _, line := range groupLines(advance(glyphs)) {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		for _, word := range splitWords(line) {
			if tok, ok := wordToken(word, frame); ok {
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}

// advance lays out glyphs that were reported without an advance width.
// Such glyphs all carry the origin of their text operator, so each run
// sharing one origin is spread out from it by the core font widths.
func advance(glyphs []glyph) []glyph {
	out := make([]glyph, len(glyphs))
	pen := 0.0
	for i, g := range glyphs {
		if g.W == 0 && i > 0 && sameOrigin(g, glyphs[i-1]) {
			g.X = pen
		}
		if g.W == 0 {
			g.W = font.CoreFace(g.Font).StringWidth(g.S, sizeOf(g))
		}
		pen = g.X + g.W
		out[i] = g
	}
	return out
}

func sameOrigin(a, b glyph) bool {
	return math.Abs(a.X-b.X) < sameSpot && math.Abs(a.Y-b.Y) < sameSpot
}

// groupLines groups consecutive glyphs whose baselines are within tolerance.
// Lines are returned top to bottom.
func groupLines(glyphs []glyph) [][]glyph {
	if len(glyphs) == 0 {
		return nil
	}

	var lines [][]glyph
	current := []glyph{glyphs[0]}
	for i := 1; i < len(glyphs); i++ {
		g, prev := glyphs[i], current[0]
		if math.Abs(g.Y-prev.Y) <= sizeOf(prev)*lineTolerance {
			current = append(current, g)
			continue
		}
		lines = append(lines, current)
		current = []glyph{g}
	}
	lines = append(lines, current)

	sort.SliceStable(lines, func(i, j int) bool { return lines[i][0].Y > lines[j][0].Y })
	return lines
}

// splitWords splits an x-sorted line at whitespace glyphs and wide gaps.
func splitWords(line []glyph) [][]glyph {
	var words [][]glyph
	var current []glyph
	flush := func() {
		if len(current) > 0 {
			words = append(words, current)
			current = nil
		}
	}

	for _, g := range line {
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			flush()
			continue
		}
		if n := len(current); n > 0 {
			prev := current[n-1]
			gap := g.X - (prev.X + prev.W)
			if gap >= sizeOf(prev)*spaceRatio*gapRatio {
				flush()
			}
		}
		current = append(current, g)
	}
	flush()
	return words
}

// wordToken builds a source-frame token for one word.
func wordToken(word []glyph, frame pageFrame) (model.TextToken, bool) {
	var sb strings.Builder
	size := 0.0
	for _, g := range word {
		sb.WriteString(g.S)
		size = math.Max(size, sizeOf(g))
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return model.TextToken{}, false
	}

	first, last := word[0], word[len(word)-1]
	x0 := first.X
	x1 := last.X + last.W
	// Fonts without a width table report zero advances; measure with the
	// closest core face instead.
	if est := x0 + font.CoreFace(first.Font).StringWidth(text, size); est > x1 {
		x1 = est
	}

	baseline := first.Y
	box := model.NewBBox(
		x0-frame.X0,
		frame.Top-(baseline+ascent*size),
		x1-frame.X0,
		frame.Top-(baseline-descent*size),
		model.Source,
	)

	return model.TextToken{
		Text:     text,
		Box:      box,
		Page:     frame.Index,
		FontName: first.Font,
		FontSize: size,
	}, true
}

func sizeOf(g glyph) float64 {
	if g.Size > 0 {
		return g.Size
	}
	return defaultSize
}
