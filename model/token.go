package model

import (
	"fmt"

	"github.com/tsawler/nashville/chord"
)

// TextToken is a word extracted from a document together with its
// position (Source frame) and typography.
type TextToken struct {
	Text     string
	Box      BBox
	Page     int // 0-indexed
	FontName string
	FontSize float64
}

// String returns a short debugging representation
func (t TextToken) String() string {
	return fmt.Sprintf("TextToken(%q, page=%d, bbox=(%.1f, %.1f))", t.Text, t.Page, t.Box.X0, t.Box.Y0)
}

// PageInfo describes the dimensions of a single page in points.
type PageInfo struct {
	Index  int // 0-indexed
	Width  float64
	Height float64
}

// ChordToken is a text token that was recognised as a chord symbol.
type ChordToken struct {
	Token      TextToken
	Chord      chord.Chord
	Confidence float64 // in [0, 1]
}

// NashvilleConversion pairs a chord token with its Nashville number.
type NashvilleConversion struct {
	ChordToken ChordToken
	Number     string
	Chromatic  bool // root lies outside the key's diatonic scale
}

// String returns "chord -> number"
func (c NashvilleConversion) String() string {
	return fmt.Sprintf("%s -> %s", c.ChordToken.Chord, c.Number)
}
