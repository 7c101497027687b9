package chord

import (
	"fmt"
	"strings"
)

// Chord is a parsed chord symbol.
type Chord struct {
	Root        string // note letter plus optional accidental, e.g. "F#"
	Quality     string // lower-cased, so "CM7" carries "m"
	Extensions  string // digits, e.g. "7", "11"
	Alterations string // one of "b5", "#9", "add9", "sus4"
	Bass        string // slash bass note; empty when absent
	Original    string // trimmed input text
}

// HasBass reports whether the chord carries a slash bass note.
func (c Chord) HasBass() bool {
	return c.Bass != ""
}

// String returns the canonical chord symbol
func (c Chord) String() string {
	var sb strings.Builder
	sb.WriteString(c.Root)
	sb.WriteString(c.Quality)
	sb.WriteString(c.Extensions)
	sb.WriteString(c.Alterations)
	if c.Bass != "" {
		sb.WriteByte('/')
		sb.WriteString(c.Bass)
	}
	return sb.String()
}

// GoString returns a debugging representation
func (c Chord) GoString() string {
	return fmt.Sprintf("chord.Chord{Root:%q, Quality:%q, Extensions:%q, Alterations:%q, Bass:%q}",
		c.Root, c.Quality, c.Extensions, c.Alterations, c.Bass)
}

// Equal compares the parsed components of two chords, ignoring Original.
func (c Chord) Equal(other Chord) bool {
	return c.Root == other.Root &&
		c.Quality == other.Quality &&
		c.Extensions == other.Extensions &&
		c.Alterations == other.Alterations &&
		c.Bass == other.Bass
}

// Info summarises the harmonic character of a chord.
type Info struct {
	Root          string
	Quality       string
	Bass          string
	IsMajor       bool
	IsMinor       bool
	IsDiminished  bool
	IsAugmented   bool
	IsSuspended   bool
	IsSeventh     bool
	HasExtension  bool
	HasAlteration bool
	IsSlash       bool
}

// Describe classifies the chord's quality and components.
func (c Chord) Describe() Info {
	sus := strings.Contains(c.Quality, "sus") || strings.Contains(c.Alterations, "sus")
	return Info{
		Root:          c.Root,
		Quality:       c.Quality,
		Bass:          c.Bass,
		IsMajor:       c.Quality == "" || c.Quality == "maj",
		IsMinor:       c.Quality == "m" || c.Quality == "min",
		IsDiminished:  c.Quality == "dim",
		IsAugmented:   c.Quality == "aug",
		IsSuspended:   sus,
		IsSeventh:     strings.Contains(c.Extensions, "7"),
		HasExtension:  c.Extensions != "",
		HasAlteration: c.Alterations != "",
		IsSlash:       c.Bass != "",
	}
}

// validNotes lists every spelling accepted as a root or bass.
var validNotes = map[string]bool{
	"C": true, "D": true, "E": true, "F": true, "G": true, "A": true, "B": true,
	"C#": true, "D#": true, "E#": true, "F#": true, "G#": true, "A#": true, "B#": true,
	"Cb": true, "Db": true, "Eb": true, "Fb": true, "Gb": true, "Ab": true, "Bb": true,
}

// IsValidNote reports whether note is an accepted root/bass spelling.
func IsValidNote(note string) bool {
	return validNotes[note]
}

// minCoverage is the share of the token the grammar match must cover.
const minCoverage = 0.8

// Parse parses a single chord token. Leading and trailing whitespace is
// ignored. The second return value is false when the token is not a chord.
//
// Parse never fails loudly: anything that does not fit the grammar, or
// fits it for less than 80% of its length, is simply not a chord.
func Parse(text string) (Chord, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Chord{}, false
	}
	s := normalize(trimmed)

	m, ok := matchChord(s)
	if !ok {
		return Chord{}, false
	}
	if !validNotes[m.root] {
		return Chord{}, false
	}
	if m.bass != "" && !validNotes[m.bass] {
		return Chord{}, false
	}

	// The grammar is ASCII, so the match length in bytes equals its rune count.
	if float64(m.end) < minCoverage*float64(runeLen(s)) {
		return Chord{}, false
	}

	return Chord{
		Root:        m.root,
		Quality:     strings.ToLower(m.quality),
		Extensions:  m.extension,
		Alterations: m.alteration,
		Bass:        m.bass,
		Original:    trimmed,
	}, true
}

// MustParse is like Parse but panics when text is not a chord.
// Intended for tests and static tables.
func MustParse(text string) Chord {
	c, ok := Parse(text)
	if !ok {
		panic(fmt.Sprintf("chord: %q is not a chord symbol", text))
	}
	return c
}
