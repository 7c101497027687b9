// Package chord recognises chord symbols in extracted text.
//
// A chord symbol is a root note followed by optional quality, extension,
// alteration and slash-bass components:
//
//	C  Dm  G7  Fmaj7  Bb  Ebm7b5  Gsus4  Cadd9  D/F#
//
// [Parse] matches the grammar at the start of a trimmed token and returns
// the parsed [Chord]. [IsLikelyChord] adds the heuristics that keep common
// English words that happen to fit the grammar ("Am", "Be", "Do") from
// being treated as chords. [ExtractAll] applies both to a run of text.
//
// Parsing is deterministic and side-effect free; re-parsing the canonical
// form returned by [Chord.String] yields an equal chord.
package chord
