package chord

import "strings"

// maxTokenLength is the longest token considered a chord candidate.
const maxTokenLength = 10

// stopWords are English words that fit the chord grammar often enough to
// cause false positives in lyric lines. Only entries longer than two
// characters are rejected, so "Am" and "A" still read as chords.
var stopWords = map[string]bool{
	"Am": true, "A": true, "As": true, "An": true, "And": true, "At": true,
	"All": true, "Away": true, "Be": true, "But": true, "By": true, "Been": true,
	"Can": true, "Come": true, "Do": true, "Don": true, "Down": true, "For": true,
	"From": true, "Go": true, "Get": true, "Got": true,
}

// wordPunctuation is stripped from both ends of each word by ExtractAll.
const wordPunctuation = ".,!?;:()"

// IsLikelyChord reports whether text is probably a chord symbol rather
// than an ordinary word.
func IsLikelyChord(text string) bool {
	t := normalize(strings.TrimSpace(text))
	n := runeLen(t)
	if n == 0 || n > maxTokenLength {
		return false
	}
	if !isNoteLetter(t[0]) {
		return false
	}
	if stopWords[t] && n > 2 {
		return false
	}
	_, ok := Parse(t)
	return ok
}

// ExtractAll returns every chord found in a run of text, in order.
func ExtractAll(text string) []Chord {
	var chords []Chord
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, wordPunctuation)
		if word == "" {
			continue
		}
		if !IsLikelyChord(word) {
			continue
		}
		if c, ok := Parse(word); ok {
			chords = append(chords, c)
		}
	}
	return chords
}
