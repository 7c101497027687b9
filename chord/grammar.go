package chord

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// qualityTokens are tried in order; the first that lets the rest of the
// grammar succeed wins.
var qualityTokens = []string{"maj", "min", "m", "dim", "aug", "Maj", "Min", "M", "sus"}

// terminators may follow a chord symbol besides whitespace and end of text.
const terminators = ",.;:!?)"

// glyphFolder maps musical accidental glyphs onto their ASCII spellings.
var glyphFolder = strings.NewReplacer("♯", "#", "♭", "b")

// normalize folds compatibility forms (fullwidth letters, superscript
// digits) and accidental glyphs. ASCII input is returned unchanged.
func normalize(s string) string {
	if isASCII(s) {
		return s
	}
	return glyphFolder.Replace(norm.NFKC.String(s))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// match holds the captured components of a successful grammar match.
type match struct {
	root       string
	quality    string
	extension  string
	alteration string
	bass       string
	end        int
}

// matcher is a small backtracking recogniser for the chord grammar. Each
// component tries its candidates in preference order and hands the
// remaining input to the next component; a component's field is set before
// the continuation runs, so on success the captured fields are consistent.
type matcher struct {
	s string
	m match
}

func matchChord(s string) (match, bool) {
	mt := &matcher{s: s}
	if !mt.root(0) {
		return match{}, false
	}
	return mt.m, true
}

func (mt *matcher) root(i int) bool {
	if i >= len(mt.s) || !isNoteLetter(mt.s[i]) {
		return false
	}
	if i+1 < len(mt.s) && isAccidental(mt.s[i+1]) {
		mt.m.root = mt.s[i : i+2]
		if mt.quality(i + 2) {
			return true
		}
	}
	mt.m.root = mt.s[i : i+1]
	return mt.quality(i + 1)
}

func (mt *matcher) quality(i int) bool {
	rest := mt.s[i:]
	for _, q := range qualityTokens {
		if !strings.HasPrefix(rest, q) {
			continue
		}
		next := i + len(q)
		// Bare "sus" is a quality; "sus4" is an alteration.
		if q == "sus" && next < len(mt.s) && isDigit(mt.s[next]) {
			continue
		}
		mt.m.quality = q
		if mt.extension(next) {
			return true
		}
	}
	mt.m.quality = ""
	return mt.extension(i)
}

func (mt *matcher) extension(i int) bool {
	for k := digitRun(mt.s, i, 2); k >= 1; k-- {
		mt.m.extension = mt.s[i : i+k]
		if mt.alteration(i + k) {
			return true
		}
	}
	mt.m.extension = ""
	return mt.alteration(i)
}

func (mt *matcher) alteration(i int) bool {
	if mt.alterationWith(i, "b", 0) ||
		mt.alterationWith(i, "#", 0) ||
		mt.alterationWith(i, "add", 2) ||
		mt.alterationWith(i, "sus", 1) {
		return true
	}
	mt.m.alteration = ""
	return mt.bass(i)
}

// alterationWith matches prefix followed by at least one digit; max bounds
// the digit count (0 means unbounded).
func (mt *matcher) alterationWith(i int, prefix string, max int) bool {
	if !strings.HasPrefix(mt.s[i:], prefix) {
		return false
	}
	start := i + len(prefix)
	for k := digitRun(mt.s, start, max); k >= 1; k-- {
		mt.m.alteration = mt.s[i : start+k]
		if mt.bass(start + k) {
			return true
		}
	}
	return false
}

func (mt *matcher) bass(i int) bool {
	if i+1 < len(mt.s) && mt.s[i] == '/' && isNoteLetter(mt.s[i+1]) {
		if i+2 < len(mt.s) && isAccidental(mt.s[i+2]) {
			mt.m.bass = mt.s[i+1 : i+3]
			if mt.terminates(i + 3) {
				return true
			}
		}
		mt.m.bass = mt.s[i+1 : i+2]
		if mt.terminates(i + 2) {
			return true
		}
	}
	mt.m.bass = ""
	return mt.terminates(i)
}

func (mt *matcher) terminates(i int) bool {
	if i >= len(mt.s) {
		mt.m.end = i
		return true
	}
	r, _ := utf8.DecodeRuneInString(mt.s[i:])
	if unicode.IsSpace(r) || strings.ContainsRune(terminators, r) {
		mt.m.end = i
		return true
	}
	return false
}

func isNoteLetter(b byte) bool {
	return b >= 'A' && b <= 'G'
}

func isAccidental(b byte) bool {
	return b == 'b' || b == '#'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// digitRun counts consecutive ASCII digits starting at i, capped at max
// when max > 0.
func digitRun(s string, i, max int) int {
	n := 0
	for i+n < len(s) && isDigit(s[i+n]) {
		n++
		if max > 0 && n == max {
			break
		}
	}
	return n
}
