package font

import "strings"

// Family is a coarse font family used for width estimation.
type Family int

const (
	Unknown Family = iota
	Sans
	SansBold
	Serif
	Monospace
)

// String returns the family name
func (f Family) String() string {
	switch f {
	case Sans:
		return "sans"
	case SansBold:
		return "sans-bold"
	case Serif:
		return "serif"
	case Monospace:
		return "monospace"
	default:
		return "unknown"
	}
}

// WidthRatio returns the average glyph width as a fraction of the font
// size. Unknown families use the sans ratio.
func (f Family) WidthRatio() float64 {
	switch f {
	case SansBold:
		return 0.58
	case Serif:
		return 0.50
	case Monospace:
		return 0.60
	default:
		return 0.55
	}
}

// Hints are matched against the lower-cased base name in order.
var (
	monoHints  = []string{"courier", "mono", "consol", "menlo", "typewriter", "fixed"}
	serifHints = []string{"times", "roman", "serif", "georgia", "garamond", "cambria", "minion", "palatino", "book"}
	sansHints  = []string{"helvetica", "arial", "sans", "verdana", "tahoma", "calibri", "gothic", "grotesk", "futura"}
	boldHints  = []string{"bold", "black", "heavy", "semibold", "demi"}
	italHints  = []string{"italic", "oblique"}
)

// BaseName strips a subset prefix ("ABCDEF+") from a PDF font name.
func BaseName(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 && isSubsetTag(name[:6]) {
		return name[7:]
	}
	return name
}

func isSubsetTag(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// Classify maps a PDF font name onto a Family.
func Classify(name string) Family {
	base := strings.ToLower(BaseName(name))
	if base == "" {
		return Unknown
	}

	switch {
	case containsAny(base, monoHints):
		return Monospace
	// "sans" beats "serif" so "DejaVuSerif" and "DejaVuSans" split correctly,
	// and "sans serif" reads as sans.
	case containsAny(base, sansHints):
		if containsAny(base, boldHints) {
			return SansBold
		}
		return Sans
	case containsAny(base, serifHints):
		return Serif
	case containsAny(base, boldHints):
		return SansBold
	default:
		return Unknown
	}
}

// IsBold reports whether the font name carries a bold weight hint.
func IsBold(name string) bool {
	return containsAny(strings.ToLower(BaseName(name)), boldHints)
}

// IsItalic reports whether the font name carries an italic or oblique hint.
func IsItalic(name string) bool {
	return containsAny(strings.ToLower(BaseName(name)), italHints)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
