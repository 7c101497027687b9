// Package transpose converts chords into Nashville numbers relative to a
// key and mode.
//
// All functions are pure: the same chord, key and mode always produce the
// same number.
//
//	c, _ := chord.Parse("Dm7")
//	n, _ := transpose.Convert(c, "C", transpose.Major) // "2m7"
package transpose

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tsawler/nashville/chord"
)

var (
	// ErrInvalidNote is returned when a note spelling is not recognised.
	ErrInvalidNote = errors.New("invalid note")
	// ErrInvalidKey is returned when a request key is not supported.
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidMode is returned when a mode name is neither major nor minor.
	ErrInvalidMode = errors.New("invalid mode")
)

// Mode is the tonality a chart is read in.
type Mode string

const (
	Major Mode = "major"
	Minor Mode = "minor"
)

// ParseMode parses "major" or "minor", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	default:
		return "", fmt.Errorf("%w: %q (expected major or minor)", ErrInvalidMode, s)
	}
}

// NormalizeNote returns the sharp spelling used for chromatic lookups.
func NormalizeNote(note string) string {
	if s, ok := flatToSharp[note]; ok {
		return s
	}
	return note
}

// ChromaticIndex returns the pitch class (0-11, C = 0) of a note.
func ChromaticIndex(note string) (int, error) {
	idx, ok := chromaticIndexOf[NormalizeNote(note)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNote, note)
	}
	return idx, nil
}

// ScaleDegree returns the scale degree (1-7) of root in the given key.
// Roots outside the diatonic scale snap to the nearest degree and are
// reported as chromatic; ties go to the lower degree.
func ScaleDegree(root, key string, mode Mode) (degree int, isChromatic bool, err error) {
	rootIdx, err := ChromaticIndex(root)
	if err != nil {
		return 0, false, err
	}
	keyIdx, err := ChromaticIndex(key)
	if err != nil {
		return 0, false, fmt.Errorf("key: %w", err)
	}
	d, chromatic := degreeForDistance(((rootIdx-keyIdx)%12+12)%12, mode)
	return d, chromatic, nil
}

func degreeForDistance(distance int, mode Mode) (int, bool) {
	scale := intervals(mode)
	for i, iv := range scale {
		if iv == distance {
			return i + 1, false
		}
	}

	closest, best := 1, 12
	for i, iv := range scale {
		d := distance - iv
		if d < 0 {
			d = -d
		}
		if d < best {
			best = d
			closest = i + 1
		}
	}
	return closest, true
}

// FormatDegree renders a degree with the chord's quality, extensions and
// alterations in Nashville notation.
func FormatDegree(degree int, c chord.Chord, mode Mode) string {
	quality := strings.ToLower(c.Quality)

	var sb strings.Builder
	sb.WriteString(strconv.Itoa(degree))

	switch {
	case quality == "m" || quality == "min":
		sb.WriteString("m")
	case quality == "dim":
		sb.WriteString("dim")
	case quality == "aug":
		sb.WriteString("aug")
	case quality == "maj":
		// Major is implied unless it qualifies an extension (maj7, maj9).
		if c.Extensions != "" {
			sb.WriteString("maj")
		}
	case strings.Contains(quality, "sus"):
		sb.WriteString(quality)
	}

	sb.WriteString(c.Extensions)

	if c.Alterations != "" {
		if !strings.Contains(c.Alterations, "sus") || !strings.Contains(quality, "sus") {
			sb.WriteString(c.Alterations)
		}
	}
	return sb.String()
}

// Conversion is the detailed outcome of converting one chord.
type Conversion struct {
	Number        string
	Degree        int
	Chromatic     bool // root outside the diatonic scale
	BassDegree    int  // zero when the chord has no bass
	BassChromatic bool
}

// ConvertDetailed converts a chord and reports the chromatic status of
// both the root and the bass. The bass status does not appear in Number.
func ConvertDetailed(c chord.Chord, key string, mode Mode) (Conversion, error) {
	degree, chromatic, err := ScaleDegree(c.Root, key, mode)
	if err != nil {
		return Conversion{}, fmt.Errorf("convert %s: %w", c, err)
	}

	conv := Conversion{
		Number:    FormatDegree(degree, c, mode),
		Degree:    degree,
		Chromatic: chromatic,
	}

	if c.HasBass() {
		bd, bc, err := ScaleDegree(c.Bass, key, mode)
		if err != nil {
			return Conversion{}, fmt.Errorf("convert %s bass: %w", c, err)
		}
		conv.BassDegree = bd
		conv.BassChromatic = bc
		conv.Number += "/" + strconv.Itoa(bd)
	}
	return conv, nil
}

// Convert returns the Nashville number for a chord.
func Convert(c chord.Chord, key string, mode Mode) (string, error) {
	conv, err := ConvertDetailed(c, key, mode)
	if err != nil {
		return "", err
	}
	return conv.Number, nil
}

// ConvertText parses text as a chord and converts it. It returns false
// when text is not a chord or cannot be converted.
func ConvertText(text, key string, mode Mode) (string, bool) {
	c, ok := chord.Parse(text)
	if !ok {
		return "", false
	}
	n, err := Convert(c, key, mode)
	if err != nil {
		return "", false
	}
	return n, true
}

// SupportedKeys returns the key spellings accepted on a request.
func SupportedKeys() []string {
	return slices.Clone(supportedKeys)
}

// ValidateKey checks that key is one of SupportedKeys.
func ValidateKey(key string) error {
	if !slices.Contains(supportedKeys, key) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrInvalidKey, key, strings.Join(supportedKeys, ", "))
	}
	return nil
}

// Accidentals reports whether a key is conventionally written with
// "sharps" or "flats". Keys without accidentals default to sharps.
func Accidentals(key string) string {
	if flatKeys[key] {
		return "flats"
	}
	if sharpKeys[key] {
		return "sharps"
	}
	n := NormalizeNote(key)
	if flatKeys[n] {
		return "flats"
	}
	return "sharps"
}

// DetectMode guesses the mode of a chart from its chords. A minor tonic
// as the first chord means minor; otherwise each chord votes by whether
// its quality matches the major or minor expectation for its degree, and
// minor must win outright. The guess is a hint, not an analysis.
func DetectMode(chords []chord.Chord, key string) Mode {
	if len(chords) == 0 {
		return Major
	}

	first := chords[0]
	if first.Root == key && (first.Quality == "m" || first.Quality == "min") {
		return Minor
	}

	var majorVotes, minorVotes int
	for _, c := range chords {
		degree, _, err := ScaleDegree(c.Root, key, Major)
		if err != nil {
			continue
		}
		if c.Quality == majorQualities[degree-1] {
			majorVotes++
		}
		if c.Quality == minorQualities[degree-1] {
			minorVotes++
		}
	}
	if minorVotes > majorVotes {
		return Minor
	}
	return Major
}

// ExpectedQuality returns the diatonic triad quality for a degree.
func ExpectedQuality(degree int, mode Mode) string {
	if degree < 1 || degree > 7 {
		return ""
	}
	return expectedQualities(mode)[degree-1]
}
