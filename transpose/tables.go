package transpose

// chromatic is the twelve pitch classes from C in sharp spellings.
var chromatic = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// flatToSharp maps enharmonic spellings onto the chromatic table.
var flatToSharp = map[string]string{
	"Db": "C#", "Eb": "D#", "Gb": "F#", "Ab": "G#", "Bb": "A#",
	"Cb": "B", "Fb": "E", "E#": "F", "B#": "C",
}

// chromaticIndexOf is the inverse of chromatic.
var chromaticIndexOf = func() map[string]int {
	m := make(map[string]int, len(chromatic))
	for i, n := range chromatic {
		m[n] = i
	}
	return m
}()

// Diatonic intervals in semitones from the tonic.
var (
	majorIntervals = [7]int{0, 2, 4, 5, 7, 9, 11}
	minorIntervals = [7]int{0, 2, 3, 5, 7, 8, 10}
)

// Expected triad quality per scale degree (index 0 is degree 1).
var (
	majorQualities = [7]string{"", "m", "m", "", "", "m", "dim"}
	minorQualities = [7]string{"m", "dim", "", "m", "m", "", ""}
)

// supportedKeys are the key spellings accepted on a conversion request.
var supportedKeys = []string{
	"C", "C#", "Db", "D", "D#", "Eb", "E", "F", "F#", "Gb", "G", "G#", "Ab", "A", "A#", "Bb", "B",
}

var (
	sharpKeys = map[string]bool{"G": true, "D": true, "A": true, "E": true, "B": true,
		"F#": true, "C#": true, "G#": true, "D#": true, "A#": true}
	flatKeys = map[string]bool{"F": true, "Bb": true, "Eb": true, "Ab": true,
		"Db": true, "Gb": true, "Cb": true}
)

func intervals(mode Mode) [7]int {
	if mode == Minor {
		return minorIntervals
	}
	return majorIntervals
}

func expectedQualities(mode Mode) [7]string {
	if mode == Minor {
		return minorQualities
	}
	return majorQualities
}
