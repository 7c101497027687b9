package chord

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Parse
// ============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Chord
	}{
		{"C", Chord{Root: "C"}},
		{"G", Chord{Root: "G"}},
		{"Bb", Chord{Root: "Bb"}},
		{"F#", Chord{Root: "F#"}},
		{"Dm", Chord{Root: "D", Quality: "m"}},
		{"Amin", Chord{Root: "A", Quality: "min"}},
		{"F#m", Chord{Root: "F#", Quality: "m"}},
		{"C7", Chord{Root: "C", Extensions: "7"}},
		{"Dmaj7", Chord{Root: "D", Quality: "maj", Extensions: "7"}},
		{"Em7", Chord{Root: "E", Quality: "m", Extensions: "7"}},
		{"Dm11", Chord{Root: "D", Quality: "m", Extensions: "11"}},
		{"G13", Chord{Root: "G", Extensions: "13"}},
		{"Cadd9", Chord{Root: "C", Alterations: "add9"}},
		{"Gsus4", Chord{Root: "G", Alterations: "sus4"}},
		{"Dsus2", Chord{Root: "D", Alterations: "sus2"}},
		{"Csus", Chord{Root: "C", Quality: "sus"}},
		{"Bdim", Chord{Root: "B", Quality: "dim"}},
		{"Caug", Chord{Root: "C", Quality: "aug"}},
		{"G/B", Chord{Root: "G", Bass: "B"}},
		{"D/F#", Chord{Root: "D", Bass: "F#"}},
		{"Ebmaj7", Chord{Root: "Eb", Quality: "maj", Extensions: "7"}},
		{"Ebm7b5", Chord{Root: "Eb", Quality: "m", Extensions: "7", Alterations: "b5"}},
		{"Dm7b5", Chord{Root: "D", Quality: "m", Extensions: "7", Alterations: "b5"}},
		{"C7#9", Chord{Root: "C", Extensions: "7", Alterations: "#9"}},
		{"CMaj7", Chord{Root: "C", Quality: "maj", Extensions: "7"}},
		{"C#m7", Chord{Root: "C#", Quality: "m", Extensions: "7"}},
		{"B#", Chord{Root: "B#"}},
		{"Cb", Chord{Root: "Cb"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			require.True(t, ok, "expected %q to parse", tt.in)
			assert.True(t, got.Equal(tt.want), "Parse(%q) = %#v, want %#v", tt.in, got, tt.want)
			assert.Equal(t, tt.in, got.Original)
		})
	}
}

func TestParse_QualityIsLowerCased(t *testing.T) {
	// "M" folds to "m", so CM7 reads as a minor seventh.
	got, ok := Parse("CM7")
	require.True(t, ok)
	assert.Equal(t, "m", got.Quality)
	assert.Equal(t, "7", got.Extensions)
}

func TestParse_Whitespace(t *testing.T) {
	got, ok := Parse("  C  ")
	require.True(t, ok)
	assert.Equal(t, "C", got.Root)
	assert.Equal(t, "C", got.Original)

	got, ok = Parse("\tDm\n")
	require.True(t, ok)
	assert.Equal(t, "D", got.Root)
	assert.Equal(t, "m", got.Quality)
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{
		"", "   ", "Hello", "XYZ", "123", "H", "Be", "c", "Bbb", "C123", "C6/9", "Cmajor", "G/H",
	} {
		t.Run(in, func(t *testing.T) {
			_, ok := Parse(in)
			assert.False(t, ok, "expected %q not to parse", in)
		})
	}
}

func TestParse_Coverage(t *testing.T) {
	// A trailing terminator is allowed by the grammar but counts against
	// the 80% coverage requirement.
	_, ok := Parse("Am7.")
	assert.False(t, ok, "3 of 4 characters is under 80%")

	_, ok = Parse("Cmaj7,")
	assert.True(t, ok, "5 of 6 characters is over 80%")
}

func TestParse_Backtracking(t *testing.T) {
	// "sus" followed by a digit must be read as an alteration, not a quality.
	got, ok := Parse("Asus2")
	require.True(t, ok)
	assert.Equal(t, "", got.Quality)
	assert.Equal(t, "sus2", got.Alterations)

	// A flat after the extension is an alteration, not part of the root.
	got, ok = Parse("G7b9")
	require.True(t, ok)
	assert.Equal(t, "7", got.Extensions)
	assert.Equal(t, "b9", got.Alterations)
}

func TestParse_Normalization(t *testing.T) {
	tests := []struct {
		in   string
		want Chord
	}{
		{"F♯m", Chord{Root: "F#", Quality: "m"}},
		{"B♭7", Chord{Root: "Bb", Extensions: "7"}},
		{"Ｃ", Chord{Root: "C"}},
		{"Ｄｍ７", Chord{Root: "D", Quality: "m", Extensions: "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			require.True(t, ok)
			assert.True(t, got.Equal(tt.want), "Parse(%q) = %#v", tt.in, got)
			assert.Equal(t, tt.in, got.Original)
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	for _, in := range []string{
		"C", "Dm", "G7", "Fmaj7", "Bb", "Ebm7b5", "Gsus4", "Cadd9", "D/F#", "Csus", "Bdim",
		"Caug", "CMaj7", "C#m7/G#", "Abmin9", "E7#9",
	} {
		t.Run(in, func(t *testing.T) {
			first := MustParse(in)
			second, ok := Parse(first.String())
			require.True(t, ok, "canonical form %q did not re-parse", first.String())
			assert.True(t, first.Equal(second))
			assert.Equal(t, first.String(), second.String())
		})
	}
}

// ============================================================================
// String / Describe
// ============================================================================

func TestChord_String(t *testing.T) {
	tests := []struct {
		c    Chord
		want string
	}{
		{Chord{Root: "C"}, "C"},
		{Chord{Root: "D", Quality: "m", Extensions: "7"}, "Dm7"},
		{Chord{Root: "G", Bass: "B"}, "G/B"},
		{Chord{Root: "Eb", Quality: "m", Extensions: "7", Alterations: "b5", Bass: "A"}, "Ebm7b5/A"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.String())
	}
}

func TestChord_Describe(t *testing.T) {
	got := MustParse("Am7/G").Describe()
	want := Info{
		Root:         "A",
		Quality:      "m",
		Bass:         "G",
		IsMinor:      true,
		IsSeventh:    true,
		HasExtension: true,
		IsSlash:      true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Describe() mismatch (-want +got):\n%s", diff)
	}

	info := MustParse("Gsus4").Describe()
	assert.True(t, info.IsSuspended)
	assert.True(t, info.IsMajor)
	assert.True(t, info.HasAlteration)

	assert.True(t, MustParse("Bdim").Describe().IsDiminished)
	assert.True(t, MustParse("Caug").Describe().IsAugmented)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("Hello") })
}

func TestIsValidNote(t *testing.T) {
	assert.True(t, IsValidNote("E#"))
	assert.True(t, IsValidNote("Fb"))
	assert.False(t, IsValidNote("H"))
	assert.False(t, IsValidNote("Cbb"))
	assert.Len(t, validNotes, 21)
}

// ============================================================================
// IsLikelyChord / ExtractAll
// ============================================================================

func TestIsLikelyChord(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"C", true},
		{"Dm", true},
		{"G7", true},
		{"Fmaj7", true},
		{"Bb", true},
		{"Am", true},
		{"A", true},
		{"Hallelujah", false},
		{"AmericanPie", false},
		{"hello", false},
		{"xyz", false},
		{"123", false},
		{"", false},
		{"And", false},
		{"Be", false},
		{"Down", false},
		{"Cmaj7sus4ad", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLikelyChord(tt.in))
		})
	}
}

func TestExtractAll(t *testing.T) {
	chords := ExtractAll("C Am F G")
	require.Len(t, chords, 4)
	assert.Equal(t, "C", chords[0].Root)
	assert.Equal(t, "A", chords[1].Root)
	assert.Equal(t, "m", chords[1].Quality)
	assert.Equal(t, "F", chords[2].Root)
	assert.Equal(t, "G", chords[3].Root)

	chords = ExtractAll("C7 Dm Fmaj7 G")
	require.Len(t, chords, 4)
	assert.Equal(t, "7", chords[0].Extensions)
	assert.Equal(t, "maj", chords[2].Quality)
}

func TestExtractAll_MixedText(t *testing.T) {
	chords := ExtractAll("Amazing grace (G/B), how sweet the Dm. And Down we Go")
	var got []string
	for _, c := range chords {
		got = append(got, c.String())
	}
	assert.Equal(t, []string{"G/B", "Dm"}, got)
}

func TestExtractAll_Empty(t *testing.T) {
	assert.Empty(t, ExtractAll(""))
	assert.Empty(t, ExtractAll("just some lyrics here"))
}
