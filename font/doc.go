// Package font classifies PDF font names into the small set of families
// used for width estimation and maps them onto the standard-14 core fonts
// available to the compositor.
//
// # Families
//
// Embedded font names carry a subset prefix and a mix of vendor and style
// suffixes ("ABCDEF+Arial-BoldMT", "TimesNewRomanPSMT"). [Classify]
// reduces them to a [Family]:
//
//   - [Sans] - Helvetica, Arial and other sans-serif faces
//   - [SansBold] - bold or black weights of sans-serif faces
//   - [Serif] - Times and other serif faces
//   - [Monospace] - Courier and other fixed-pitch faces
//   - [Unknown] - anything else; treated as sans for width estimation
//
// # Core faces
//
// [CoreFace] picks the standard-14 face used to draw replacement text:
//
//	face := font.CoreFace("ABCDEF+Arial-BoldMT") // {Family: "Helvetica", Style: "B"}
package font
