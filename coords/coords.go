// Package coords converts extraction boxes into the rendering frame and
// sizes replacement text to fit them.
package coords

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tsawler/nashville/font"
	"github.com/tsawler/nashville/model"
)

var (
	// ErrWrongFrame is returned when a box is not in the expected frame.
	ErrWrongFrame = errors.New("bounding box in wrong frame")
	// ErrInvalidBox is returned for degenerate or non-finite boxes.
	ErrInvalidBox = errors.New("invalid bounding box")
	// ErrInvalidPage is returned for non-positive page dimensions.
	ErrInvalidPage = errors.New("invalid page dimensions")
)

const (
	// baselineLift places the baseline above the bottom of the em box.
	baselineLift = 0.2
	// shrinkThreshold is how far an estimate may overrun its box before
	// the font size is reduced.
	shrinkThreshold = 1.2
	// shrinkMargin leaves a little room after shrinking.
	shrinkMargin = 0.95
)

// ToDestination flips a source-frame box into the destination frame of a
// page with the given height. X coordinates are unchanged.
func ToDestination(box model.BBox, pageHeight float64) (model.BBox, error) {
	if box.Frame != model.Source {
		return model.BBox{}, fmt.Errorf("%w: got %s, want %s", ErrWrongFrame, box.Frame, model.Source)
	}
	if !box.IsValid() {
		return model.BBox{}, fmt.Errorf("%w: (%.2f, %.2f, %.2f, %.2f)", ErrInvalidBox, box.X0, box.Y0, box.X1, box.Y1)
	}
	if !(pageHeight > 0) {
		return model.BBox{}, fmt.Errorf("%w: height %.2f", ErrInvalidPage, pageHeight)
	}
	return model.NewBBox(box.X0, pageHeight-box.Y1, box.X1, pageHeight-box.Y0, model.Destination), nil
}

// Baseline returns the y coordinate at which text of the given size is
// drawn so that it sits vertically centred in a destination-frame box.
func Baseline(dest model.BBox, fontSize float64) float64 {
	return dest.Y0 + (dest.Height()-fontSize)/2 + fontSize*baselineLift
}

// EstimateWidth approximates the rendered width of text.
func EstimateWidth(text string, fontSize float64, family font.Family) float64 {
	return float64(utf8.RuneCountInString(text)) * fontSize * family.WidthRatio()
}

// FitFontSize returns the font size to draw text at so it does not badly
// overrun a box of the given width, and whether it had to shrink.
func FitFontSize(text string, fontSize, boxWidth float64, family font.Family) (float64, bool) {
	est := EstimateWidth(text, fontSize, family)
	return Shrink(fontSize, boxWidth, est)
}

// Shrink applies the autoshrink rule to a known width estimate.
func Shrink(fontSize, boxWidth, estimated float64) (float64, bool) {
	if estimated <= shrinkThreshold*boxWidth || estimated <= 0 {
		return fontSize, false
	}
	return fontSize * (boxWidth / estimated) * shrinkMargin, true
}
