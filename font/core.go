package font

// Standard-14 core families available without embedding.
const (
	Helvetica = "Helvetica"
	Times     = "Times"
	Courier   = "Courier"
)

// Face is a core font family plus style ("", "B", "I" or "BI").
type Face struct {
	Family string
	Style  string
}

// PostScriptName returns the standard-14 name of the face, e.g.
// "Helvetica-BoldOblique" or "Times-Roman".
func (f Face) PostScriptName() string {
	bold := f.Style == "B" || f.Style == "BI"
	italic := f.Style == "I" || f.Style == "BI"

	switch f.Family {
	case Times:
		switch {
		case bold && italic:
			return "Times-BoldItalic"
		case bold:
			return "Times-Bold"
		case italic:
			return "Times-Italic"
		default:
			return "Times-Roman"
		}
	default:
		family := f.Family
		if family == "" {
			family = Helvetica
		}
		switch {
		case bold && italic:
			return family + "-BoldOblique"
		case bold:
			return family + "-Bold"
		case italic:
			return family + "-Oblique"
		default:
			return family
		}
	}
}

// CoreFace maps a PDF font name to the closest core face. Names that
// cannot be classified fall back to Helvetica.
func CoreFace(name string) Face {
	var face Face
	switch Classify(name) {
	case Serif:
		face.Family = Times
	case Monospace:
		face.Family = Courier
	default:
		face.Family = Helvetica
	}

	if IsBold(name) {
		face.Style += "B"
	}
	if IsItalic(name) {
		face.Style += "I"
	}
	return face
}
