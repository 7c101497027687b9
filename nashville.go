// Package nashville rewrites the chord symbols of a text-based PDF chord
// chart as Nashville numbers in a chosen key.
//
// Basic usage:
//
//	res, err := nashville.Open("chart.pdf").Key("G").Convert()
//	if err != nil {
//	    // handle error
//	}
//	os.WriteFile("chart_nashville.pdf", res.Document, 0o644)
//
// With options:
//
//	res, err := nashville.Open("chart.pdf").
//	    Key("A").
//	    Minor().
//	    Debug().
//	    Convert()
//
// For lower-level control, the pipeline package is also available.
package nashville

import (
	"errors"
	"fmt"

	"github.com/tsawler/nashville/chord"
	"github.com/tsawler/nashville/transpose"
)

// ErrNotAChord is returned by Number for text that is not a chord symbol.
var ErrNotAChord = errors.New("not a chord symbol")

// Open returns a Converter for the PDF at filename. The file is read by
// the terminal operation.
//
// Example:
//
//	res, err := nashville.Open("chart.pdf").Key("C").Convert()
func Open(filename string) *Converter {
	return &Converter{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromBytes returns a Converter for a PDF already in memory.
//
// Example:
//
//	res, err := nashville.FromBytes(data).Key("Eb").Convert()
func FromBytes(data []byte) *Converter {
	return &Converter{
		data:    data,
		options: defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	res := nashville.Must(nashville.Open("chart.pdf").Key("D").Convert())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// Number converts a single chord symbol to its Nashville number in key.
//
// Example:
//
//	n, err := nashville.Number("F#m7", "D", transpose.Major) // "3m7"
func Number(symbol, key string, mode transpose.Mode) (string, error) {
	c, ok := chord.Parse(symbol)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotAChord, symbol)
	}
	return transpose.Convert(c, key, mode)
}
