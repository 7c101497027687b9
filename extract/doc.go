// Package extract reads positioned words out of text-based PDF documents.
//
// The PDF library reports one record per glyph with its baseline position.
// Glyphs are grouped into lines by baseline and split into words at
// whitespace or at gaps of at least half a space width, then each word is
// given a bounding box in the source frame (origin top-left, y down):
//
//	top    = pageTop - (baseline + 0.8*size)
//	bottom = pageTop - (baseline - 0.2*size)
//
// [Extractor.Inspect] answers the cheap questions asked before extraction
// (page count, page sizes, how much text is on page one) and reports an
// image-only document through [Summary.HasText] rather than an error.
package extract
