// Package model provides the data model shared by every stage of a
// conversion run.
//
// # Geometry
//
// Positions are carried as [BBox] values tagged with the [Frame] they are
// expressed in. Extraction produces boxes in the [Source] frame (origin
// top-left, y grows downward); overlays are computed in the [Destination]
// frame (origin bottom-left, y grows upward). Keeping the frame on the box
// makes it impossible to silently feed a converted box back into a
// conversion.
//
// # Tokens
//
// A run moves data in one direction:
//
//   - [TextToken] - a positioned word produced by extraction
//   - [ChordToken] - a token recognised as a chord symbol
//   - [NashvilleConversion] - a chord token with its Nashville number
//
// [PageInfo] carries page dimensions for coordinate conversion.
//
// All values are scoped to a single conversion request and are never shared
// between requests.
package model
