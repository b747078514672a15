// Package query implements the media index query engine used by listing
// requests.
//
// For mediaType "all" the images and videos collections are scanned
// independently, each for up to offset+limit rows, since rows dropped by
// the hidden and pending filters make the per-collection count an upper
// bound only. The candidates are merged by descending timestamp with a
// stable sort and the requested window is sliced from the result.
package query
