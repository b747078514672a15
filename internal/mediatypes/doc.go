// Package mediatypes holds the dependency-free media vocabulary shared by
// the pipeline: record file types, caller media filters, and the static
// extension to MIME table used as the second tier of MIME resolution.
//
//	mime, ok := mediatypes.LookupMimeType("MP4") // "video/mp4", true
//	mediatypes.FileTypeForMime(mime)             // FileTypeVideo
//	mediatypes.IsHEIC("", "heif")                // true
package mediatypes
