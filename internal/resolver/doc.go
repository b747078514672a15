// Package resolver maps a cached media item to a MIME type.
//
// The repository's declared type is trusted over the extension table, and
// the extension table over the type sniffed from the file itself. Sniffing
// only counts for video containers.
package resolver
