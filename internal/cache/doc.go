// Package cache materializes repository content into the process-scoped
// cache directory.
//
// The directory is a flat namespace. Content copies are named
// {hash}_{ordinal}.{ext} and thumbnails thumb_{hash}.jpg, where hash is
// derived from the reference URI. A file that already exists under its
// name is never copied again.
package cache
