// Package filesystem wraps file access that may hit NFS-mounted media
// volumes.
//
// StatWithRetry and OpenWithRetry retry ESTALE (stale file handle) errors
// with exponential backoff; every other error returns immediately. The
// VolumeResolver labels retry metrics with the volume ("media", "cache",
// "database") a path lives on.
package filesystem
