// Package probe reads video container metadata (duration, dimensions,
// creation time) by running ffprobe with JSON output.
package probe
