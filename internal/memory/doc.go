// Package memory keeps full-bitmap decodes from pushing the process past
// its memory limit.
//
// ApplyLimit derives GOMEMLIMIT from the container limit at startup. Gate
// samples heap usage and closes when it crosses PauseMark; callers about to
// decode a HEIC image or a video frame call Wait, which blocks until usage
// drops back under ResumeMark.
package memory
