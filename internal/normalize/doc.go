// Package normalize converts cached HEIC/HEIF items to JPEG.
//
// Transcoders are capability tiers tried in order (libvips, then ffmpeg).
// The derivative is written at quality 95 next to the original as
// {hash}_{ordinal}.jpg, receives the original's orientation tag, and
// replaces the original, which is deleted. Decode failures are not fatal:
// the original bytes are returned untouched.
package normalize
