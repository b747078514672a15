// Package handlers provides the HTTP command surface of the media picker.
//
// It includes handlers for:
//   - getMedias and the picker session it waits on
//   - getLastMedias and the permission requests it may suspend on
//   - getExifForKey and the all-tags dump
//   - Re-indexing the media repository
//   - Health checks and build information
//
// Commands take and return JSON. Failures are {"error": message} with the
// status code chosen from the sentinel error behind the failure.
package handlers
