package orchestrator

import (
	"sync/atomic"

	"media-picker/internal/extract"
	"media-picker/internal/logging"
	"media-picker/internal/mediatypes"
)

// Capability is a read permission the platform may require.
type Capability string

const (
	CapReadStorage Capability = "read_storage"
	CapReadImages  Capability = "read_images"
	CapReadVideo   Capability = "read_video"
)

// CapabilitiesFor returns the capabilities a listing of mediaType needs on
// tier. Legacy platforms have a single storage permission.
func CapabilitiesFor(tier extract.Tier, mediaType mediatypes.MediaType) []Capability {
	if tier != extract.TierModern {
		return []Capability{CapReadStorage}
	}
	switch mediaType {
	case mediatypes.MediaImages:
		return []Capability{CapReadImages}
	case mediatypes.MediaVideos:
		return []Capability{CapReadVideo}
	default:
		return []Capability{CapReadImages, CapReadVideo}
	}
}

// PermissionRequester shows the platform permission prompt. The outcome
// arrives later through Orchestrator.ResolvePermission with the same token.
type PermissionRequester interface {
	RequestPermissions(token string, caps []Capability)
}

// BusyIndicator is the loader overlay.
type BusyIndicator interface {
	Show()
	Hide()
}

// LogRequester only logs prompts; outcomes are posted by an operator.
type LogRequester struct{}

func (LogRequester) RequestPermissions(token string, caps []Capability) {
	logging.Info("Permission request %s pending for %v", token, caps)
}

// CountingIndicator tracks how many runs currently show the loader.
type CountingIndicator struct {
	shown atomic.Int64
}

func (c *CountingIndicator) Show() { c.shown.Add(1) }
func (c *CountingIndicator) Hide() { c.shown.Add(-1) }

// Visible reports whether any run is showing the loader.
func (c *CountingIndicator) Visible() bool { return c.shown.Load() > 0 }

// busyHandle hides the indicator exactly once.
type busyHandle struct {
	release func()
	done    atomic.Bool
}

func (h *busyHandle) Release() {
	if h == nil || h.release == nil {
		return
	}
	if h.done.CompareAndSwap(false, true) {
		h.release()
	}
}
