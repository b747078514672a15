package orchestrator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"media-picker/internal/logging"
	"media-picker/internal/mediatypes"
)

// Option defaults.
const (
	DefaultSelectionLimit = 3
	DefaultListLimit      = 20
	DefaultListOffset     = 0
	// MaxListLimit caps the page size of a listing request.
	MaxListLimit = 1000
)

// PickOptions configures a picker session.
type PickOptions struct {
	SelectionLimit int
	ShowLoader     bool
	MediaType      mediatypes.MediaType
}

// ListOptions configures a listing request.
type ListOptions struct {
	MediaType  mediatypes.MediaType
	Limit      int
	Offset     int
	ShowLoader bool
}

// Warning records an option that was malformed and replaced by its
// default. Warnings are logged, never returned to callers.
type Warning struct {
	Option string
	Value  any
}

func (w Warning) String() string {
	return fmt.Sprintf("option %q: ignoring %v", w.Option, w.Value)
}

type optionReader struct {
	raw      map[string]any
	warnings []Warning
}

func (r *optionReader) warn(key string, v any) {
	r.warnings = append(r.warnings, Warning{Option: key, Value: v})
}

// int reads key as an integer. Numeric strings are accepted and fractions
// truncate.
func (r *optionReader) int(key string, def int) int {
	v, ok := r.raw[key]
	if !ok || v == nil {
		return def
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			r.warn(key, v)
			return def
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			r.warn(key, v)
			return def
		}
		f = parsed
	default:
		r.warn(key, v)
		return def
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		r.warn(key, v)
		return def
	}
	return int(f)
}

func (r *optionReader) bool(key string, def bool) bool {
	v, ok := r.raw[key]
	if !ok || v == nil {
		return def
	}

	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	r.warn(key, v)
	return def
}

func (r *optionReader) string(key string) string {
	v, ok := r.raw[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.warn(key, v)
		return ""
	}
	return strings.TrimSpace(s)
}

func (r *optionReader) mediaType(key string, def mediatypes.MediaType) mediatypes.MediaType {
	s := r.string(key)
	if s == "" {
		return def
	}
	mt, ok := mediatypes.ParseMediaType(s)
	if !ok {
		r.warn(key, s)
		return def
	}
	return mt
}

func (r *optionReader) log(command string) []Warning {
	for _, w := range r.warnings {
		logging.Debug("%s: %s", command, w)
	}
	return r.warnings
}

// ParsePickOptions reads getMedias options. A missing mediaType is derived
// from the legacy imageOnly flag.
func ParsePickOptions(raw map[string]any) (PickOptions, []Warning) {
	r := &optionReader{raw: raw}

	def := mediatypes.MediaAll
	if r.bool("imageOnly", false) {
		def = mediatypes.MediaImages
	}

	opts := PickOptions{
		SelectionLimit: max(1, r.int("selectionLimit", DefaultSelectionLimit)),
		ShowLoader:     r.bool("showLoader", true),
		MediaType:      r.mediaType("mediaType", def),
	}
	return opts, r.log("getMedias")
}

// ParseListOptions reads getLastMedias options. Negative limit or offset
// values fall back to their defaults and limit is clamped to MaxListLimit.
func ParseListOptions(raw map[string]any) (ListOptions, []Warning) {
	r := &optionReader{raw: raw}

	opts := ListOptions{
		MediaType:  r.mediaType("mediaType", mediatypes.MediaImages),
		Limit:      r.int("limit", DefaultListLimit),
		Offset:     r.int("offset", DefaultListOffset),
		ShowLoader: r.bool("showLoader", false),
	}
	if opts.Limit < 0 {
		r.warn("limit", opts.Limit)
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		r.warn("limit", opts.Limit)
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		r.warn("offset", opts.Offset)
		opts.Offset = DefaultListOffset
	}
	return opts, r.log("getLastMedias")
}
