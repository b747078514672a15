package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"media-picker/internal/exifmeta"
	"media-picker/internal/pipeline"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrOutsideCache is returned for a metadata lookup on a file that does not
// live in the cache directory.
var ErrOutsideCache = errors.New("file is not in the cache directory")

// GetMedias runs PickMedia and waits for its result.
func (o *Orchestrator) GetMedias(ctx context.Context, opts PickOptions) ([]pipeline.MediaRecord, error) {
	ch := make(chan Result, 1)
	o.PickMedia(ctx, opts, func(r Result) { ch <- r })
	return wait(ctx, ch)
}

// GetLastMedias runs ListRecentMedia and waits for its result, through a
// permission suspension if one is needed. onSuspend, when non-nil, is
// called with the token of the suspension.
func (o *Orchestrator) GetLastMedias(ctx context.Context, caller string, opts ListOptions, onSuspend func(token string)) ([]pipeline.MediaRecord, error) {
	ch := make(chan Result, 1)
	token := o.ListRecentMedia(ctx, caller, opts, func(r Result) { ch <- r })
	if token != "" && onSuspend != nil {
		onSuspend(token)
	}
	return wait(ctx, ch)
}

func wait(ctx context.Context, ch <-chan Result) ([]pipeline.MediaRecord, error) {
	select {
	case r := <-ch:
		return r.Records, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type exifRequest struct {
	URI string `validate:"required"`
	Key string `validate:"required"`
}

func validateExif(uri, key string, needKey bool) error {
	req := exifRequest{URI: exifmeta.StripFileURI(uri), Key: key}
	if !needKey {
		req.Key = "*"
	}

	err := validate.Struct(req)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if verrs[0].Field() == "URI" {
			return exifmeta.ErrURIRequired
		}
		return exifmeta.ErrKeyRequired
	}
	return err
}

func absDir(dir string) string {
	if dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}

// checkCached rejects URIs whose path resolves outside the cache directory.
func (o *Orchestrator) checkCached(uri string) error {
	path := filepath.Clean(exifmeta.StripFileURI(uri))
	if o.cacheDir == "" || !filepath.IsAbs(path) {
		return ErrOutsideCache
	}
	rel, err := filepath.Rel(o.cacheDir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ErrOutsideCache
	}
	return nil
}

// GetExifForKey returns the value of key in the metadata of the cached
// file at fileURI, or nil when the tag is absent. It runs on the pool.
func (o *Orchestrator) GetExifForKey(ctx context.Context, fileURI, key string) (*string, error) {
	if err := validateExif(fileURI, key, true); err != nil {
		return nil, err
	}
	if err := o.checkCached(fileURI); err != nil {
		return nil, fmt.Errorf("Exif error: %w", err)
	}

	var (
		value string
		found bool
	)
	err := o.runOnPool(ctx, func() error {
		var err error
		value, found, err = exifmeta.GetForKey(fileURI, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Exif error: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &value, nil
}

// GetExifAll returns every tag of the cached file at fileURI.
func (o *Orchestrator) GetExifAll(ctx context.Context, fileURI string) (map[string]string, error) {
	if err := validateExif(fileURI, "", false); err != nil {
		return nil, err
	}
	if err := o.checkCached(fileURI); err != nil {
		return nil, fmt.Errorf("Exif error: %w", err)
	}

	var tags map[string]string
	err := o.runOnPool(ctx, func() error {
		var err error
		tags, err = exifmeta.GetAll(fileURI)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Exif error: %w", err)
	}
	return tags, nil
}

func (o *Orchestrator) runOnPool(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if err := o.pool.Submit(func() { done <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sortSuspended(s []Suspended) {
	slices.SortFunc(s, func(a, b Suspended) int {
		return a.RequestedAt.Compare(b.RequestedAt)
	})
}
