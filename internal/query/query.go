package query

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"media-picker/internal/logging"
	"media-picker/internal/mediatypes"
	"media-picker/internal/metrics"
	"media-picker/internal/repository"
)

var tracer = otel.Tracer("media-picker/query")

// scanPrealloc bounds the up-front allocation of a collection scan.
const scanPrealloc = 256

// Candidate is a reference paired with its recency timestamp in
// milliseconds. It only lives between the scan and the pagination.
type Candidate struct {
	Ref        repository.Reference
	Collection repository.Collection
	Timestamp  int64
}

// ResolveTimestamp returns the recency of r in milliseconds: capture time,
// then ingestion time, then last-modified time, then 0.
func ResolveTimestamp(r repository.Row) int64 {
	switch {
	case r.DateTaken > 0:
		return r.DateTaken
	case r.DateAdded > 0:
		return r.DateAdded * 1000
	case r.DateModified > 0:
		return r.DateModified * 1000
	default:
		return 0
	}
}

// IsHidden reports whether path lies in a hidden directory or a vault
// folder below root, neither of which is offered to callers. Components of
// root itself are not considered. An empty root checks the whole path.
func IsHidden(root, path string) bool {
	if root != "" {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			path = "/" + filepath.ToSlash(rel)
		}
	}
	return strings.Contains(path, "/.") || strings.Contains(strings.ToLower(path), "vault")
}

// Engine merges the repository's collections into one recency-ordered list.
type Engine struct {
	repo repository.Repository
	root string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRoot sets the directory the repository's paths live under. The
// hidden filter only looks at the part of a path below it.
func WithRoot(root string) Option {
	return func(e *Engine) {
		if root != "" {
			e.root = filepath.Clean(root)
		}
	}
}

// New returns an Engine over repo.
func New(repo repository.Repository, opts ...Option) *Engine {
	e := &Engine{repo: repo}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Collections returns the collections scanned for mediaType, in merge order.
func Collections(mediaType mediatypes.MediaType) []repository.Collection {
	switch mediaType {
	case mediatypes.MediaImages:
		return []repository.Collection{repository.Images}
	case mediatypes.MediaVideos:
		return []repository.Collection{repository.Videos}
	default:
		return []repository.Collection{repository.Images, repository.Videos}
	}
}

// Query returns the window [offset, offset+limit) of the merged,
// newest-first candidates of mediaType.
//
// Each collection is scanned concurrently for at most offset+limit
// accepted rows. Equal timestamps keep collection order, images before
// videos. A collection that cannot be scanned is skipped; the query fails
// only when every collection fails.
func (e *Engine) Query(ctx context.Context, mediaType mediatypes.MediaType, limit, offset int) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "query.Query")
	span.SetAttributes(
		attribute.String("media.type", string(mediaType)),
		attribute.Int("query.limit", limit),
		attribute.Int("query.offset", offset),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues(string(mediaType)).Observe(time.Since(start).Seconds())
	}()

	if limit <= 0 {
		return nil, nil
	}
	offset = max(offset, 0)

	collections := Collections(mediaType)
	results := make([][]Candidate, len(collections))
	errs := make([]error, len(collections))

	var g errgroup.Group
	for i, c := range collections {
		g.Go(func() error {
			results[i], errs[i] = e.scan(ctx, c, offset+limit)
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	for i, err := range errs {
		if err != nil {
			logging.Warn("Scan of %s collection failed: %v", collections[i], err)
			failed = append(failed, fmt.Errorf("%s: %w", collections[i], err))
		}
	}
	if len(failed) == len(collections) {
		err := errors.Join(failed...)
		span.RecordError(err)
		return nil, err
	}

	merged := slices.Concat(results...)
	slices.SortStableFunc(merged, func(a, b Candidate) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		default:
			return 0
		}
	})

	if offset >= len(merged) {
		return nil, nil
	}
	end := min(offset+limit, len(merged))

	logging.Debug("Query %s limit=%d offset=%d: %d candidates, returning %d", mediaType, limit, offset, len(merged), end-offset)
	return merged[offset:end], nil
}

func (e *Engine) scan(ctx context.Context, c repository.Collection, want int) ([]Candidate, error) {
	out := make([]Candidate, 0, min(want, scanPrealloc))

	err := e.repo.Scan(ctx, c, func(r repository.Row) bool {
		if r.Pending {
			metrics.QueryFilteredTotal.WithLabelValues("pending").Inc()
			return true
		}
		if IsHidden(e.root, r.Path) {
			metrics.QueryFilteredTotal.WithLabelValues("hidden").Inc()
			return true
		}

		out = append(out, Candidate{Ref: r.Ref, Collection: c, Timestamp: ResolveTimestamp(r)})
		return len(out) < want
	})
	if err != nil {
		return nil, err
	}

	metrics.QueryCandidatesTotal.WithLabelValues(string(c)).Add(float64(len(out)))
	return out, nil
}
