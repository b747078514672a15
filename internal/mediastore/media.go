package mediastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/jmoiron/sqlx"

	"media-picker/internal/filesystem"
	"media-picker/internal/logging"
	"media-picker/internal/media"
	"media-picker/internal/repository"
)

const refPrefix = "content://media/external/"

// FrameSource decodes a representative frame of the video at path.
type FrameSource func(ctx context.Context, path string) (image.Image, error)

// Item is one indexed file, as written by the indexer.
type Item struct {
	Collection   repository.Collection
	Path         string
	DisplayName  string
	Size         int64
	MimeType     string
	DateTaken    int64 // ms
	DateModified int64 // s
	Pending      bool
}

// Fingerprint is what the indexer compares to decide whether a file changed.
type Fingerprint struct {
	Size         int64 `db:"size"`
	DateModified int64 `db:"date_modified"`
}

// Stats summarizes the index contents.
type Stats struct {
	Images  int `db:"images" json:"images"`
	Videos  int `db:"videos" json:"videos"`
	Pending int `db:"pending" json:"pending"`
}

type mediaRow struct {
	ID           int64  `db:"id"`
	Collection   string `db:"collection"`
	Path         string `db:"path"`
	DisplayName  string `db:"display_name"`
	Size         int64  `db:"size"`
	MimeType     string `db:"mime_type"`
	DateTaken    int64  `db:"date_taken"`
	DateAdded    int64  `db:"date_added"`
	DateModified int64  `db:"date_modified"`
	Pending      bool   `db:"is_pending"`
}

// RefFor builds the reference of row id in collection c.
func RefFor(c repository.Collection, id int64) repository.Reference {
	return repository.Reference{URI: fmt.Sprintf("%s%s/media/%d", refPrefix, c, id)}
}

// ParseRef splits a reference built by RefFor.
func ParseRef(ref repository.Reference) (repository.Collection, int64, error) {
	rest, ok := strings.CutPrefix(ref.URI, refPrefix)
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", repository.ErrNotFound, ref.URI)
	}

	collection, idStr, ok := strings.Cut(rest, "/media/")
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", repository.ErrNotFound, ref.URI)
	}

	c := repository.Collection(collection)
	if c != repository.Images && c != repository.Videos {
		return "", 0, fmt.Errorf("%w: unknown collection %q", repository.ErrNotFound, collection)
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s", repository.ErrNotFound, ref.URI)
	}
	return c, id, nil
}

// Upsert inserts or updates an item within a transaction and marks it as
// seen at seen. date_added is kept from the first time the path was indexed.
func (s *Store) Upsert(tx *sqlx.Tx, item *Item, seen time.Time) error {
	_, err := tx.ExecContext(context.Background(), `
	INSERT INTO media (collection, path, display_name, size, mime_type, date_taken, date_added, date_modified, is_pending, seen_at)
	VALUES (?, ?, ?, ?, ?, ?, strftime('%s', 'now'), ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		collection = excluded.collection,
		display_name = excluded.display_name,
		size = excluded.size,
		mime_type = excluded.mime_type,
		date_taken = excluded.date_taken,
		date_modified = excluded.date_modified,
		is_pending = excluded.is_pending,
		seen_at = excluded.seen_at
	`,
		item.Collection,
		item.Path,
		item.DisplayName,
		item.Size,
		item.MimeType,
		item.DateTaken,
		item.DateModified,
		item.Pending,
		seen.UnixNano(),
	)
	return err
}

// Touch marks an unchanged path as seen at seen.
func (s *Store) Touch(tx *sqlx.Tx, path string, seen time.Time) error {
	_, err := tx.ExecContext(context.Background(),
		"UPDATE media SET seen_at = ? WHERE path = ?", seen.UnixNano(), path)
	return err
}

// DeleteMissing removes items not seen since before. Must be called within
// a transaction.
func (s *Store) DeleteMissing(tx *sqlx.Tx, before time.Time) (int64, error) {
	result, err := tx.ExecContext(context.Background(),
		"DELETE FROM media WHERE seen_at < ?", before.UnixNano())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Fingerprints returns size and modification time for every indexed path.
func (s *Store) Fingerprints(ctx context.Context) (map[string]Fingerprint, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("fingerprints", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryxContext(ctx, "SELECT path, size, date_modified FROM media")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Fingerprint)
	for rows.Next() {
		var r struct {
			Path string `db:"path"`
			Fingerprint
		}
		if err = rows.StructScan(&r); err != nil {
			return nil, err
		}
		out[r.Path] = r.Fingerprint
	}
	err = rows.Err()
	return out, err
}

// Stats counts indexed items.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var st Stats
	err = s.db.GetContext(ctx, &st, `
		SELECT
			COALESCE(SUM(CASE WHEN collection = 'images' THEN 1 ELSE 0 END), 0) AS images,
			COALESCE(SUM(CASE WHEN collection = 'videos' THEN 1 ELSE 0 END), 0) AS videos,
			COALESCE(SUM(is_pending), 0) AS pending
		FROM media
	`)
	return st, err
}

// Scan implements repository.Repository. Pending rows are excluded; rows
// come most recent first by taken, added, then modified time.
func (s *Store) Scan(ctx context.Context, c repository.Collection, fn func(repository.Row) bool) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("scan_"+string(c), start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, collection, path, display_name, size, mime_type,
		       date_taken, date_added, date_modified, is_pending
		FROM media
		WHERE collection = ? AND is_pending = 0
		ORDER BY (CASE
			WHEN date_taken > 0 THEN date_taken
			WHEN date_added > 0 THEN date_added * 1000
			WHEN date_modified > 0 THEN date_modified * 1000
			ELSE 0 END) DESC, id DESC
	`, c)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r mediaRow
		if err = rows.StructScan(&r); err != nil {
			return err
		}
		if !fn(r.toRow()) {
			return nil
		}
	}
	err = rows.Err()
	return err
}

// Describe implements repository.Repository.
func (s *Store) Describe(ctx context.Context, ref repository.Reference) (repository.Details, error) {
	r, err := s.lookup(ctx, ref)
	if err != nil {
		return repository.Details{}, err
	}
	return repository.Details{
		DisplayName: r.DisplayName,
		Size:        r.Size,
		MimeType:    r.MimeType,
	}, nil
}

// Open implements repository.Repository.
func (s *Store) Open(ctx context.Context, ref repository.Reference) (io.ReadCloser, error) {
	r, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	return filesystem.OpenWithRetry(ctx, r.Path, s.retry)
}

// LoadThumbnail implements repository.ThumbnailLoader. Videos need a
// FrameSource.
func (s *Store) LoadThumbnail(ctx context.Context, ref repository.Reference, size int) (image.Image, error) {
	r, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}

	var img image.Image
	switch repository.Collection(r.Collection) {
	case repository.Videos:
		if s.frames == nil {
			return nil, errors.New("video thumbnails not supported")
		}
		img, err = s.frames(ctx, r.Path)
	default:
		img, err = media.LoadImageConstrained(r.Path, media.MaxImageDimension, media.MaxImagePixels)
	}
	if err != nil {
		return nil, fmt.Errorf("load thumbnail for %s: %w", ref, err)
	}

	logging.Debug("Native thumbnail for %s from %s", ref, r.Path)
	return imaging.Fit(img, size, size, imaging.Lanczos), nil
}

func (s *Store) lookup(ctx context.Context, ref repository.Reference) (*mediaRow, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("lookup", start, err) }()

	c, id, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var r mediaRow
	err = s.db.GetContext(ctx, &r, `
		SELECT id, collection, path, display_name, size, mime_type,
		       date_taken, date_added, date_modified, is_pending
		FROM media WHERE id = ? AND collection = ?
	`, id, c)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("%w: %s", repository.ErrNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *mediaRow) toRow() repository.Row {
	c := repository.Collection(r.Collection)
	return repository.Row{
		Ref:          RefFor(c, r.ID),
		Collection:   c,
		Path:         r.Path,
		DateTaken:    r.DateTaken,
		DateAdded:    r.DateAdded,
		DateModified: r.DateModified,
		Pending:      r.Pending,
	}
}
