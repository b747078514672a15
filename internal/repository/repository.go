package repository

import (
	"context"
	"errors"
	"image"
	"io"
)

// ErrNotFound is returned when a reference does not resolve to an item.
var ErrNotFound = errors.New("media reference not found")

// Collection names one of the repository's indexed collections.
type Collection string

const (
	Images Collection = "images"
	Videos Collection = "videos"
)

// Reference is an opaque locator into the repository. Its URI carries the
// content identity used for cache naming.
type Reference struct {
	URI string `json:"uri"`
}

func (r Reference) String() string { return r.URI }

// Details is the metadata the repository declares for a reference. Zero
// values mean the repository did not report the field.
type Details struct {
	DisplayName string
	Size        int64
	MimeType    string
}

// Row is one entry yielded by Scan.
//
// DateTaken is in milliseconds, DateAdded and DateModified in seconds.
// Zero means the repository has no value for that column.
type Row struct {
	Ref          Reference
	Collection   Collection
	Path         string
	DateTaken    int64
	DateAdded    int64
	DateModified int64
	Pending      bool
}

// Repository is the external media store the pipeline reads from.
type Repository interface {
	// Scan yields rows of collection c most recent first. It stops when fn
	// returns false.
	Scan(ctx context.Context, c Collection, fn func(Row) bool) error

	// Describe returns the declared metadata of ref.
	Describe(ctx context.Context, ref Reference) (Details, error)

	// Open returns a read stream over the bytes of ref.
	Open(ctx context.Context, ref Reference) (io.ReadCloser, error)
}

// ThumbnailLoader is implemented by repositories with a native thumbnail
// capability. The returned image fits within size x size.
type ThumbnailLoader interface {
	LoadThumbnail(ctx context.Context, ref Reference, size int) (image.Image, error)
}
