package pipeline

import (
	"errors"
	"strings"
	"sync"

	"media-picker/internal/extract"
	"media-picker/internal/mediatypes"
	"media-picker/internal/metrics"
)

// MediaRecord is one item of a successful run.
type MediaRecord struct {
	ID        string              `json:"id"`
	Index     int                 `json:"index"`
	URI       string              `json:"uri"`
	FileName  string              `json:"fileName"`
	FileSize  int64               `json:"fileSize"`
	MimeType  string              `json:"mimeType"`
	Type      mediatypes.FileType `json:"type"`
	Width     *int                `json:"width,omitempty"`
	Height    *int                `json:"height,omitempty"`
	Duration  *float64            `json:"duration,omitempty"`
	Thumbnail *string             `json:"thumbnail,omitempty"`
}

// Merge copies the fields md determined onto r.
func (r *MediaRecord) Merge(md extract.Metadata) {
	if md.Width != nil && md.Height != nil {
		r.Width, r.Height = md.Width, md.Height
	}
	if r.Type == mediatypes.FileTypeVideo {
		r.Duration = md.Duration
		r.Thumbnail = md.Thumbnail
	}
}

// ErrorLog collects per-item failure messages of one run in order.
type ErrorLog struct {
	mu       sync.Mutex
	messages []string
}

// Add appends a message.
func (l *ErrorLog) Add(msg string) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
	metrics.ItemErrorsTotal.Inc()
}

// Messages returns a copy of the collected messages.
func (l *ErrorLog) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

// Len returns the number of collected messages.
func (l *ErrorLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// Err returns nil for an empty log, otherwise one error whose text is the
// messages joined by newlines.
func (l *ErrorLog) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.messages) == 0 {
		return nil
	}
	return errors.New(strings.Join(l.messages, "\n"))
}
