package resolver

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"media-picker/internal/logging"
	"media-picker/internal/mediatypes"
)

// Sniffer reports the MIME type embedded in a file's own container.
type Sniffer func(path string) (string, error)

// DetectFile sniffs path with mimetype and drops any parameters.
func DetectFile(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	mime, _, _ := strings.Cut(m.String(), ";")
	return strings.TrimSpace(mime), nil
}

// Resolver picks a MIME type for a cached item.
type Resolver struct {
	sniff Sniffer
}

// New returns a Resolver that sniffs containers with mimetype.
func New() *Resolver {
	return &Resolver{sniff: DetectFile}
}

// NewWithSniffer returns a Resolver using sniff for the container step.
// A nil sniff disables that step.
func NewWithSniffer(sniff Sniffer) *Resolver {
	return &Resolver{sniff: sniff}
}

// Resolve returns the first of:
//  1. declared, the type reported by the repository, when non-empty
//  2. the static extension table entry for ext
//  3. the container type sniffed from cachedPath, when it is a video type
//  4. application/octet-stream
func (r *Resolver) Resolve(declared, cachedPath, ext string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}

	if mime, ok := mediatypes.LookupMimeType(ext); ok {
		return mime
	}

	if r.sniff != nil && cachedPath != "" {
		mime, err := r.sniff(cachedPath)
		if err != nil {
			logging.Debug("Container sniff failed for %s: %v", cachedPath, err)
		} else if strings.HasPrefix(mime, "video/") {
			return mime
		}
	}

	return mediatypes.OctetStream
}
