package exifmeta

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"media-picker/internal/metrics"
)

var (
	// ErrURIRequired is returned when a lookup has no file URI.
	ErrURIRequired = errors.New("File URI is required")
	// ErrKeyRequired is returned when a lookup has no tag name.
	ErrKeyRequired = errors.New("Exif key is required")
	// ErrNoExif is returned when a file carries no EXIF block.
	ErrNoExif = errors.New("no exif data")
)

const (
	fileScheme = "file://"
	gpsPrefix  = "GPS"
)

var exifHeader = []byte("Exif\x00\x00")

// MaxReadBytes bounds how much of a file is searched for its EXIF block.
// Containers keep metadata near the start, so the rest is never read.
var MaxReadBytes int64 = 8 << 20

// StripFileURI turns a file:// URI into a path. Other values are returned
// unchanged.
func StripFileURI(uri string) string {
	return strings.TrimPrefix(uri, fileScheme)
}

// Read decodes the EXIF block of the file at path. JPEG, TIFF and
// ISO-BMFF containers (HEIC/HEIF) carrying an "Exif\0\0" item are supported.
func Read(path string) (*exif.Exif, error) {
	data, err := readHead(path)
	if err != nil {
		metrics.MetadataReadsTotal.WithLabelValues("exif", "error").Inc()
		return nil, err
	}

	x, err := decode(data)
	if err != nil {
		metrics.MetadataReadsTotal.WithLabelValues("exif", "error").Inc()
		return nil, err
	}
	metrics.MetadataReadsTotal.WithLabelValues("exif", "success").Inc()
	return x, nil
}

// readHead returns at most MaxReadBytes from the start of the regular file
// at path.
func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	return io.ReadAll(io.LimitReader(f, MaxReadBytes))
}

func decode(data []byte) (*exif.Exif, error) {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8:
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
	default:
		i := bytes.Index(data, exifHeader)
		if i < 0 {
			return nil, ErrNoExif
		}
		data = data[i:]
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		if x != nil && !exif.IsCriticalError(err) {
			return x, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrNoExif, err)
	}
	return x, nil
}

// Orientation returns the orientation tag of the file at path, or 0 when
// the file has none.
func Orientation(path string) (int, error) {
	x, err := Read(path)
	if err != nil {
		if errors.Is(err, ErrNoExif) {
			return 0, nil
		}
		return 0, err
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, nil
	}
	return tag.Int(0)
}

// DateTaken returns the capture time recorded in DateTimeOriginal, falling
// back to DateTime.
func DateTaken(path string) (time.Time, error) {
	x, err := Read(path)
	if err != nil {
		return time.Time{}, err
	}
	return x.DateTime()
}

// GetForKey returns the value of the EXIF tag key in the file at fileURI.
// A key missing from the main dictionary is retried in the GPS dictionary.
// A tag that is not present is reported with found=false and no error.
func GetForKey(fileURI, key string) (value string, found bool, err error) {
	if fileURI == "" {
		return "", false, ErrURIRequired
	}
	if key == "" {
		return "", false, ErrKeyRequired
	}

	x, err := Read(StripFileURI(fileURI))
	if err != nil {
		if errors.Is(err, ErrNoExif) {
			return "", false, nil
		}
		return "", false, err
	}

	tag, err := x.Get(exif.FieldName(key))
	if err != nil && !strings.HasPrefix(key, gpsPrefix) {
		tag, err = x.Get(exif.FieldName(gpsPrefix + key))
	}
	if err != nil {
		return "", false, nil
	}
	return FormatTag(tag), true, nil
}

// GetAll returns every tag in the file at fileURI keyed by field name.
func GetAll(fileURI string) (map[string]string, error) {
	if fileURI == "" {
		return nil, ErrURIRequired
	}

	out := make(map[string]string)
	x, err := Read(StripFileURI(fileURI))
	if err != nil {
		if errors.Is(err, ErrNoExif) {
			return out, nil
		}
		return nil, err
	}

	err = x.Walk(walkFunc(func(name exif.FieldName, tag *tiff.Tag) error {
		out[string(name)] = FormatTag(tag)
		return nil
	}))
	return out, err
}

type walkFunc func(exif.FieldName, *tiff.Tag) error

func (f walkFunc) Walk(name exif.FieldName, tag *tiff.Tag) error {
	return f(name, tag)
}

// FormatTag renders a tag value as text. Integers and rationals ("n/d")
// with several components are comma-joined; undefined-type tags are
// rendered as their raw bytes.
func FormatTag(tag *tiff.Tag) string {
	n := int(tag.Count)
	parts := make([]string, 0, n)

	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return ""
		}
		return strings.TrimRight(s, "\x00 ")
	case tiff.IntVal:
		for i := 0; i < n; i++ {
			v, err := tag.Int64(i)
			if err != nil {
				break
			}
			parts = append(parts, strconv.FormatInt(v, 10))
		}
	case tiff.RatVal:
		for i := 0; i < n; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				break
			}
			parts = append(parts, fmt.Sprintf("%d/%d", num, den))
		}
	case tiff.FloatVal:
		for i := 0; i < n; i++ {
			v, err := tag.Float(i)
			if err != nil {
				break
			}
			parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
		}
	case tiff.UndefVal:
		return strings.TrimRight(string(tag.Val), "\x00")
	default:
		return tag.String()
	}

	return strings.Join(parts, ",")
}
