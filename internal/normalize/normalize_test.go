package normalize

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"media-picker/internal/cache"
	"media-picker/internal/exifmeta"
)

type fakeTranscoder struct {
	name      string
	available bool
	data      []byte
	err       error
	calls     int
}

func (f *fakeTranscoder) Name() string    { return f.name }
func (f *fakeTranscoder) Available() bool { return f.available }

func (f *fakeTranscoder) EncodeJPEG(ctx context.Context, src string, quality int) ([]byte, error) {
	f.calls++
	if quality != Quality {
		return nil, errors.New("unexpected quality")
	}
	return f.data, f.err
}

// heicWithOrientation mimics an ISO-BMFF file carrying an Exif item with
// a single orientation entry.
func heicWithOrientation(o uint16) []byte {
	le := binary.LittleEndian
	tiff := make([]byte, 26)
	copy(tiff, "II*\x00")
	le.PutUint32(tiff[4:], 8)
	le.PutUint16(tiff[8:], 1)
	le.PutUint16(tiff[10:], 0x0112)
	le.PutUint16(tiff[12:], 3)
	le.PutUint32(tiff[14:], 1)
	le.PutUint16(tiff[18:], o)

	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 24})
	buf.WriteString("ftypheic\x00\x00\x00\x00mif1heic")
	buf.WriteString("Exif\x00\x00")
	buf.Write(tiff)
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 4)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func heicEntry(t *testing.T, data []byte) *cache.Entry {
	t.Helper()

	path := filepath.Join(t.TempDir(), "0011223344556677_0.heic")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return &cache.Entry{
		Path:     path,
		FileName: "IMG_0001.HEIC",
		Size:     int64(len(data)),
		Ext:      "heic",
		Hash:     "0011223344556677",
	}
}

func TestNormalizeConvertsHEIC(t *testing.T) {
	entry := heicEntry(t, heicWithOrientation(6))
	tier := &fakeTranscoder{name: "fake", available: true, data: jpegBytes(t)}

	got, mime, err := New(nil, tier).Normalize(context.Background(), entry, "image/heic")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if mime != JPEGMime {
		t.Errorf("mime = %s, want %s", mime, JPEGMime)
	}
	if got.Ext != "jpg" || filepath.Ext(got.Path) != ".jpg" {
		t.Errorf("derivative = %s (ext %s), want .jpg", got.Path, got.Ext)
	}
	if got.FileName != filepath.Base(got.Path) {
		t.Errorf("FileName = %s, want %s", got.FileName, filepath.Base(got.Path))
	}
	if _, err := os.Stat(entry.Path); !os.IsNotExist(err) {
		t.Errorf("original still present: %v", err)
	}

	info, err := os.Stat(got.Path)
	if err != nil {
		t.Fatalf("derivative missing: %v", err)
	}
	if got.Size != info.Size() {
		t.Errorf("Size = %d, want %d", got.Size, info.Size())
	}

	o, err := exifmeta.Orientation(got.Path)
	if err != nil || o != 6 {
		t.Errorf("Orientation(derivative) = %d, %v, want 6", o, err)
	}
}

func TestNormalizeByExtensionOnly(t *testing.T) {
	entry := heicEntry(t, heicWithOrientation(1))
	tier := &fakeTranscoder{name: "fake", available: true, data: jpegBytes(t)}

	_, mime, err := New(nil, tier).Normalize(context.Background(), entry, "application/octet-stream")
	if err != nil {
		t.Fatal(err)
	}
	if mime != JPEGMime {
		t.Errorf("mime = %s, want %s", mime, JPEGMime)
	}
}

func TestNormalizeSkipsOtherContent(t *testing.T) {
	entry := &cache.Entry{Path: "/cache/a_0.png", Ext: "png"}
	tier := &fakeTranscoder{name: "fake", available: true}

	got, mime, err := New(nil, tier).Normalize(context.Background(), entry, "image/png")
	if err != nil || got != entry || mime != "image/png" {
		t.Errorf("Normalize(png) = %v, %s, %v", got, mime, err)
	}
	if tier.calls != 0 {
		t.Errorf("transcoder called %d times", tier.calls)
	}
}

func TestNormalizePassThroughOnDecodeFailure(t *testing.T) {
	entry := heicEntry(t, heicWithOrientation(1))
	broken := &fakeTranscoder{name: "broken", available: true, err: errors.New("bad heif")}
	missing := &fakeTranscoder{name: "missing"}

	got, mime, err := New(nil, missing, broken).Normalize(context.Background(), entry, "image/heif")
	if err != nil {
		t.Fatalf("Normalize() error = %v, want nil", err)
	}
	if got != entry || mime != "image/heif" {
		t.Errorf("Normalize() = %s, %s, want original", got.Path, mime)
	}
	if missing.calls != 0 {
		t.Error("unavailable tier was called")
	}
	if _, err := os.Stat(entry.Path); err != nil {
		t.Errorf("original removed: %v", err)
	}
}

func TestNormalizeFallsThroughTiers(t *testing.T) {
	entry := heicEntry(t, heicWithOrientation(1))
	broken := &fakeTranscoder{name: "broken", available: true, err: errors.New("bad heif")}
	good := &fakeTranscoder{name: "good", available: true, data: jpegBytes(t)}

	got, _, err := New(nil, broken, good).Normalize(context.Background(), entry, "image/heic")
	if err != nil {
		t.Fatal(err)
	}
	if broken.calls != 1 || good.calls != 1 {
		t.Errorf("calls = %d, %d, want 1, 1", broken.calls, good.calls)
	}
	if got.Ext != "jpg" {
		t.Errorf("Ext = %s, want jpg", got.Ext)
	}
}

func TestNormalizeReusesDerivative(t *testing.T) {
	entry := heicEntry(t, heicWithOrientation(1))
	data := jpegBytes(t)
	if err := os.WriteFile(DerivativePath(entry.Path), data, 0o644); err != nil {
		t.Fatal(err)
	}
	tier := &fakeTranscoder{name: "fake", available: true, data: data}

	got, _, err := New(nil, tier).Normalize(context.Background(), entry, "image/heic")
	if err != nil {
		t.Fatal(err)
	}
	if tier.calls != 0 {
		t.Errorf("transcoder called %d times for an existing derivative", tier.calls)
	}
	if got.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", got.Size, len(data))
	}
	if _, err := os.Stat(entry.Path); !os.IsNotExist(err) {
		t.Errorf("original still present: %v", err)
	}
}

func TestDerivativePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/cache/abc_0.heic", "/cache/abc_0.jpg"},
		{"/cache/abc_1.dat", "/cache/abc_1.jpg"},
	}
	for _, tt := range tests {
		if got := DerivativePath(tt.in); got != tt.want {
			t.Errorf("DerivativePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
