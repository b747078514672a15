package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	videoSniffer := func(string) (string, error) { return "video/quicktime", nil }
	imageSniffer := func(string) (string, error) { return "image/png", nil }
	failing := func(string) (string, error) { return "", errors.New("unreadable") }

	tests := []struct {
		name     string
		sniff    Sniffer
		declared string
		ext      string
		want     string
	}{
		{name: "declared wins over extension", sniff: videoSniffer, declared: "image/heic", ext: "mp4", want: "image/heic"},
		{name: "declared generic type still wins", sniff: videoSniffer, declared: "application/octet-stream", ext: "jpg", want: "application/octet-stream"},
		{name: "extension table", sniff: videoSniffer, ext: "mp4", want: "video/mp4"},
		{name: "extension case and dot", sniff: nil, ext: ".JPG", want: "image/jpeg"},
		{name: "sniffed video", sniff: videoSniffer, ext: "dat", want: "video/quicktime"},
		{name: "sniffed image ignored", sniff: imageSniffer, ext: "dat", want: "application/octet-stream"},
		{name: "sniff failure", sniff: failing, ext: "xyz", want: "application/octet-stream"},
		{name: "no sniffer", sniff: nil, ext: "xyz", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewWithSniffer(tt.sniff)
			if got := r.Resolve(tt.declared, "/cache/x", tt.ext); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.declared, tt.ext, got, tt.want)
			}
		})
	}
}

func TestResolveSniffsRealFile(t *testing.T) {
	// Minimal ISO-BMFF header with an mp4 brand.
	header := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
		0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}
	path := filepath.Join(t.TempDir(), "clip.dat")
	if err := os.WriteFile(path, header, 0o644); err != nil {
		t.Fatal(err)
	}

	if got := New().Resolve("", path, "dat"); got != "video/mp4" {
		t.Errorf("Resolve(mp4 container) = %q, want video/mp4", got)
	}

	text := filepath.Join(t.TempDir(), "notes.xyz")
	if err := os.WriteFile(text, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := New().Resolve("", text, "xyz"); got != "application/octet-stream" {
		t.Errorf("Resolve(text) = %q, want application/octet-stream", got)
	}
}
