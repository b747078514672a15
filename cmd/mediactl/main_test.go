package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points the service configuration at temp directories.
func isolate(t *testing.T) (mediaDir, cacheDir string) {
	t.Helper()
	dir := t.TempDir()
	mediaDir = filepath.Join(dir, "media")
	cacheDir = filepath.Join(dir, "cache")
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("MEDIA_DIR", mediaDir)
	t.Setenv("CACHE_DIR", cacheDir)
	t.Setenv("DATABASE_DIR", filepath.Join(dir, "db"))
	return mediaDir, cacheDir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name        string
		answer      string
		interactive bool
		wantErr     bool
	}{
		{"yes", "y\n", true, false},
		{"long yes", " YES \n", true, false},
		{"no", "n\n", true, true},
		{"empty", "\n", true, true},
		{"eof", "", true, true},
		{"not a terminal", "y\n", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := confirm(strings.NewReader(tt.answer), &out, tt.interactive, "Remove?")
			if (err != nil) != tt.wantErr {
				t.Fatalf("confirm() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errNotConfirmed) {
				t.Errorf("confirm() error = %v, want errNotConfirmed", err)
			}
			if tt.interactive && !strings.Contains(out.String(), "Remove? [y/N]") {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func writeCache(t *testing.T, cacheDir string) {
	t.Helper()
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string]string{"a_0.jpg": "12345", "thumb_a.jpg": "123"} {
		if err := os.WriteFile(filepath.Join(cacheDir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCacheClearWithYes(t *testing.T) {
	_, cacheDir := isolate(t)
	writeCache(t, cacheDir)

	out, err := run(t, "", "cache", "clear", "--yes")
	if err != nil {
		t.Fatalf("cache clear --yes: %v", err)
	}
	if !strings.Contains(out, "Freed 8 bytes") {
		t.Errorf("output = %q, want Freed 8 bytes", out)
	}
	entries, _ := os.ReadDir(cacheDir)
	if len(entries) != 0 {
		t.Errorf("cache still holds %d entries", len(entries))
	}
}

func TestCacheClearNeedsConfirmation(t *testing.T) {
	_, cacheDir := isolate(t)
	writeCache(t, cacheDir)

	orig := isTerminal
	defer func() { isTerminal = orig }()

	isTerminal = func() bool { return false }
	if _, err := run(t, "y\n", "cache", "clear"); !errors.Is(err, errNotConfirmed) {
		t.Errorf("non-interactive clear error = %v, want errNotConfirmed", err)
	}

	isTerminal = func() bool { return true }
	if _, err := run(t, "n\n", "cache", "clear"); !errors.Is(err, errNotConfirmed) {
		t.Errorf("declined clear error = %v, want errNotConfirmed", err)
	}
	if entries, _ := os.ReadDir(cacheDir); len(entries) != 2 {
		t.Errorf("declined clear removed files: %d left", len(entries))
	}

	out, err := run(t, "y\n", "cache", "clear")
	if err != nil {
		t.Fatalf("confirmed clear: %v", err)
	}
	if !strings.Contains(out, "Remove 8 bytes") || !strings.Contains(out, "Freed 8 bytes") {
		t.Errorf("output = %q", out)
	}
}

func TestCacheClearMissingDirectory(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "cache", "clear", "-y")
	if err != nil {
		t.Fatalf("cache clear on missing dir: %v", err)
	}
	if !strings.Contains(out, "Freed 0 bytes") {
		t.Errorf("output = %q", out)
	}
}

func TestExifArgs(t *testing.T) {
	isolate(t)

	if _, err := run(t, "", "exif"); err == nil {
		t.Error("exif without arguments should fail")
	}
	if _, err := run(t, "", "exif", "a", "b", "c"); err == nil {
		t.Error("exif with three arguments should fail")
	}
}

func TestExifWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.dat")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "exif", "file://"+path, "Make")
	if err != nil {
		t.Fatalf("exif on file without metadata: %v", err)
	}
	if strings.TrimSpace(out) != "null" {
		t.Errorf("output = %q, want null", out)
	}

	_, err = run(t, "", "exif", "file://"+filepath.Join(dir, "gone.jpg"), "Make")
	if err == nil || !strings.HasPrefix(err.Error(), "Exif error: ") {
		t.Errorf("exif error = %v, want Exif error prefix", err)
	}
}

func TestIndexEmptyMediaDir(t *testing.T) {
	mediaDir, _ := isolate(t)
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "index")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if !strings.Contains(out, "Indexed 0 files") {
		t.Errorf("output = %q, want Indexed 0 files", out)
	}
}
