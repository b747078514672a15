package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"

	"media-picker/internal/logging"
)

// ErrFFmpegUnavailable is returned when the ffmpeg binary cannot be found.
var ErrFFmpegUnavailable = errors.New("ffmpeg not available")

// FFmpegAvailable reports whether ffmpeg is in PATH.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// ExtractFrame decodes a representative frame of the video at path. It
// seeks one second in and falls back to the first frame for short clips.
func ExtractFrame(ctx context.Context, path string) (image.Image, error) {
	if !FFmpegAvailable() {
		return nil, ErrFFmpegUnavailable
	}

	logging.Debug("Extracting video frame: %s", path)

	out, err := runFFmpeg(ctx, "-ss", "00:00:01", "-i", path,
		"-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-")
	if err != nil || len(out) == 0 {
		logging.Debug("FFmpeg seek attempt failed for %s: %v", path, err)
		out, err = runFFmpeg(ctx, "-i", path,
			"-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-")
		if err != nil {
			return nil, err
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

// FFmpegEncodeJPEG decodes the still image at path with ffmpeg and encodes
// it as JPEG. quality (1-100) is mapped onto ffmpeg's qscale (31-2).
func FFmpegEncodeJPEG(ctx context.Context, path string, quality int) ([]byte, error) {
	if !FFmpegAvailable() {
		return nil, ErrFFmpegUnavailable
	}

	out, err := runFFmpeg(ctx, "-i", path,
		"-frames:v", "1", "-q:v", fmt.Sprint(qscale(quality)),
		"-f", "image2pipe", "-vcodec", "mjpeg", "-")
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}
	return out, nil
}

func qscale(quality int) int {
	quality = min(max(quality, 1), 100)
	return 31 - (quality-1)*29/99
}

func runFFmpeg(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
