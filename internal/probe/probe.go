package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"media-picker/internal/metrics"
)

// ErrUnavailable is returned when the ffprobe binary cannot be found.
var ErrUnavailable = errors.New("ffprobe not available")

// Info is the container metadata of a video. Nil fields were not reported
// by the container.
type Info struct {
	Duration     *float64
	Width        *int
	Height       *int
	Codec        string
	CreationTime time.Time
}

// Prober runs ffprobe against local files.
type Prober struct {
	binary string
}

// New returns a Prober using the ffprobe found in PATH.
func New() *Prober {
	return &Prober{binary: "ffprobe"}
}

// Available reports whether ffprobe can be executed.
func (p *Prober) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// Probe reads container metadata of the file at path.
func (p *Prober) Probe(ctx context.Context, path string) (*Info, error) {
	if !p.Available() {
		return nil, ErrUnavailable
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		metrics.MetadataReadsTotal.WithLabelValues("container", "error").Inc()
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	info, err := Parse(stdout.Bytes())
	if err != nil {
		metrics.MetadataReadsTotal.WithLabelValues("container", "error").Inc()
		return nil, err
	}
	metrics.MetadataReadsTotal.WithLabelValues("container", "success").Inc()
	return info, nil
}

type sideData struct {
	Rotation float64 `json:"rotation"`
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType    string            `json:"codec_type"`
		CodecName    string            `json:"codec_name"`
		Width        int               `json:"width"`
		Height       int               `json:"height"`
		Duration     string            `json:"duration"`
		Tags         map[string]string `json:"tags"`
		SideDataList []sideData        `json:"side_data_list"`
	} `json:"streams"`
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

// Parse decodes `ffprobe -print_format json -show_format -show_streams`
// output. Dimensions come from the first video stream and are swapped for
// 90/270 degree rotations.
func Parse(data []byte) (*Info, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &Info{}

	if d, ok := parseDuration(out.Format.Duration); ok {
		info.Duration = &d
	}
	if t, ok := parseCreationTime(out.Format.Tags); ok {
		info.CreationTime = t
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}

		info.Codec = s.CodecName
		if s.Width > 0 && s.Height > 0 {
			w, h := s.Width, s.Height
			if quarterTurn(s.Tags["rotate"], s.SideDataList) {
				w, h = h, w
			}
			info.Width, info.Height = &w, &h
		}
		if info.Duration == nil {
			if d, ok := parseDuration(s.Duration); ok {
				info.Duration = &d
			}
		}
		if info.CreationTime.IsZero() {
			if t, ok := parseCreationTime(s.Tags); ok {
				info.CreationTime = t
			}
		}
		break
	}

	return info, nil
}

func parseDuration(s string) (float64, bool) {
	if s == "" || s == "N/A" {
		return 0, false
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}

func parseCreationTime(tags map[string]string) (time.Time, bool) {
	v := tags["creation_time"]
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil || t.Unix() <= 0 {
		return time.Time{}, false
	}
	return t, true
}

func quarterTurn(tag string, side []sideData) bool {
	deg := 0
	if tag != "" {
		deg, _ = strconv.Atoi(tag)
	}
	for _, sd := range side {
		if sd.Rotation != 0 {
			deg = int(sd.Rotation)
		}
	}
	deg = ((deg % 360) + 360) % 360
	return deg == 90 || deg == 270
}
