package probe

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantDuration float64
		wantW, wantH int
		wantCodec    string
		wantCreated  time.Time
	}{
		{
			name: "format duration and creation time",
			input: `{"streams":[{"codec_type":"audio","codec_name":"aac"},
				{"codec_type":"video","codec_name":"h264","width":1920,"height":1080}],
				"format":{"duration":"12.480000","tags":{"creation_time":"2024-05-01T10:20:30.000000Z"}}}`,
			wantDuration: 12.48,
			wantW:        1920,
			wantH:        1080,
			wantCodec:    "h264",
			wantCreated:  time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC),
		},
		{
			name: "rotated stream",
			input: `{"streams":[{"codec_type":"video","codec_name":"hevc","width":1920,"height":1080,
				"side_data_list":[{"rotation":-90}]}],"format":{"duration":"3.0"}}`,
			wantDuration: 3,
			wantW:        1080,
			wantH:        1920,
			wantCodec:    "hevc",
		},
		{
			name: "stream duration fallback and rotate tag",
			input: `{"streams":[{"codec_type":"video","codec_name":"h264","width":640,"height":480,
				"duration":"5.5","tags":{"rotate":"270","creation_time":"2023-01-02T03:04:05Z"}}],"format":{}}`,
			wantDuration: 5.5,
			wantW:        480,
			wantH:        640,
			wantCodec:    "h264",
			wantCreated:  time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if info.Duration == nil || *info.Duration != tt.wantDuration {
				t.Errorf("Duration = %v, want %v", info.Duration, tt.wantDuration)
			}
			if info.Width == nil || info.Height == nil || *info.Width != tt.wantW || *info.Height != tt.wantH {
				t.Errorf("dimensions = %v x %v, want %dx%d", info.Width, info.Height, tt.wantW, tt.wantH)
			}
			if info.Codec != tt.wantCodec {
				t.Errorf("Codec = %q, want %q", info.Codec, tt.wantCodec)
			}
			if !info.CreationTime.Equal(tt.wantCreated) {
				t.Errorf("CreationTime = %v, want %v", info.CreationTime, tt.wantCreated)
			}
		})
	}
}

func TestParseMissingFields(t *testing.T) {
	info, err := Parse([]byte(`{"streams":[{"codec_type":"audio"}],"format":{"duration":"N/A"}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if info.Duration != nil || info.Width != nil || info.Height != nil {
		t.Errorf("Parse() = %+v, want all metadata omitted", info)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Error("Parse(invalid) should fail")
	}
}
