package tracing

import (
	"context"
	"testing"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "test")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error = %v", err)
	}
}

func TestExporterOptions(t *testing.T) {
	tests := []struct {
		endpoint string
		wantOpts int
		wantErr  bool
	}{
		{"http://collector:4318", 2, false},
		{"https://collector:4318", 1, false},
		{"https://collector:4318/custom/traces", 2, false},
		{"http://collector:4318/custom/traces", 3, false},
		{"grpc://collector:4317", 0, true},
		{"collector", 0, true},
		{"://", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			opts, err := exporterOptions(tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("exporterOptions(%q) error = %v, wantErr %v", tt.endpoint, err, tt.wantErr)
			}
			if len(opts) != tt.wantOpts {
				t.Errorf("exporterOptions(%q) = %d options, want %d", tt.endpoint, len(opts), tt.wantOpts)
			}
		})
	}
}

func TestSetupRejectsBadEndpoint(t *testing.T) {
	if _, err := Setup(context.Background(), "ftp://collector", "test"); err == nil {
		t.Error("Setup() with unsupported scheme should fail")
	}
}
