package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vistoria.yaml")
	content := `service_url: http://files.example
device: mobile
timeout: 5s
soft_payload_limit_mb: 10
throttle: 0s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VISTORIA_SERVICE_URL", "http://env.example")
	t.Setenv("VISTORIA_LISTEN", ":9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"env wins over file", cfg.ServiceURL, "http://env.example"},
		{"file device", cfg.Device, "mobile"},
		{"file timeout", cfg.Timeout, 5 * time.Second},
		{"file throttle", cfg.Throttle, time.Duration(0)},
		{"env listen", cfg.Listen, ":9999"},
		{"default journal", cfg.JournalPath, "vistoria.db"},
		{"soft limit bytes", cfg.SoftPayloadLimit(), int64(10 << 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, tt.got)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("timeout: -1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for negative timeout")
	}

	t.Setenv("VISTORIA_VALIDATE_PDF", "maybe")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for unparsable VISTORIA_VALIDATE_PDF")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Device = "desktop"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Device != "desktop" {
		t.Errorf("Expected desktop, got %s", got.Device)
	}
}
