package pawmedia

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
debug = true
log_categories = ["video", "event"]

[video]
backend = "headless"
poll_interval = "25ms"
queue_size = 16
legacy_pixels = true

[audio]
device = "none"
sample_rate = 22050
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug || cfg.Backend != "headless" || !cfg.LegacyPixelQuirks {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.PollInterval != 25*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.EventQueueSize != 16 {
		t.Errorf("EventQueueSize = %d", cfg.EventQueueSize)
	}
	if cfg.AudioDevice != "none" || cfg.AudioSampleRate != 22050 {
		t.Errorf("audio = %q %d", cfg.AudioDevice, cfg.AudioSampleRate)
	}
	if cfg.AudioBufferSize != DefaultConfig().AudioBufferSize {
		t.Errorf("absent key changed AudioBufferSize to %d", cfg.AudioBufferSize)
	}
	if len(cfg.LogCategories) != 2 || cfg.LogCategories[0] != CatVideo || cfg.LogCategories[1] != CatEvent {
		t.Errorf("LogCategories = %v", cfg.LogCategories)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if cfg.Backend != "auto" {
		t.Errorf("Backend = %q, want the default", cfg.Backend)
	}

	if _, err := LoadConfigFile(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "debug = ", "config"},
		{"unknown key", "[video]\ncolour = 1\n", `unknown key "video.colour"`},
		{"backend", "[video]\nbackend = \"sdl\"\n", "unknown backend"},
		{"poll interval", "[video]\npoll_interval = \"soon\"\n", "poll_interval"},
		{"negative poll", "[video]\npoll_interval = \"-1s\"\n", "must be positive"},
		{"queue size", "[video]\nqueue_size = 0\n", "queue_size"},
		{"device", "[audio]\ndevice = \"alsa\"\n", "unknown device"},
		{"category", "log_categories = [\"graphics\"]\n", `unknown log category "graphics"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFile(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	if got := DefaultConfigPath(); got != filepath.Join("/home/tester", ".paw", ConfigFileName) {
		t.Errorf("DefaultConfigPath = %q", got)
	}
}
