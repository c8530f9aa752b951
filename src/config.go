package pawmedia

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the config file under ~/.paw
const ConfigFileName = "pawmedia.toml"

// fileConfig mirrors the TOML layout. Pointers tell "absent" from zero.
type fileConfig struct {
	Debug         *bool    `toml:"debug"`
	LogCategories []string `toml:"log_categories"`

	Video struct {
		Backend      *string `toml:"backend"`
		PollInterval *string `toml:"poll_interval"`
		QueueSize    *int    `toml:"queue_size"`
		LegacyPixels *bool   `toml:"legacy_pixels"`
	} `toml:"video"`

	Audio struct {
		Device     *string `toml:"device"`
		SampleRate *int    `toml:"sample_rate"`
		BufferSize *int    `toml:"buffer_size"`
	} `toml:"audio"`
}

// DefaultConfigPath returns ~/.paw/pawmedia.toml, or "" without a home
// directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".paw", ConfigFileName)
}

// LoadConfigFile returns DefaultConfig overlaid with the settings in the
// TOML file at path. A missing file is not an error.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	err := cfg.ApplyFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	return cfg, err
}

// ApplyFile overlays the settings present in a TOML file onto c.
func (c *Config) ApplyFile(path string) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	return c.apply(&fc)
}

func (c *Config) apply(fc *fileConfig) error {
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	for _, name := range fc.LogCategories {
		cat, ok := ParseLogCategory(name)
		if !ok {
			return fmt.Errorf("unknown log category %q", name)
		}
		c.LogCategories = append(c.LogCategories, cat)
	}

	v := &fc.Video
	if v.Backend != nil {
		switch *v.Backend {
		case "auto", "tcell", "headless":
			c.Backend = *v.Backend
		default:
			return fmt.Errorf("video.backend: unknown backend %q", *v.Backend)
		}
	}
	if v.PollInterval != nil {
		d, err := time.ParseDuration(*v.PollInterval)
		if err != nil {
			return fmt.Errorf("video.poll_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("video.poll_interval: must be positive")
		}
		c.PollInterval = d
	}
	if v.QueueSize != nil {
		if *v.QueueSize <= 0 {
			return fmt.Errorf("video.queue_size: must be positive")
		}
		c.EventQueueSize = *v.QueueSize
	}
	if v.LegacyPixels != nil {
		c.LegacyPixelQuirks = *v.LegacyPixels
	}

	a := &fc.Audio
	if a.Device != nil {
		switch *a.Device {
		case "speaker", "none":
			c.AudioDevice = *a.Device
		default:
			return fmt.Errorf("audio.device: unknown device %q", *a.Device)
		}
	}
	if a.SampleRate != nil {
		c.AudioSampleRate = *a.SampleRate
	}
	if a.BufferSize != nil {
		c.AudioBufferSize = *a.BufferSize
	}
	return nil
}
