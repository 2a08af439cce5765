package cli

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// duration lets TOML carry values like "250ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// config is the serve command's file-configurable surface. Flags override
// file values; the file is optional.
type config struct {
	Addr      string   `toml:"addr"`
	Title     string   `toml:"title"`
	Manifests []string `toml:"manifests"`
	Interval  duration `toml:"interval"`
	Points    int      `toml:"points"`
}

func defaultConfig() config {
	return config{
		Addr:     "localhost:8080",
		Title:    "htmlwidgets",
		Interval: duration{250 * time.Millisecond},
		Points:   60,
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load config: unknown keys %v", undecoded)
	}
	return cfg, nil
}
