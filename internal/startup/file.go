package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the TOML configuration file. Pointer fields tell an
// explicit false apart from an absent key.
type fileConfig struct {
	MediaDir        string `toml:"media_dir"`
	DatabaseDir     string `toml:"database_dir"`
	Port            string `toml:"port"`
	PublicURL       string `toml:"public_url"`
	MetricsEnabled  *bool  `toml:"metrics_enabled"`
	LogStaticFiles  *bool  `toml:"log_static_files"`
	LogHealthChecks *bool  `toml:"log_health_checks"`

	Skins struct {
		Host       string `toml:"host"`
		CDNHost    string `toml:"cdn_host"`
		DefaultURL string `toml:"default_url"`
	} `toml:"skins"`

	Uploads struct {
		Workers int `toml:"workers"`
		MaxMB   int `toml:"max_mb"`
	} `toml:"uploads"`

	Library struct {
		ScanInterval string `toml:"scan_interval"`
	} `toml:"library"`
}

// loadFile reads path. An empty path yields an empty configuration; a
// named file that does not exist is an error.
func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fc, fmt.Errorf("config file %s does not exist", path)
		}
		return fc, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func (fileConfig) string(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func (fileConfig) bool(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func (fileConfig) int(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
