// Package config loads the adapter's YAML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that points at a config file.
const EnvPath = "RETROBACKEND_CONFIG"

//go:embed defaults/config.yml
var defaultYAML []byte

// Config holds adapter settings. It never affects emulation.
type Config struct {
	LogLevel       string            `yaml:"log_level"`
	AudioCapture   string            `yaml:"audio_capture"`
	RDBPath        string            `yaml:"rdb_path"`
	MaxContentSize int               `yaml:"max_content_size"`
	Options        map[string]string `yaml:"options"`
}

// Default returns the built in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Options:  map[string]string{},
	}
}

// Load reads the configuration.
// Search order: $RETROBACKEND_CONFIG -> <systemDir>/<coreName>.yml -> embedded default
//
// The returned source is the file that was used, or "default".
func Load(systemDir, coreName string) (Config, string, error) {
	if custom := os.Getenv(EnvPath); custom != "" {
		cfg, err := loadFile(custom)
		if err != nil {
			return Default(), "default", err
		}
		return cfg, custom, nil
	}

	if systemDir != "" && coreName != "" {
		path := filepath.Join(systemDir, coreName+".yml")
		cfg, err := loadFile(path)
		switch {
		case err == nil:
			return cfg, path, nil
		case !errors.Is(err, fs.ErrNotExist):
			return Default(), "default", err
		}
	}

	cfg := Default()
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return Default(), "default", nil // Fallback to hardcoded if embed fails
	}
	return cfg.normalize(), "default", nil
}

func loadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg.normalize(), nil
}

func (c Config) normalize() Config {
	if c.Options == nil {
		c.Options = map[string]string{}
	}
	if c.MaxContentSize < 0 {
		c.MaxContentSize = 0
	}
	return c
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// RDBDir returns the directory holding game databases.
func (c Config) RDBDir(systemDir string) string {
	if c.RDBPath != "" {
		return c.RDBPath
	}
	if systemDir == "" {
		return ""
	}
	return filepath.Join(systemDir, "rdb")
}

// Validate reports settings that cannot be honoured.
func (c Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if c.AudioCapture != "" {
		dir := filepath.Dir(c.AudioCapture)
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			return fmt.Errorf("audio_capture: directory %s does not exist", dir)
		}
	}
	return nil
}
