package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	InputDir    string `toml:"input_dir"`
	OutputDir   string `toml:"output_dir"`
	OutputPath  string `toml:"output_path"`
	Workers     int    `toml:"workers"`
	ArchivePath string `toml:"archive_path"`
	Watch       *bool  `toml:"watch"`
	Debounce    string `toml:"debounce"`
	LogLevel    string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path,
// ~/.nndquant/config.toml, if the user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".nndquant", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("input", fc.InputDir, &cfg.InputDir)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("output", fc.OutputPath, &cfg.OutputPath)
	s.setString("archive", fc.ArchivePath, &cfg.ArchivePath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("workers", fc.Workers, &cfg.Workers)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	return s.setDuration("debounce", fc.Debounce, &cfg.Debounce)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
