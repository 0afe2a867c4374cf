// Package config holds the application context shared by the command line
// tools: output conventions and defaults for newly created images.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Settings is passed explicitly to every command.
type Settings struct {
	// EscapeChar prefixes non-printable bytes in listings and type output.
	EscapeChar string `yaml:"escape_char"`
	// Density is the default density of created floppy images ("SD" or "DD").
	Density string `yaml:"density"`
	Sides   int    `yaml:"sides"`
	Tracks  int    `yaml:"tracks"`
	// LogLevel is a zap level name.
	LogLevel string `yaml:"log_level"`
	// ListFormat selects the dir output columns: "long" or "short".
	ListFormat string `yaml:"list_format"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		EscapeChar: "\\",
		Density:    "DD",
		Sides:      2,
		Tracks:     40,
		LogLevel:   "warn",
		ListFormat: "long",
	}
}

// DefaultPath is the settings file looked up when none is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tidisk.yaml"
	}
	return filepath.Join(home, ".config", "tidisk", "config.yaml")
}

// Load reads the settings file at path. A missing file yields the defaults;
// keys absent from the file keep their default values.
func Load(fs afero.Fs, path string) (*Settings, error) {
	s := Default()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes the settings as YAML, creating the parent directory.
func (s *Settings) Save(fs afero.Fs, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return afero.WriteFile(fs, path, data, 0644)
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	switch s.Density {
	case "SD", "DD":
	default:
		return fmt.Errorf("config: density must be SD or DD, got %q", s.Density)
	}
	if s.Sides != 1 && s.Sides != 2 {
		return fmt.Errorf("config: sides must be 1 or 2, got %d", s.Sides)
	}
	if s.Tracks != 40 && s.Tracks != 80 {
		return fmt.Errorf("config: tracks must be 40 or 80, got %d", s.Tracks)
	}
	if len(s.EscapeChar) != 1 {
		return fmt.Errorf("config: escape_char must be a single character")
	}
	switch s.ListFormat {
	case "long", "short":
	default:
		return fmt.Errorf("config: list_format must be long or short, got %q", s.ListFormat)
	}
	return nil
}

// BindFlags registers persistent overrides for the settings on a flag set.
func (s *Settings) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&s.LogLevel, "log-level", s.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&s.EscapeChar, "escape", s.EscapeChar, "escape character for non-printable bytes")
}
