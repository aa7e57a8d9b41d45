package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// UserSettings is the CLI's persisted configuration. It is loaded once at
// startup and written back whenever a value changes.
type UserSettings struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Output   string        `yaml:"output,omitempty"`
}

// DefaultUserSettings returns the settings used when no file exists.
func DefaultUserSettings() *UserSettings {
	return &UserSettings{
		Endpoint: DefaultAnalysisEndpoint,
		Output:   "human",
	}
}

// DefaultUserSettingsPath returns $XDG_CONFIG_HOME/gitgrade/config.yaml or
// the platform equivalent.
func DefaultUserSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, "gitgrade", "config.yaml"), nil
}

// LoadUserSettings reads path. A missing file yields defaults.
func LoadUserSettings(path string) (*UserSettings, error) {
	s := DefaultUserSettings()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if s.Endpoint == "" {
		s.Endpoint = DefaultAnalysisEndpoint
	}
	if s.Output == "" {
		s.Output = "human"
	}
	return s, nil
}

// Save writes the settings to path with owner-only permissions since the
// file may hold an API key.
func (s *UserSettings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// UserSettingKeys lists the keys accepted by Set.
func UserSettingKeys() []string {
	keys := []string{"endpoint", "api_key", "timeout", "output"}
	sort.Strings(keys)
	return keys
}

// Set updates one setting from its string form.
func (s *UserSettings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "endpoint":
		if err := ValidateEndpoint(value); err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		s.Endpoint = value
	case "api_key":
		s.APIKey = value
	case "timeout":
		if value == "" {
			s.Timeout = 0
			return nil
		}
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("timeout: %q is not a valid duration", value)
		}
		s.Timeout = d
	case "output":
		switch value {
		case "human", "json", "yaml":
			s.Output = value
		default:
			return fmt.Errorf("output: must be one of human, json, yaml")
		}
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(UserSettingKeys(), ", "))
	}
	return nil
}

// MaskedAPIKey returns the API key with all but its last four characters
// hidden, for display.
func (s *UserSettings) MaskedAPIKey() string {
	return MaskSecret(s.APIKey)
}

// MaskSecret hides all but the last four characters of secret.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
