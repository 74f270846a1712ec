package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config is the user's global configuration (~/.visadesk/config.json).
type Config struct {
	// APIURL is the backend base URL, e.g. "https://agency.example/api".
	APIURL string `json:"apiUrl,omitempty"`

	// Token is the bearer token of the current session. Logout clears it.
	Token string `json:"token,omitempty"`

	// PageSize overrides the list page size.
	PageSize int `json:"pageSize,omitempty"`

	// RegistryOverride is a YAML file that replaces option lists of the
	// built-in field registry.
	RegistryOverride string `json:"registryOverride,omitempty"`

	// ChunkSize is the number of groups rendered per batch in the TUI.
	ChunkSize int `json:"chunkSize,omitempty"`

	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Profile is the appearance profile id ("default", "contrast").
	Profile string `json:"profile,omitempty"`
	// RenderNotes renders large-text fields as markdown in read mode.
	RenderNotes *bool `json:"renderNotes,omitempty"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.visadesk).
	if v := strings.TrimSpace(os.Getenv("VISADESK_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".visadesk"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig reads config.json. A missing file yields an empty config.
func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// The token is a credential.
	return writeFileAtomic(path, b, 0o600)
}

// ClearToken drops the stored session token, keeping everything else.
func ClearToken() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Token == "" {
		return nil
	}
	cfg.Token = ""
	return SaveConfig(cfg)
}
