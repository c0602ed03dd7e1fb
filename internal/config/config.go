// Package config loads and persists the agent's TOML configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all agent configuration.
type Config struct {
	Version       int                 `toml:"version"`
	Agent         AgentConfig         `toml:"agent"`
	Browser       BrowserConfig       `toml:"browser"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Report        ReportConfig        `toml:"report"`
	Email         EmailConfig         `toml:"email"`
}

type AgentConfig struct {
	ListenAddr string `toml:"listen_addr"`
	LogLevel   string `toml:"log_level"`
}

type BrowserConfig struct {
	Headless bool `toml:"headless"`
}

type TranscriptionConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

type ReportConfig struct {
	Enabled    bool   `toml:"enabled"`
	Time       string `toml:"time"` // "18:00"
	Timezone   string `toml:"timezone"`
	MaxEntries int    `toml:"max_entries"`
}

type EmailConfig struct {
	Provider string `toml:"provider"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Agent: AgentConfig{
			ListenAddr: "127.0.0.1:8777",
			LogLevel:   "info",
		},
		Browser: BrowserConfig{
			// Connect flows need a visible window for the user to log in.
			Headless: false,
		},
		Transcription: TranscriptionConfig{
			Enabled:  false,
			Endpoint: "http://localhost:8000/transcribe-video",
		},
		Report: ReportConfig{
			Enabled:    false,
			Time:       "18:00",
			Timezone:   "America/New_York",
			MaxEntries: 50,
		},
		Email: EmailConfig{
			Provider: "smtp",
			SMTPPort: 587,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "privai"), nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory holding the state database and cookie
// store.
func DataDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// Load reads config from disk.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
