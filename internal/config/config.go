package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the console configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	// Base URLs of the backend services
	Services struct {
		AuthURL        string `yaml:"auth_url"`
		UtilsURL       string `yaml:"utils_url"`
		FlaskURL       string `yaml:"flask_url"`
		DiarizationURL string `yaml:"diarization_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"services"`

	Session struct {
		TokenFile string `yaml:"token_file"`
	} `yaml:"session"`

	Editor struct {
		AutosaveSeconds      int `yaml:"autosave_seconds"`
		SavedDisplayMillis   int `yaml:"saved_display_ms"`
		RenameDebounceMillis int `yaml:"rename_debounce_ms"`
	} `yaml:"editor"`

	Library struct {
		RowHeight      int `yaml:"row_height"`
		ViewportHeight int `yaml:"viewport_height"`
	} `yaml:"library"`

	Workers struct {
		Count           int  `yaml:"count"`
		NormalizeAudio  bool `yaml:"normalize_audio"`
		PollIntervalSec int  `yaml:"poll_interval_seconds"`
	} `yaml:"workers"`

	Storage struct {
		TempDir   string `yaml:"temp_dir"`
		OutputDir string `yaml:"output_dir"`
		Database  string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes    int `yaml:"interval_minutes"`
		MaxAgeHours        int `yaml:"max_age_hours"`
		SessionIdleMinutes int `yaml:"session_idle_minutes"`
	} `yaml:"cleanup"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"services.auth_url":        "AUTH_API_URL",
	"services.utils_url":       "UTILS_API_URL",
	"services.flask_url":       "FLASK_API_URL",
	"services.diarization_url": "DIARIZATION_API_URL",
	"session.token_file":       "CONSOLE_TOKEN_FILE",
	"storage.database":         "CONSOLE_DATABASE",
	"log.level":                "CONSOLE_LOG_LEVEL",
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the YAML file at path (a missing file yields defaults), then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	set := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = strings.TrimSpace(v.GetString(key))
		}
	}
	set("services.auth_url", &c.Services.AuthURL)
	set("services.utils_url", &c.Services.UtilsURL)
	set("services.flask_url", &c.Services.FlaskURL)
	set("services.diarization_url", &c.Services.DiarizationURL)
	set("session.token_file", &c.Session.TokenFile)
	set("storage.database", &c.Storage.Database)
	set("log.level", &c.Log.Level)
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8787
	}
	if c.Services.TimeoutSeconds == 0 {
		c.Services.TimeoutSeconds = 30
	}
	// Transcriptions are served by the utils backend unless a diarization host is configured.
	if c.Services.DiarizationURL == "" {
		c.Services.DiarizationURL = c.Services.UtilsURL
	}
	if c.Session.TokenFile == "" {
		c.Session.TokenFile = "data/session.json"
	}
	if c.Editor.AutosaveSeconds == 0 {
		c.Editor.AutosaveSeconds = 30
	}
	if c.Editor.SavedDisplayMillis == 0 {
		c.Editor.SavedDisplayMillis = 2000
	}
	if c.Editor.RenameDebounceMillis == 0 {
		c.Editor.RenameDebounceMillis = 1000
	}
	if c.Library.RowHeight == 0 {
		c.Library.RowHeight = 56
	}
	if c.Library.ViewportHeight == 0 {
		c.Library.ViewportHeight = 900
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 2
	}
	if c.Workers.PollIntervalSec == 0 {
		c.Workers.PollIntervalSec = 2
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "outputs"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "data/console.db"
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 10
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 24
	}
	if c.Cleanup.SessionIdleMinutes == 0 {
		c.Cleanup.SessionIdleMinutes = 60
	}
	if c.GoogleDrive.CredentialsFile == "" {
		c.GoogleDrive.CredentialsFile = "credentials.json"
	}
	if c.GoogleDrive.TokenFile == "" {
		c.GoogleDrive.TokenFile = "data/gdrive_token.json"
	}
	if c.GoogleDrive.FolderName == "" {
		c.GoogleDrive.FolderName = "Transcripts"
	}
	if c.Limits.MaxFileSizeMB == 0 {
		c.Limits.MaxFileSizeMB = 500
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.Services.AuthURL == "" {
		return fmt.Errorf("services.auth_url is required (or set AUTH_API_URL)")
	}
	if c.Services.DiarizationURL == "" {
		return fmt.Errorf("services.diarization_url or services.utils_url is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// Address is the listen address of the console server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Services.TimeoutSeconds) * time.Second
}

func (c *Config) AutosaveInterval() time.Duration {
	return time.Duration(c.Editor.AutosaveSeconds) * time.Second
}

func (c *Config) SavedDisplayDelay() time.Duration {
	return time.Duration(c.Editor.SavedDisplayMillis) * time.Millisecond
}

func (c *Config) RenameDebounce() time.Duration {
	return time.Duration(c.Editor.RenameDebounceMillis) * time.Millisecond
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.Cleanup.SessionIdleMinutes) * time.Minute
}
