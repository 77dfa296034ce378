// Package config loads the Vimeo credentials and local directory settings
// used by the processing pipeline.
//
// The credentials file is parsed with yaml.v3; since JSON is a subset of
// YAML, config files written for the legacy workflow (plain JSON) load
// unchanged. Environment variables take precedence over file values so
// credentials can be kept out of the file entirely.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable overrides applied after the file is read.
const (
	EnvAccessToken  = "VIMEO_ACCESS_TOKEN"
	EnvClientID     = "VIMEO_CLIENT_ID"
	EnvClientSecret = "VIMEO_CLIENT_SECRET"
	EnvVideosDir    = "UPLOADER_VIDEOS_DIR"
)

// VimeoConfig holds the token/key/secret triple used to authenticate
// against the Vimeo API. Immutable after load.
type VimeoConfig struct {
	AccessToken  string `yaml:"access_token"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// DirectoryConfig holds the local filesystem layout. VideosDir is the base
// directory under which one working folder per video is created.
type DirectoryConfig struct {
	VideosDir string `yaml:"videos_dir"`
}

// ConfigError describes a configuration load or validation failure.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadVimeoConfig reads the credentials file at path and returns a
// validated VimeoConfig. A best-effort .env load runs first so environment
// overrides work in development checkouts.
func LoadVimeoConfig(path string) (*VimeoConfig, error) {
	_ = godotenv.Load()

	cfg := &VimeoConfig{}
	if err := unmarshalFile(path, cfg); err != nil {
		return nil, err
	}

	cfg.AccessToken = envOrDefault(EnvAccessToken, cfg.AccessToken)
	cfg.ClientID = envOrDefault(EnvClientID, cfg.ClientID)
	cfg.ClientSecret = envOrDefault(EnvClientSecret, cfg.ClientSecret)

	if cfg.AccessToken == "" {
		return nil, &ConfigError{Path: path, Reason: "access_token is required"}
	}
	if cfg.ClientID == "" {
		return nil, &ConfigError{Path: path, Reason: "client_id is required"}
	}
	if cfg.ClientSecret == "" {
		return nil, &ConfigError{Path: path, Reason: "client_secret is required"}
	}

	return cfg, nil
}

// LoadDirectoryConfig reads directory settings from path. The file may be
// the credentials file itself or a separate one; a missing videos_dir key
// falls back to a per-user default.
func LoadDirectoryConfig(path string) (*DirectoryConfig, error) {
	cfg := &DirectoryConfig{}
	if err := unmarshalFile(path, cfg); err != nil {
		return nil, err
	}

	cfg.VideosDir = envOrDefault(EnvVideosDir, cfg.VideosDir)

	if cfg.VideosDir == "" {
		cfg.VideosDir = DefaultVideosDir()
	}

	return cfg, nil
}

// DefaultVideosDir returns the fallback working directory base.
func DefaultVideosDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "videos"
	}
	return filepath.Join(home, "vimeo-uploader", "videos")
}

// Save writes the credentials to path, for the GUI's config export.
func (c *VimeoConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func unmarshalFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Path: path, Reason: "cannot read file", Err: err}
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return &ConfigError{Path: path, Reason: "malformed file", Err: err}
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
