// Package config loads gitstate settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/thiagokokada/gitstate/internal/git/conflict"
	"github.com/thiagokokada/gitstate/internal/watch"
)

const appName = "gitstate"

// Environment overrides, applied after the file.
const (
	EnvGit       = "GITSTATE_GIT"
	EnvMergeTool = "GITSTATE_MERGE_TOOL"
	EnvLogFile   = "GITSTATE_LOG_FILE"
)

var logLevels = []string{"debug", "info", "warn", "error"}

type Log struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Git             string        `yaml:"git"`
	MergeTool       string        `yaml:"merge_tool"`
	BinaryThreshold int64         `yaml:"binary_threshold"`
	ShowIgnored     bool          `yaml:"show_ignored"`
	LFS             bool          `yaml:"lfs"`
	WatchDelay      time.Duration `yaml:"watch_delay"`
	HighlightStyle  string        `yaml:"highlight_style"`
	Log             Log           `yaml:"log"`
}

func Default() Config {
	return Config{
		Git:             "git",
		BinaryThreshold: conflict.DefaultBinaryThreshold,
		LFS:             true,
		WatchDelay:      watch.DefaultDelay,
		HighlightStyle:  "monokai",
		Log: Log{
			Level:      "info",
			MaxSizeMB:  1,
			MaxBackups: 2,
			MaxAgeDays: 30,
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/gitstate/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// DefaultLogPath is where the log file goes when log.file is "default".
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, appName, appName+".log")
}

// Load reads path, or DefaultPath when empty. A missing default file gives
// the defaults; a missing explicit file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if cfg.Log.File == "default" {
		cfg.Log.File = DefaultLogPath()
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvGit); v != "" {
		c.Git = v
	}
	if v := os.Getenv(EnvMergeTool); v != "" {
		c.MergeTool = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.Log.File = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Git == "" {
		errs = append(errs, errors.New("git: must not be empty"))
	}
	if c.BinaryThreshold < 0 {
		errs = append(errs, fmt.Errorf("binary_threshold: must not be negative, got %d", c.BinaryThreshold))
	}
	if c.WatchDelay < 0 {
		errs = append(errs, fmt.Errorf("watch_delay: must not be negative, got %s", c.WatchDelay))
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log: rotation limits must not be negative"))
	}
	return errors.Join(errs...)
}
