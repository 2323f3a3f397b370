// Package config loads tasklist settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"

	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

const (
	defaultConfigPath = "~/.config/tasklist/config.toml"
	defaultDataDir    = "~/.local/share/tasklist"
	defaultAPIURL     = "http://localhost:8080/api"
	defaultTimeout    = 5 * time.Second
	logFileName       = "tasklist.log"
)

// Config is the resolved configuration.
type Config struct {
	Backend        string        `validate:"oneof=local remote"`
	Storage        string        `validate:"oneof=file sqlite memory"`
	DataDir        string        `validate:"required_unless=Storage memory"`
	APIURL         string        `validate:"required_if=Backend remote,omitempty,url"`
	RequestTimeout time.Duration `validate:"gt=0"`
	Log            Log
}

type Log struct {
	Level      string `validate:"oneof=debug info warn warning error fatal"`
	Format     string `validate:"oneof=text json logfmt"`
	File       string
	MaxSizeMB  int `validate:"gte=0"`
	MaxBackups int `validate:"gte=0"`
}

type rawConfig struct {
	Backend        string `toml:"backend"`
	Storage        string `toml:"storage"`
	DataDir        string `toml:"data_dir"`
	APIURL         string `toml:"api_url"`
	RequestTimeout string `toml:"request_timeout"`
	Log            struct {
		Level      string `toml:"level"`
		Format     string `toml:"format"`
		File       string `toml:"file"`
		MaxSizeMB  *int   `toml:"max_size_mb"`
		MaxBackups *int   `toml:"max_backups"`
	} `toml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	dataDir := mustExpand(defaultDataDir)
	return Config{
		Backend:        BackendLocal,
		Storage:        StorageFile,
		DataDir:        dataDir,
		APIURL:         defaultAPIURL,
		RequestTimeout: defaultTimeout,
		Log: Log{
			Level:      "info",
			Format:     "text",
			File:       filepath.Join(dataDir, logFileName),
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}
}

// Load reads the config file at path (the default location when empty),
// falling back to defaults when it does not exist, then applies TASKLIST_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.merge(data); err != nil {
			return Config{}, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	logFileSet := strings.TrimSpace(raw.Log.File) != ""

	setString(&c.Backend, strings.ToLower(raw.Backend))
	setString(&c.Storage, strings.ToLower(raw.Storage))
	if dir := strings.TrimSpace(raw.DataDir); dir != "" {
		c.DataDir = mustExpand(dir)
		if !logFileSet {
			c.Log.File = filepath.Join(c.DataDir, logFileName)
		}
	}
	setString(&c.APIURL, raw.APIURL)
	if t := strings.TrimSpace(raw.RequestTimeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("parse config: request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}

	setString(&c.Log.Level, strings.ToLower(raw.Log.Level))
	setString(&c.Log.Format, strings.ToLower(raw.Log.Format))
	if logFileSet {
		c.Log.File = expandLogFile(raw.Log.File)
	}
	if raw.Log.MaxSizeMB != nil {
		c.Log.MaxSizeMB = *raw.Log.MaxSizeMB
	}
	if raw.Log.MaxBackups != nil {
		c.Log.MaxBackups = *raw.Log.MaxBackups
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	setString(&c.Backend, strings.ToLower(get("TASKLIST_BACKEND")))
	setString(&c.Storage, strings.ToLower(get("TASKLIST_STORAGE")))
	c.setDataDir(get("TASKLIST_DATA_DIR"))
	setString(&c.APIURL, get("TASKLIST_API_URL"))
	setString(&c.Log.Level, strings.ToLower(get("TASKLIST_LOG_LEVEL")))
}

// Overrides holds command-line values. Empty fields leave the config as is.
type Overrides struct {
	Backend string
	Storage string
	DataDir string
	APIURL  string
}

// Apply layers command-line values over the file and environment. A new
// data dir is expanded and carries the default log file along with it.
func (c *Config) Apply(o Overrides) {
	setString(&c.Backend, strings.ToLower(o.Backend))
	setString(&c.Storage, strings.ToLower(o.Storage))
	c.setDataDir(o.DataDir)
	setString(&c.APIURL, o.APIURL)
}

func (c *Config) setDataDir(dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return
	}
	expanded := mustExpand(dir)
	if c.Log.File == filepath.Join(c.DataDir, logFileName) {
		c.Log.File = filepath.Join(expanded, logFileName)
	}
	c.DataDir = expanded
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enum fields and the API URL.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// StatePath returns the SQLite database path for the sqlite storage.
func (c Config) StatePath() string {
	return filepath.Join(c.DataDir, "tasklist.db")
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// expandLogFile maps "off", "none" and "-" to no log file.
func expandLogFile(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "off", "none", "-":
		return ""
	}
	return mustExpand(v)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
