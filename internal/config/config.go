// Package config implements the freedom configuration surface: the
// recognized settings table of spec.md §6, persisted as
// ~/.freedom/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// giB is 1 GiB in bytes, the built-in default page size.
const giB = 1 << 30

// Config represents the ~/.freedom/config.toml file. Every field mirrors
// one row of spec.md §6's recognized-settings table.
type Config struct {
	Root               string `toml:"root,omitempty" json:"root"`
	MDName             string `toml:"md_name,omitempty" json:"md_name"`
	MapperName         string `toml:"mapper_name,omitempty" json:"mapper_name"`
	DataPageSize       uint64 `toml:"data_pagesize,omitempty" json:"data_pagesize"`
	KeyCount           int    `toml:"key_count,omitempty" json:"key_count"`
	HeaderCount        int    `toml:"header_count,omitempty" json:"header_count"`
	KeyfileSize        uint64 `toml:"keyfile_size,omitempty" json:"keyfile_size"`
	KeySize            uint64 `toml:"key_size,omitempty" json:"key_size"`
	LUKSSectorSize     uint64 `toml:"luks_sector_size,omitempty" json:"luks_sector_size"`
	SafezoneContentURL string `toml:"safezone_content_url,omitempty" json:"safezone_content_url"`
}

// Defaults returns the built-in default configuration, per spec.md §6.
func Defaults() Config {
	return Config{
		Root:               "/.space",
		MDName:             "freedom",
		MapperName:         "freedom",
		DataPageSize:       giB,
		KeyCount:           5,
		HeaderCount:        5,
		KeyfileSize:        8192,
		KeySize:            512,
		LUKSSectorSize:     512,
		SafezoneContentURL: "https://cdn.kernel.org/pub/linux/kernel/v3.x/linux-3.19.8.tar.xz",
	}
}

// configDirOverride is set by the --config-dir flag or FREEDOM_HOME env var.
var configDirOverride string

// SetConfigDir allows the CLI to pass in the --config-dir value.
func SetConfigDir(dir string) {
	configDirOverride = dir
}

// StateHome returns the config directory path.
// Precedence: --config-dir flag / SetConfigDir > FREEDOM_HOME env > ~/.freedom
func StateHome() string {
	if configDirOverride != "" {
		return configDirOverride
	}
	if v := os.Getenv("FREEDOM_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".freedom")
	}
	return filepath.Join(home, ".freedom")
}

// ConfigPath returns the full path to config.toml.
func ConfigPath() string {
	return filepath.Join(StateHome(), "config.toml")
}

// EnsureDir creates the freedom home directory if it does not exist.
func EnsureDir() error {
	return os.MkdirAll(StateHome(), 0o755)
}

// Load reads config.toml layered over the built-in defaults, then
// layers FREEDOM_<KEY> environment overrides on top of that — the
// precedence chain of spec.md §6 is explicit flag > env var > file >
// built-in default, and flags are applied by callers after Load
// returns (e.g. root.go's --root). A missing file yields the defaults
// plus any env overrides.
func Load() (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			if err := applyEnvOverrides(&cfg); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides sets any field named by validKeys from its
// FREEDOM_<KEY> environment variable (key upper-cased, e.g.
// FREEDOM_DATA_PAGESIZE), when that variable is set.
func applyEnvOverrides(cfg *Config) error {
	for key := range validKeys {
		envName := "FREEDOM_" + strings.ToUpper(key)
		value, ok := os.LookupEnv(envName)
		if !ok {
			continue
		}
		if err := setField(cfg, key, value); err != nil {
			return fmt.Errorf("env %s: %w", envName, err)
		}
	}
	return nil
}

// Save writes the Config struct back to config.toml.
func Save(cfg *Config) error {
	if err := EnsureDir(); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o644)
}

// validKeys lists the keys that can be used with Get/Set.
var validKeys = map[string]bool{
	"root":                 true,
	"md_name":              true,
	"mapper_name":          true,
	"data_pagesize":        true,
	"key_count":            true,
	"header_count":         true,
	"keyfile_size":         true,
	"key_size":             true,
	"luks_sector_size":     true,
	"safezone_content_url": true,
}

// Get retrieves a single config value by key.
func Get(key string) (string, error) {
	if !validKeys[key] {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return getField(cfg, key)
}

// Set sets a single config value by key, reading the current stored
// value (not only the defaults) before writing it back.
func Set(key, value string) error {
	if !validKeys[key] {
		return fmt.Errorf("unknown config key: %s", key)
	}
	cfg, err := Load()
	if err != nil {
		return err
	}
	if err := setField(cfg, key, value); err != nil {
		return err
	}
	return Save(cfg)
}

func getField(cfg *Config, key string) (string, error) {
	switch key {
	case "root":
		return cfg.Root, nil
	case "md_name":
		return cfg.MDName, nil
	case "mapper_name":
		return cfg.MapperName, nil
	case "data_pagesize":
		return strconv.FormatUint(cfg.DataPageSize, 10), nil
	case "key_count":
		return strconv.Itoa(cfg.KeyCount), nil
	case "header_count":
		return strconv.Itoa(cfg.HeaderCount), nil
	case "keyfile_size":
		return strconv.FormatUint(cfg.KeyfileSize, 10), nil
	case "key_size":
		return strconv.FormatUint(cfg.KeySize, 10), nil
	case "luks_sector_size":
		return strconv.FormatUint(cfg.LUKSSectorSize, 10), nil
	case "safezone_content_url":
		return cfg.SafezoneContentURL, nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func setField(cfg *Config, key, value string) error {
	switch key {
	case "root":
		cfg.Root = value
	case "md_name":
		cfg.MDName = value
	case "mapper_name":
		cfg.MapperName = value
	case "data_pagesize":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		cfg.DataPageSize = v
	case "key_count":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		cfg.KeyCount = v
	case "header_count":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		cfg.HeaderCount = v
	case "keyfile_size":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		cfg.KeyfileSize = v
	case "key_size":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		cfg.KeySize = v
	case "luks_sector_size":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		cfg.LUKSSectorSize = v
	case "safezone_content_url":
		cfg.SafezoneContentURL = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
