package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".opguard"
	DefaultConfigFile = "config.yaml"
	DefaultRulesDir   = "rules"
	DefaultLogFile    = "audit.jsonl"
)

// Log formats for process logging.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var ErrInvalidLogFormat = errors.New("log format must be text or json")

type Config struct {
	ConfigDir string

	// RulesDir holds manifest.yaml and patterns/. When it does not exist
	// the embedded rule set is used.
	RulesDir  string
	LogPath   string
	LogFormat string

	// Audit enables the JSONL audit file.
	Audit bool

	// BulkThreshold overrides the heuristic batch limit when positive.
	BulkThreshold int
}

// Overrides are command-line values; empty fields keep the file or
// default value.
type Overrides struct {
	ConfigPath string
	RulesDir   string
	LogPath    string
	LogFormat  string
}

// fileConfig is the on-disk form of config.yaml.
type fileConfig struct {
	RulesDir      string `yaml:"rules_dir"`
	LogPath       string `yaml:"log_path"`
	LogFormat     string `yaml:"log_format"`
	Audit         *bool  `yaml:"audit"`
	BulkThreshold int    `yaml:"bulk_threshold"`
}

// Load resolves configuration as defaults, then config.yaml, then flags.
func Load(o Overrides) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return load(filepath.Join(homeDir, DefaultConfigDir), o)
}

func load(configDir string, o Overrides) (*Config, error) {
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigDir: configDir,
		RulesDir:  filepath.Join(configDir, DefaultRulesDir),
		LogPath:   filepath.Join(configDir, DefaultLogFile),
		LogFormat: LogFormatText,
		Audit:     true,
	}

	path := o.ConfigPath
	explicit := path != ""
	if !explicit {
		path = filepath.Join(configDir, DefaultConfigFile)
	}
	if err := cfg.applyFile(path, explicit); err != nil {
		return nil, err
	}

	if o.RulesDir != "" {
		cfg.RulesDir = o.RulesDir
	}
	if o.LogPath != "" {
		cfg.LogPath = o.LogPath
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != LogFormatText && cfg.LogFormat != LogFormatJSON {
		return nil, fmt.Errorf("%q: %w", cfg.LogFormat, ErrInvalidLogFormat)
	}
	return cfg, nil
}

// applyFile merges config.yaml into cfg. A missing default file is fine;
// a missing file named on the command line is not.
func (cfg *Config) applyFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if fc.RulesDir != "" {
		cfg.RulesDir = expandHome(fc.RulesDir, filepath.Dir(cfg.ConfigDir))
	}
	if fc.LogPath != "" {
		cfg.LogPath = expandHome(fc.LogPath, filepath.Dir(cfg.ConfigDir))
	}
	if fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if fc.Audit != nil {
		cfg.Audit = *fc.Audit
	}
	if fc.BulkThreshold > 0 {
		cfg.BulkThreshold = fc.BulkThreshold
	}
	return nil
}

func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
