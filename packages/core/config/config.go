// Package config loads restspec.yaml: runner defaults plus the
// environments section consumed by the variable resolver.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "1m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	DefaultEnvironment string                    `yaml:"defaultEnvironment,omitempty"`
	Timeout            Duration                  `yaml:"timeout,omitempty"`
	Retries            int                       `yaml:"retries,omitempty"`
	RetryDelay         Duration                  `yaml:"retryDelay,omitempty"`
	FollowRedirects    *bool                     `yaml:"followRedirects,omitempty"`
	MaxRedirects       int                       `yaml:"maxRedirects,omitempty"`
	ValidateSSL        *bool                     `yaml:"validateSSL,omitempty"`
	Proxy              string                    `yaml:"proxy,omitempty"`
	Headers            map[string]string         `yaml:"headers,omitempty"`
	Reporter           string                    `yaml:"reporter,omitempty"`
	HistoryPath        string                    `yaml:"historyPath,omitempty"`
	Parallel           *bool                     `yaml:"parallel,omitempty"`
	Concurrency        int                       `yaml:"concurrency,omitempty"`
	Bail               *bool                     `yaml:"bail,omitempty"`
	NoColor            *bool                     `yaml:"noColor,omitempty"`
	Environments       map[string]map[string]any `yaml:"environments,omitempty"`
}

// Filenames lists the config files searched for, in order.
var Filenames = []string{
	"restspec.yaml",
	"restspec.yml",
	".restspec.yaml",
}

func Default() *Config {
	return &Config{
		DefaultEnvironment: "dev",
		Timeout:            Duration(30 * time.Second),
		MaxRedirects:       10,
		Reporter:           "console",
	}
}

// Load reads the config at path, or searches the current directory when
// path is empty. A missing config is not an error; defaults apply.
func Load(path string) (*Config, error) {
	if path != "" {
		return loadFile(path)
	}
	return FindAndLoad(".")
}

// FindAndLoad searches dir for a config file and falls back to defaults.
func FindAndLoad(dir string) (*Config, error) {
	for _, name := range Filenames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return loadFile(p)
		}
	}
	return Default(), nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Environment returns the variable set for the named environment, or nil.
func (c *Config) Environment(name string) map[string]any {
	if c.Environments == nil {
		return nil
	}
	return c.Environments[name]
}

func getBool(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func (c *Config) GetFollowRedirects() bool { return getBool(c.FollowRedirects, true) }
func (c *Config) GetValidateSSL() bool     { return getBool(c.ValidateSSL, true) }
func (c *Config) GetParallel() bool        { return getBool(c.Parallel, false) }
func (c *Config) GetBail() bool            { return getBool(c.Bail, false) }
func (c *Config) GetNoColor() bool         { return getBool(c.NoColor, false) }
