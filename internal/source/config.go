package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	skerrors "github.com/jmurray2011/skein/internal/errors"
)

// Config is the aliases file, ~/.skein/config.yaml.
type Config struct {
	Sources       map[string]SourceAlias `yaml:"sources"`
	DefaultSource string                 `yaml:"default_source,omitempty"`
}

// SourceAlias names a source URI together with the view identity it
// should open with.
type SourceAlias struct {
	URI        string            `yaml:"uri"`
	Service    string            `yaml:"service,omitempty"`
	Deployment string            `yaml:"deployment,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"` // e.g. Cookie for session auth
}

// Names returns the alias names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the alias called name, without its @ prefix.
func (c *Config) Lookup(name string) (SourceAlias, error) {
	alias, ok := c.Sources[name]
	if !ok {
		return SourceAlias{}, skerrors.SourceNotFoundError(name, c.Names())
	}
	return alias, nil
}

// SetAlias adds or replaces an alias.
func (c *Config) SetAlias(name string, alias SourceAlias) error {
	name = strings.TrimPrefix(name, "@")
	if name == "" || strings.ContainsAny(name, " /@") {
		return fmt.Errorf("invalid alias name %q", name)
	}
	if alias.URI == "" {
		return fmt.Errorf("alias %q has no uri", name)
	}
	if c.Sources == nil {
		c.Sources = make(map[string]SourceAlias)
	}
	c.Sources[name] = alias
	return nil
}

// RemoveAlias deletes an alias and clears default_source if it pointed
// at it.
func (c *Config) RemoveAlias(name string) error {
	name = strings.TrimPrefix(name, "@")
	if _, err := c.Lookup(name); err != nil {
		return err
	}
	delete(c.Sources, name)
	if c.DefaultSource == name {
		c.DefaultSource = ""
	}
	return nil
}

// configPathOverride lets tests point the loader at a temporary file.
var configPathOverride string

// ConfigPath returns the path of the aliases file.
func ConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".skein", "config.yaml")
}

// LoadConfig reads the aliases file. A missing file yields an empty config.
func LoadConfig() (*Config, error) {
	cfg := &Config{Sources: make(map[string]SourceAlias)}

	path := ConfigPath()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]SourceAlias)
	}
	if cfg.DefaultSource != "" {
		if _, ok := cfg.Sources[cfg.DefaultSource]; !ok {
			return nil, fmt.Errorf("%s: default_source %q is not a configured alias", path, cfg.DefaultSource)
		}
	}
	return cfg, nil
}

// SaveConfig writes cfg to the aliases file, creating ~/.skein if needed.
func SaveConfig(cfg *Config) error {
	path := ConfigPath()
	if path == "" {
		return fs.ErrNotExist
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
