// Package config loads the user configuration file: defaults applied
// when flags are omitted, plus named presets bundling groups, patterns
// and time ranges for quick access.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk user configuration, read from ~/.logscout.yml.
type Config struct {
	DefaultProfile   string            `yaml:"default_profile,omitempty"`
	DefaultRegion    string            `yaml:"default_region,omitempty"`
	DefaultGroups    []string          `yaml:"default_groups,omitempty"`
	DefaultTimeRange string            `yaml:"default_time_range,omitempty"`
	DefaultLimit     int               `yaml:"default_limit,omitempty"`
	Presets          map[string]Preset `yaml:"presets,omitempty"`
}

// Preset is a saved search configuration.
type Preset struct {
	Description string   `yaml:"description,omitempty"`
	Groups      []string `yaml:"groups,omitempty"`
	Patterns    []string `yaml:"patterns,omitempty"`
	Exclude     []string `yaml:"exclude,omitempty"`
	TimeRange   string   `yaml:"time_range,omitempty"`
	Limit       int      `yaml:"limit,omitempty"`
	// Source selects the backend: "cloudwatch" (default) or "ssh".
	Source string `yaml:"source,omitempty"`
	// DeployFile points at the deploy manifest for ssh presets.
	DeployFile string `yaml:"deploy_file,omitempty"`
}

// Load reads the config from the default path. A missing file yields an
// empty config, not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads the config from path.
func LoadFrom(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// DefaultPath returns the config file location in the user's home
// directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".logscout.yml")
}

// Preset returns the named preset.
func (c *Config) Preset(name string) (Preset, bool) {
	p, ok := c.Presets[name]
	return p, ok
}

// PresetNames returns the configured preset names sorted for stable
// display.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sample returns a commented starter configuration.
func Sample() string {
	return `# logscout configuration
# Place this file at ~/.logscout.yml

# Default credential profile (optional)
# default_profile: production

# Default region (optional)
# default_region: ap-northeast-1

# Default log groups when no --groups is given
default_groups: []

# Default time range
default_time_range: 1h

# Default result limit
default_limit: 100

# Presets for quick access: logscout search -p <name> "ERROR"
presets:
  prod:
    description: Production environment
    groups: [app/production, api/production]
    time_range: 1h
    limit: 200
  staging:
    description: Staging environment
    groups: [app/staging, api/staging]
    exclude: [health-check, ping]
  all-regions:
    description: Search across all regions
    groups:
      - us-east-1:app/prod
      - ap-northeast-1:app/prod
      - eu-west-1:app/prod
  web:
    description: Tail the web service over SSH
    source: ssh
    deploy_file: config/deploy.yml
`
}
