// Package deploy reads deployment manifests describing which hosts run
// a service. The format follows the common deploy.yml convention: a
// service name, a server list (flat, role-keyed, or role-keyed with
// options), an SSH user, and optional per-environment files layered over
// a base deploy.yml.
package deploy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the parsed deployment manifest.
type Config struct {
	Service string
	Servers []string
	SSHUser string
	// Destination is the environment name when loaded from a
	// deploy.<env>.yml file.
	Destination string
}

type rawConfig struct {
	Service string    `yaml:"service"`
	Servers yaml.Node `yaml:"servers"`
	SSH     struct {
		User string `yaml:"user"`
	} `yaml:"ssh"`
}

// roleConfig is the role form that nests hosts under options.
type roleConfig struct {
	Hosts []string `yaml:"hosts"`
}

// Load reads a deploy file. For deploy.<env>.yml files the base
// deploy.yml in the same directory is merged underneath, with the
// environment file taking precedence.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deploy config: %w", err)
	}

	var env rawConfig
	if err := yaml.Unmarshal(contents, &env); err != nil {
		return nil, fmt.Errorf("parse deploy config %s: %w", path, err)
	}

	filename := filepath.Base(path)
	isEnvFile := filename != "deploy.yml" &&
		strings.HasPrefix(filename, "deploy.") &&
		strings.HasSuffix(filename, ".yml")

	var destination string
	if isEnvFile {
		destination = strings.TrimSuffix(strings.TrimPrefix(filename, "deploy."), ".yml")

		basePath := filepath.Join(filepath.Dir(path), "deploy.yml")
		if baseContents, err := os.ReadFile(basePath); err == nil {
			var base rawConfig
			if err := yaml.Unmarshal(baseContents, &base); err != nil {
				return nil, fmt.Errorf("parse base deploy config %s: %w", basePath, err)
			}
			env = merge(env, base)
		}
	}

	return fromRaw(env, destination)
}

// Parse parses a deploy manifest from a YAML string.
func Parse(content string) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse deploy config: %w", err)
	}
	return fromRaw(raw, "")
}

// merge layers env over base; env fields win when present.
func merge(env, base rawConfig) rawConfig {
	if env.Service == "" {
		env.Service = base.Service
	}
	if env.Servers.IsZero() {
		env.Servers = base.Servers
	}
	if env.SSH.User == "" {
		env.SSH.User = base.SSH.User
	}
	return env
}

func fromRaw(raw rawConfig, destination string) (*Config, error) {
	if raw.Service == "" {
		return nil, errors.New("missing 'service' in deploy config")
	}
	if raw.Servers.IsZero() {
		return nil, errors.New("missing 'servers' in deploy config")
	}

	servers, err := decodeServers(&raw.Servers)
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, errors.New("no servers found in deploy config")
	}

	user := raw.SSH.User
	if user == "" {
		user = "root"
	}

	return &Config{
		Service:     raw.Service,
		Servers:     servers,
		SSHUser:     user,
		Destination: destination,
	}, nil
}

// decodeServers accepts the three server layouts: a flat host list, a
// role-to-hosts map, and a role-to-options map with a nested hosts list.
// The web role is listed first; duplicates across roles collapse.
func decodeServers(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.SequenceNode:
		var hosts []string
		if err := node.Decode(&hosts); err != nil {
			return nil, fmt.Errorf("parse servers list: %w", err)
		}
		return dedupe(hosts), nil

	case yaml.MappingNode:
		byRole := make(map[string][]string)
		var roles []string

		for i := 0; i+1 < len(node.Content); i += 2 {
			role := node.Content[i].Value
			value := node.Content[i+1]
			roles = append(roles, role)

			switch value.Kind {
			case yaml.SequenceNode:
				var hosts []string
				if err := value.Decode(&hosts); err != nil {
					return nil, fmt.Errorf("parse servers for role %s: %w", role, err)
				}
				byRole[role] = hosts
			case yaml.MappingNode:
				var rc roleConfig
				if err := value.Decode(&rc); err != nil {
					return nil, fmt.Errorf("parse servers for role %s: %w", role, err)
				}
				byRole[role] = rc.Hosts
			default:
				return nil, fmt.Errorf("unsupported servers value for role %s", role)
			}
		}

		var ordered []string
		ordered = append(ordered, byRole["web"]...)
		for _, role := range roles {
			if role != "web" {
				ordered = append(ordered, byRole[role]...)
			}
		}
		return dedupe(ordered), nil

	default:
		return nil, errors.New("unsupported 'servers' layout in deploy config")
	}
}

func dedupe(hosts []string) []string {
	seen := make(map[string]struct{}, len(hosts))
	out := hosts[:0]
	for _, h := range hosts {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
