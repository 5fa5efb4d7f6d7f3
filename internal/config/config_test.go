package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFileIsEmptyConfig(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.DefaultRegion != "" || len(cfg.Presets) != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadFromParsesPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	contents := `
default_region: us-east-1
default_limit: 50
presets:
  prod:
    description: Production
    groups: [app/prod]
    exclude: [health-check]
    limit: 200
  web:
    source: ssh
    deploy_file: config/deploy.yml
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.DefaultRegion != "us-east-1" || cfg.DefaultLimit != 50 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	prod, ok := cfg.Preset("prod")
	if !ok {
		t.Fatalf("expected prod preset")
	}
	if prod.Limit != 200 || len(prod.Exclude) != 1 {
		t.Fatalf("unexpected preset: %+v", prod)
	}

	web, ok := cfg.Preset("web")
	if !ok || web.Source != "ssh" || web.DeployFile != "config/deploy.yml" {
		t.Fatalf("unexpected ssh preset: %+v", web)
	}

	names := cfg.PresetNames()
	if len(names) != 2 || names[0] != "prod" || names[1] != "web" {
		t.Fatalf("unexpected preset names: %v", names)
	}
}

func TestLoadFromInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("presets: [not: a: map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(Sample()), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("sample config failed to parse: %v", err)
	}
	if _, ok := cfg.Preset("prod"); !ok {
		t.Fatalf("expected sample to define prod preset")
	}
}
