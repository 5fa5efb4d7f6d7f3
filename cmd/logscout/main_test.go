package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"logscout/internal/config"
)

func TestResolveParamsDefaults(t *testing.T) {
	cfg := &config.Config{}
	p, err := resolveParams(cfg, searchParams{patterns: []string{"ERROR"}}, "")
	if err != nil {
		t.Fatalf("resolveParams failed: %v", err)
	}
	if p.last != "1h" {
		t.Fatalf("expected default time range 1h, got %q", p.last)
	}
	if p.limit != 100 {
		t.Fatalf("expected default limit 100, got %d", p.limit)
	}
	if p.source != sourceCloudwatch {
		t.Fatalf("expected default source cloudwatch, got %q", p.source)
	}
}

func TestResolveParamsConfigDefaults(t *testing.T) {
	cfg := &config.Config{
		DefaultGroups:    []string{"app/production"},
		DefaultTimeRange: "6h",
		DefaultLimit:     250,
	}
	p, err := resolveParams(cfg, searchParams{}, "")
	if err != nil {
		t.Fatalf("resolveParams failed: %v", err)
	}
	if len(p.groups) != 1 || p.groups[0] != "app/production" {
		t.Fatalf("expected config default groups, got %v", p.groups)
	}
	if p.last != "6h" {
		t.Fatalf("expected config default time range, got %q", p.last)
	}
	if p.limit != 250 {
		t.Fatalf("expected config default limit, got %d", p.limit)
	}
}

func TestResolveParamsPresetMerge(t *testing.T) {
	cfg := &config.Config{
		Presets: map[string]config.Preset{
			"prod": {
				Groups:    []string{"app/prod", "worker/prod"},
				Patterns:  []string{"ERROR"},
				Exclude:   []string{"health-check"},
				TimeRange: "2h",
				Limit:     500,
			},
		},
	}
	p, err := resolveParams(cfg, searchParams{patterns: []string{"timeout"}, exclude: []string{"ping"}}, "prod")
	if err != nil {
		t.Fatalf("resolveParams failed: %v", err)
	}
	if got := strings.Join(p.patterns, ","); got != "ERROR,timeout" {
		t.Fatalf("preset patterns should precede flag patterns, got %q", got)
	}
	if got := strings.Join(p.exclude, ","); got != "health-check,ping" {
		t.Fatalf("preset excludes should merge with flag excludes, got %q", got)
	}
	if len(p.groups) != 2 {
		t.Fatalf("expected preset groups, got %v", p.groups)
	}
	if p.last != "2h" || p.limit != 500 {
		t.Fatalf("expected preset time range and limit, got last=%q limit=%d", p.last, p.limit)
	}
}

func TestResolveParamsExplicitGroupsWinOverPreset(t *testing.T) {
	cfg := &config.Config{
		Presets: map[string]config.Preset{
			"prod": {Groups: []string{"app/prod"}},
		},
	}
	p, err := resolveParams(cfg, searchParams{groups: []string{"other/group"}}, "prod")
	if err != nil {
		t.Fatalf("resolveParams failed: %v", err)
	}
	if len(p.groups) != 1 || p.groups[0] != "other/group" {
		t.Fatalf("explicit groups should override preset, got %v", p.groups)
	}
}

func TestResolveParamsUnknownPreset(t *testing.T) {
	cfg := &config.Config{
		Presets: map[string]config.Preset{"prod": {}},
	}
	if _, err := resolveParams(cfg, searchParams{}, "staging"); err == nil {
		t.Fatal("expected error for unknown preset")
	} else if !strings.Contains(err.Error(), "prod") {
		t.Fatalf("error should list available presets: %v", err)
	}
}

func TestResolveParamsSSHPreset(t *testing.T) {
	cfg := &config.Config{
		Presets: map[string]config.Preset{
			"web": {Source: "ssh", DeployFile: "config/deploy.production.yml"},
		},
	}
	p, err := resolveParams(cfg, searchParams{}, "web")
	if err != nil {
		t.Fatalf("resolveParams failed: %v", err)
	}
	if p.source != sourceSSH {
		t.Fatalf("expected ssh source from preset, got %q", p.source)
	}
	if p.deployFile != "config/deploy.production.yml" {
		t.Fatalf("expected preset deploy file, got %q", p.deployFile)
	}
}

func TestSearchParamsTimeRangeRelative(t *testing.T) {
	p := searchParams{last: "2h"}
	window, err := p.timeRange()
	if err != nil {
		t.Fatalf("timeRange failed: %v", err)
	}
	span := window.End.Sub(window.Start)
	if span < time.Hour*2-time.Minute || span > time.Hour*2+time.Minute {
		t.Fatalf("expected ~2h window, got %v", span)
	}
}

func TestSearchParamsTimeRangeExplicit(t *testing.T) {
	p := searchParams{last: "1h", start: "2024-01-15 10:00", end: "2024-01-15 12:00"}
	window, err := p.timeRange()
	if err != nil {
		t.Fatalf("timeRange failed: %v", err)
	}
	if got := window.End.Sub(window.Start); got != 2*time.Hour {
		t.Fatalf("explicit range should win over --last, got %v", got)
	}
}

func TestSearchCommandRequiresPattern(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := newSearchCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("search without patterns or preset should fail")
	}
}

func TestSearchCommandRejectsBadOutputMode(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := newSearchCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"ERROR", "-o", "fancy"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown output mode")
	}
}

func TestConfigPathCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd := newConfigCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"path"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(buf.String()), ".logscout.yml") {
		t.Fatalf("unexpected config path output: %q", buf.String())
	}
}

func TestConfigInitCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cmd := newConfigCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"init"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	contents, err := os.ReadFile(filepath.Join(home, ".logscout.yml"))
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if !strings.Contains(string(contents), "presets:") {
		t.Fatalf("sample config missing presets section: %q", contents)
	}

	cmd = newConfigCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"init"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("second init should refuse to overwrite")
	}
}

func TestConfigPresetsCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	configYAML := `presets:
  prod:
    description: Production errors
    groups: [app/prod]
    exclude: [health-check]
  web:
    description: Web servers
    source: ssh
    deploy_file: config/deploy.yml
`
	if err := os.WriteFile(filepath.Join(home, ".logscout.yml"), []byte(configYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newConfigCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"presets"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config presets failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "prod [cloudwatch] Production errors") {
		t.Fatalf("missing cloudwatch preset line: %q", out)
	}
	if !strings.Contains(out, "web [ssh] Web servers") {
		t.Fatalf("missing ssh preset line: %q", out)
	}
	if !strings.Contains(out, "Deploy: config/deploy.yml") {
		t.Fatalf("missing deploy detail: %q", out)
	}
}
