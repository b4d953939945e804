package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SLIDEDECK_TEST_SET", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"${SLIDEDECK_TEST_SET}", "value"},
		{"${SLIDEDECK_TEST_SET:fallback}", "value"},
		{"${SLIDEDECK_TEST_UNSET:fallback}", "fallback"},
		{"${SLIDEDECK_TEST_UNSET:}", ""},
		{"${SLIDEDECK_TEST_UNSET}", "${SLIDEDECK_TEST_UNSET}"},
		{"url: ${SLIDEDECK_TEST_UNSET:http://localhost:8000}", "url: http://localhost:8000"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadDefaultsWithoutFiles(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.App.Name != "slidedeck-ai" {
		t.Errorf("App.Name = %q", cfg.App.Name)
	}
	if cfg.Server.HTTP.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr() = %q", cfg.Server.HTTP.Addr())
	}
	if cfg.Client.BaseURL != "http://localhost:8000" || cfg.Client.Timeout != 180*time.Second {
		t.Errorf("Client = %+v", cfg.Client)
	}
	if cfg.Registry.Driver != "memory" || cfg.Storage.Driver != "disk" {
		t.Errorf("drivers = %q/%q", cfg.Registry.Driver, cfg.Storage.Driver)
	}
	g := cfg.Generation
	if g.PromptMinChars != 3 || g.PromptMaxChars != 5000 || g.MinSlides != 1 || g.MaxSlides != 30 {
		t.Errorf("Generation = %+v", g)
	}
	if cfg.Security.RateLimit.Window != time.Minute {
		t.Errorf("RateLimit.Window = %v", cfg.Security.RateLimit.Window)
	}
}

func TestLoadMergesEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("SLIDEDECK_TEST_MODEL", "gpt-test")

	writeConfig(t, dir, "config.yaml", `
app:
  name: deck
llm:
  default_provider: openai
  providers:
    openai:
      kind: openai
      model: ${SLIDEDECK_TEST_MODEL:gpt-4o}
      timeout: 30s
generation:
  max_slides: 12
`)
	writeConfig(t, dir, "config.staging.yaml", `
app:
  env: staging
generation:
  max_slides: 8
`)

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.App.Name != "deck" || cfg.App.Env != "staging" {
		t.Errorf("App = %+v", cfg.App)
	}
	if cfg.Generation.MaxSlides != 8 {
		t.Errorf("MaxSlides = %d, want 8", cfg.Generation.MaxSlides)
	}
	p, ok := cfg.LLM.Providers["openai"]
	if !ok {
		t.Fatalf("providers = %v", cfg.LLM.Providers)
	}
	if p.Model != "gpt-test" || p.Timeout != 30*time.Second {
		t.Errorf("provider = %+v", p)
	}
}

func TestLoadRejectsInconsistentConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown registry", "registry:\n  driver: etcd\n", "registry.driver"},
		{"redis registry without redis", "registry:\n  driver: redis\n", "cache.redis.enabled"},
		{"unknown storage", "storage:\n  driver: s3\n", "storage.driver"},
		{"bad slide range", "generation:\n  min_slides: 5\n  max_slides: 2\n", "slide range"},
		{"rate limit without redis", "security:\n  rate_limit:\n    enabled: true\n", "rate_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("APP_ENV", "test")
			writeConfig(t, dir, "config.yaml", tt.yaml)
			_, err := LoadFrom(dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadFrom() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
