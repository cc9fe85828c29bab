package config

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

const sampleYAML = `
name: relay
environment: staging
logging:
  level: warn
client:
  base_url: https://api.example.com/v1
  timeout: 5s
  headers:
    X-Api-Key: k1
  method_headers:
    post:
      X-Mode: write
  params:
    tenant: acme
  transitional:
    clarifyTimeoutError: true
resilience:
  breaker:
    max_failures: 3
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "relay.yml", sampleYAML)

	var s Settings
	if err := LoadConfig("relay", &s, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if s.Name != "relay" || s.Environment != "staging" {
		t.Errorf("unexpected service fields: %q %q", s.Name, s.Environment)
	}
	if s.Logging.Level != "warn" {
		t.Errorf("expected level warn, got %q", s.Logging.Level)
	}
	if s.Client.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", s.Client.Timeout)
	}
	if s.Client.Headers["x-api-key"] != "k1" {
		t.Errorf("expected lowercased header key, got %v", s.Client.Headers)
	}
	if s.Client.MethodHeaders["post"]["x-mode"] != "write" {
		t.Errorf("expected post header, got %v", s.Client.MethodHeaders)
	}
	if !s.Client.Transitional["clarifytimeouterror"] {
		t.Errorf("expected transitional flag, got %v", s.Client.Transitional)
	}
	if s.Resilience.Breaker == nil || s.Resilience.Breaker.MaxFailures != 3 {
		t.Errorf("expected breaker section, got %+v", s.Resilience.Breaker)
	}
	if s.Resilience.Limiter != nil {
		t.Errorf("expected absent limiter to stay nil, got %+v", s.Resilience.Limiter)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "relay.yml", sampleYAML)
	t.Setenv("RELAY_CLIENT_TIMEOUT", "2s")
	t.Setenv("RELAY_RESILIENCE_LIMITER_RATE", "7.5")
	t.Setenv("RELAY_AUTH_JWT_AUDIENCE", "a,b")

	var s Settings
	if err := LoadConfig("relay", &s, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if s.Client.Timeout != 2*time.Second {
		t.Errorf("expected env timeout 2s, got %v", s.Client.Timeout)
	}
	if s.Client.BaseURL != "https://api.example.com/v1" {
		t.Errorf("expected file base url, got %q", s.Client.BaseURL)
	}
	if s.Resilience.Limiter == nil || s.Resilience.Limiter.Rate != 7.5 {
		t.Errorf("expected limiter from env, got %+v", s.Resilience.Limiter)
	}
	if s.Auth.JWT == nil || !reflect.DeepEqual(s.Auth.JWT.Audience, []string{"a", "b"}) {
		t.Errorf("expected audience [a b], got %+v", s.Auth.JWT)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "RELAY_NAME=from-dotenv\n")
	t.Cleanup(func() { _ = os.Unsetenv("RELAY_NAME") })

	var s Settings
	if err := LoadConfig("relay", &s, WithEnvFile(envPath), WithFileSystem(OSFileSystem{})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if s.Name != "from-dotenv" {
		t.Errorf("expected name from .env, got %q", s.Name)
	}
}

func TestLoadConfig_FlagsWin(t *testing.T) {
	path := writeFile(t, t.TempDir(), "relay.yml", sampleYAML)
	t.Setenv("RELAY_CLIENT_TIMEOUT", "2s")

	fs := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	fs.Duration("timeout", 0, "")
	fs.String("base-url", "", "")
	if err := fs.Parse([]string{"--timeout=9s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	var s Settings
	err := LoadConfig("relay", &s, WithConfigFile(path), WithFlags(fs, map[string]string{
		"timeout":  "client.timeout",
		"base-url": "client.base_url",
	}))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if s.Client.Timeout != 9*time.Second {
		t.Errorf("expected flag timeout 9s, got %v", s.Client.Timeout)
	}
	if s.Client.BaseURL != "https://api.example.com/v1" {
		t.Errorf("expected unset flag to keep file value, got %q", s.Client.BaseURL)
	}
}

func TestLoadConfig_UnknownFlag(t *testing.T) {
	fs := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	var s Settings
	err := LoadConfig("relay", &s, WithFileSystem(&mockFS{}), WithFlags(fs, map[string]string{"nope": "client.timeout"}))
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	var s Settings
	if err := LoadConfig("relay", &s, WithFileSystem(&mockFS{}), WithDefault("name", "relay")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if s.Name != "relay" {
		t.Errorf("expected default name, got %q", s.Name)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	var s Settings
	if err := LoadConfig("relay", &s, WithConfigFile("/nonexistent/relay.yml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfig_NoFiles(t *testing.T) {
	var s Settings
	if err := LoadConfig("relay", &s, WithFileSystem(&mockFS{})); err != nil {
		t.Fatalf("expected success without files, got %v", err)
	}
}

func TestResolver(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]bool
		home  string
		want  ResolvedFiles
	}{
		{"none", nil, "", ResolvedFiles{}},
		{
			"service file first",
			map[string]bool{"relay.yml": true, "config/config.yml": true, ".env": true},
			"",
			ResolvedFiles{ConfigFile: "relay.yml", EnvFile: ".env"},
		},
		{
			"service env file first",
			map[string]bool{".env.relay": true, ".env": true},
			"",
			ResolvedFiles{EnvFile: ".env.relay"},
		},
		{
			"home fallback",
			map[string]bool{"/home/u/.config/relay/config.yml": true},
			"/home/u",
			ResolvedFiles{ConfigFile: "/home/u/.config/relay/config.yml"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{FileSystem: &mockFS{files: tt.files}, Home: tt.home}
			got := r.ResolveFiles("relay", LoaderConfig{})
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestResolver_ExplicitPaths(t *testing.T) {
	r := &Resolver{FileSystem: &mockFS{files: map[string]bool{"relay.yml": true}}}
	got := r.ResolveFiles("relay", LoaderConfig{ConfigFile: "custom.yml", EnvFile: "custom.env"})
	if got.ConfigFile != "custom.yml" || got.EnvFile != "custom.env" {
		t.Errorf("expected explicit paths, got %+v", got)
	}
}

func TestStructKeys(t *testing.T) {
	type inner struct {
		Rate float64 `mapstructure:"rate"`
	}
	type Embedded struct {
		Level string `mapstructure:"level"`
	}
	type sample struct {
		Embedded `mapstructure:",squash"`
		Name     string            `mapstructure:"name"`
		Limit    *inner            `mapstructure:"limit"`
		Headers  map[string]string `mapstructure:"headers"`
		At       time.Time         `mapstructure:"at"`
		Skip     func()            `mapstructure:"-"`
		Untagged int
	}

	got := structKeys(reflect.TypeOf(&sample{}), "")
	sort.Strings(got)
	want := []string{"at", "headers", "level", "limit.rate", "name", "untagged"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }

func (m *mockFS) LoadEnv(string) error { return nil }
