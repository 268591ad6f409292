package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

type testJWT struct {
	Signer      string        `mapstructure:"signer"`
	KeyContents string        `mapstructure:"key_contents"`
	TTL         time.Duration `mapstructure:"ttl"`
	Validation  struct {
		Issuer    string `mapstructure:"issuer"`
		Signature bool   `mapstructure:"signature"`
	} `mapstructure:"validation"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	JWT           testJWT `mapstructure:"jwt"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
name: api-gateway
environment: staging
jwt:
  signer: RS256
  ttl: 15m
  validation:
    issuer: https://issuer.example
    signature: true
`)

	var cfg testConfig
	if err := LoadConfig("cfgtest-yaml", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "api-gateway" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config: %+v", cfg.ServiceConfig)
	}
	if cfg.JWT.Signer != "RS256" || cfg.JWT.TTL != 15*time.Minute {
		t.Errorf("unexpected jwt config: %+v", cfg.JWT)
	}
	if cfg.JWT.Validation.Issuer != "https://issuer.example" || !cfg.JWT.Validation.Signature {
		t.Errorf("unexpected validation config: %+v", cfg.JWT.Validation)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
name: api-gateway
jwt:
  signer: HS256
  key_contents: from-file
`)
	t.Setenv("CFGTEST_ENV_JWT_KEY_CONTENTS", "from-env")
	t.Setenv("CFGTEST_ENV_JWT_VALIDATION_ISSUER", "env-issuer")
	t.Setenv("UNRELATED_JWT_SIGNER", "ES512")

	var cfg testConfig
	if err := LoadConfig("cfgtest-env", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JWT.KeyContents != "from-env" {
		t.Errorf("expected env override, got %q", cfg.JWT.KeyContents)
	}
	if cfg.JWT.Validation.Issuer != "env-issuer" {
		t.Errorf("expected nested env override, got %q", cfg.JWT.Validation.Issuer)
	}
	if cfg.JWT.Signer != "HS256" {
		t.Errorf("expected unprefixed variable to be ignored, got %q", cfg.JWT.Signer)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "CFGTEST_DOTENV_JWT_SIGNER=ES256\n")
	t.Cleanup(func() { os.Unsetenv("CFGTEST_DOTENV_JWT_SIGNER") })

	var cfg testConfig
	err := LoadConfig("cfgtest-dotenv", &cfg,
		WithConfigFile(filepath.Join(dir, "missing.yml")),
		WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JWT.Signer != "ES256" {
		t.Errorf("expected signer from .env, got %q", cfg.JWT.Signer)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "jwt: [unclosed")
	var cfg testConfig
	if err := LoadConfig("cfgtest-bad", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error    { return nil }

func TestResolverSearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config/config.yml": true,
		"./config.yml":        true,
		"./.env":              true,
	}}
	resolver := &Resolver{FileSystem: fs}

	got := resolver.ResolveFiles("jwtauth", LoaderConfig{})
	if got.ConfigFile != "./config/config.yml" {
		t.Errorf("expected ./config/config.yml, got %q", got.ConfigFile)
	}
	if got.EnvFile != "./.env" {
		t.Errorf("expected ./.env, got %q", got.EnvFile)
	}

	explicit := resolver.ResolveFiles("jwtauth", LoaderConfig{ConfigFile: "/etc/jwtauth.yml"})
	if explicit.ConfigFile != "/etc/jwtauth.yml" {
		t.Errorf("expected explicit path to win, got %q", explicit.ConfigFile)
	}
}

func TestEnvPrefix(t *testing.T) {
	tests := map[string]string{
		"jwtauth":     "JWTAUTH_",
		"api-gateway": "API_GATEWAY_",
		"":            "",
	}
	for in, want := range tests {
		if got := EnvPrefix(in); got != want {
			t.Errorf("EnvPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("JWT_KEY_CONTENTS")
	want := []string{
		"jwt_key_contents",
		"jwt.key.contents",
		"jwt.key_contents",
		"jwt.key.contents",
		"jwt_key.contents",
	}
	want = dedupe(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("envKeyVariants() = %v, want %v", got, want)
	}
	if got := envKeyVariants("NAME"); len(got) != 1 || got[0] != "name" {
		t.Errorf("expected single variant, got %v", got)
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := ServiceConfig{Name: "svc"}
	cfg.ApplyDefaults()
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug logging in development, got %q", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"missing name", ServiceConfig{Environment: "production"}, "name is required"},
		{"bad environment", ServiceConfig{Name: "svc", Environment: "qa"}, "environment must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logging.ApplyDefaults()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}
