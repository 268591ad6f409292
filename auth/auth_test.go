package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/jwtauth/bearer"
	"github.com/kbukum/jwtauth/config"
	apperrors "github.com/kbukum/jwtauth/errors"
	"github.com/kbukum/jwtauth/jwt"
	"github.com/kbukum/jwtauth/logger"
	"github.com/kbukum/jwtauth/redis"
	"github.com/kbukum/jwtauth/revocation"
)

const testSecret = "auth-test-secret-0123456789abcdef"

type user struct{ id string }

func (u *user) ID() string { return u.id }

func subjectIdentity(_ context.Context, token *jwt.Token, _ string) (bearer.Identity, error) {
	return &user{id: token.Subject()}, nil
}

func baseConfig() *Config {
	return &Config{
		ServiceConfig: config.ServiceConfig{Name: "auth-test", Environment: "development"},
		JWT: jwt.Config{
			Signer:      string(jwt.HS256),
			KeyKind:     string(jwt.KeyPlain),
			KeyContents: testSecret,
			Issuer:      "https://auth.test",
			TTL:         time.Hour,
			Validation: jwt.ValidationConfig{
				Signature: true,
				Time:      "strict",
				Issuers:   []string{"https://auth.test"},
			},
		},
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newService(t *testing.T, cfg *Config, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop()), WithIdentityFunc(subjectIdentity)}, opts...)
	svc, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yml", `
name: orders-api
environment: staging
jwt:
  signer: HS512
  key_kind: plain
  key_contents: from-yaml
  ttl: 15m
  validation:
    signature: true
    time: loose
    leeway: 5s
bearer:
  realm: orders
  skip_paths: [/health]
revocation:
  enabled: true
  store: redis
redis:
  addr: localhost:6379
`)
	t.Setenv("ORDERS_API_JWT_KEY_CONTENTS", "from-env")

	cfg, err := Load("orders-api", config.WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Name != "orders-api" || cfg.Environment != "staging" {
		t.Errorf("service = %+v", cfg.ServiceConfig)
	}
	if cfg.JWT.Signer != "HS512" || cfg.JWT.KeyContents != "from-env" || cfg.JWT.TTL != 15*time.Minute {
		t.Errorf("jwt = %+v", cfg.JWT)
	}
	if cfg.JWT.Validation.Leeway != 5*time.Second || cfg.JWT.Validation.Time != "loose" {
		t.Errorf("validation = %+v", cfg.JWT.Validation)
	}
	if cfg.Bearer.Realm != "orders" || cfg.Bearer.Header != bearer.DefaultHeader {
		t.Errorf("bearer = %+v", cfg.Bearer)
	}
	if len(cfg.Bearer.SkipPaths) != 1 || cfg.Bearer.SkipPaths[0] != "/health" {
		t.Errorf("skip paths = %v", cfg.Bearer.SkipPaths)
	}
	if cfg.Redis == nil || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.PoolSize != 10 {
		t.Errorf("redis = %+v", cfg.Redis)
	}
}

func TestLoad_NameDefaultsToService(t *testing.T) {
	path := writeFile(t, "config.yml", "jwt:\n  key_kind: plain\n  key_contents: x\n")
	cfg, err := Load("billing", config.WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "billing" {
		t.Fatalf("name = %q", cfg.Name)
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "config.yml", "jwt:\n  signer: none\n")
	if _, err := Load("invalid", config.WithConfigFile(path)); err == nil {
		t.Fatal("expected validation error for unknown signer")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty key in production", func(c *Config) {
			c.Environment = "production"
			c.JWT.KeyKind = string(jwt.KeyEmpty)
		}, "not allowed in production"},
		{"empty key in development", func(c *Config) { c.JWT.KeyKind = string(jwt.KeyEmpty) }, ""},
		{"redis store without redis", func(c *Config) {
			c.Revocation = revocation.Config{Enabled: true, Store: revocation.StoreRedis}
		}, "requires a redis section"},
		{"bad bearer realm", func(c *Config) { c.Bearer.Realm = `a"b` }, "realm"},
		{"negative ttl", func(c *Config) { c.JWT.TTL = -time.Second }, "ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestConfig_Describe(t *testing.T) {
	cfg := baseConfig()
	cfg.Revocation = revocation.Config{Enabled: true}
	cfg.ApplyDefaults()

	want := "JWT(HS256, plain) TTL=1h0m0s constraints=[signature time:strict issuer not-revoked] " +
		"bearer(Authorization Bearer realm=api) revocation=memory"
	if got := cfg.Describe(); got != want {
		t.Fatalf("Describe() =\n%q\nwant\n%q", got, want)
	}

	bare := &Config{}
	bare.ApplyDefaults()
	if got := bare.Describe(); !strings.Contains(got, "constraints=none") {
		t.Fatalf("Describe() = %q", got)
	}
}

func TestNew_IssueAndAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newService(t, baseConfig())

	token, err := svc.Issue(func(b *jwt.Builder) *jwt.Builder { return b.RelatedTo("alice") })
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token.Issuer() != "https://auth.test" {
		t.Errorf("issuer = %q", token.Issuer())
	}

	router := gin.New()
	router.Use(svc.Filter().Gin())
	router.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(bearer.ContextKeyIdentity).(bearer.Identity).ID())
	})

	r := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
	r.Header.Set("Authorization", "Bearer "+token.String())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, r)
	if rr.Code != http.StatusOK || rr.Body.String() != "alice" {
		t.Fatalf("status = %d, body = %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me", http.NoBody))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestNew_NoFilterWithoutIdentityResolution(t *testing.T) {
	svc, err := New(context.Background(), baseConfig(), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = svc.Close(context.Background()) }()
	if svc.Filter() != nil {
		t.Fatal("filter must be nil without identity resolution")
	}
	if _, err := svc.Issue(nil); err != nil {
		t.Fatalf("Issue: %v", err)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.JWT.Signer = "none"
	if _, err := New(context.Background(), cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected error")
	}
}

func TestNew_RedisRevocation(t *testing.T) {
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	cfg := baseConfig()
	cfg.Revocation = revocation.Config{Enabled: true, Store: revocation.StoreRedis}
	cfg.Redis = &redis.Config{Addr: mini.Addr()}
	svc := newService(t, cfg)

	token, err := svc.Issue(func(b *jwt.Builder) *jwt.Builder { return b.RelatedTo("alice") })
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.JWT().LoadToken(token.String(), true, true); err != nil {
		t.Fatalf("LoadToken before revocation: %v", err)
	}

	if err := svc.Revocations().RevokeToken(context.Background(), token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if !mini.Exists("jwtauth:revoked:" + token.ID()) {
		t.Fatal("revocation not written to redis")
	}

	_, err = svc.JWT().LoadToken(token.String(), true, true)
	if !errors.Is(err, jwt.ErrConstraintViolation) {
		t.Fatalf("LoadToken after revocation: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	r.Header.Set("Authorization", "Bearer "+token.String())
	if res := svc.Filter().Authenticate(r); res.Outcome != bearer.Rejected {
		t.Fatalf("outcome = %v, want rejected", res.Outcome)
	}
}

func TestNew_RevocationStoreOverride(t *testing.T) {
	store := revocation.NewMemoryStore(nil)
	cfg := baseConfig()
	cfg.Revocation = revocation.Config{Enabled: true, Store: revocation.StoreRedis}
	cfg.Redis = &redis.Config{Addr: "localhost:1"}
	svc := newService(t, cfg, WithRevocationStore(store))

	if svc.Revocations().Store() != store {
		t.Fatal("override store not used")
	}
}

func TestNew_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	svc := newService(t, baseConfig(), WithMeter(mp.Meter("test")))
	token, err := svc.Issue(nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.JWT().LoadToken(token.String(), true, false); err != nil {
		t.Fatalf("LoadToken: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{"jwtauth.tokens.issued", "jwtauth.tokens.loaded"} {
		if !names[want] {
			t.Errorf("metric %s not recorded (got %v)", want, names)
		}
	}
}

func TestNew_StartupSummaryLogged(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "auth-test", &buf)
	svc, err := New(context.Background(), baseConfig(), WithLogger(log))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = svc.Close(context.Background()) }()

	if !strings.Contains(buf.String(), "auth initialized") || !strings.Contains(buf.String(), "JWT(HS256, plain)") {
		t.Fatalf("summary not logged: %s", buf.String())
	}
}

func TestRegistry(t *testing.T) {
	svc := newService(t, baseConfig())
	reg := svc.Registry()

	if j, ok := reg.Default(); !ok || j != svc.JWT() {
		t.Fatal("service component must be the default")
	}

	other, err := jwt.New(jwt.Config{
		Signer:      string(jwt.HS384),
		KeyKind:     string(jwt.KeyPlain),
		KeyContents: "partner-secret",
		Validation:  jwt.ValidationConfig{Signature: true},
	}, jwt.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("jwt.New: %v", err)
	}
	reg.Register("partner", other)

	if got := strings.Join(reg.Names(), ","); got != "jwt,partner" {
		t.Fatalf("Names() = %s", got)
	}
	if err := reg.SetDefault("missing"); err == nil {
		t.Fatal("SetDefault on unknown name should fail")
	}
	if err := reg.SetDefault("partner"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if j, _ := reg.Default(); j != other {
		t.Fatal("default not switched")
	}

	filter, err := reg.Filter("partner", bearer.Config{Realm: "partners"}, bearer.WithIdentityFunc(subjectIdentity))
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	partnerToken, err := other.Issue(func(b *jwt.Builder) *jwt.Builder { return b.RelatedTo("acme") })
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	mainToken, err := svc.Issue(func(b *jwt.Builder) *jwt.Builder { return b.RelatedTo("alice") })
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for _, tc := range []struct {
		token string
		want  bearer.Outcome
	}{
		{partnerToken.String(), bearer.Authenticated},
		{mainToken.String(), bearer.Rejected},
	} {
		r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		r.Header.Set("Authorization", "Bearer "+tc.token)
		if res := filter.Authenticate(r); res.Outcome != tc.want {
			t.Errorf("outcome = %v, want %v", res.Outcome, tc.want)
		}
	}

	if _, err := reg.Filter("missing", bearer.Config{}, bearer.WithIdentityFunc(subjectIdentity)); !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
		t.Fatalf("Filter(missing) = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("MustGet should panic for unknown name")
		}
	}()
	reg.MustGet("missing")
}
