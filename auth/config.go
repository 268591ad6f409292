package auth

import (
	"fmt"
	"strings"

	"github.com/kbukum/jwtauth/bearer"
	"github.com/kbukum/jwtauth/config"
	"github.com/kbukum/jwtauth/jwt"
	"github.com/kbukum/jwtauth/observability"
	"github.com/kbukum/jwtauth/redis"
	"github.com/kbukum/jwtauth/revocation"
)

// Config is the complete configuration of an authenticating service.
//
//	name: orders-api
//	environment: production
//	jwt:
//	  signer: RS256
//	  key_kind: file
//	  key_contents: /etc/orders/jwt.pem
//	  validation: {signature: true, time: strict}
//	bearer:
//	  realm: orders
//	  skip_paths: [/health]
//	revocation:
//	  enabled: true
//	  store: redis
//	redis:
//	  addr: redis:6379
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	JWT           jwt.Config           `mapstructure:"jwt"`
	Bearer        bearer.Config        `mapstructure:"bearer"`
	Revocation    revocation.Config    `mapstructure:"revocation"`
	Observability observability.Config `mapstructure:"observability"`

	// Redis is required only by the redis revocation store.
	Redis *redis.Config `mapstructure:"redis"`
}

// ApplyDefaults sets defaults on every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.JWT.ApplyDefaults()
	c.Bearer.ApplyDefaults()
	c.Revocation.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Redis != nil {
		c.Redis.ApplyDefaults()
	}
}

// Validate checks every section and the rules spanning them.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.JWT.Validate(); err != nil {
		return err
	}
	if err := c.Bearer.Validate(); err != nil {
		return err
	}
	if err := c.Revocation.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}

	if c.IsProduction() && c.JWT.KeyKind == string(jwt.KeyEmpty) {
		return fmt.Errorf("jwt: key_kind %q is not allowed in production", jwt.KeyEmpty)
	}
	if c.Revocation.Enabled && c.Revocation.Store == revocation.StoreRedis {
		if c.Redis == nil {
			return fmt.Errorf("revocation: store %q requires a redis section", revocation.StoreRedis)
		}
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Describe returns a one-line summary for the startup log.
// Example: "JWT(RS256, file) constraints=[signature time:strict] bearer(Authorization Bearer realm=api) revocation=redis"
func (c *Config) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "JWT(%s, %s)", c.JWT.Signer, c.JWT.KeyKind)
	if c.JWT.TTL > 0 {
		fmt.Fprintf(&b, " TTL=%s", c.JWT.TTL)
	}

	var constraints []string
	v := c.JWT.Validation
	if v.Signature {
		constraints = append(constraints, "signature")
	}
	if v.Time != "" {
		constraints = append(constraints, "time:"+v.Time)
	}
	if len(v.Issuers) > 0 {
		constraints = append(constraints, "issuer")
	}
	if v.Audience != "" {
		constraints = append(constraints, "audience")
	}
	if len(v.RequiredClaims) > 0 {
		constraints = append(constraints, "claims:"+strings.Join(v.RequiredClaims, ","))
	}
	if c.Revocation.Enabled {
		constraints = append(constraints, "not-revoked")
	}
	if len(constraints) == 0 {
		b.WriteString(" constraints=none")
	} else {
		fmt.Fprintf(&b, " constraints=[%s]", strings.Join(constraints, " "))
	}

	fmt.Fprintf(&b, " bearer(%s %s realm=%s)", c.Bearer.Header, c.Bearer.Schema, c.Bearer.Realm)
	if c.Revocation.Enabled {
		fmt.Fprintf(&b, " revocation=%s", c.Revocation.Store)
	}
	if c.Observability.Enabled {
		fmt.Fprintf(&b, " otlp=%s", c.Observability.Endpoint)
	}
	return b.String()
}

// Load reads the configuration for service from YAML, .env and environment
// variables, then applies defaults and validates it.
func Load(service string, opts ...config.LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := config.LoadConfig(service, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = service
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
