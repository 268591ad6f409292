package bearer

import (
	"fmt"
	"strings"

	"github.com/kbukum/jwtauth/validation"
)

// Defaults for Config.
const (
	DefaultHeader = "Authorization"
	DefaultSchema = "Bearer"
	DefaultRealm  = "api"
	DefaultName   = "bearer"
)

// Config holds bearer filter settings.
type Config struct {
	Header string `mapstructure:"header" validate:"required"`
	Schema string `mapstructure:"schema" validate:"required"`
	Realm  string `mapstructure:"realm" validate:"required"`
	// Name tags the filter when resolving identities.
	Name string `mapstructure:"name" validate:"required"`
	// SkipPaths are path prefixes that bypass authentication entirely.
	SkipPaths []string `mapstructure:"skip_paths"`
	// OptionalPaths are path prefixes where a missing or rejected credential
	// is not denied; the request continues without an identity.
	OptionalPaths []string `mapstructure:"optional_paths"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Header == "" {
		c.Header = DefaultHeader
	}
	if c.Schema == "" {
		c.Schema = DefaultSchema
	}
	if c.Realm == "" {
		c.Realm = DefaultRealm
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("bearer: %w", err)
	}
	if strings.ContainsAny(c.Realm, `"\`) {
		return fmt.Errorf("bearer: realm %q must not contain quotes or backslashes", c.Realm)
	}
	return nil
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
