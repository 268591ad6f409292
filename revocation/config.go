package revocation

import (
	"fmt"
	"time"

	"github.com/kbukum/jwtauth/validation"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config enables the revocation check.
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Store   string `mapstructure:"store" validate:"omitempty,oneof=memory redis"`
	// Timeout bounds each store lookup.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// Retention is how long a token without "exp" stays revoked.
	Retention time.Duration `mapstructure:"retention" validate:"gte=0"`
	// FailOpen accepts tokens when the store cannot be reached. By default
	// such tokens are rejected.
	FailOpen bool `mapstructure:"fail_open"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.Timeout == 0 {
		c.Timeout = 200 * time.Millisecond
	}
	if c.Retention == 0 {
		c.Retention = 24 * time.Hour
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("revocation: %w", err)
	}
	return nil
}
