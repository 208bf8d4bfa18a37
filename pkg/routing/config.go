package routing

import (
	"time"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
)

// Default router limits.
const (
	DefaultSpacing       = 1
	DefaultMaxExpansions = 200_000
	DefaultMaxRetries    = 3
)

// Config bounds the router's search.
type Config struct {
	// Spacing is the Chebyshev radius around every droplet that no other
	// droplet may enter at the same time step. 1 forbids the eight
	// surrounding cells, 0 only forbids sharing a cell.
	Spacing int `toml:"spacing" json:"spacing"`

	// MaxExpansions caps the A* node expansions of a single droplet search.
	MaxExpansions int `toml:"max_expansions" json:"max_expansions,omitempty"`

	// Timeout caps the wall-clock time of a single droplet search. Zero
	// disables the limit.
	Timeout time.Duration `toml:"timeout" json:"timeout,omitempty"`

	// MaxRetries is how often conflict repair may re-route one droplet
	// before giving up on it.
	MaxRetries int `toml:"max_retries" json:"max_retries"`

	// Workers enables speculative parallel search when greater than one.
	Workers int `toml:"workers" json:"workers,omitempty"`
}

// DefaultConfig returns the standard router limits.
func DefaultConfig() Config {
	return Config{
		Spacing:       DefaultSpacing,
		MaxExpansions: DefaultMaxExpansions,
		MaxRetries:    DefaultMaxRetries,
		Workers:       1,
	}
}

// WithDefaults fills MaxExpansions and Workers when they are zero.
func (c Config) WithDefaults() Config {
	if c.MaxExpansions == 0 {
		c.MaxExpansions = DefaultMaxExpansions
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	c = c.WithDefaults()
	for _, err := range []error{
		errors.ValidateNonNegative("spacing", c.Spacing),
		errors.ValidatePositive("max_expansions", c.MaxExpansions),
		errors.ValidateNonNegative("max_retries", c.MaxRetries),
		errors.ValidatePositive("workers", c.Workers),
	} {
		if err != nil {
			return err
		}
	}
	if c.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
