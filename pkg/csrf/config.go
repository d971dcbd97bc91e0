package csrf

import (
	"errors"
	"time"
)

// Config tunes the registry. Zero fields fall back to the defaults below.
type Config struct {
	// Lifetime after which a registered token no longer verifies.
	Lifetime time.Duration

	// RotationAge is the age at which Rotate replaces an unused token. Must be
	// shorter than Lifetime.
	RotationAge time.Duration

	// MaxTokens bounds the number of records kept by the store.
	MaxTokens int

	// EvictFraction of MaxTokens dropped (oldest first) when the registry is full.
	EvictFraction float64

	// MinLength and MaxLength bound the accepted token length.
	MinLength int
	MaxLength int

	// Secret keys the digest under which client fingerprints are stored.
	Secret []byte
}

const (
	DefaultLifetime      = 30 * time.Minute
	DefaultRotationAge   = 15 * time.Minute
	DefaultMaxTokens     = 1000
	DefaultEvictFraction = 0.2
	DefaultMinLength     = 32
	DefaultMaxLength     = 256
)

var ErrInvalidConfig = errors.New("csrf: invalid config")

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Lifetime <= 0 {
		c.Lifetime = DefaultLifetime
	}
	if c.RotationAge <= 0 {
		c.RotationAge = DefaultRotationAge
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.EvictFraction <= 0 || c.EvictFraction > 1 {
		c.EvictFraction = DefaultEvictFraction
	}
	if c.MinLength <= 0 {
		c.MinLength = DefaultMinLength
	}
	if c.MaxLength <= 0 {
		c.MaxLength = DefaultMaxLength
	}
}

// Validate reports configurations that would break the token lifecycle.
func (c Config) Validate() error {
	switch {
	case c.RotationAge >= c.Lifetime:
		return errors.Join(ErrInvalidConfig, errors.New("rotation age must be shorter than lifetime"))
	case c.MinLength > c.MaxLength:
		return errors.Join(ErrInvalidConfig, errors.New("min length exceeds max length"))
	}
	return nil
}
