package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultJWTExpirationHours is used when JWT_EXPIRATION_HOURS is unset
const DefaultJWTExpirationHours = 24

// JWTIssuer is stamped on every token minted by this service
const JWTIssuer = "resume-enhancer"

// JWTConfig holds configuration for bearer token signing and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	Issuer          string
}

// NewJWTConfig reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS.
func NewJWTConfig() (*JWTConfig, error) {
	cfg, err := LoadJWTConfig(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}
	return cfg, nil
}

// LoadJWTConfig is NewJWTConfig with auth treated as optional: it returns
// nil, nil when JWT_SECRET is unset.
func LoadJWTConfig(lookup func(string) (string, bool)) (*JWTConfig, error) {
	secret, _ := lookup("JWT_SECRET")
	if secret == "" {
		return nil, nil
	}

	hours := DefaultJWTExpirationHours
	if v, ok := lookup("JWT_EXPIRATION_HOURS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		hours = n
	}

	cfg := &JWTConfig{Secret: secret, ExpirationHours: hours, Issuer: JWTIssuer}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
