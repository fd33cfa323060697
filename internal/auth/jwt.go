package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig signs a short-lived HS256 token locally.
type JWTConfig struct {
	// Secret is the HMAC key (required).
	Secret string `mapstructure:"secret"`
	// TTLSeconds defaults to 300.
	TTLSeconds int64          `mapstructure:"ttl_seconds"`
	Subject    string         `mapstructure:"sub"`
	Issuer     string         `mapstructure:"iss"`
	Audience   []string       `mapstructure:"aud"`
	Custom     map[string]any `mapstructure:"custom"`
}

// Issue creates a signed token valid from now.
func (c JWTConfig) Issue(now time.Time) (string, error) {
	if c.Secret == "" {
		return "", errors.New("jwt: secret is required")
	}
	ttl := c.TTLSeconds
	if ttl <= 0 {
		ttl = 300
	}
	claims := jwt.MapClaims{}
	for k, v := range c.Custom {
		claims[k] = v
	}
	if c.Subject != "" {
		claims["sub"] = c.Subject
	}
	if c.Issuer != "" {
		claims["iss"] = c.Issuer
	}
	if len(c.Audience) > 0 {
		claims["aud"] = c.Audience
	}
	claims["iat"] = now.Unix()
	claims["exp"] = now.Unix() + ttl

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.Secret))
}

// Acquire returns "Bearer <jwt>".
func (c JWTConfig) Acquire(context.Context) (string, error) {
	tok, err := c.Issue(time.Now())
	if err != nil {
		return "", err
	}
	return "Bearer " + tok, nil
}
