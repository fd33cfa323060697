package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

// BasicConfig holds configuration for Basic authentication.
type BasicConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Acquire returns "Basic base64(user:pass)".
func (c BasicConfig) Acquire(context.Context) (string, error) {
	u := strings.TrimSpace(c.Username)
	if u == "" || c.Password == "" {
		return "", errors.New("basic: username and password are required")
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(u+":"+c.Password)), nil
}

// BearerConfig injects a static token.
type BearerConfig struct {
	Token string `mapstructure:"token"`
	// Scheme defaults to "Bearer".
	Scheme string `mapstructure:"scheme"`
}

// Acquire returns "<scheme> <token>".
func (c BearerConfig) Acquire(context.Context) (string, error) {
	tok := strings.TrimSpace(c.Token)
	if tok == "" {
		return "", errors.New("bearer: token is required")
	}
	scheme := strings.TrimSpace(c.Scheme)
	if scheme == "" {
		scheme = "Bearer"
	}
	return scheme + " " + tok, nil
}
