// Package auth acquires the Authorization header a gated meal_max deployment
// expects. Providers are looked up by type in a registry.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/mealsmoke/internal/common"
	"golang.org/x/oauth2"
)

// DefaultHeader carries credentials unless a provider config sets "header".
const DefaultHeader = "Authorization"

// Method acquires one header value, e.g. "Basic ..." or "Bearer ...".
type Method interface {
	Acquire(ctx context.Context) (value string, err error)
}

// Factory builds a Method from a loosely typed spec map.
type Factory func(spec map[string]any) (Method, error)

var (
	mu        sync.RWMutex
	providers = map[string]Factory{}
)

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register adds or replaces the provider factory for typ.
func Register(typ string, f Factory) {
	key := normalizeKey(typ)
	if key == "" || f == nil {
		return
	}
	mu.Lock()
	providers[key] = f
	mu.Unlock()
}

// Types lists registered provider types in order.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(providers))
	for k := range providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Config selects a provider and its settings.
type Config struct {
	Type   string         `mapstructure:"type"`
	Config map[string]any `mapstructure:"config"`
}

// Enabled reports whether a provider was configured.
func (c Config) Enabled() bool { return normalizeKey(c.Type) != "" && normalizeKey(c.Type) != "none" }

// Credential is a header ready to be attached to every request.
type Credential struct {
	Header string
	Value  string
}

// WithHTTPClient makes token requests use hc, so they honor the same TLS
// settings as the smoke run.
func WithHTTPClient(ctx context.Context, hc *http.Client) context.Context {
	if hc == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}

// Acquire resolves cfg into a Credential. A disabled config yields the zero
// Credential and no error.
func Acquire(ctx context.Context, cfg Config) (Credential, error) {
	if !cfg.Enabled() {
		return Credential{}, nil
	}
	key := normalizeKey(cfg.Type)
	mu.RLock()
	f, ok := providers[key]
	mu.RUnlock()
	if !ok {
		return Credential{}, fmt.Errorf("auth: unsupported provider type %q (valid: %s)", cfg.Type, strings.Join(Types(), ", "))
	}

	spec := cfg.Config
	if spec == nil {
		spec = map[string]any{}
	}
	m, err := f(spec)
	if err != nil {
		return Credential{}, err
	}
	logger := common.GetLogger().WithAuth(key)
	logger.Debug("acquiring credential")
	v, err := m.Acquire(ctx)
	if err != nil {
		logger.Error("credential acquisition failed", "error", err)
		return Credential{}, err
	}
	if strings.TrimSpace(v) == "" {
		return Credential{}, errors.New("auth: provider returned an empty credential")
	}
	header := DefaultHeader
	if h, ok := spec["header"].(string); ok && strings.TrimSpace(h) != "" {
		header = strings.TrimSpace(h)
	}
	logger.Info("credential acquired", "header", header)
	return Credential{Header: header, Value: v}, nil
}

// decode fills out from spec, accepting strings for numbers so env overrides work.
func decode(spec map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(spec)
}

func init() {
	Register("basic", func(spec map[string]any) (Method, error) {
		var c BasicConfig
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		return c, nil
	})
	Register("bearer", func(spec map[string]any) (Method, error) {
		var c BearerConfig
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		return c, nil
	})
	Register("oauth2", func(spec map[string]any) (Method, error) {
		var c OAuth2Config
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		return c, nil
	})
	Register("jwt", func(spec map[string]any) (Method, error) {
		var c JWTConfig
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		return c, nil
	})
}
