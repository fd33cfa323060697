package httpc

import (
	"crypto/tls"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Httpc describes the HTTP client shared by every request a smoke run makes.
type Httpc struct {
	BaseURL   string
	TlsConfig *tls.Config
	// Timeout of zero keeps the underlying client default (no timeout).
	Timeout time.Duration
	Headers map[string]string
}

// New returns a resty.Client configured according to the receiver.
// When a TLS config is supplied with a zero MinVersion, TLS 1.2 is enforced.
func (h *Httpc) New() *resty.Client {
	c := resty.New()
	if base := strings.TrimRight(strings.TrimSpace(h.BaseURL), "/"); base != "" {
		c.SetBaseURL(base)
	}
	if h.Timeout > 0 {
		c.SetTimeout(h.Timeout)
	}
	if len(h.Headers) > 0 {
		c.SetHeaders(h.Headers)
	}
	if cfg := h.TlsConfig; cfg != nil {
		if cfg.MinVersion == 0 {
			cfg.MinVersion = tls.VersionTLS12
		}
		c.SetTLSClientConfig(cfg)
	}
	return c
}

// ParseTLSVersion converts "1.2", "12", "tls1.2" or "tls12" into the crypto/tls
// constant. Unknown strings yield 0.
func ParseTLSVersion(version string) uint16 {
	switch strings.TrimSpace(strings.ToLower(version)) {
	case "1.0", "10", "tls1.0", "tls10":
		return tls.VersionTLS10
	case "1.1", "11", "tls1.1", "tls11":
		return tls.VersionTLS11
	case "1.2", "12", "tls1.2", "tls12":
		return tls.VersionTLS12
	case "1.3", "13", "tls1.3", "tls13":
		return tls.VersionTLS13
	default:
		return 0
	}
}

// TLSConfig builds a client TLS config, or nil when every option is at its default.
func TLSConfig(insecure bool, minVersion, maxVersion string) *tls.Config {
	minV := ParseTLSVersion(minVersion)
	maxV := ParseTLSVersion(maxVersion)
	if !insecure && minV == 0 && maxV == 0 {
		return nil
	}
	cfg := &tls.Config{MinVersion: minV, MaxVersion: maxV}
	if insecure {
		// #nosec G402 -- opt-in for self-signed smoke targets
		cfg.InsecureSkipVerify = true
	}
	return cfg
}
