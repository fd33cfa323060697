package common

import (
	"regexp"
	"strings"
	"sync/atomic"
)

// Masked replaces any sensitive value in logs.
const Masked = "***MASKED***"

// SensitivePattern detects one kind of secret in free text and/or by key.
type SensitivePattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Keys        []string // attribute keys always masked, compared case-insensitively
}

// DefaultSensitivePatterns covers credentials that can reach the logs through
// auth configuration, request headers or URLs.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)(["']?\s*[:=]\s*["']?)([^"',}&\s]+)`),
		Replacement: "${1}${2}" + Masked,
		Keys:        []string{"password", "passwd", "pwd"},
	},
	{
		Name:        "secret",
		Regex:       regexp.MustCompile(`(?i)(client[_-]?secret|secret)(["']?\s*[:=]\s*["']?)([^"',}&\s]+)`),
		Replacement: "${1}${2}" + Masked,
		Keys:        []string{"secret", "client_secret", "client-secret"},
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)(access[_-]?token|api[_-]?key|token)(["']?\s*[:=]\s*["']?)([^"',}&\s]+)`),
		Replacement: "${1}${2}" + Masked,
		Keys:        []string{"token", "access_token", "api_key", "apikey"},
	},
	{
		Name:        "bearer",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + Masked,
	},
	{
		Name:        "basic",
		Regex:       regexp.MustCompile(`(?i)Basic\s+[A-Za-z0-9+/]+=*`),
		Replacement: "Basic " + Masked,
	},
	{
		Name:  "authorization",
		Keys:  []string{"authorization", "proxy-authorization", "x-api-key"},
		Regex: nil,
	},
}

// Masker masks sensitive information before it is written to a log.
type Masker struct {
	patterns []SensitivePattern
	enabled  atomic.Bool
}

// NewMasker creates an enabled masker with the default patterns.
func NewMasker() *Masker {
	return NewMaskerWithPatterns(DefaultSensitivePatterns)
}

// NewMaskerWithPatterns creates an enabled masker with custom patterns.
func NewMaskerWithPatterns(patterns []SensitivePattern) *Masker {
	m := &Masker{patterns: patterns}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) { m.enabled.Store(enabled) }

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool { return m.enabled.Load() }

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	if !m.IsEnabled() {
		return input
	}
	out := input
	for _, p := range m.patterns {
		if p.Regex != nil {
			out = p.Regex.ReplaceAllString(out, p.Replacement)
		}
	}
	return out
}

// IsSensitiveKey reports whether an attribute key always carries a secret.
func (m *Masker) IsSensitiveKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, p := range m.patterns {
		for _, sk := range p.Keys {
			if k == sk {
				return true
			}
		}
	}
	return false
}

// MaskValue masks value according to its key, then by content when it is text.
func (m *Masker) MaskValue(key string, value any) any {
	if !m.IsEnabled() {
		return value
	}
	if m.IsSensitiveKey(key) {
		return Masked
	}
	switch v := value.(type) {
	case string:
		return m.MaskString(v)
	case []byte:
		return m.MaskString(string(v))
	case error:
		return m.MaskString(v.Error())
	default:
		return value
	}
}

// MaskHeaders returns a copy of headers safe to log.
func (m *Masker) MaskHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if s, ok := m.MaskValue(k, v).(string); ok {
			out[k] = s
		}
	}
	return out
}

var globalMasker = NewMasker()

// GetGlobalMasker returns the global masker instance
func GetGlobalMasker() *Masker { return globalMasker }

// MaskSensitiveData masks sensitive data using the global masker
func MaskSensitiveData(input string) string { return globalMasker.MaskString(input) }

// EnableMasking enables/disables global masking
func EnableMasking(enabled bool) { globalMasker.SetEnabled(enabled) }

// IsMaskingEnabled returns whether global masking is enabled
func IsMaskingEnabled() bool { return globalMasker.IsEnabled() }
