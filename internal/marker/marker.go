// Package marker implements the pass/fail assertions a smoke step applies to a
// JSON response body.
package marker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNotJSON is returned when a response body is empty or not valid JSON.
var ErrNotJSON = errors.New("response is not valid JSON")

// Marker expects the JSON value at Field (a gjson path) to equal Value.
type Marker struct {
	Field string `yaml:"field" json:"field"`
	Value string `yaml:"value" json:"value"`
}

// Status is the marker shape used by every meal_max endpoint: a top-level
// "status" field with a literal value.
func Status(value string) Marker {
	return Marker{Field: "status", Value: value}
}

// String renders the marker the way it appears in a compact JSON body.
func (m Marker) String() string {
	return fmt.Sprintf("%q: %q", m.Field, m.Value)
}

// MismatchError reports a JSON body that does not carry the expected marker.
type MismatchError struct {
	Marker Marker
	Found  bool
	Actual string
}

func (e *MismatchError) Error() string {
	if !e.Found {
		return fmt.Sprintf("marker %s not found: field %q missing", e.Marker, e.Marker.Field)
	}
	return fmt.Sprintf("marker %s not found: got %q", e.Marker, e.Actual)
}

// Check verifies body is JSON and carries the marker.
func (m Marker) Check(body []byte) error {
	if len(strings.TrimSpace(string(body))) == 0 || !gjson.ValidBytes(body) {
		return ErrNotJSON
	}
	res := gjson.GetBytes(body, m.Field)
	if !res.Exists() {
		return &MismatchError{Marker: m}
	}
	if res.String() != m.Value {
		return &MismatchError{Marker: m, Found: true, Actual: res.String()}
	}
	return nil
}

// Extract returns the string form of the value at path, if present.
func Extract(body []byte, path string) (string, bool) {
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}
