package mealapi

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Difficulty levels accepted by the meal_max API.
const (
	DifficultyLow  = "LOW"
	DifficultyMed  = "MED"
	DifficultyHigh = "HIGH"
)

// Meal is the body of a create-meal request. Price is encoded as a JSON number.
type Meal struct {
	Meal       string  `json:"meal" yaml:"meal" mapstructure:"meal"`
	Cuisine    string  `json:"cuisine" yaml:"cuisine" mapstructure:"cuisine"`
	Price      float64 `json:"price" yaml:"price" mapstructure:"price"`
	Difficulty string  `json:"difficulty" yaml:"difficulty" mapstructure:"difficulty"`
}

// Validate applies the constraints meal_max enforces on new meals.
func (m Meal) Validate() error {
	if strings.TrimSpace(m.Meal) == "" {
		return fmt.Errorf("meal: name is required")
	}
	if strings.TrimSpace(m.Cuisine) == "" {
		return fmt.Errorf("meal %q: cuisine is required", m.Meal)
	}
	if m.Price <= 0 {
		return fmt.Errorf("meal %q: price must be a positive number", m.Meal)
	}
	switch m.Difficulty {
	case DifficultyLow, DifficultyMed, DifficultyHigh:
	default:
		return fmt.Errorf("meal %q: difficulty must be LOW, MED or HIGH, got %q", m.Meal, m.Difficulty)
	}
	return nil
}

// Call describes one HTTP request relative to the API base URL.
// Path may contain {name} placeholders filled from PathParams.
type Call struct {
	Method     string            `yaml:"method"`
	Path       string            `yaml:"path"`
	PathParams map[string]string `yaml:"path_params,omitempty"`
	Query      map[string]string `yaml:"query,omitempty"`
	Body       any               `yaml:"body,omitempty"`
}

// Target renders the path with parameters and query for display purposes.
func (c Call) Target() string {
	p := c.Path
	for k, v := range c.PathParams {
		p = strings.ReplaceAll(p, "{"+k+"}", v)
	}
	if len(c.Query) == 0 {
		return p
	}
	q := make([]string, 0, len(c.Query))
	for k, v := range c.Query {
		q = append(q, k+"="+v)
	}
	sort.Strings(q)
	return p + "?" + strings.Join(q, "&")
}

// Response is the record of an executed call.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}
