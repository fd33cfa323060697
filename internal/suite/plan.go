package suite

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/loykin/mealsmoke/internal/marker"
	"github.com/loykin/mealsmoke/internal/mealapi"
)

// Operation numbers, in execution order.
const (
	OpHealth = iota + 1
	OpDBCheck
	OpCreateMeal
	OpDeleteMeal
	OpGetMealByID
	OpGetMealByName
	OpPrepCombatant
	OpGetCombatants
	OpBattle
	OpClearCombatants
	OpLeaderboard
)

// Step is one HTTP call of the smoke plan together with its transcript lines.
type Step struct {
	Op     int
	Name   string
	Start  string
	Pass   string
	Fail   string
	Call   mealapi.Call
	Marker marker.Marker
	// After runs once the marker matched, e.g. to report the battle winner.
	After func(w io.Writer, body []byte) error
}

// Fixtures parameterize the data the plan sends.
type Fixtures struct {
	Meals            []mealapi.Meal `mapstructure:"meals" yaml:"meals"`
	DeleteID         int            `mapstructure:"delete_id" yaml:"delete_id"`
	GetID            int            `mapstructure:"get_id" yaml:"get_id"`
	GetName          string         `mapstructure:"get_name" yaml:"get_name"`
	Combatants       []string       `mapstructure:"combatants" yaml:"combatants"`
	LeaderboardSorts []string       `mapstructure:"leaderboard_sorts" yaml:"leaderboard_sorts"`
}

// DefaultFixtures returns the kitchen used by the stock smoke run.
func DefaultFixtures() Fixtures {
	return Fixtures{
		Meals: []mealapi.Meal{
			{Meal: "Spaghetti", Cuisine: "Italian", Price: 12.5, Difficulty: mealapi.DifficultyMed},
			{Meal: "Sushi", Cuisine: "Japanese", Price: 15.0, Difficulty: mealapi.DifficultyHigh},
			{Meal: "Tacos", Cuisine: "Mexican", Price: 9.99, Difficulty: mealapi.DifficultyLow},
			{Meal: "Pizza", Cuisine: "Italian", Price: 10.0, Difficulty: mealapi.DifficultyMed},
			{Meal: "Burger", Cuisine: "American", Price: 8.5, Difficulty: mealapi.DifficultyLow},
		},
		DeleteID:         1,
		GetID:            2,
		GetName:          "Pizza",
		Combatants:       []string{"Sushi", "Pizza"},
		LeaderboardSorts: []string{"wins", "win_pct"},
	}
}

// Validate rejects fixtures that could never pass against a correct service.
func (f Fixtures) Validate() error {
	var errs []error
	if len(f.Meals) == 0 {
		errs = append(errs, errors.New("fixtures: at least one meal is required"))
	}
	for _, m := range f.Meals {
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("fixtures: %w", err))
		}
	}
	if f.DeleteID <= 0 || f.GetID <= 0 {
		errs = append(errs, errors.New("fixtures: delete_id and get_id must be positive"))
	}
	if strings.TrimSpace(f.GetName) == "" {
		errs = append(errs, errors.New("fixtures: get_name is required"))
	}
	if len(f.Combatants) != 2 {
		errs = append(errs, fmt.Errorf("fixtures: exactly two combatants are required, got %d", len(f.Combatants)))
	}
	for _, s := range f.LeaderboardSorts {
		if s != "wins" && s != "win_pct" {
			errs = append(errs, fmt.Errorf("fixtures: unsupported leaderboard sort %q (valid: wins, win_pct)", s))
		}
	}
	return errors.Join(errs...)
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

// Plan expands fixtures into the ordered list of steps.
func Plan(f Fixtures) []Step {
	steps := []Step{
		{
			Op: OpHealth, Name: "health check",
			Start: "Checking health status...", Pass: "Service is healthy.", Fail: "Health check failed.",
			Call: mealapi.HealthCall(), Marker: marker.Status("healthy"),
		},
		{
			Op: OpDBCheck, Name: "db check",
			Start: "Checking database connection...", Pass: "Database connection is healthy.", Fail: "Database check failed.",
			Call: mealapi.DBCheckCall(), Marker: marker.Marker{Field: "database_status", Value: "healthy"},
		},
	}

	for _, m := range f.Meals {
		steps = append(steps, Step{
			Op: OpCreateMeal, Name: "create meal",
			Start:  fmt.Sprintf("Adding meal (%s, %s, %s) to the kitchen...", m.Meal, m.Cuisine, formatPrice(m.Price)),
			Pass:   fmt.Sprintf("Meal added successfully: %s.", m.Meal),
			Fail:   fmt.Sprintf("Failed to add meal: %s.", m.Meal),
			Call:   mealapi.CreateMealCall(m),
			Marker: marker.Status("combatant added"),
		})
	}

	steps = append(steps,
		Step{
			Op: OpDeleteMeal, Name: "delete meal",
			Start:  fmt.Sprintf("Deleting meal by ID (%d)...", f.DeleteID),
			Pass:   fmt.Sprintf("Meal deleted successfully by ID (%d).", f.DeleteID),
			Fail:   fmt.Sprintf("Failed to delete meal by ID (%d).", f.DeleteID),
			Call:   mealapi.DeleteMealCall(f.DeleteID),
			Marker: marker.Status("meal deleted"),
		},
		Step{
			Op: OpGetMealByID, Name: "get meal by id",
			Start:  fmt.Sprintf("Getting meal by ID (%d)...", f.GetID),
			Pass:   fmt.Sprintf("Meal retrieved successfully by ID (%d).", f.GetID),
			Fail:   fmt.Sprintf("Failed to get meal by ID (%d).", f.GetID),
			Call:   mealapi.GetMealByIDCall(f.GetID),
			Marker: marker.Status("success"),
		},
		Step{
			Op: OpGetMealByName, Name: "get meal by name",
			Start:  fmt.Sprintf("Getting meal by name (%s)...", f.GetName),
			Pass:   fmt.Sprintf("Meal retrieved successfully by name (%s).", f.GetName),
			Fail:   fmt.Sprintf("Failed to get meal by name (%s).", f.GetName),
			Call:   mealapi.GetMealByNameCall(f.GetName),
			Marker: marker.Status("success"),
		},
	)

	for _, name := range f.Combatants {
		steps = append(steps, Step{
			Op: OpPrepCombatant, Name: "prep combatant",
			Start:  fmt.Sprintf("Preparing combatant: %s...", name),
			Pass:   fmt.Sprintf("Combatant prepared successfully: %s.", name),
			Fail:   fmt.Sprintf("Failed to prepare combatant: %s.", name),
			Call:   mealapi.PrepCombatantCall(name),
			Marker: marker.Status("combatant prepared"),
		})
	}

	steps = append(steps,
		Step{
			Op: OpGetCombatants, Name: "get combatants",
			Start: "Retrieving current combatants...", Pass: "Combatants retrieved successfully.", Fail: "Failed to get combatants.",
			Call: mealapi.GetCombatantsCall(), Marker: marker.Status("success"),
		},
		Step{
			Op: OpBattle, Name: "battle",
			Start: "Starting battle...", Pass: "Battle completed successfully.", Fail: "Battle failed.",
			Call: mealapi.BattleCall(), Marker: marker.Status("battle complete"),
			After: printWinner,
		},
		Step{
			Op: OpClearCombatants, Name: "clear combatants",
			Start: "Clearing combatants...", Pass: "Combatants cleared successfully.", Fail: "Failed to clear combatants.",
			Call: mealapi.ClearCombatantsCall(), Marker: marker.Status("combatants cleared"),
		},
	)

	for _, sortBy := range f.LeaderboardSorts {
		steps = append(steps, Step{
			Op: OpLeaderboard, Name: "leaderboard",
			Start:  fmt.Sprintf("Getting leaderboard sorted by %s...", sortBy),
			Pass:   fmt.Sprintf("Leaderboard retrieved successfully (sorted by %s).", sortBy),
			Fail:   fmt.Sprintf("Failed to get leaderboard (sorted by %s).", sortBy),
			Call:   mealapi.LeaderboardCall(sortBy),
			Marker: marker.Status("success"),
		})
	}
	return steps
}

func printWinner(w io.Writer, body []byte) error {
	winner, ok := marker.Extract(body, "winner")
	if !ok {
		return errors.New(`battle response has no "winner" field`)
	}
	_, err := fmt.Fprintf(w, "Battle winner: %s\n", winner)
	return err
}
