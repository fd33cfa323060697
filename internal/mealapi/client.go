// Package mealapi is a thin client for the meal_max REST API.
package mealapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/loykin/mealsmoke/internal/common"
)

// Client issues meal_max calls through a resty client whose base URL points
// at the API root (e.g. http://localhost:5000/api).
type Client struct {
	rc *resty.Client
}

// New wraps rc.
func New(rc *resty.Client) *Client {
	return &Client{rc: rc}
}

// Do sends c synchronously and returns the full response. A non-nil error
// means the request never produced an HTTP response.
func (cl *Client) Do(ctx context.Context, c Call) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(c.Method))
	if method == "" {
		method = http.MethodGet
	}
	req := cl.rc.R().SetContext(ctx)
	if len(c.PathParams) > 0 {
		req.SetPathParams(c.PathParams)
	}
	if len(c.Query) > 0 {
		req.SetQueryParams(c.Query)
	}
	if c.Body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(c.Body)
	}

	logger := common.GetLogger().WithComponent("mealapi").WithRequest(method, c.Target())
	logger.Debug("sending request")

	resp, err := req.Execute(method, c.Path)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, c.Target(), err)
	}
	out := &Response{
		Method:     method,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Elapsed:    resp.Time(),
	}
	logger.Debug("received response", "status_code", out.StatusCode, "response_size", len(out.Body), "elapsed", out.Elapsed)
	return out, nil
}

// HealthCall checks service liveness.
func HealthCall() Call { return Call{Method: http.MethodGet, Path: "/health"} }

// DBCheckCall checks the service's database connection.
func DBCheckCall() Call { return Call{Method: http.MethodGet, Path: "/db-check"} }

// CreateMealCall adds a meal to the kitchen.
func CreateMealCall(m Meal) Call {
	return Call{Method: http.MethodPost, Path: "/create-meal", Body: m}
}

// DeleteMealCall removes a meal by id.
func DeleteMealCall(id int) Call {
	return Call{Method: http.MethodDelete, Path: "/delete-meal/{id}", PathParams: map[string]string{"id": strconv.Itoa(id)}}
}

// GetMealByIDCall fetches a meal by id.
func GetMealByIDCall(id int) Call {
	return Call{Method: http.MethodGet, Path: "/get-meal-by-id/{id}", PathParams: map[string]string{"id": strconv.Itoa(id)}}
}

// GetMealByNameCall fetches a meal by name; the name is path-escaped on send.
func GetMealByNameCall(name string) Call {
	return Call{Method: http.MethodGet, Path: "/get-meal-by-name/{name}", PathParams: map[string]string{"name": name}}
}

// PrepCombatantCall stages a meal for the next battle.
func PrepCombatantCall(name string) Call {
	return Call{Method: http.MethodPost, Path: "/prep-combatant", Body: map[string]string{"meal": name}}
}

// GetCombatantsCall lists staged combatants.
func GetCombatantsCall() Call { return Call{Method: http.MethodGet, Path: "/get-combatants"} }

// BattleCall runs a battle between the staged combatants.
func BattleCall() Call { return Call{Method: http.MethodGet, Path: "/battle"} }

// ClearCombatantsCall empties the combatant list.
func ClearCombatantsCall() Call { return Call{Method: http.MethodPost, Path: "/clear-combatants"} }

// LeaderboardCall fetches the leaderboard sorted by key (wins, win_pct).
func LeaderboardCall(sort string) Call {
	return Call{Method: http.MethodGet, Path: "/leaderboard", Query: map[string]string{"sort": sort}}
}

// Health performs HealthCall.
func (cl *Client) Health(ctx context.Context) (*Response, error) { return cl.Do(ctx, HealthCall()) }

// DBCheck performs DBCheckCall.
func (cl *Client) DBCheck(ctx context.Context) (*Response, error) { return cl.Do(ctx, DBCheckCall()) }

// CreateMeal performs CreateMealCall.
func (cl *Client) CreateMeal(ctx context.Context, m Meal) (*Response, error) {
	return cl.Do(ctx, CreateMealCall(m))
}

// DeleteMeal performs DeleteMealCall.
func (cl *Client) DeleteMeal(ctx context.Context, id int) (*Response, error) {
	return cl.Do(ctx, DeleteMealCall(id))
}

// GetMealByID performs GetMealByIDCall.
func (cl *Client) GetMealByID(ctx context.Context, id int) (*Response, error) {
	return cl.Do(ctx, GetMealByIDCall(id))
}

// GetMealByName performs GetMealByNameCall.
func (cl *Client) GetMealByName(ctx context.Context, name string) (*Response, error) {
	return cl.Do(ctx, GetMealByNameCall(name))
}

// PrepCombatant performs PrepCombatantCall.
func (cl *Client) PrepCombatant(ctx context.Context, name string) (*Response, error) {
	return cl.Do(ctx, PrepCombatantCall(name))
}

// GetCombatants performs GetCombatantsCall.
func (cl *Client) GetCombatants(ctx context.Context) (*Response, error) {
	return cl.Do(ctx, GetCombatantsCall())
}

// Battle performs BattleCall.
func (cl *Client) Battle(ctx context.Context) (*Response, error) { return cl.Do(ctx, BattleCall()) }

// ClearCombatants performs ClearCombatantsCall.
func (cl *Client) ClearCombatants(ctx context.Context) (*Response, error) {
	return cl.Do(ctx, ClearCombatantsCall())
}

// Leaderboard performs LeaderboardCall.
func (cl *Client) Leaderboard(ctx context.Context, sort string) (*Response, error) {
	return cl.Do(ctx, LeaderboardCall(sort))
}
