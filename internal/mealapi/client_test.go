package mealapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/loykin/mealsmoke/internal/httpc"
	"github.com/loykin/mealsmoke/internal/mealapi"
	"github.com/loykin/mealsmoke/internal/mealmaxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*mealapi.Client, *mealmaxtest.Server) {
	t.Helper()
	srv := mealmaxtest.New()
	t.Cleanup(srv.Close)
	h := httpc.Httpc{BaseURL: srv.APIURL}
	return mealapi.New(h.New()), srv
}

func TestCreateMeal_EncodesPriceAsNumber(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	resp, err := c.CreateMeal(ctx, mealapi.Meal{Meal: "Tacos", Cuisine: "Mexican", Price: 9.99, Difficulty: "LOW"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"status":"combatant added","meal":"Tacos"}`, string(resp.Body))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/create-meal", reqs[0].Path)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(reqs[0].Body, &raw))
	assert.Len(t, raw, 4)
	assert.Equal(t, `9.99`, string(raw["price"]))
	assert.Equal(t, `"Tacos"`, string(raw["meal"]))
	assert.Equal(t, `"Mexican"`, string(raw["cuisine"]))
	assert.Equal(t, `"LOW"`, string(raw["difficulty"]))
}

func TestPathParamsAndQuery(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	_, err := c.CreateMeal(ctx, mealapi.Meal{Meal: "Chicken Tikka", Cuisine: "Indian", Price: 11, Difficulty: "MED"})
	require.NoError(t, err)

	resp, err := c.GetMealByName(ctx, "Chicken Tikka")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), `"status":"success"`)

	resp, err = c.GetMealByID(ctx, 1)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), `"Chicken Tikka"`)

	_, err = c.Leaderboard(ctx, "win_pct")
	require.NoError(t, err)

	_, err = c.DeleteMeal(ctx, 1)
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 5)
	assert.Equal(t, "/get-meal-by-name/Chicken Tikka", reqs[1].Path)
	assert.Equal(t, "/get-meal-by-id/1", reqs[2].Path)
	assert.Equal(t, "win_pct", reqs[3].Query.Get("sort"))
	assert.Equal(t, http.MethodDelete, reqs[4].Method)
	assert.Equal(t, "/delete-meal/1", reqs[4].Path)
}

func TestBattleFlow(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	for _, m := range []mealapi.Meal{
		{Meal: "Sushi", Cuisine: "Japanese", Price: 15, Difficulty: "HIGH"},
		{Meal: "Pizza", Cuisine: "Italian", Price: 10, Difficulty: "MED"},
	} {
		_, err := c.CreateMeal(ctx, m)
		require.NoError(t, err)
	}
	for _, n := range []string{"Sushi", "Pizza"} {
		resp, err := c.PrepCombatant(ctx, n)
		require.NoError(t, err)
		assert.Contains(t, string(resp.Body), `"combatant prepared"`)
	}

	resp, err := c.GetCombatants(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), `"Sushi"`)

	resp, err = c.Battle(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), `"battle complete"`)

	resp, err = c.ClearCombatants(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), `"combatants cleared"`)

	resp, err = c.Leaderboard(ctx, "wins")
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), `"leaderboard"`)
}

func TestDo_TransportError(t *testing.T) {
	h := httpc.Httpc{BaseURL: "http://127.0.0.1:1/api"}
	_, err := mealapi.New(h.New()).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /health")
}

func TestCallTarget(t *testing.T) {
	assert.Equal(t, "/delete-meal/3", mealapi.DeleteMealCall(3).Target())
	assert.Equal(t, "/leaderboard?sort=wins", mealapi.LeaderboardCall("wins").Target())
	assert.Equal(t, "/get-meal-by-name/Pizza", mealapi.GetMealByNameCall("Pizza").Target())
}

func TestMealValidate(t *testing.T) {
	assert.NoError(t, mealapi.Meal{Meal: "Tacos", Cuisine: "Mexican", Price: 9.99, Difficulty: "LOW"}.Validate())
	assert.Error(t, mealapi.Meal{Meal: "", Cuisine: "Mexican", Price: 9.99, Difficulty: "LOW"}.Validate())
	assert.Error(t, mealapi.Meal{Meal: "Tacos", Cuisine: "Mexican", Price: -1, Difficulty: "LOW"}.Validate())
	assert.Error(t, mealapi.Meal{Meal: "Tacos", Cuisine: "Mexican", Price: 9.99, Difficulty: "Easy"}.Validate())
}
