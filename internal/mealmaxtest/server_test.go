package mealmaxtest

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func post(t *testing.T, url, body string) string {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func TestBattleScore(t *testing.T) {
	// 15 * len("Japanese") - 1
	if got := battleScore(&meal{Price: 15, Cuisine: "Japanese", Difficulty: "HIGH"}); got != 119 {
		t.Fatalf("score=%v", got)
	}
	// 10 * len("Italian") - 2
	if got := battleScore(&meal{Price: 10, Cuisine: "Italian", Difficulty: "MED"}); got != 68 {
		t.Fatalf("score=%v", got)
	}
}

func TestBattle_WinnerFollowsRandom(t *testing.T) {
	s := New()
	defer s.Close()

	post(t, s.APIURL+"/create-meal", `{"meal":"Sushi","cuisine":"Japanese","price":15,"difficulty":"HIGH"}`)
	post(t, s.APIURL+"/create-meal", `{"meal":"Pizza","cuisine":"Italian","price":10,"difficulty":"MED"}`)
	post(t, s.APIURL+"/prep-combatant", `{"meal":"Sushi"}`)
	post(t, s.APIURL+"/prep-combatant", `{"meal":"Pizza"}`)

	// delta = |119-68|/100 = 0.51 > 0.1, first combatant wins
	s.SetRandom(func() float64 { return 0.1 })
	if out := get(t, s.APIURL+"/battle"); !strings.Contains(out, `"winner":"Sushi"`) {
		t.Fatalf("unexpected battle result: %s", out)
	}
	if out := get(t, s.APIURL+"/get-combatants"); strings.Contains(out, "Pizza") {
		t.Fatalf("loser must leave the combatant list: %s", out)
	}
	if out := get(t, s.APIURL+"/leaderboard?sort=win_pct"); !strings.Contains(out, `"win_pct":100`) {
		t.Fatalf("unexpected leaderboard: %s", out)
	}
}

func TestPrepCombatant_Full(t *testing.T) {
	s := New()
	defer s.Close()
	for _, n := range []string{"A", "B", "C"} {
		post(t, s.APIURL+"/create-meal", `{"meal":"`+n+`","cuisine":"X","price":1,"difficulty":"LOW"}`)
	}
	post(t, s.APIURL+"/prep-combatant", `{"meal":"A"}`)
	post(t, s.APIURL+"/prep-combatant", `{"meal":"B"}`)
	if out := post(t, s.APIURL+"/prep-combatant", `{"meal":"C"}`); !strings.Contains(out, "full") {
		t.Fatalf("expected full error, got %s", out)
	}
}

func TestOverrideAndRecording(t *testing.T) {
	s := New()
	defer s.Close()
	s.Override("health", http.StatusOK, `{"status": "degraded"}`)
	if out := get(t, s.APIURL+"/health"); out != `{"status": "degraded"}` {
		t.Fatalf("override not applied: %s", out)
	}
	if s.Count() != 1 || s.Requests()[0].Path != "/health" {
		t.Fatalf("unexpected recording: %+v", s.Requests())
	}
}
