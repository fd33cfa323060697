// Package mealmaxtest provides an in-process fake of the meal_max API for
// tests. It keeps the kitchen and battle state in memory and records every
// request it receives.
package mealmaxtest

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/loykin/mealsmoke/internal/mealapi"
)

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string // relative to the /api prefix, unescaped
	Query  url.Values
	Header http.Header
	Body   []byte
}

type override struct {
	status int
	body   string
}

type meal struct {
	ID         int     `json:"id"`
	Meal       string  `json:"meal"`
	Cuisine    string  `json:"cuisine"`
	Price      float64 `json:"price"`
	Difficulty string  `json:"difficulty"`
	Battles    int     `json:"battles"`
	Wins       int     `json:"wins"`
	deleted    bool
}

// Server is a running fake meal_max service.
type Server struct {
	*httptest.Server
	// URL of the API root, i.e. the base URL a smoke run should target.
	APIURL string

	mu         sync.Mutex
	requests   []Request
	overrides  map[string]override
	meals      []*meal
	combatants []*meal
	random     func() float64
}

// New starts a fake meal_max server. Callers must Close it.
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{overrides: map[string]override{}, random: func() float64 { return 0.5 }}

	r := gin.New()
	api := r.Group("/api", s.record, s.intercept)
	api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "healthy"}) })
	api.GET("/db-check", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"database_status": "healthy"}) })
	api.POST("/create-meal", s.createMeal)
	api.DELETE("/delete-meal/:meal_id", s.deleteMeal)
	api.GET("/get-meal-by-id/:meal_id", s.getMealByID)
	api.GET("/get-meal-by-name/:meal_name", s.getMealByName)
	api.POST("/prep-combatant", s.prepCombatant)
	api.GET("/get-combatants", s.getCombatants)
	api.GET("/battle", s.battle)
	api.POST("/clear-combatants", s.clearCombatants)
	api.GET("/leaderboard", s.leaderboard)

	s.Server = httptest.NewServer(r)
	s.APIURL = s.Server.URL + "/api"
	return s
}

// Override makes every request to endpoint (the first path segment after
// /api, e.g. "health" or "delete-meal") answer with status and raw body.
func (s *Server) Override(endpoint string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[endpoint] = override{status: status, body: body}
}

// SetRandom replaces the random.org draw used by battles. Defaults to 0.5.
func (s *Server) SetRandom(f func() float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.random = f
}

// Requests returns a copy of the recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests were received.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func endpointOf(path string) string {
	p := strings.TrimPrefix(strings.TrimPrefix(path, "/api"), "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

func (s *Server) record(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Path:   strings.TrimPrefix(c.Request.URL.Path, "/api"),
		Query:  c.Request.URL.Query(),
		Header: c.Request.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) intercept(c *gin.Context) {
	s.mu.Lock()
	o, ok := s.overrides[endpointOf(c.Request.URL.Path)]
	s.mu.Unlock()
	if !ok {
		c.Next()
		return
	}
	c.Data(o.status, "application/json", []byte(o.body))
	c.Abort()
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func (s *Server) findByID(id int) *meal {
	for _, m := range s.meals {
		if m.ID == id && !m.deleted {
			return m
		}
	}
	return nil
}

func (s *Server) findByName(name string) *meal {
	for _, m := range s.meals {
		if m.Meal == name && !m.deleted {
			return m
		}
	}
	return nil
}

func (s *Server) createMeal(c *gin.Context) {
	var in mealapi.Meal
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByName(in.Meal) != nil {
		fail(c, http.StatusBadRequest, "Meal with name '"+in.Meal+"' already exists")
		return
	}
	m := &meal{ID: len(s.meals) + 1, Meal: in.Meal, Cuisine: in.Cuisine, Price: in.Price, Difficulty: in.Difficulty}
	s.meals = append(s.meals, m)
	c.JSON(http.StatusCreated, gin.H{"status": "combatant added", "meal": in.Meal})
}

func (s *Server) deleteMeal(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("meal_id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid meal id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findByID(id)
	if m == nil {
		fail(c, http.StatusBadRequest, "Meal with ID "+strconv.Itoa(id)+" not found")
		return
	}
	m.deleted = true
	c.JSON(http.StatusOK, gin.H{"status": "meal deleted"})
}

func (s *Server) getMealByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("meal_id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid meal id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findByID(id)
	if m == nil {
		fail(c, http.StatusBadRequest, "Meal with ID "+strconv.Itoa(id)+" not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "meal": m})
}

func (s *Server) getMealByName(c *gin.Context) {
	name := c.Param("meal_name")
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findByName(name)
	if m == nil {
		fail(c, http.StatusBadRequest, "Meal with name "+name+" not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "meal": m})
}

func (s *Server) combatantNames() []string {
	out := make([]string, 0, len(s.combatants))
	for _, m := range s.combatants {
		out = append(out, m.Meal)
	}
	return out
}

func (s *Server) prepCombatant(c *gin.Context) {
	var in struct {
		Meal string `json:"meal"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Meal) == "" {
		fail(c, http.StatusBadRequest, "You must name a combatant")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findByName(in.Meal)
	if m == nil {
		fail(c, http.StatusBadRequest, "Meal with name "+in.Meal+" not found")
		return
	}
	if len(s.combatants) >= 2 {
		fail(c, http.StatusBadRequest, "Combatant list is full, cannot add more combatants.")
		return
	}
	s.combatants = append(s.combatants, m)
	c.JSON(http.StatusOK, gin.H{"status": "combatant prepared", "combatants": s.combatantNames()})
}

func (s *Server) getCombatants(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "success", "combatants": s.combatants})
}

var difficultyModifier = map[string]float64{"HIGH": 1, "MED": 2, "LOW": 3}

func battleScore(m *meal) float64 {
	return m.Price*float64(len(m.Cuisine)) - difficultyModifier[m.Difficulty]
}

func (s *Server) battle(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.combatants) < 2 {
		fail(c, http.StatusBadRequest, "Two combatants must be prepped for a battle.")
		return
	}
	c1, c2 := s.combatants[0], s.combatants[1]
	delta := math.Abs(battleScore(c1)-battleScore(c2)) / 100

	winner, loser := c2, c1
	if delta > s.random() {
		winner, loser = c1, c2
	}
	winner.Battles++
	winner.Wins++
	loser.Battles++
	s.combatants = []*meal{winner}
	c.JSON(http.StatusOK, gin.H{"status": "battle complete", "winner": winner.Meal})
}

func (s *Server) clearCombatants(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combatants = nil
	c.JSON(http.StatusOK, gin.H{"status": "combatants cleared"})
}

type leaderboardEntry struct {
	ID      int     `json:"id"`
	Meal    string  `json:"meal"`
	Cuisine string  `json:"cuisine"`
	Battles int     `json:"battles"`
	Wins    int     `json:"wins"`
	WinPct  float64 `json:"win_pct"`
}

func (s *Server) leaderboard(c *gin.Context) {
	sortBy := c.DefaultQuery("sort", "wins")
	if sortBy != "wins" && sortBy != "win_pct" {
		fail(c, http.StatusBadRequest, "Invalid sort_by parameter: "+sortBy)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	board := []leaderboardEntry{}
	for _, m := range s.meals {
		if m.deleted || m.Battles == 0 {
			continue
		}
		pct := math.Round(float64(m.Wins)/float64(m.Battles)*1000) / 10
		board = append(board, leaderboardEntry{ID: m.ID, Meal: m.Meal, Cuisine: m.Cuisine, Battles: m.Battles, Wins: m.Wins, WinPct: pct})
	}
	sort.SliceStable(board, func(i, j int) bool {
		if sortBy == "win_pct" {
			return board[i].WinPct > board[j].WinPct
		}
		return board[i].Wins > board[j].Wins
	})
	c.JSON(http.StatusOK, gin.H{"status": "success", "leaderboard": board})
}
