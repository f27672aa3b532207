package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"daily-reward-system/models"
	"daily-reward-system/repository"
	"daily-reward-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	app      *fiber.App
	accounts *services.AccountService
	clock    *testClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	tokens, err := services.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	metrics := services.NewMetrics(registry)

	accounts := services.NewAccountService(store, tokens, metrics, nil)
	accounts.SetBcryptCost(bcrypt.MinCost)

	app := NewApp(Deps{
		Engine:         services.NewClaimEngine(store, services.WithClock(clock.Now), services.WithMetrics(metrics)),
		Catalog:        services.NewCatalogService(store, nil),
		Accounts:       accounts,
		AllowedOrigins: []string{"http://localhost:3000"},
		MetricsToken:   "scrape-token",
		Gatherer:       registry,
	})
	return &testServer{app: app, accounts: accounts, clock: clock}
}

func (s *testServer) request(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

// signup registers and logs in a user, returning its token.
func (s *testServer) signup(t *testing.T, email string, role models.UserRole) string {
	t.Helper()
	status, _ := s.request(t, "POST", "/api/v1/auth/register", "", fiber.Map{
		"name": "Player", "email": email, "password": "s3cret-pass",
	})
	require.Equal(t, fiber.StatusCreated, status)

	if role == models.RoleAdmin {
		_, err := s.accounts.SetRole(t.Context(), email, role)
		require.NoError(t, err)
	}

	status, body := s.request(t, "POST", "/api/v1/auth/login", "", fiber.Map{
		"email": email, "password": "s3cret-pass",
	})
	require.Equal(t, fiber.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestClaimFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.signup(t, "admin@example.com", models.RoleAdmin)
	player := s.signup(t, "player@example.com", models.RoleUser)

	status, body := s.request(t, "POST", "/api/v1/rewards/claim", player, fiber.Map{"wants_double": false})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NO_REWARDS_AVAILABLE", body["code"])

	for i, amounts := range [][2]int{{10, 1}, {20, 2}, {30, 3}} {
		status, body = s.request(t, "POST", "/api/v1/reward-tiers", admin, fiber.Map{
			"tier_index":            i + 1,
			"label":                 "Coins",
			"base_amount_primary":   amounts[0],
			"base_amount_secondary": amounts[1],
		})
		require.Equal(t, fiber.StatusCreated, status, body)
	}

	status, body = s.request(t, "GET", "/api/v1/rewards/status", player, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["eligible"])
	assert.Nil(t, body["next_eligible_at"])

	status, body = s.request(t, "POST", "/api/v1/rewards/claim", player, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	reward := body["reward"].(map[string]any)
	assert.Equal(t, 1.0, reward["tier_index"])
	assert.Equal(t, 10.0, reward["granted_primary"])
	assert.Equal(t, "2024-03-02T09:00:00Z", body["next_eligible_at"])

	s.clock.Advance(25 * time.Hour)
	status, body = s.request(t, "POST", "/api/v1/rewards/claim", player, fiber.Map{"wants_double": true})
	require.Equal(t, fiber.StatusOK, status, body)
	reward = body["reward"].(map[string]any)
	assert.Equal(t, 2.0, reward["tier_index"])
	assert.Equal(t, 40.0, reward["granted_primary"])
	assert.Equal(t, 2.0, reward["granted_secondary"])
	assert.Equal(t, true, reward["doubled"])

	s.clock.Advance(time.Hour)
	status, body = s.request(t, "POST", "/api/v1/rewards/claim", player, fiber.Map{"wants_double": false})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "NOT_YET_ELIGIBLE", body["code"])
	assert.Equal(t, "2024-03-03T10:00:00Z", body["next_eligible_at"])

	status, body = s.request(t, "GET", "/api/v1/rewards/status", player, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["eligible"])
	assert.Equal(t, 3.0, body["reward"].(map[string]any)["tier_index"])

	status, body = s.request(t, "GET", "/api/v1/auth/balance", player, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 50.0, body["primary_balance"])
	assert.Equal(t, 3.0, body["secondary_balance"])

	status, body = s.request(t, "GET", "/api/v1/rewards/history?page=1&size=1", player, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2.0, body["total"])
	claims := body["claims"].([]any)
	require.Len(t, claims, 1)
	assert.Equal(t, 2.0, claims[0].(map[string]any)["sequence"])
}

func TestClaimRejectsBadBody(t *testing.T) {
	s := newTestServer(t)
	player := s.signup(t, "player@example.com", models.RoleUser)

	req := httptest.NewRequest("POST", "/api/v1/rewards/claim", bytes.NewReader([]byte(`{"wants_double":`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+player)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTierAdministration(t *testing.T) {
	s := newTestServer(t)
	admin := s.signup(t, "admin@example.com", models.RoleAdmin)
	player := s.signup(t, "player@example.com", models.RoleUser)

	create := fiber.Map{"tier_index": 1, "label": "Coins", "base_amount_primary": 10, "base_amount_secondary": 1}

	status, body := s.request(t, "POST", "/api/v1/reward-tiers", player, create)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, body = s.request(t, "POST", "/api/v1/reward-tiers", admin, create)
	require.Equal(t, fiber.StatusCreated, status)
	tierID := body["tier"].(map[string]any)["id"].(string)

	status, body = s.request(t, "POST", "/api/v1/reward-tiers", admin, create)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE_TIER", body["code"])

	status, body = s.request(t, "POST", "/api/v1/reward-tiers", admin, fiber.Map{"tier_index": 0, "label": ""})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", body["code"])
	assert.Contains(t, body["error"], "tier_index")

	status, body = s.request(t, "GET", "/api/v1/reward-tiers", player, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1.0, body["total"])

	status, body = s.request(t, "GET", "/api/v1/reward-tiers/1", player, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Coins", body["tier"].(map[string]any)["label"])

	status, body = s.request(t, "GET", "/api/v1/reward-tiers/9", player, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "TIER_NOT_FOUND", body["code"])

	status, _ = s.request(t, "GET", "/api/v1/reward-tiers/abc", player, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.request(t, "PUT", "/api/v1/reward-tiers/"+tierID, admin, fiber.Map{"base_amount_primary": 15, "active": false})
	require.Equal(t, fiber.StatusOK, status)
	tier := body["tier"].(map[string]any)
	assert.Equal(t, 15.0, tier["base_amount_primary"])
	assert.Equal(t, false, tier["active"])

	status, body = s.request(t, "GET", "/api/v1/reward-tiers?active_only=true", player, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0.0, body["total"])

	status, body = s.request(t, "GET", "/api/v1/reward-tiers/1", player, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "TIER_NOT_FOUND", body["code"])

	status, _ = s.request(t, "PUT", "/api/v1/reward-tiers/not-a-uuid", admin, fiber.Map{"label": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = s.request(t, "PUT", "/api/v1/reward-tiers/00000000-0000-0000-0000-000000000000", admin, fiber.Map{"label": "x"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.request(t, "DELETE", "/api/v1/reward-tiers/"+tierID, player, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = s.request(t, "DELETE", "/api/v1/reward-tiers/"+tierID, admin, nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = s.request(t, "DELETE", "/api/v1/reward-tiers/"+tierID, admin, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = s.request(t, "DELETE", "/api/v1/reward-tiers/"+tierID+"?hard=true", admin, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestClaimAcceptsJSONWithoutContentType(t *testing.T) {
	s := newTestServer(t)
	admin := s.signup(t, "admin@example.com", models.RoleAdmin)
	player := s.signup(t, "player@example.com", models.RoleUser)

	status, body := s.request(t, "POST", "/api/v1/reward-tiers", admin, fiber.Map{
		"tier_index": 1, "label": "Coins", "base_amount_primary": 10,
	})
	require.Equal(t, fiber.StatusCreated, status, body)

	req := httptest.NewRequest("POST", "/api/v1/rewards/claim", bytes.NewReader([]byte(`{"wants_double":true}`)))
	req.Header.Set("Authorization", "Bearer "+player)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Reward struct {
			GrantedPrimary int64 `json:"granted_primary"`
			Doubled        bool  `json:"doubled"`
		} `json:"reward"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Reward.Doubled)
	assert.EqualValues(t, 20, out.Reward.GrantedPrimary)
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	s := newTestServer(t)

	// 40 runes pass max=72 but encode to 80 bytes
	status, body := s.request(t, "POST", "/api/v1/auth/register", "", fiber.Map{
		"name": "Player", "email": "accent@example.com", "password": strings.Repeat("é", 40),
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", body["code"])
	assert.Contains(t, body["error"], "72 bytes")

	status, _ = s.request(t, "POST", "/api/v1/auth/register", "", fiber.Map{
		"name": "Player", "email": "accent@example.com", "password": strings.Repeat("é", 36),
	})
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "player@example.com", models.RoleUser)

	status, body := s.request(t, "POST", "/api/v1/auth/register", "", fiber.Map{
		"name": "Again", "email": "player@example.com", "password": "another-pass",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "EMAIL_TAKEN", body["code"])

	status, body = s.request(t, "POST", "/api/v1/auth/register", "", fiber.Map{
		"name": "Bad", "email": "not-an-email", "password": "short",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "email")
	assert.Contains(t, body["error"], "password")

	status, body = s.request(t, "POST", "/api/v1/auth/login", "", fiber.Map{
		"email": "player@example.com", "password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	status, _ = s.request(t, "POST", "/api/v1/auth/login", "", fiber.Map{
		"email": "ghost@example.com", "password": "whatever",
	})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.request(t, "GET", "/api/v1/auth/balance", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = s.request(t, "GET", "/api/v1/rewards/status", "garbage", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.request(t, "GET", "/healthz", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = s.request(t, "GET", "/metrics", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	s.signup(t, "player@example.com", models.RoleUser)

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set("Authorization", "Bearer scrape-token")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "daily_reward_registrations_total 1")
}
