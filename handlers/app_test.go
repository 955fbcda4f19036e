package handlers

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clicker-battle/events"
	"clicker-battle/internal/testutil"
	"clicker-battle/logger"
	"clicker-battle/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app     *fiber.App
	results *testutil.RecordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.OpenDB(t)
	log := logger.Nop()
	notifier := events.NewMemoryNotifier()
	results := &testutil.RecordingPublisher{}

	app := NewApp(Deps{
		Auth:           services.NewAuthService(db, log, "test-secret", time.Hour),
		Users:          services.NewUserService(db, log),
		Challenges:     services.NewChallengeService(db, notifier, log),
		Matchmaking:    services.NewMatchmakingService(db, notifier, log, 200, 5),
		Battles:        services.NewBattleService(db, notifier, log, 2*time.Second),
		Finisher:       services.NewFinisher(db, notifier, results, log),
		Log:            log,
		AllowedOrigins: "http://localhost:3000",
		MetricsToken:   "ops",
		WatchMax:       2 * time.Second,
	})
	return &testServer{app: app, results: results}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	status, raw := s.doRaw(t, method, path, token, body)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return status, out
}

func (s *testServer) doRaw(t *testing.T, method, path, token string, body any) (int, []byte) {
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

	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

// signup registers and logs in a user, returning its token and id.
func (s *testServer) signup(t *testing.T, name string) (string, string) {
	t.Helper()
	creds := map[string]string{"username": name, "password": "secret1"}

	status, body := s.do(t, http.MethodPost, "/api/register", "", creds)
	require.Equal(t, fiber.StatusCreated, status, body)

	status, body = s.do(t, http.MethodPost, "/api/login", "", creds)
	require.Equal(t, fiber.StatusOK, status, body)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsRequireServiceToken(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/metrics", "ops", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"username": "alice", "password": "secret1"}

	status, body := s.do(t, http.MethodPost, "/api/register", "", creds)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "alice", body["username"])
	assert.NotEmpty(t, body["userId"])

	status, _ = s.do(t, http.MethodPost, "/api/register", "", creds)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do(t, http.MethodPost, "/api/register", "", map[string]string{"username": "al", "password": "secret1"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "nope123"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = s.do(t, http.MethodPost, "/api/login", "", creds)
	require.Equal(t, fiber.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.EqualValues(t, 1000, user["elo_rating"])
	assert.NotContains(t, user, "password_hash")
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/profile", "/api/players", "/api/challenges"} {
		status, _ := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, status, path)

		status, _ = s.do(t, http.MethodGet, path, "not-a-token", nil)
		assert.Equal(t, fiber.StatusUnauthorized, status, path)
	}

	status, _ := s.do(t, http.MethodGet, "/api/leaderboard", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestChallengeBattleFlow(t *testing.T) {
	s := newTestServer(t)
	aliceTok, aliceID := s.signup(t, "alice")
	bobTok, bobID := s.signup(t, "bob")

	status, _ := s.do(t, http.MethodPost, "/api/challenge", aliceTok, map[string]string{"opponentId": aliceID})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := s.do(t, http.MethodPost, "/api/challenge", aliceTok, map[string]string{"opponentId": bobID})
	require.Equal(t, fiber.StatusCreated, status, body)
	matchID := body["matchId"].(string)

	status, pending := s.do(t, http.MethodGet, "/api/challenges", bobTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, matchID, pending["challengeId"])
	assert.Equal(t, "alice", pending["challengerName"])

	status, body = s.do(t, http.MethodGet, "/api/challenges/"+matchID+"/status", aliceTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "waiting", body["status"])

	// only the addressee can accept
	status, _ = s.do(t, http.MethodPost, "/api/challenges/"+matchID+"/accept", aliceTok, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/api/challenges/"+matchID+"/accept", bobTok, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/matches/"+matchID+"/clicks", aliceTok, map[string]int{"clicks": 12})
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/api/matches/"+matchID+"/clicks", bobTok, map[string]int{"clicks": 9})
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, http.MethodPost, "/api/matches/"+matchID+"/clicks", bobTok, map[string]int{"clicks": -1})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = s.do(t, http.MethodPost, "/api/matches/"+matchID+"/clicks", bobTok, map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/api/matches/"+matchID, bobTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 12, body["player1_clicks"])
	assert.Equal(t, "bob", body["player2_username"])

	status, body = s.do(t, http.MethodPost, "/api/matches/"+matchID+"/finish", bobTok, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, aliceID, body["winnerId"])
	assert.EqualValues(t, 1016, body["player1NewElo"])
	assert.EqualValues(t, 984, body["player2NewElo"])

	status, body = s.do(t, http.MethodPost, "/api/matches/"+matchID+"/finish", aliceTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["replayed"])
	assert.EqualValues(t, 16, body["player1EloChange"])

	status, _ = s.do(t, http.MethodPost, "/api/matches/"+matchID+"/clicks", aliceTok, map[string]int{"clicks": 50})
	assert.Equal(t, fiber.StatusConflict, status)

	status, body = s.do(t, http.MethodGet, "/api/matches/"+matchID+"/watch?status=in_progress", aliceTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "completed", body["status"])

	status, body = s.do(t, http.MethodGet, "/api/challenges/"+matchID+"/status", aliceTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "completed", body["status"])
}

func TestDeclineAndCancelAcknowledge(t *testing.T) {
	s := newTestServer(t)
	aliceTok, _ := s.signup(t, "alice")
	bobTok, bobID := s.signup(t, "bob")

	_, body := s.do(t, http.MethodPost, "/api/challenge", aliceTok, map[string]string{"opponentId": bobID})
	matchID := body["matchId"].(string)

	status, body := s.do(t, http.MethodPost, "/api/challenges/"+matchID+"/decline", bobTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = s.do(t, http.MethodPost, "/api/challenges/"+matchID+"/decline", bobTok, nil)
	assert.Equal(t, fiber.StatusOK, status, "declining twice is still acknowledged")

	status, _ = s.do(t, http.MethodGet, "/api/challenges/"+matchID+"/status", aliceTok, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, raw := s.doRaw(t, http.MethodGet, "/api/challenges", bobTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "null", string(raw), "no pending challenge renders as a bare null")

	status, _ = s.do(t, http.MethodPost, "/api/matchmaking/not-a-uuid/cancel", aliceTok, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestMatchmakingOverHTTP(t *testing.T) {
	s := newTestServer(t)
	aliceTok, _ := s.signup(t, "alice")
	bobTok, bobID := s.signup(t, "bob")

	status, body := s.do(t, http.MethodPost, "/api/matchmaking", aliceTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["waiting"])
	waitingID := body["matchId"].(string)

	status, body = s.do(t, http.MethodPost, "/api/matchmaking", bobTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["waiting"])
	assert.Equal(t, waitingID, body["matchId"])

	status, body = s.do(t, http.MethodGet, "/api/matches/"+waitingID, aliceTok, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "in_progress", body["status"])
	assert.Equal(t, bobID, body["player2_id"])

	status, _ = s.do(t, http.MethodPost, "/api/matchmaking/"+waitingID+"/cancel", aliceTok, nil)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestEloHistoryRoute(t *testing.T) {
	s := newTestServer(t)
	tok, _ := s.signup(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/users/me/elo-history", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	status, _ := s.do(t, http.MethodGet, "/api/users/bogus/elo-history", tok, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestParseTimeout(t *testing.T) {
	d, err := parseTimeout("")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = parseTimeout("3")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)

	d, err = parseTimeout("750ms")
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, d)

	_, err = parseTimeout("soon")
	assert.Error(t, err)
}
