// Package client drives a game session against the HTTP API the way the browser does:
// short polling loops on independent timers.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clicker-battle/models"
	"clicker-battle/services"
	"clicker-battle/utils"

	"github.com/goccy/go-json"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client is an unauthenticated connection to the API. Sessions add the token.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = utils.HTTPClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: httpClient}
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		var payload struct {
			Error string `json:"error"`
		}
		msg := string(raw)
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Register creates an account and returns its id.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/register", "", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	return out.UserID, err
}

// Login authenticates and starts a session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &out); err != nil {
		return nil, err
	}
	return &Session{
		client:   c,
		Token:    out.Token,
		UserID:   out.User.ID,
		Username: out.User.Username,
		Rating:   out.User.EloRating,
	}, nil
}

func (c *Client) Leaderboard(ctx context.Context) ([]services.PlayerSummary, error) {
	var out []services.PlayerSummary
	err := c.do(ctx, http.MethodGet, "/api/leaderboard", "", nil, &out)
	return out, err
}

// Session is the per-login client state: who we are and which match we are in.
type Session struct {
	client *Client

	Token    string
	UserID   string
	Username string
	Rating   int

	MatchID string
}

func (s *Session) call(ctx context.Context, method, path string, in, out any) error {
	return s.client.do(ctx, method, path, s.Token, in, out)
}

func (s *Session) Heartbeat(ctx context.Context) error {
	return s.call(ctx, http.MethodPost, "/api/heartbeat", nil, nil)
}

func (s *Session) Players(ctx context.Context) ([]services.PlayerSummary, error) {
	var out []services.PlayerSummary
	err := s.call(ctx, http.MethodGet, "/api/players", nil, &out)
	return out, err
}

// Challenge sends a challenge and makes it the session's current match.
func (s *Session) Challenge(ctx context.Context, opponentID string) (string, error) {
	var out struct {
		MatchID string `json:"matchId"`
	}
	if err := s.call(ctx, http.MethodPost, "/api/challenge", map[string]string{"opponentId": opponentID}, &out); err != nil {
		return "", err
	}
	s.MatchID = out.MatchID
	return out.MatchID, nil
}

// PendingChallenge returns the newest challenge addressed to us, or nil.
func (s *Session) PendingChallenge(ctx context.Context) (*services.PendingChallenge, error) {
	var out *services.PendingChallenge
	err := s.call(ctx, http.MethodGet, "/api/challenges", nil, &out)
	return out, err
}

func (s *Session) Accept(ctx context.Context, matchID string) error {
	if err := s.call(ctx, http.MethodPost, "/api/challenges/"+matchID+"/accept", nil, nil); err != nil {
		return err
	}
	s.MatchID = matchID
	return nil
}

func (s *Session) Decline(ctx context.Context, matchID string) error {
	return s.call(ctx, http.MethodPost, "/api/challenges/"+matchID+"/decline", nil, nil)
}

func (s *Session) ChallengeStatus(ctx context.Context, matchID string) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	err := s.call(ctx, http.MethodGet, "/api/challenges/"+matchID+"/status", nil, &out)
	return out.Status, err
}

// RequestMatch enters matchmaking and makes the result the current match.
func (s *Session) RequestMatch(ctx context.Context) (*services.MatchmakingResult, error) {
	var out services.MatchmakingResult
	if err := s.call(ctx, http.MethodPost, "/api/matchmaking", nil, &out); err != nil {
		return nil, err
	}
	s.MatchID = out.MatchID
	return &out, nil
}

func (s *Session) CancelMatchmaking(ctx context.Context, matchID string) error {
	return s.call(ctx, http.MethodPost, "/api/matchmaking/"+matchID+"/cancel", nil, nil)
}

func (s *Session) Match(ctx context.Context, matchID string) (*models.MatchView, error) {
	var out models.MatchView
	if err := s.call(ctx, http.MethodGet, "/api/matches/"+matchID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Watch blocks server-side until the match leaves knownStatus or timeout passes.
func (s *Session) Watch(ctx context.Context, matchID, knownStatus string, timeout time.Duration) (*models.MatchView, error) {
	path := fmt.Sprintf("/api/matches/%s/watch?timeout=%s&status=%s", matchID, timeout, knownStatus)
	var out models.MatchView
	if err := s.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ReportClicks(ctx context.Context, matchID string, clicks int) error {
	return s.call(ctx, http.MethodPost, "/api/matches/"+matchID+"/clicks", map[string]int{"clicks": clicks}, nil)
}

func (s *Session) Finish(ctx context.Context, matchID string) (*services.FinishResult, error) {
	var out services.FinishResult
	if err := s.call(ctx, http.MethodPost, "/api/matches/"+matchID+"/finish", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OpponentClicks picks the other player's counter out of a match view.
func (s *Session) OpponentClicks(m *models.MatchView) int {
	if m.Player1ID == s.UserID {
		return m.Player2Clicks
	}
	return m.Player1Clicks
}
