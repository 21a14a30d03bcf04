package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/termchat/termchat/internal/wire"
	"go.uber.org/zap"
)

// TokenProvider supplies the bearer token for authenticated requests.
// Empty means unauthenticated; login and register work without one.
type TokenProvider interface {
	Token() string
}

// Client talks to the chat server's REST API: authentication, room
// CRUD, and message history. The realtime core only consumes its
// outputs (Message objects for hydration, the credential for
// connecting); everything here is plain request/response glue.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	logger  *zap.Logger
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string    `json:"token"`
	User  wire.User `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates a REST client for the given base URL (e.g.
// "http://localhost:8080").
func NewClient(baseURL string, tokens TokenProvider, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		logger:  logger,
	}
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first credential.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser fetches the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*wire.User, error) {
	var out wire.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rooms lists all visible rooms.
func (c *Client) Rooms(ctx context.Context) ([]wire.Room, error) {
	var out []wire.Room
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRoom creates a room.
func (c *Client) CreateRoom(ctx context.Context, name, description string, isPrivate bool) (*wire.Room, error) {
	var out wire.Room
	err := c.do(ctx, http.MethodPost, "/api/rooms", map[string]any{
		"name":        name,
		"description": description,
		"is_private":  isPrivate,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages fetches a page of room history, oldest first, ready for
// mailbox hydration.
func (c *Client) Messages(ctx context.Context, roomID, limit, offset int) ([]wire.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	path := fmt.Sprintf("/api/rooms/%d/messages?limit=%d&offset=%d", roomID, limit, offset)
	var out []wire.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	reqID := uuid.New().String()
	req.Header.Set("X-Request-ID", reqID)

	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", reqID),
		)
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
