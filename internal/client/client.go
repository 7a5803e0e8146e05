// Package client is a small Go client for the HTTP API. It keeps the session
// cookie in a jar so event streams opened with StreamClient are authorized.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/npezzotti/mob-vibe/internal/types"
	"github.com/rs/zerolog"
)

const defaultTimeout = 3 * time.Minute

// Error is a non-2xx API response.
type Error struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     zerolog.Logger
}

func New(baseURL string, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar, Timeout: defaultTimeout},
		log:     log.With().Str("component", "client").Logger(),
	}, nil
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + path
}

// StreamURL is the URL of the event stream; ws selects the WebSocket
// endpoint.
func (c *Client) StreamURL(ws bool) string {
	if !ws {
		return c.URL("/sse")
	}

	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String() + "/ws"
}

// StreamClient shares the session jar but has no overall timeout.
func (c *Client) StreamClient() *http.Client {
	return &http.Client{Jar: c.http.Jar}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), r)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.ToLower(http.StatusText(resp.StatusCode))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Login(ctx context.Context, email, password string) (types.User, error) {
	var u types.User
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &u)
	return u, err
}

func (c *Client) Friends(ctx context.Context) (types.PresenceSnapshot, error) {
	var s types.PresenceSnapshot
	err := c.do(ctx, http.MethodGet, "/api/friends", nil, &s)
	return s, err
}

// CreateIteration asks the server to generate a new version of a game.
func (c *Client) CreateIteration(ctx context.Context, gameId int, prompt string, logs []string) (types.Iteration, error) {
	var resp struct {
		Iteration types.Iteration `json:"iteration"`
	}
	err := c.do(ctx, http.MethodPost, "/game/"+strconv.Itoa(gameId)+"/iteration", map[string]any{
		"content": prompt,
		"logs":    logs,
	}, &resp)
	return resp.Iteration, err
}

// ListIterations returns a game's iterations, newest first.
func (c *Client) ListIterations(ctx context.Context, gameId int) ([]types.Iteration, error) {
	var resp struct {
		Iterations []struct {
			Iteration types.Iteration `json:"iteration"`
		} `json:"iterations"`
	}
	if err := c.do(ctx, http.MethodGet, "/game/"+strconv.Itoa(gameId)+"/iterations", nil, &resp); err != nil {
		return nil, err
	}

	its := make([]types.Iteration, 0, len(resp.Iterations))
	for _, e := range resp.Iterations {
		its = append(its, e.Iteration)
	}
	return its, nil
}
