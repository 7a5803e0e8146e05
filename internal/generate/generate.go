// Package generate asks an AI model for new iterations of a game.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

const anthropicVersion = "2023-06-01"

var (
	ErrUpstream      = errors.New("ai provider request failed")
	ErrNotConfigured = errors.New("ai provider is not configured")
)

// Result is the generated content and the usage reported for it.
type Result struct {
	MessageId    string
	Model        string
	Content      string
	InputTokens  int
	OutputTokens int
}

type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
	// Consecutive failures before the breaker opens.
	TripAfter uint32
	// How long the breaker stays open.
	OpenTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.anthropic.com"
	}
	if c.Model == "" {
		c.Model = "claude-3-7-sonnet-latest"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.Attempts == 0 {
		c.Attempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.TripAfter == 0 {
		c.TripAfter = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = time.Minute
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// Client talks to the Anthropic messages API.
type Client struct {
	cfg  Config
	http *http.Client
	cb   *gobreaker.CircuitBreaker[Result]
	log  zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	cfg = cfg.withDefaults()
	log = log.With().Str("component", "generator").Logger()

	cb := gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        "ai-provider",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.TripAfter
		},
		// A rejected prompt says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.RequestRejected()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		cb:   cb,
		log:  log,
	}
}

// State reports the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

// Generate sends the rendered prompt and returns the first text block of the
// reply.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	if c.cfg.APIKey == "" {
		return Result{}, ErrNotConfigured
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  []message{{Role: "user", Content: BuildPrompt(req)}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	res, err := c.cb.Execute(func() (Result, error) {
		return c.send(ctx, body)
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	c.log.Info().
		Int("game_id", req.GameId).
		Str("message_id", res.MessageId).
		Int("input_tokens", res.InputTokens).
		Int("output_tokens", res.OutputTokens).
		Msg("generated iteration")

	return res, nil
}

func (c *Client) send(ctx context.Context, body []byte) (Result, error) {
	var (
		res     Result
		lastErr error
	)

	err := retry.Do(
		func() error {
			r, err := c.post(ctx, body)
			if err != nil {
				lastErr = err
				return err
			}
			res = r
			return nil
		},
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug().Uint("attempt", n).Err(err).Msg("retrying generation")
		}),
		retry.RetryIf(func(err error) bool {
			var se *StatusError
			return !errors.As(err, &se) || se.Retryable()
		}),
	)
	if err != nil {
		if lastErr != nil {
			return Result{}, lastErr
		}
		return Result{}, err
	}

	return res, nil
}

func (c *Client) post(ctx context.Context, body []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	res := Result{
		MessageId:    mr.Id,
		Model:        mr.Model,
		InputTokens:  mr.Usage.InputTokens,
		OutputTokens: mr.Usage.OutputTokens,
	}
	if len(mr.Content) > 0 && mr.Content[0].Type == "text" {
		res.Content = mr.Content[0].Text
	}

	return res, nil
}

// StatusError is a non-2xx reply from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RequestRejected reports a 4xx caused by the request itself. Rate limits
// and credential failures affect every caller and are excluded.
func (e *StatusError) RequestRejected() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Id      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
