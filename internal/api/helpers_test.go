package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/npezzotti/mob-vibe/internal/config"
	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/npezzotti/mob-vibe/internal/generate"
	"github.com/npezzotti/mob-vibe/internal/stats"
	"github.com/npezzotti/mob-vibe/internal/stream"
	"github.com/npezzotti/mob-vibe/internal/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req generate.Request) (generate.Result, error) {
	args := m.Called(req)
	return args.Get(0).(generate.Result), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) FriendshipsChanged(userIds ...int) error {
	args := m.Called(userIds)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		SigningKey:       []byte("test-signing-key"),
		AllowedOrigins:   []string{"http://localhost:3000"},
		PresenceInterval: time.Hour,
		LastSeenInterval: time.Hour,
		RateLimit:        config.RateLimitConfig{Requests: 100, Window: time.Minute},
	}
}

type testAppOpts struct {
	gen      generate.Generator
	notifier ChangeNotifier
	hub      *stream.Hub
	cfg      *config.Config
}

func newTestApp(t *testing.T, repo database.Repository, opts testAppOpts) *App {
	cfg := opts.cfg
	if cfg == nil {
		cfg = testConfig()
	}
	return NewApp(testutil.TestLogger(t), repo, opts.hub, opts.notifier, opts.gen, stats.NoopStats{}, cfg)
}

// sessionCookie returns a valid token cookie for userId.
func sessionCookie(t *testing.T, app *App, userId int) *http.Cookie {
	token, err := app.createJwtForSession(userId, defaultJwtExpiration)
	require.NoError(t, err, "failed to create jwt token")
	return createJwtCookie(token, defaultJwtExpiration)
}

func formBody(values map[string]string) io.Reader {
	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}
	return strings.NewReader(form.Encode())
}

// serve runs a request through the full handler chain. userId 0 sends no
// session cookie.
func serve(t *testing.T, app *App, method, target string, body io.Reader, contentType string, userId int) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userId != 0 {
		req.AddCookie(sessionCookie(t, app, userId))
	}

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)
	return rr
}

func postForm(t *testing.T, app *App, target string, values map[string]string, userId int) *httptest.ResponseRecorder {
	return serve(t, app, http.MethodPost, target, formBody(values), "application/x-www-form-urlencoded", userId)
}

func postJson(t *testing.T, app *App, target string, v any, userId int) *httptest.ResponseRecorder {
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return serve(t, app, http.MethodPost, target, strings.NewReader(string(body)), "application/json", userId)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), "failed to decode body %q", rr.Body.String())
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	var apiErr ApiError
	decodeBody(t, rr, &apiErr)
	return apiErr.Message
}
