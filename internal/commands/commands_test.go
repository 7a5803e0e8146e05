package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/npezzotti/mob-vibe/internal/iteration"
	"github.com/npezzotti/mob-vibe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	mu         sync.Mutex
	iterations []types.Iteration
	prompts    []string
	logs       [][]string
}

func newFakeServer(t *testing.T, its ...types.Iteration) (*fakeServer, *httptest.Server) {
	fs := &fakeServer{iterations: its}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "session", Path: "/"})
		json.NewEncoder(w).Encode(types.User{Id: 1, Name: "one"})
	})
	mux.HandleFunc("GET /game/1/iterations", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"iterations": iteration.Render(fs.iterations)})
	})
	mux.HandleFunc("POST /game/1/iteration", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string   `json:"content"`
			Logs    []string `json:"logs"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.prompts = append(fs.prompts, body.Content)
		fs.logs = append(fs.logs, body.Logs)

		it := types.Iteration{
			Id:        len(fs.iterations) + 1,
			Content:   "a\nc",
			Prompt:    body.Content,
			CreatedAt: time.Now(),
		}
		fs.iterations = append([]types.Iteration{it}, fs.iterations...)
		json.NewEncoder(w).Encode(map[string]any{"iteration": it})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	app := New("test")
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(context.Background(), append([]string{"mobvibe", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestIterateCmd(t *testing.T) {
	fs, srv := newFakeServer(t, types.Iteration{Id: 1, Content: "a\nb", CreatedAt: time.Now().Add(-time.Minute)})

	out, err := run(t, "iterate",
		"--url", srv.URL, "--email", "one@example.com", "--password", "password",
		"--game", "1", "--log", "error: boom",
		"make", "it", "faster",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Iteration 2: make it faster")
	assert.Contains(t, out, "+ c")
	require.Len(t, fs.prompts, 1)
	assert.Equal(t, "make it faster", fs.prompts[0])
	assert.Equal(t, []string{"[ERROR] boom"}, fs.logs[0])
}

func TestIterateCmd_NoPrompt(t *testing.T) {
	_, srv := newFakeServer(t)

	_, err := run(t, "iterate",
		"--url", srv.URL, "--email", "one@example.com", "--password", "password",
		"--game", "1",
	)
	assert.EqualError(t, err, "a prompt is required")
}

func TestHistoryCmd(t *testing.T) {
	now := time.Now()
	_, srv := newFakeServer(t,
		types.Iteration{Id: 2, Content: "a\nc", Prompt: "swap", CreatedAt: now},
		types.Iteration{Id: 1, Content: "a\nb", CreatedAt: now.Add(-time.Minute)},
	)

	out, err := run(t, "history",
		"--url", srv.URL, "--email", "one@example.com", "--password", "password",
		"--game", "1",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Iteration 2: swap")
	assert.Contains(t, out, "Iteration 1")
	assert.Contains(t, out, "initial version")
}

func TestConsoleLines(t *testing.T) {
	tcases := []struct {
		name string
		in   []string
		want []string
	}{
		{"level and message", []string{"warn: low fps"}, []string{"[WARN] low fps"}},
		{"no level", []string{"hello"}, []string{"[LOG] hello"}},
		{"empty", nil, []string{}},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, consoleLines(tc.in))
		})
	}
}
