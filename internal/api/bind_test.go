package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLines_UnmarshalJSON(t *testing.T) {
	tcases := []struct {
		name     string
		input    string
		expected LogLines
		wantErr  bool
	}{
		{name: "array", input: `["a","b"]`, expected: LogLines{"a", "b"}},
		{name: "encoded array", input: `"[\"a\",\"b\"]"`, expected: LogLines{"a", "b"}},
		{name: "empty string", input: `""`, expected: nil},
		{name: "plain string", input: `"not json"`, wantErr: true},
		{name: "number", input: `1`, wantErr: true},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			var l LogLines
			err := json.Unmarshal([]byte(tc.input), &l)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, l)
		})
	}
}

func TestBind(t *testing.T) {
	app := newTestApp(t, &database.MockRepository{}, testAppOpts{})

	tcases := []struct {
		name        string
		contentType string
		body        string
		expected    CreateIterationRequest
		expectedErr string
	}{
		{
			name:        "form",
			contentType: "application/x-www-form-urlencoded",
			body:        `content=hello&logs=%5B%22%5BLOG%5D+hi%22%5D`,
			expected:    CreateIterationRequest{Content: "hello", Logs: LogLines{"[LOG] hi"}},
		},
		{
			name:        "json",
			contentType: "application/json; charset=utf-8",
			body:        `{"content":"hello","logs":["[LOG] hi"]}`,
			expected:    CreateIterationRequest{Content: "hello", Logs: LogLines{"[LOG] hi"}},
		},
		{
			name:        "missing field",
			contentType: "application/json",
			body:        `{"logs":[]}`,
			expectedErr: "content is required",
		},
		{
			name:        "broken json",
			contentType: "application/json",
			body:        `{"content":`,
			expectedErr: "invalid request body",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)

			var got CreateIterationRequest
			err := app.bind(req, &got)
			if tc.expectedErr != "" {
				var apiErr *ApiError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
				assert.Contains(t, apiErr.Message, tc.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
