package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInject(t *testing.T) {
	tcases := []struct {
		name    string
		content string
		keep    string
	}{
		{
			name:    "full document",
			content: "<!DOCTYPE html><html><head><title>Game</title></head><body><canvas></canvas></body></html>",
			keep:    "<title>Game</title>",
		},
		{
			name:    "fragment",
			content: "<canvas id=\"c\"></canvas>",
			keep:    "<canvas id=\"c\"></canvas>",
		},
		{
			name:    "empty",
			content: "",
			keep:    "<head>",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Inject(tc.content)
			require.NoError(t, err)

			assert.Contains(t, out, marker, "expected capture script to be injected")
			assert.Contains(t, out, tc.keep, "expected original content to be kept")
			assert.Less(t, strings.Index(out, "<head>"), strings.Index(out, marker), "expected script inside head")
		})
	}
}

func TestInject_BeforeOtherHeadContent(t *testing.T) {
	out, err := Inject("<html><head><script>console.log('game')</script></head></html>")
	require.NoError(t, err)

	assert.Less(t, strings.Index(out, marker), strings.Index(out, "console.log('game')"),
		"expected capture script to run before game scripts")
}

func TestInject_Idempotent(t *testing.T) {
	once, err := Inject("<html><head></head><body></body></html>")
	require.NoError(t, err)

	twice, err := Inject(once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, strings.Count(twice, marker))
}

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[ERROR] x is undefined", FormatLog("error", "x", "is undefined"))
	assert.Equal(t, "[LOG] ", FormatLog("log"))
}
