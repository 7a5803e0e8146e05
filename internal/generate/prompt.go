package generate

import (
	"fmt"
	"strings"

	"github.com/npezzotti/mob-vibe/internal/types"
)

// MaxContextIterations bounds how many previous iterations are sent along
// with a prompt.
const MaxContextIterations = 5

const instructions = `You are an expert AI coding assistant. Only respond with the code. Do not include any other text. All the code should be returned in a single html string. Do not include code blocks ticks or anything else. Just the code.`

// Request is one generation request for a game.
type Request struct {
	UserId int
	GameId int
	Prompt string
	// Previous iterations of the game, newest first.
	Previous []types.Iteration
	// Console lines captured while the latest iteration was running.
	Logs []string
}

// BuildPrompt renders the message sent to the model.
func BuildPrompt(req Request) string {
	previous := req.Previous
	if len(previous) > MaxContextIterations {
		previous = previous[:MaxContextIterations]
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nTake into account the following context for the game:\n\n")
	for i, it := range previous {
		fmt.Fprintf(&sb, "Iteration %d with prompt %q: %s\n", i+1, it.Prompt, it.Content)
	}

	if len(req.Logs) > 0 {
		sb.WriteString("\nThe latest iteration produced the following console output:\n\n")
		for _, line := range req.Logs {
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	sb.WriteString("\nGiven the previous context, generate a new iteration for the game based on the following prompt:\n")
	sb.WriteString(req.Prompt)

	return sb.String()
}
