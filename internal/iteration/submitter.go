package iteration

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/npezzotti/mob-vibe/internal/types"
)

var (
	ErrSubmitting  = errors.New("an iteration is already being submitted")
	ErrEmptyPrompt = errors.New("prompt is required")
)

// Creator asks the server for a new iteration of a game.
type Creator interface {
	CreateIteration(ctx context.Context, gameId int, prompt string, logs []string) (types.Iteration, error)
}

type SubmitState int

const (
	Idle SubmitState = iota
	Submitting
)

func (s SubmitState) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// Submitter sends prompts one at a time and prepends each created iteration
// to its history.
type Submitter struct {
	mu      sync.Mutex
	gameId  int
	creator Creator
	history *History
	state   SubmitState
	input   string
}

func NewSubmitter(gameId int, creator Creator, history *History) *Submitter {
	if history == nil {
		history = NewHistory(nil)
	}

	return &Submitter{
		gameId:  gameId,
		creator: creator,
		history: history,
	}
}

func (s *Submitter) History() *History {
	return s.history
}

func (s *Submitter) State() SubmitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetInput stores the pending prompt.
func (s *Submitter) SetInput(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = prompt
}

func (s *Submitter) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Submit creates an iteration from prompt, or from the pending input when
// prompt is empty. On failure nothing is appended and the input is kept.
func (s *Submitter) Submit(ctx context.Context, prompt string, logs []string) (types.Iteration, error) {
	s.mu.Lock()
	if s.state == Submitting {
		s.mu.Unlock()
		return types.Iteration{}, ErrSubmitting
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = s.input
	}
	if strings.TrimSpace(prompt) == "" {
		s.mu.Unlock()
		return types.Iteration{}, ErrEmptyPrompt
	}
	s.state = Submitting
	s.mu.Unlock()

	it, err := s.creator.CreateIteration(ctx, s.gameId, prompt, logs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle
	if err != nil {
		return types.Iteration{}, err
	}

	if it.Prompt == "" {
		it.Prompt = prompt
	}
	s.history.Add(it)
	s.input = ""

	return it, nil
}
