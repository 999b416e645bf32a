package toolloop

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoUserMessage is returned when Run is called on a state without any
// user message.
var ErrNoUserMessage = errors.New("conversation has no user message")

// ErrTurnLimitExceeded matches every TurnLimitExceededError via errors.Is.
var ErrTurnLimitExceeded = errors.New("turn limit exceeded")

// TurnLimitExceededError is returned when the model keeps requesting tools
// beyond the configured number of model calls.
type TurnLimitExceededError struct {
	Limit int
}

func (e *TurnLimitExceededError) Error() string {
	return fmt.Sprintf("max iterations (%d) reached", e.Limit)
}

func (e *TurnLimitExceededError) Is(target error) bool {
	return target == ErrTurnLimitExceeded
}
