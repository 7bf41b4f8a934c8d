package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfCards is returned when the selected decks cannot supply the cards a game needs.
	ErrOutOfCards = errors.New("not enough cards in the selected decks")
	// ErrNoCzar is returned when a game is asked to start without anyone able to judge.
	ErrNoCzar = errors.New("no player is able to be czar")
	// ErrGameOver is returned for round starts after a winner has been decided.
	ErrGameOver = errors.New("game already has a winner")
)

// InvalidActionError is a client mistake. Reason is shown to the requesting user.
type InvalidActionError struct {
	Reason string
}

func (e *InvalidActionError) Error() string {
	return "invalid action: " + e.Reason
}

// InvalidAction builds an InvalidActionError with a formatted reason.
func InvalidAction(format string, args ...any) error {
	return &InvalidActionError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidActionReason unwraps err and reports the client-facing reason, if any.
func InvalidActionReason(err error) (string, bool) {
	var ia *InvalidActionError
	if errors.As(err, &ia) {
		return ia.Reason, true
	}
	return "", false
}
