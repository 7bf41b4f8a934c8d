package app

import (
	"errors"

	"fillblank/internal/domain"
)

var (
	ErrTooFewPlayers  = errors.New("not enough players to start")
	ErrGameInProgress = errors.New("lobby already has a game in progress")
	ErrNoGame         = errors.New("lobby has no game")
	ErrUnknownUser    = errors.New("user not found in lobby")
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrLobbyExists    = errors.New("lobby already exists")
	// ErrStaleTimeout is returned for timeouts whose round or stage has moved on.
	ErrStaleTimeout = errors.New("timeout no longer applies")
	// ErrBusy is returned when a game stays locked for longer than the caller waits.
	ErrBusy = errors.New("game is busy, try again")
)

// Kind is the stable error category transports expose to clients.
type Kind string

const (
	KindInvalidAction Kind = "InvalidAction"
	KindOutOfCards    Kind = "OutOfCards"
	KindGameOver      Kind = "GameOver"
	KindBusy          Kind = "Busy"
	KindNotFound      Kind = "NotFound"
	KindInternal      Kind = "Internal"
)

// ErrorKind classifies err. Only invalid actions carry a reason meant for the client.
func ErrorKind(err error) Kind {
	if _, ok := domain.InvalidActionReason(err); ok {
		return KindInvalidAction
	}
	switch {
	case errors.Is(err, domain.ErrOutOfCards):
		return KindOutOfCards
	case errors.Is(err, domain.ErrGameOver):
		return KindGameOver
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrLobbyNotFound), errors.Is(err, ErrUnknownUser), errors.Is(err, ErrNoGame):
		return KindNotFound
	case errors.Is(err, ErrTooFewPlayers), errors.Is(err, ErrGameInProgress), errors.Is(err, ErrLobbyExists):
		return KindInvalidAction
	default:
		return KindInternal
	}
}

// ClientMessage is what a client may be told about err.
func ClientMessage(err error) string {
	if reason, ok := domain.InvalidActionReason(err); ok {
		return reason
	}
	switch ErrorKind(err) {
	case KindOutOfCards:
		return "There are not enough cards in the selected decks."
	case KindGameOver:
		return "The game is over."
	case KindBusy:
		return "The game is busy, try again."
	case KindNotFound:
		return "Not found."
	case KindInvalidAction:
		return err.Error()
	default:
		return "Internal error."
	}
}
