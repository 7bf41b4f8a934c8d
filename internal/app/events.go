package app

import "fillblank/internal/domain"

// EventKind identifies emitted domain events for dispatch.
type EventKind string

const (
	EventPlayerJoined          EventKind = "PlayerJoined"
	EventPlayerLeft            EventKind = "PlayerLeft"
	EventUserRoleChanged       EventKind = "UserRoleChanged"
	EventGameStarted           EventKind = "GameStarted"
	EventRoundStarted          EventKind = "RoundStarted"
	EventHandDealt             EventKind = "HandDealt"
	EventPauseStateChanged     EventKind = "PauseStateChanged"
	EventPlaySubmitted         EventKind = "PlaySubmitted"
	EventPlayTakenBack         EventKind = "PlayTakenBack"
	EventStartRevealing        EventKind = "StartRevealing"
	EventPlayRevealed          EventKind = "PlayRevealed"
	EventStartJudging          EventKind = "StartJudging"
	EventPlayLiked             EventKind = "PlayLiked"
	EventRoundFinished         EventKind = "RoundFinished"
	EventStageTimerDone        EventKind = "StageTimerDone"
	EventPlayerPresenceChanged EventKind = "PlayerPresenceChanged"
	EventGameEnded             EventKind = "GameEnded"
)

// Event is a domain/app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
	// Additions holds per-user extras only that user receives with the event.
	Additions map[string]any
}

// Message is the copy of an event a single user receives.
type Message struct {
	Event    EventKind `json:"event"`
	Payload  any       `json:"payload,omitempty"`
	Addition any       `json:"addition,omitempty"`
}

// VisibleTo reports whether userID should receive the event.
func (e Event) VisibleTo(userID string) bool {
	if len(e.Recipients) == 0 {
		return true
	}
	for _, id := range e.Recipients {
		if id == userID {
			return true
		}
	}
	return false
}

// MessageFor builds the copy of the event userID receives.
func (e Event) MessageFor(userID string) Message {
	return Message{Event: e.Kind, Payload: e.Payload, Addition: e.Additions[userID]}
}

type PlayerJoinedPayload struct {
	UserID string      `json:"userId"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
}

type PlayerLeftPayload struct {
	UserID string `json:"userId"`
}

type UserRoleChangedPayload struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

type GameStartedPayload struct {
	Game domain.PublicGame `json:"game"`
}

// HandAddition is the dealt hand sent privately with GameStarted.
type HandAddition struct {
	Hand []domain.Response `json:"hand"`
}

type RoundStartedPayload struct {
	Round domain.PublicRound `json:"round"`
}

// DrawnAddition is the top-up a player receives privately with RoundStarted.
type DrawnAddition struct {
	Drawn []domain.Response `json:"drawn"`
}

type HandDealtPayload struct {
	UserID string            `json:"userId"`
	Cards  []domain.Response `json:"cards"`
}

type PauseStateChangedPayload struct {
	Paused bool `json:"paused"`
}

type PlaySubmittedPayload struct {
	UserID string `json:"userId"`
}

type PlayTakenBackPayload struct {
	UserID string `json:"userId"`
}

type StartRevealingPayload struct {
	Plays []string `json:"plays"`
}

type PlayRevealedPayload struct {
	PlayID string      `json:"playId"`
	Play   domain.Play `json:"play"`
}

type StartJudgingPayload struct {
	// Plays is only set when the revealing stage was skipped.
	Plays []domain.PublicPlay `json:"plays,omitempty"`
}

type PlayLikedPayload struct {
	PlayID string `json:"playId"`
}

type RoundFinishedPayload struct {
	Round  domain.PublicRound `json:"round"`
	PlayID string             `json:"playId"`
	Winner string             `json:"winner"`
}

type StageTimerDonePayload struct {
	Round int          `json:"round"`
	Stage domain.Stage `json:"stage"`
}

// PresenceChange is Away or Back.
type PresenceChange string

const (
	PresenceAway PresenceChange = "Away"
	PresenceBack PresenceChange = "Back"
)

type PlayerPresenceChangedPayload struct {
	UserID string         `json:"userId"`
	Change PresenceChange `json:"change"`
}

type GameEndedPayload struct {
	Winner []string `json:"winner"`
}

func broadcast(kind EventKind, payload any) Event {
	return Event{Kind: kind, Payload: payload}
}

func private(userID string, kind EventKind, payload any) Event {
	return Event{Kind: kind, Payload: payload, Recipients: []string{userID}}
}
