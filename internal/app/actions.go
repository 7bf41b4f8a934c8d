package app

import (
	"fillblank/internal/domain"
)

// ActionKind tags an inbound player action.
type ActionKind string

const (
	ActionSubmit           ActionKind = "Submit"
	ActionTakeBack         ActionKind = "TakeBack"
	ActionReveal           ActionKind = "Reveal"
	ActionJudge            ActionKind = "Judge"
	ActionLike             ActionKind = "Like"
	ActionEnforceTimeLimit ActionKind = "EnforceTimeLimit"
	ActionSetPresence      ActionKind = "SetPresence"
)

// Action is a decoded player action. Which fields matter depends on Kind.
type Action struct {
	Kind  ActionKind   `json:"action"`
	Round int          `json:"round"`
	Stage domain.Stage `json:"stage,omitempty"`
	// Play lists response card ids in slot order, for Submit.
	Play []string `json:"play,omitempty"`
	// Fill maps blank card ids to the text written on them, for Submit.
	Fill     map[string]string `json:"fill,omitempty"`
	PlayID   string            `json:"playId,omitempty"`
	Presence PresenceChange    `json:"presence,omitempty"`
}

// Apply validates an action from userID against the lobby's game and runs it.
// Invalid actions leave the game untouched.
func (s *Service) Apply(lobby *domain.Lobby, userID string, action Action) (Outcome, error) {
	if _, ok := lobby.Users[userID]; !ok {
		return Outcome{}, ErrUnknownUser
	}
	g := lobby.Game
	if g == nil {
		return Outcome{}, domain.InvalidAction("There is no game in progress.")
	}

	switch action.Kind {
	case ActionEnforceTimeLimit:
		return s.EnforceTimeLimit(lobby, action.Round, action.Stage)
	case ActionSetPresence:
		return s.setPresence(lobby, userID, action.Presence)
	case ActionSubmit, ActionTakeBack, ActionReveal, ActionJudge, ActionLike:
	default:
		return Outcome{}, domain.InvalidAction("Unknown action %q.", action.Kind)
	}

	if g.Winner != nil {
		return Outcome{}, domain.InvalidAction("The game is over.")
	}
	if action.Round != g.Round.ID {
		return Outcome{}, domain.InvalidAction("That round is no longer in progress.")
	}

	switch action.Kind {
	case ActionSubmit:
		return s.submitAction(lobby, userID, action)
	case ActionTakeBack:
		return s.takeBackAction(lobby, userID)
	case ActionReveal:
		return s.revealAction(lobby, userID, action.PlayID)
	case ActionJudge:
		if g.Round.Czar != userID {
			return Outcome{}, domain.InvalidAction("Only the czar can pick a winner.")
		}
		return s.judge(lobby, action.PlayID)
	default:
		return s.likeAction(lobby, userID, action.PlayID)
	}
}

func (s *Service) submitAction(lobby *domain.Lobby, userID string, action Action) (Outcome, error) {
	g := lobby.Game
	if _, err := s.submit(g, userID, action.Play, action.Fill); err != nil {
		return Outcome{}, err
	}
	out := Outcome{Events: []Event{broadcast(EventPlaySubmitted, PlaySubmittedPayload{UserID: userID})}}
	if t, ok := finishedPlayingIfNeeded(g.Round, stageAfter(g, domain.StagePlaying)); ok {
		out.schedule(t)
	}
	return out, nil
}

func (s *Service) takeBackAction(lobby *domain.Lobby, userID string) (Outcome, error) {
	g := lobby.Game
	taken, err := g.Round.TakeBack(userID)
	if err != nil {
		return Outcome{}, err
	}
	g.Return(userID, taken.Play)
	return Outcome{Events: []Event{broadcast(EventPlayTakenBack, PlayTakenBackPayload{UserID: userID})}}, nil
}

func (s *Service) revealAction(lobby *domain.Lobby, userID, playID string) (Outcome, error) {
	g := lobby.Game
	if g.Round.Czar != userID {
		return Outcome{}, domain.InvalidAction("Only the czar can reveal plays.")
	}
	revealed, changed, err := g.Round.Reveal(playID)
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		return Outcome{}, nil
	}
	out := Outcome{Events: []Event{broadcast(EventPlayRevealed, PlayRevealedPayload{PlayID: revealed.ID, Play: revealed.Play})}}
	if t, ok := finishedRevealingIfNeeded(g.Round, stageAfter(g, domain.StageRevealing)); ok {
		out.schedule(t)
	}
	return out, nil
}

func (s *Service) likeAction(lobby *domain.Lobby, userID, playID string) (Outcome, error) {
	changed, err := lobby.Game.Round.Like(userID, playID)
	if err != nil || !changed {
		return Outcome{}, err
	}
	return Outcome{Events: []Event{broadcast(EventPlayLiked, PlayLikedPayload{PlayID: playID})}}, nil
}

func (s *Service) setPresence(lobby *domain.Lobby, userID string, change PresenceChange) (Outcome, error) {
	if _, ok := lobby.Game.Players[userID]; !ok {
		return Outcome{}, domain.InvalidAction("User must be a player.")
	}
	switch change {
	case PresenceAway:
		if !lobby.HasActiveGame() {
			return Outcome{}, nil
		}
		return s.dealWithLostPlayer(lobby, userID)
	case PresenceBack:
		return s.playerBack(lobby, userID)
	default:
		return Outcome{}, domain.InvalidAction("Unknown presence %q.", change)
	}
}
