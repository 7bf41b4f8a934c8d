package app

import (
	"fillblank/internal/domain"
)

// EnforceTimeLimit is a player's request to stop waiting on whoever let the
// soft time limit run out. Requests naming a round or stage the game has
// already left are no-ops.
func (s *Service) EnforceTimeLimit(lobby *domain.Lobby, round int, stage domain.Stage) (Outcome, error) {
	g := lobby.Game
	if g == nil {
		return Outcome{}, ErrNoGame
	}
	if g.Rules.Stages.Mode != domain.TimeLimitSoft {
		return Outcome{}, domain.InvalidAction("No time limits to enforce.")
	}
	if !lobby.HasActiveGame() || g.Round.ID != round || g.Round.Stage != stage {
		return Outcome{}, nil
	}
	if _, timed := g.Rules.Stages.TimeLimit(stage); !timed {
		return Outcome{}, nil
	}
	waiting := g.Round.WaitingFor()
	if waiting == nil {
		return Outcome{}, nil
	}
	if !g.Round.TimedOut {
		return Outcome{}, domain.InvalidAction("Round stage timer not done.")
	}
	return s.dealWithLostPlayers(lobby, waiting)
}
