package bot

import (
	"fillblank/internal/domain"
)

// Agent represents an autonomous computer player.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// NewAgent pairs an identity with a brain.
func NewAgent(identity BotIdentity, strategy Brain) *Agent {
	return &Agent{ID: identity.UserID, Name: identity.DisplayName, Strategy: strategy}
}

// Play asks the agent for its play this round. It returns false when the
// agent is not expected to play.
func (a *Agent) Play(game *domain.Game) (domain.Play, bool, error) {
	player, ok := game.Players[a.ID]
	if !ok || !game.Round.IsWaitingFor(a.ID) || game.Round.Stage != domain.StagePlaying {
		return nil, false, nil
	}
	play, err := a.Strategy.ChoosePlay(game.Round.Call, player.Hand)
	if err != nil {
		return nil, false, err
	}
	return play, true, nil
}

// Judge asks the agent to pick a winner when it is czar of a judging round.
func (a *Agent) Judge(game *domain.Game) (string, bool, error) {
	round := game.Round
	if round.Czar != a.ID || round.Stage != domain.StageJudging {
		return "", false, nil
	}
	id, err := a.Strategy.ChooseWinner(round.Call, round.Plays)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// OnRoundComplete notifies the agent of a finished round.
func (a *Agent) OnRoundComplete(round domain.PublicRound) {
	a.Strategy.Observe(round)
}
