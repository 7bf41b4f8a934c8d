package app

import (
	"strings"
	"time"

	"fillblank/internal/domain"
)

// maxWrittenLength caps the text a player may write on a blank card.
const maxWrittenLength = 200

// minNextRoundDelay is the shortest wait between a judged round and the next.
// Round starts always go through the scheduler, never inline.
const minNextRoundDelay = 100 * time.Millisecond

// StartGame deals a new game in the lobby from the resolved card templates.
func (s *Service) StartGame(lobby *domain.Lobby, templates []domain.Templates) (Outcome, error) {
	if lobby.HasActiveGame() {
		return Outcome{}, ErrGameInProgress
	}
	if err := lobby.Rules.Validate(); err != nil {
		return Outcome{}, domain.InvalidAction("The game rules are not valid: %v.", err)
	}

	var order []string
	joined := 0
	for _, id := range lobby.UserOrder {
		user := lobby.Users[id]
		if user.Presence == domain.PresenceLeft {
			continue
		}
		order = append(order, id)
		if user.Role == domain.RolePlayer && user.Presence == domain.PresenceJoined {
			joined++
		}
	}
	if joined < MinPlayersToStartGame {
		return Outcome{}, ErrTooFewPlayers
	}

	game, err := domain.Start(templates, order, lobby.Users, lobby.Rules, s.rng, s.now())
	if err != nil {
		return Outcome{}, err
	}
	s.Forget(lobby.Code)
	lobby.Game = game

	out, err := s.atStartOfRound(lobby, true)
	if err != nil {
		lobby.Game = nil
		return Outcome{}, err
	}
	return out, nil
}

// StartNewRound forcibly starts the next round, whatever the current one is
// doing. With nobody able to judge the game pauses instead.
func (s *Service) StartNewRound(lobby *domain.Lobby) (Outcome, error) {
	g := lobby.Game
	if g == nil {
		return Outcome{}, ErrNoGame
	}
	if g.Winner != nil {
		return Outcome{}, domain.ErrGameOver
	}

	czar, ok := g.NextCzar(lobby.Users)
	if ok && len(domain.Roster(czar, g.PlayerOrder, lobby.Users, g.Players)) == 0 {
		ok = false
	}
	if !ok {
		if g.Paused {
			return Outcome{}, nil
		}
		g.Paused = true
		return Outcome{Events: []Event{broadcast(EventPauseStateChanged, PauseStateChangedPayload{Paused: true})}}, nil
	}

	if err := g.BeginRound(czar, lobby.Users, s.now()); err != nil {
		return Outcome{}, err
	}
	var out Outcome
	if g.Paused {
		g.Paused = false
		out.emit(broadcast(EventPauseStateChanged, PauseStateChangedPayload{Paused: false}))
	}
	start, err := s.atStartOfRound(lobby, false)
	if err != nil {
		return Outcome{}, err
	}
	out.merge(start)
	return out, nil
}

// RemoveFromRound stops the round waiting on userID. Emptying the Playing
// wait set schedules the advance straight away.
func (s *Service) RemoveFromRound(lobby *domain.Lobby, userID string) (Outcome, error) {
	g := lobby.Game
	if g == nil {
		return Outcome{}, ErrNoGame
	}
	finished, err := g.RemoveFromRound(userID)
	if err != nil {
		return Outcome{}, err
	}
	if !finished {
		return Outcome{}, nil
	}
	return Outcome{Timeouts: []Timeout{{
		Kind:  TimeoutFinishedPlaying,
		Round: g.Round.ID,
		Stage: domain.StagePlaying,
	}}}, nil
}

func (s *Service) atStartOfRound(lobby *domain.Lobby, first bool) (Outcome, error) {
	g := lobby.Game
	dealt, err := g.TopUp(lobby.Users)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	if first {
		hands := make(map[string]any, len(g.Players))
		for id, p := range g.Players {
			hands[id] = HandAddition{Hand: append([]domain.Response(nil), p.Hand...)}
		}
		out.emit(Event{Kind: EventGameStarted, Payload: GameStartedPayload{Game: g.Public()}, Additions: hands})
	} else {
		ev := broadcast(EventRoundStarted, RoundStartedPayload{Round: g.Round.Public()})
		if len(dealt) > 0 {
			ev.Additions = make(map[string]any, len(dealt))
			for id, cards := range dealt {
				ev.Additions[id] = DrawnAddition{Drawn: cards}
			}
		}
		out.emit(ev)
	}

	out.merge(s.playForComputers(lobby))
	if t, ok := finishedPlayingIfNeeded(g.Round, stageAfter(g, domain.StagePlaying)); ok {
		out.schedule(t)
	}
	if t, ok := stageTimer(g.Round, g.Rules.Stages); ok {
		out.schedule(t)
	}
	return out, nil
}

// playForComputers submits a play for every computer in the round roster.
// A computer that cannot play is left to the stage timer like an idle human.
func (s *Service) playForComputers(lobby *domain.Lobby) Outcome {
	g := lobby.Game
	var out Outcome
	for _, id := range g.Round.Players {
		user := lobby.Users[id]
		if !user.IsComputer() {
			continue
		}
		play, ok, err := s.agent(lobby.Code, id, user.Name).Play(g)
		if err != nil || !ok {
			continue
		}
		ids, fill := splitPlay(play)
		if _, err := s.submit(g, id, ids, fill); err != nil {
			continue
		}
		out.emit(broadcast(EventPlaySubmitted, PlaySubmittedPayload{UserID: id}))
	}
	return out
}

// czarActs lets a computer czar reveal or judge.
func (s *Service) czarActs(lobby *domain.Lobby) (Outcome, error) {
	g := lobby.Game
	czar := g.Round.Czar
	user := lobby.Users[czar]
	if !user.IsComputer() {
		return Outcome{}, nil
	}
	agent := s.agent(lobby.Code, czar, user.Name)

	var out Outcome
	switch g.Round.Stage {
	case domain.StageRevealing:
		for _, p := range append([]domain.StoredPlay(nil), g.Round.Plays...) {
			revealed, changed, err := g.Round.Reveal(p.ID)
			if err != nil {
				return Outcome{}, err
			}
			if changed {
				out.emit(broadcast(EventPlayRevealed, PlayRevealedPayload{PlayID: revealed.ID, Play: revealed.Play}))
			}
		}
		if t, ok := finishedRevealingIfNeeded(g.Round, stageAfter(g, domain.StageRevealing)); ok {
			out.schedule(t)
		}
	case domain.StageJudging:
		playID, ok, err := agent.Judge(g)
		if err != nil || !ok {
			return Outcome{}, nil
		}
		return s.judge(lobby, playID)
	}
	return out, nil
}

func (s *Service) submit(g *domain.Game, userID string, ids []string, fill map[string]string) (domain.StoredPlay, error) {
	player, ok := g.Players[userID]
	if !ok || !g.Round.HasPlayer(userID) {
		return domain.StoredPlay{}, domain.InvalidAction("You are not playing in this round.")
	}
	before := player.Hand
	cards, err := player.Take(ids)
	if err != nil {
		return domain.StoredPlay{}, err
	}
	for i, c := range cards {
		if !c.IsCustom() {
			continue
		}
		text := strings.TrimSpace(fill[c.ID])
		if text == "" {
			player.Hand = before
			return domain.StoredPlay{}, domain.InvalidAction("Blank cards must be written on before they are played.")
		}
		if len(text) > maxWrittenLength {
			player.Hand = before
			return domain.StoredPlay{}, domain.InvalidAction("Written cards can be at most %d characters.", maxWrittenLength)
		}
		cards[i] = c.Written(text)
	}
	stored, err := g.Round.Submit(userID, cards)
	if err != nil {
		player.Hand = before
		return domain.StoredPlay{}, err
	}
	return stored, nil
}

func (s *Service) judge(lobby *domain.Lobby, playID string) (Outcome, error) {
	g := lobby.Game
	needed := 0
	for _, p := range g.Round.Plays {
		if player, ok := g.Players[p.PlayedBy]; ok && !player.Left {
			if missing := g.Rules.HandSize - len(player.Hand); missing > 0 {
				needed += missing
			}
		}
	}
	if needed > g.Decks.Responses.Drawable()+g.Decks.Responses.Discarded() {
		return Outcome{}, domain.ErrOutOfCards
	}

	winning, err := g.Judge(playID, s.now())
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	public := g.Round.Public()
	out.emit(broadcast(EventRoundFinished, RoundFinishedPayload{Round: public, PlayID: winning.ID, Winner: winning.PlayedBy}))

	played := make([]string, 0, len(g.Round.Plays))
	for _, p := range g.Round.Plays {
		played = append(played, p.PlayedBy)
	}
	dealt, err := g.Refill(played)
	if err != nil {
		return Outcome{}, err
	}
	for _, id := range played {
		if cards, ok := dealt[id]; ok {
			out.emit(private(id, EventHandDealt, HandDealtPayload{UserID: id, Cards: cards}))
		}
	}
	s.observe(lobby, public)

	if winners := g.EvaluateWinner(); winners != nil {
		out.emit(broadcast(EventGameEnded, GameEndedPayload{Winner: append([]string(nil), winners...)}))
		return out, nil
	}
	after := stageAfter(g, domain.StageJudging)
	if after < minNextRoundDelay {
		after = minNextRoundDelay
	}
	out.schedule(Timeout{
		Kind:  TimeoutRoundStart,
		Round: g.Round.ID,
		Stage: domain.StageComplete,
		After: after,
	})
	return out, nil
}

func (s *Service) observe(lobby *domain.Lobby, round domain.PublicRound) {
	for _, id := range lobby.UserOrder {
		user := lobby.Users[id]
		if user.IsComputer() && user.Presence != domain.PresenceLeft {
			s.agent(lobby.Code, id, user.Name).OnRoundComplete(round)
		}
	}
}

func (s *Service) dealWithLostPlayers(lobby *domain.Lobby, userIDs []string) (Outcome, error) {
	var out Outcome
	for _, id := range userIDs {
		lost, err := s.dealWithLostPlayer(lobby, id)
		if err != nil {
			return out, err
		}
		out.merge(lost)
	}
	return out, nil
}

// dealWithLostPlayer marks a player away and stops the round waiting on them.
// Losing the czar restarts the round.
func (s *Service) dealWithLostPlayer(lobby *domain.Lobby, userID string) (Outcome, error) {
	g := lobby.Game
	player, ok := g.Players[userID]
	if !ok {
		return Outcome{}, nil
	}

	var out Outcome
	if player.Presence == domain.PlayerActive {
		player.Presence = domain.PlayerAway
		out.emit(broadcast(EventPlayerPresenceChanged, PlayerPresenceChangedPayload{UserID: userID, Change: PresenceAway}))
	}
	if g.Winner != nil {
		return out, nil
	}

	var next Outcome
	var err error
	if g.Round.Czar == userID && g.Round.Stage != domain.StageComplete {
		next, err = s.StartNewRound(lobby)
	} else {
		next, err = s.RemoveFromRound(lobby, userID)
	}
	if err != nil {
		return out, err
	}
	out.merge(next)
	return out, nil
}

// playerBack reactivates an away player and resumes a paused game.
func (s *Service) playerBack(lobby *domain.Lobby, userID string) (Outcome, error) {
	g := lobby.Game
	player, ok := g.Players[userID]
	if !ok || player.Presence != domain.PlayerAway {
		return Outcome{}, nil
	}
	player.Presence = domain.PlayerActive

	out := Outcome{Events: []Event{broadcast(EventPlayerPresenceChanged, PlayerPresenceChangedPayload{UserID: userID, Change: PresenceBack})}}
	resumed, err := s.resumeIfPaused(lobby)
	if err != nil {
		return out, err
	}
	out.merge(resumed)
	return out, nil
}

func (s *Service) resumeIfPaused(lobby *domain.Lobby) (Outcome, error) {
	if !lobby.HasActiveGame() || !lobby.Game.Paused {
		return Outcome{}, nil
	}
	return s.StartNewRound(lobby)
}

func stageAfter(g *domain.Game, stage domain.Stage) time.Duration {
	rules, _ := g.Rules.Stages.For(stage)
	return rules.After
}

func splitPlay(play domain.Play) ([]string, map[string]string) {
	ids := make([]string, len(play))
	var fill map[string]string
	for i, c := range play {
		ids[i] = c.ID
		if c.IsCustom() {
			if fill == nil {
				fill = make(map[string]string)
			}
			fill[c.ID] = c.Text
		}
	}
	return ids, fill
}
