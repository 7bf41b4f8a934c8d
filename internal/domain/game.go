package domain

import (
	"math/rand"
	"time"
)

// Game is the state of one game in a lobby. It exclusively owns its players and decks.
type Game struct {
	Round       *Round             `json:"round"`
	History     []PublicRound      `json:"history"`
	PlayerOrder []string           `json:"playerOrder"`
	Players     map[string]*Player `json:"players"`
	Decks       Decks              `json:"decks"`
	Rules       Rules              `json:"rules"`
	Winner      []string           `json:"winner,omitempty"`
	Paused      bool               `json:"paused,omitempty"`
}

// Start builds the decks from the union of templates, deals every player a
// hand, picks the first czar and opens round 0.
func Start(templates []Templates, order []string, users map[string]User, rules Rules, rng *rand.Rand, now time.Time) (*Game, error) {
	var callSets [][]Call
	var responseSets [][]Response
	cw := rules.HouseRules.ComedyWriter
	for _, t := range templates {
		callSets = append(callSets, t.Calls)
		if cw == nil || !cw.Exclusive {
			responseSets = append(responseSets, t.Responses)
		}
	}
	if cw != nil {
		blanks := make([]Response, cw.Number)
		for i := range blanks {
			blanks[i] = NewBlankResponse()
		}
		responseSets = append(responseSets, blanks)
	}

	calls, err := NewDeck(rng, callSets...)
	if err != nil {
		return nil, err
	}
	responses, err := NewDeck(rng, responseSets...)
	if err != nil {
		return nil, err
	}

	players := make(map[string]*Player)
	for _, id := range order {
		if users[id].Role != RolePlayer {
			continue
		}
		hand, err := responses.Draw(rules.HandSize)
		if err != nil {
			return nil, err
		}
		players[id] = NewPlayer(hand)
	}

	czar, ok := NextCzar(0, users, players, order, rules.HouseRules.AllowAICzar)
	if !ok {
		return nil, ErrNoCzar
	}
	drawn, err := calls.Draw(1)
	if err != nil {
		return nil, err
	}

	return &Game{
		Round:       NewRound(0, czar, Roster(czar, order, users, players), drawn[0], now),
		PlayerOrder: append([]string(nil), order...),
		Players:     players,
		Decks:       Decks{Calls: calls, Responses: responses},
		Rules:       rules,
	}, nil
}

// NextCzar picks who judges the next round.
func (g *Game) NextCzar(users map[string]User) (string, bool) {
	current := -1
	for i, id := range g.PlayerOrder {
		if id == g.Round.Czar {
			current = i
			break
		}
	}
	return NextCzar(current, users, g.Players, g.PlayerOrder, g.Rules.HouseRules.AllowAICzar)
}

// BeginRound replaces the call, recycles the played responses and opens the
// next round under czar.
func (g *Game) BeginRound(czar string, users map[string]User, now time.Time) error {
	if g.Winner != nil {
		return ErrGameOver
	}
	drawn, err := g.Decks.Calls.Replace(g.Round.Call)
	if err != nil {
		return err
	}
	g.recycle(g.Round.PlayedCards())
	g.Round = NewRound(g.Round.ID+1, czar, Roster(czar, g.PlayerOrder, users, g.Players), drawn[0], now)
	return nil
}

// TopUp deals the extra cards a call with many slots needs to every player
// still in the game, returning what each one received.
func (g *Game) TopUp(users map[string]User) (map[string][]Response, error) {
	extra := g.Rules.HouseRules.TopUp(g.Round.Call.SlotCount())
	if extra == 0 {
		return nil, nil
	}
	dealt := make(map[string][]Response)
	for _, id := range g.PlayerOrder {
		player, ok := g.Players[id]
		if !ok || player.Left || users[id].Role != RolePlayer {
			continue
		}
		drawn, err := g.Decks.Responses.Draw(extra)
		if err != nil {
			return nil, err
		}
		player.Hand = append(player.Hand, drawn...)
		dealt[id] = drawn
	}
	return dealt, nil
}

// RemoveFromRound stops waiting on a player who has not played. It reports
// whether that left the Playing stage with nobody to wait for.
func (g *Game) RemoveFromRound(userID string) (bool, error) {
	if _, ok := g.Players[userID]; !ok {
		return false, InvalidAction("User must be a player.")
	}
	if !g.Round.RemovePlayer(userID) {
		return false, nil
	}
	return g.Round.Stage == StagePlaying && g.Round.WaitingFor() == nil, nil
}

// Judge completes the round with playID as the winner, scores it and records
// the round in history.
func (g *Game) Judge(playID string, now time.Time) (StoredPlay, error) {
	next, err := g.Round.Complete(playID, now)
	if err != nil {
		return StoredPlay{}, err
	}
	winning, _ := next.PlayByID(playID)
	if player, ok := g.Players[next.Winner]; ok {
		player.Score++
	}
	for _, p := range next.Plays {
		if player, ok := g.Players[p.PlayedBy]; ok {
			player.Likes += len(p.Likes)
		}
	}
	g.Round = next
	g.History = append(g.History, next.Public())
	return winning, nil
}

// Refill draws every listed player back up to the hand size.
func (g *Game) Refill(userIDs []string) (map[string][]Response, error) {
	dealt := make(map[string][]Response)
	for _, id := range userIDs {
		player, ok := g.Players[id]
		if !ok || player.Left {
			continue
		}
		missing := g.Rules.HandSize - len(player.Hand)
		if missing <= 0 {
			continue
		}
		drawn, err := g.Decks.Responses.Draw(missing)
		if err != nil {
			return nil, err
		}
		player.Hand = append(player.Hand, drawn...)
		dealt[id] = drawn
	}
	return dealt, nil
}

// AddPlayer deals a new player into a running game. They join the next round.
// A player who left earlier comes back with a fresh hand and their old score.
func (g *Game) AddPlayer(userID string) (*Player, error) {
	if player, ok := g.Players[userID]; ok {
		if player.Left {
			player.Left = false
			player.Presence = PlayerActive
			if _, err := g.Refill([]string{userID}); err != nil {
				player.Left = true
				player.Presence = PlayerLeft
				return nil, err
			}
		}
		return player, nil
	}
	hand, err := g.Decks.Responses.Draw(g.Rules.HandSize)
	if err != nil {
		return nil, err
	}
	player := NewPlayer(hand)
	g.Players[userID] = player
	if !contains(g.PlayerOrder, userID) {
		g.PlayerOrder = append(g.PlayerOrder, userID)
	}
	return player, nil
}

// RetirePlayer marks a player as gone for good and recycles their hand.
func (g *Game) RetirePlayer(userID string) bool {
	player, ok := g.Players[userID]
	if !ok || player.Left {
		return false
	}
	player.Left = true
	player.Presence = PlayerLeft
	g.recycle(player.Hand)
	player.Hand = nil
	return true
}

// Return puts cards back into a player's hand, erasing written blanks.
func (g *Game) Return(userID string, cards []Response) {
	player, ok := g.Players[userID]
	if !ok {
		return
	}
	for _, c := range cards {
		player.Hand = append(player.Hand, c.Erased())
	}
}

// EvaluateWinner decides whether the score limit has been reached. Every
// player tied at the top score wins.
func (g *Game) EvaluateWinner() []string {
	if g.Winner != nil {
		return g.Winner
	}
	if g.Rules.ScoreLimit == nil {
		return nil
	}
	best := *g.Rules.ScoreLimit
	var winners []string
	for _, id := range g.PlayerOrder {
		player, ok := g.Players[id]
		if !ok {
			continue
		}
		switch {
		case player.Score > best:
			best = player.Score
			winners = []string{id}
		case player.Score == best:
			winners = append(winners, id)
		}
	}
	if len(winners) > 0 {
		g.Winner = winners
	}
	return g.Winner
}

// SetRand points the decks at a shuffle source, typically after restoring a snapshot.
func (g *Game) SetRand(rng *rand.Rand) {
	g.Decks.SetRand(rng)
}

func (g *Game) recycle(cards []Response) {
	erased := make([]Response, len(cards))
	for i, c := range cards {
		erased[i] = c.Erased()
	}
	g.Decks.Responses.Discard(erased...)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
