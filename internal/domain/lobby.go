package domain

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// Lobby is the registry of users around at most one game.
type Lobby struct {
	Code      string          `json:"code"`
	Users     map[string]User `json:"users"`
	UserOrder []string        `json:"userOrder"`
	Rules     Rules           `json:"rules"`
	Sources   []Source        `json:"sources"`
	Game      *Game           `json:"game,omitempty"`
}

// NewLobby creates an empty lobby playing under rules.
func NewLobby(code string, rules Rules, sources ...Source) *Lobby {
	return &Lobby{
		Code:    code,
		Users:   make(map[string]User),
		Rules:   rules,
		Sources: sources,
	}
}

// Join adds or updates a user, keeping first-join order.
func (l *Lobby) Join(userID string, user User) {
	if _, ok := l.Users[userID]; !ok {
		l.UserOrder = append(l.UserOrder, userID)
	}
	l.Users[userID] = user
}

// HasActiveGame reports whether a game is running and undecided.
func (l *Lobby) HasActiveGame() bool {
	return l.Game != nil && l.Game.Winner == nil
}

// Snapshot serializes the lobby including the full game state.
func (l *Lobby) Snapshot() ([]byte, error) {
	return json.Marshal(l)
}

// RestoreLobby rebuilds a lobby from Snapshot output and checks the game is playable.
func RestoreLobby(data []byte, rng *rand.Rand) (*Lobby, error) {
	var l Lobby
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lobby snapshot: %w", err)
	}
	if l.Users == nil {
		l.Users = make(map[string]User)
	}
	if g := l.Game; g != nil {
		if err := g.validate(); err != nil {
			return nil, fmt.Errorf("lobby %s snapshot: %w", l.Code, err)
		}
		g.SetRand(rng)
	}
	return &l, nil
}

func (g *Game) validate() error {
	if g.Round == nil || !g.Round.Stage.Valid() {
		return fmt.Errorf("game has no valid round")
	}
	if g.Decks.Calls == nil || g.Decks.Responses == nil {
		return fmt.Errorf("game is missing a deck")
	}
	if g.Players == nil {
		g.Players = make(map[string]*Player)
	}
	for id := range g.Players {
		if !contains(g.PlayerOrder, id) {
			return fmt.Errorf("player %s is not in the player order", id)
		}
	}
	if g.Round.Stage == StagePlaying && len(g.Round.Plays) > len(g.Round.Players) {
		return fmt.Errorf("round %d has more plays than players", g.Round.ID)
	}

	pooled := make(map[string]struct{})
	for _, pile := range [][]Response{g.Decks.Responses.drawable, g.Decks.Responses.discarded} {
		for _, c := range pile {
			pooled[c.ID] = struct{}{}
		}
	}
	held := g.Round.PlayedCards()
	for _, p := range g.Players {
		held = append(held, p.Hand...)
	}
	for _, c := range held {
		if _, ok := pooled[c.ID]; ok {
			return fmt.Errorf("card %s is both held and in the deck", c.ID)
		}
	}
	return nil
}
