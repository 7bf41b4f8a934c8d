package domain

import "time"

// PublicPlay is a play as shown to every user.
type PublicPlay struct {
	ID       string `json:"id"`
	Play     Play   `json:"play,omitempty"`
	PlayedBy string `json:"playedBy,omitempty"`
	Likes    int    `json:"likes,omitempty"`
}

// PublicRound is a round with hidden information removed. While Playing only
// the ids of users who have played are shown; unrevealed plays have no
// content; authors stay hidden until the round is Complete.
type PublicRound struct {
	ID        int          `json:"id"`
	Stage     Stage        `json:"stage"`
	Czar      string       `json:"czar"`
	Players   []string     `json:"players"`
	Call      Call         `json:"call"`
	Played    []string     `json:"played,omitempty"`
	Plays     []PublicPlay `json:"plays,omitempty"`
	Winner    string       `json:"winner,omitempty"`
	StartedAt time.Time    `json:"startedAt"`
	TimedOut  bool         `json:"timedOut,omitempty"`
}

// Public returns the view of the round every user may see.
func (r *Round) Public() PublicRound {
	pub := PublicRound{
		ID:        r.ID,
		Stage:     r.Stage,
		Czar:      r.Czar,
		Players:   append([]string(nil), r.Players...),
		Call:      r.Call,
		Winner:    r.Winner,
		StartedAt: r.StartedAt,
		TimedOut:  r.TimedOut,
	}
	if r.Stage == StagePlaying {
		for _, p := range r.Plays {
			pub.Played = append(pub.Played, p.PlayedBy)
		}
		return pub
	}
	pub.Plays = make([]PublicPlay, 0, len(r.Plays))
	for _, p := range r.Plays {
		view := PublicPlay{ID: p.ID}
		if p.Revealed {
			view.Play = append(Play(nil), p.Play...)
		}
		if r.Stage == StageComplete {
			view.PlayedBy = p.PlayedBy
			view.Likes = len(p.Likes)
		}
		pub.Plays = append(pub.Plays, view)
	}
	return pub
}

// PublicGame is the game as shown to every user.
type PublicGame struct {
	Round       PublicRound             `json:"round"`
	History     []PublicRound           `json:"history"`
	PlayerOrder []string                `json:"playerOrder"`
	Players     map[string]PublicPlayer `json:"players"`
	Rules       Rules                   `json:"rules"`
	Winner      []string                `json:"winner,omitempty"`
	Paused      bool                    `json:"paused,omitempty"`
}

// Public strips hands, unrevealed plays and which players are computers.
func (g *Game) Public() PublicGame {
	players := make(map[string]PublicPlayer, len(g.Players))
	for id, p := range g.Players {
		players[id] = p.Public()
	}
	rules := g.Rules
	rules.HouseRules.Rando = Rando{}
	return PublicGame{
		Round:       g.Round.Public(),
		History:     append([]PublicRound(nil), g.History...),
		PlayerOrder: append([]string(nil), g.PlayerOrder...),
		Players:     players,
		Rules:       rules,
		Winner:      append([]string(nil), g.Winner...),
		Paused:      g.Paused,
	}
}
