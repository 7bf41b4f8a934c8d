package domain

// Role is what a user does in the lobby.
type Role string

const (
	RolePlayer    Role = "Player"
	RoleSpectator Role = "Spectator"
)

// Presence is whether a user is connected to the lobby.
type Presence string

const (
	PresenceJoined Presence = "Joined"
	PresenceAway   Presence = "Away"
	PresenceLeft   Presence = "Left"
)

// Control is who makes decisions for a user.
type Control string

const (
	ControlHuman    Control = "Human"
	ControlComputer Control = "Computer"
)

// User is the lobby registry entry the game reads eligibility from.
type User struct {
	Name     string   `json:"name"`
	Role     Role     `json:"role"`
	Presence Presence `json:"presence"`
	Control  Control  `json:"control"`
}

// IsComputer reports whether the user is an AI.
func (u User) IsComputer() bool {
	return u.Control == ControlComputer
}

// PlayerPresence is the game-scoped presence of a player.
type PlayerPresence string

const (
	PlayerActive PlayerPresence = "Active"
	PlayerAway   PlayerPresence = "Away"
	PlayerLeft   PlayerPresence = "Left"
)

// Player is the game-scoped state of a user playing.
type Player struct {
	Hand     []Response     `json:"hand"`
	Score    int            `json:"score"`
	Likes    int            `json:"likes"`
	Presence PlayerPresence `json:"presence"`
	Left     bool           `json:"left,omitempty"`
}

// NewPlayer returns an active player holding hand.
func NewPlayer(hand []Response) *Player {
	return &Player{Hand: hand, Presence: PlayerActive}
}

// Active reports whether the player is taking part in rounds.
func (p *Player) Active() bool {
	return p != nil && p.Presence == PlayerActive && !p.Left
}

// Take removes the cards with the given ids from the hand, in the requested order.
func (p *Player) Take(ids []string) ([]Response, error) {
	taken := make([]Response, 0, len(ids))
	remaining := append([]Response(nil), p.Hand...)
	for _, id := range ids {
		found := -1
		for i, card := range remaining {
			if card.ID == id {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, InvalidAction("You do not hold the card %s.", id)
		}
		taken = append(taken, remaining[found])
		remaining = append(remaining[:found:found], remaining[found+1:]...)
	}
	p.Hand = remaining
	return taken, nil
}

// PublicPlayer is what every user can see about a player.
type PublicPlayer struct {
	Score    int            `json:"score"`
	Likes    int            `json:"likes"`
	Presence PlayerPresence `json:"presence"`
	Left     bool           `json:"left,omitempty"`
}

// Public strips the hand.
func (p *Player) Public() PublicPlayer {
	return PublicPlayer{Score: p.Score, Likes: p.Likes, Presence: p.Presence, Left: p.Left}
}
