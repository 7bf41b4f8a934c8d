package domain

import "github.com/google/uuid"

// Play is the ordered set of responses a player puts into a call's slots.
type Play []Response

// IDs lists the card ids in slot order.
func (p Play) IDs() []string {
	ids := make([]string, len(p))
	for i, r := range p {
		ids[i] = r.ID
	}
	return ids
}

// StoredPlay is a play submitted into a round.
type StoredPlay struct {
	ID       string   `json:"id"`
	Play     Play     `json:"play"`
	PlayedBy string   `json:"playedBy"`
	Revealed bool     `json:"revealed"`
	Likes    []string `json:"likes,omitempty"`
}

// NewPlayID returns a fresh play id.
func NewPlayID() string {
	return uuid.NewString()
}

func (p StoredPlay) likedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

func (p StoredPlay) clone() StoredPlay {
	p.Play = append(Play(nil), p.Play...)
	p.Likes = append([]string(nil), p.Likes...)
	return p
}
