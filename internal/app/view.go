package app

import "fillblank/internal/domain"

// PublicUser is a lobby user without their control.
type PublicUser struct {
	Name     string          `json:"name"`
	Role     domain.Role     `json:"role"`
	Presence domain.Presence `json:"presence"`
}

// LobbyView is the full state one user may see, sent on (re)connect.
type LobbyView struct {
	Code      string                `json:"code"`
	Users     map[string]PublicUser `json:"users"`
	UserOrder []string              `json:"userOrder"`
	Sources   []domain.Source       `json:"sources"`
	Game      *domain.PublicGame    `json:"game,omitempty"`
	Hand      []domain.Response     `json:"hand,omitempty"`
	// Played is the id of the user's play in the current round, if any.
	Played string `json:"played,omitempty"`
}

// View builds the lobby as userID sees it.
func (s *Service) View(lobby *domain.Lobby, userID string) LobbyView {
	users := make(map[string]PublicUser, len(lobby.Users))
	for id, u := range lobby.Users {
		users[id] = PublicUser{Name: u.Name, Role: u.Role, Presence: u.Presence}
	}
	view := LobbyView{
		Code:      lobby.Code,
		Users:     users,
		UserOrder: append([]string(nil), lobby.UserOrder...),
		Sources:   append([]domain.Source(nil), lobby.Sources...),
	}
	if g := lobby.Game; g != nil {
		public := g.Public()
		view.Game = &public
		if player, ok := g.Players[userID]; ok {
			view.Hand = append([]domain.Response(nil), player.Hand...)
		}
		if play, ok := g.Round.PlayBy(userID); ok {
			view.Played = play.ID
		}
	}
	return view
}
