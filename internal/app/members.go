package app

import (
	"fillblank/internal/bot"
	"fillblank/internal/domain"
)

// JoinLobby adds a human to the lobby, or reconnects one who was away. Joining
// players are dealt into a running game and play from the next round.
func (s *Service) JoinLobby(lobby *domain.Lobby, userID, name string) (Outcome, error) {
	if user, ok := lobby.Users[userID]; ok && user.Presence != domain.PresenceLeft {
		user.Presence = domain.PresenceJoined
		lobby.Users[userID] = user
		if !lobby.HasActiveGame() {
			return Outcome{}, nil
		}
		return s.playerBack(lobby, userID)
	}

	user := domain.User{Name: name, Role: domain.RolePlayer, Presence: domain.PresenceJoined, Control: domain.ControlHuman}
	lobby.Join(userID, user)
	out := Outcome{Events: []Event{broadcast(EventPlayerJoined, PlayerJoinedPayload{UserID: userID, Name: name, Role: user.Role})}}
	dealt, err := s.dealIn(lobby, userID)
	if err != nil {
		return out, err
	}
	out.merge(dealt)
	return out, nil
}

// Disconnect marks a user away. The game stops waiting on them.
func (s *Service) Disconnect(lobby *domain.Lobby, userID string) (Outcome, error) {
	user, ok := lobby.Users[userID]
	if !ok {
		return Outcome{}, ErrUnknownUser
	}
	if user.Presence != domain.PresenceJoined {
		return Outcome{}, nil
	}
	user.Presence = domain.PresenceAway
	lobby.Users[userID] = user
	if !lobby.HasActiveGame() {
		return Outcome{}, nil
	}
	return s.dealWithLostPlayer(lobby, userID)
}

// LeaveLobby removes a user for good. Their hand goes back into the deck.
func (s *Service) LeaveLobby(lobby *domain.Lobby, userID string) (Outcome, error) {
	user, ok := lobby.Users[userID]
	if !ok {
		return Outcome{}, ErrUnknownUser
	}
	if user.Presence == domain.PresenceLeft {
		return Outcome{}, nil
	}
	user.Presence = domain.PresenceLeft
	lobby.Users[userID] = user

	out := Outcome{Events: []Event{broadcast(EventPlayerLeft, PlayerLeftPayload{UserID: userID})}}
	retired, err := s.retire(lobby, userID)
	if err != nil {
		return out, err
	}
	out.merge(retired)
	return out, nil
}

// SetRole promotes a spectator to player or demotes a player to spectator,
// mid-game if need be.
func (s *Service) SetRole(lobby *domain.Lobby, userID string, role domain.Role) (Outcome, error) {
	user, ok := lobby.Users[userID]
	if !ok {
		return Outcome{}, ErrUnknownUser
	}
	if role != domain.RolePlayer && role != domain.RoleSpectator {
		return Outcome{}, domain.InvalidAction("Unknown role %q.", role)
	}
	if user.Role == role {
		return Outcome{}, nil
	}
	user.Role = role
	lobby.Users[userID] = user

	out := Outcome{Events: []Event{broadcast(EventUserRoleChanged, UserRoleChangedPayload{UserID: userID, Role: role})}}
	var next Outcome
	var err error
	if role == domain.RolePlayer {
		next, err = s.dealIn(lobby, userID)
	} else {
		next, err = s.retire(lobby, userID)
	}
	if err != nil {
		return out, err
	}
	out.merge(next)
	return out, nil
}

// SetAICount adds or removes computer players until there are n of them.
// Removed computers keep their ids so they come back with their score.
func (s *Service) SetAICount(lobby *domain.Lobby, n int) (Outcome, error) {
	if n < 0 || n > MaxAIPlayers {
		return Outcome{}, domain.InvalidAction("There can be between 0 and %d computer players.", MaxAIPlayers)
	}
	rando := &lobby.Rules.HouseRules.Rando
	var out Outcome

	for len(rando.Current) < n {
		var id, name string
		if len(rando.Unused) > 0 {
			id = rando.Unused[0]
			rando.Unused = rando.Unused[1:]
			name = lobby.Users[id].Name
		} else {
			identity, ok := freeIdentity(lobby)
			if !ok {
				return out, domain.InvalidAction("No more computer players are available.")
			}
			id, name = identity.UserID, identity.DisplayName
		}
		rando.Current = append(rando.Current, id)
		lobby.Join(id, domain.User{Name: name, Role: domain.RolePlayer, Presence: domain.PresenceJoined, Control: domain.ControlComputer})
		out.emit(broadcast(EventPlayerJoined, PlayerJoinedPayload{UserID: id, Name: name, Role: domain.RolePlayer}))
		s.syncRando(lobby)
		dealt, err := s.dealIn(lobby, id)
		if err != nil {
			return out, err
		}
		out.merge(dealt)
	}

	for len(rando.Current) > n {
		id := rando.Current[len(rando.Current)-1]
		rando.Current = rando.Current[:len(rando.Current)-1]
		rando.Unused = append(rando.Unused, id)
		user := lobby.Users[id]
		user.Presence = domain.PresenceLeft
		lobby.Users[id] = user
		out.emit(broadcast(EventPlayerLeft, PlayerLeftPayload{UserID: id}))
		s.syncRando(lobby)
		retired, err := s.retire(lobby, id)
		if err != nil {
			return out, err
		}
		out.merge(retired)
	}
	return out, nil
}

func (s *Service) syncRando(lobby *domain.Lobby) {
	if lobby.Game == nil {
		return
	}
	rando := lobby.Rules.HouseRules.Rando
	lobby.Game.Rules.HouseRules.Rando = domain.Rando{
		Current: append([]string(nil), rando.Current...),
		Unused:  append([]string(nil), rando.Unused...),
	}
}

// dealIn gives a player a hand in the running game and resumes it if it was
// paused for want of players.
func (s *Service) dealIn(lobby *domain.Lobby, userID string) (Outcome, error) {
	if !lobby.HasActiveGame() || lobby.Users[userID].Role != domain.RolePlayer {
		return Outcome{}, nil
	}
	player, err := lobby.Game.AddPlayer(userID)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Events: []Event{private(userID, EventHandDealt, HandDealtPayload{
		UserID: userID,
		Cards:  append([]domain.Response(nil), player.Hand...),
	})}}
	resumed, err := s.resumeIfPaused(lobby)
	if err != nil {
		return out, err
	}
	out.merge(resumed)
	return out, nil
}

// retire takes a player out of the running game for good.
func (s *Service) retire(lobby *domain.Lobby, userID string) (Outcome, error) {
	if !lobby.HasActiveGame() {
		return Outcome{}, nil
	}
	if !lobby.Game.RetirePlayer(userID) {
		return Outcome{}, nil
	}
	return s.dealWithLostPlayer(lobby, userID)
}

func freeIdentity(lobby *domain.Lobby) (bot.BotIdentity, bool) {
	for i := 0; i < MaxAIPlayers+len(lobby.Users); i++ {
		identity := bot.GetBotIdentity(i)
		if _, taken := lobby.Users[identity.UserID]; !taken {
			return identity, true
		}
	}
	return bot.BotIdentity{}, false
}
