package domain

// activePlayer reports whether a user is joined, playing, and has an active player record.
func activePlayer(user User, player *Player) bool {
	return user.Presence == PresenceJoined && user.Role == RolePlayer && player.Active()
}

// CanBeCzar reports whether a user may judge a round.
func CanBeCzar(user User, player *Player, allowAI bool) bool {
	if user.IsComputer() && !allowAI {
		return false
	}
	return activePlayer(user, player)
}

// NextCzar scans order forward from current, wrapping once, and returns the
// first user able to be czar. current itself is checked last, so it is only
// picked again when nobody else qualifies. A current of -1 scans from the start.
func NextCzar(current int, users map[string]User, players map[string]*Player, order []string, allowAI bool) (string, bool) {
	n := len(order)
	if n == 0 {
		return "", false
	}
	idx := current
	for i := 0; i < n; i++ {
		idx = (idx + 1) % n
		if idx < 0 {
			idx += n
		}
		id := order[idx]
		if CanBeCzar(users[id], players[id], allowAI) {
			return id, true
		}
	}
	return "", false
}

// IsPlayerInRound reports whether userID is expected to play under czar.
func IsPlayerInRound(czar, userID string, user User, players map[string]*Player) bool {
	if userID == czar || user.Role != RolePlayer {
		return false
	}
	return activePlayer(user, players[userID])
}

// Roster lists, in turn order, everyone expected to play under czar.
func Roster(czar string, order []string, users map[string]User, players map[string]*Player) []string {
	var roster []string
	for _, id := range order {
		if IsPlayerInRound(czar, id, users[id], players) {
			roster = append(roster, id)
		}
	}
	return roster
}
