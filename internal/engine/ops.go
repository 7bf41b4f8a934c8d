package engine

import (
	"context"
	"fmt"

	"fillblank/internal/app"
	"fillblank/internal/domain"
)

// Join adds or reconnects a user.
func (h *Hub) Join(ctx context.Context, code, userID, name string) error {
	return h.Do(ctx, code, func(lobby *domain.Lobby) (app.Outcome, error) {
		return h.svc.JoinLobby(lobby, userID, name)
	})
}

// Disconnect marks a user away until they join again.
func (h *Hub) Disconnect(ctx context.Context, code, userID string) error {
	return h.Do(ctx, code, func(lobby *domain.Lobby) (app.Outcome, error) {
		return h.svc.Disconnect(lobby, userID)
	})
}

// Leave removes a user from the lobby for good.
func (h *Hub) Leave(ctx context.Context, code, userID string) error {
	return h.Do(ctx, code, func(lobby *domain.Lobby) (app.Outcome, error) {
		return h.svc.LeaveLobby(lobby, userID)
	})
}

// SetRole switches a user between playing and spectating.
func (h *Hub) SetRole(ctx context.Context, code, userID string, role domain.Role) error {
	return h.Do(ctx, code, func(lobby *domain.Lobby) (app.Outcome, error) {
		return h.svc.SetRole(lobby, userID, role)
	})
}

// SetAICount sets how many computer players the lobby has.
func (h *Hub) SetAICount(ctx context.Context, code string, n int) error {
	return h.Do(ctx, code, func(lobby *domain.Lobby) (app.Outcome, error) {
		return h.svc.SetAICount(lobby, n)
	})
}

// Start resolves the lobby's card sources and deals a new game.
func (h *Hub) Start(ctx context.Context, code string) error {
	return h.Do(ctx, code, func(lobby *domain.Lobby) (app.Outcome, error) {
		if len(lobby.Sources) == 0 {
			return app.Outcome{}, domain.InvalidAction("Add at least one deck before starting.")
		}
		templates := make([]domain.Templates, 0, len(lobby.Sources))
		for _, source := range lobby.Sources {
			t, _, err := h.sources.Resolve(ctx, source)
			if err != nil {
				return app.Outcome{}, fmt.Errorf("failed to resolve %s source %q: %w", source.Kind, source.ID, err)
			}
			templates = append(templates, t)
		}
		return h.svc.StartGame(lobby, templates)
	})
}

// Apply runs a player action.
func (h *Hub) Apply(ctx context.Context, code, userID string, action app.Action) error {
	return h.Do(ctx, code, func(lobby *domain.Lobby) (app.Outcome, error) {
		return h.svc.Apply(lobby, userID, action)
	})
}

// View returns the lobby as userID sees it.
func (h *Hub) View(ctx context.Context, code, userID string) (app.LobbyView, error) {
	var view app.LobbyView
	err := h.read(ctx, code, func(e *entry) {
		view = h.svc.View(e.lobby, userID)
	})
	return view, err
}

// Member reports whether userID belongs to the lobby and has not left.
func (h *Hub) Member(ctx context.Context, code, userID string) (bool, error) {
	var member bool
	err := h.read(ctx, code, func(e *entry) {
		user, ok := e.lobby.Users[userID]
		member = ok && user.Presence != domain.PresenceLeft
	})
	return member, err
}

// Vacant reports whether every human has left the lobby.
func (h *Hub) Vacant(ctx context.Context, code string) (bool, error) {
	vacant := true
	err := h.read(ctx, code, func(e *entry) {
		for _, user := range e.lobby.Users {
			if !user.IsComputer() && user.Presence != domain.PresenceLeft {
				vacant = false
				return
			}
		}
	})
	return vacant, err
}
