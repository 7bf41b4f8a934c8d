package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"fillblank/internal/domain"
	"fillblank/internal/ports"
	"fillblank/internal/ports/sources"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes Nakama maps runtime errors to.
const (
	codeInvalidArgument = 3
	codeNotFound        = 5
	codeInternal        = 13
)

var (
	errBadPayload   = runtime.NewError("payload could not be read", codeInvalidArgument)
	errLobbyMissing = runtime.NewError("lobby not found", codeNotFound)
	errInternal     = runtime.NewError("internal error", codeInternal)
)

// CreateLobbyRequest creates a new lobby, or brings back a stored one when Code is set.
type CreateLobbyRequest struct {
	Code  string          `json:"code,omitempty"`
	Rules *domain.Rules   `json:"rules,omitempty"`
	Decks []domain.Source `json:"decks,omitempty"`
}

// LobbyResponse is the payload returned to clients that should join a lobby match.
type LobbyResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

type findLobbyRequest struct {
	Code string `json:"code"`
}

// MatchFinder is the part of runtime.NakamaModule the lobby RPCs need.
type MatchFinder interface {
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

// lobbyRPCs serves the lobby RPCs.
type lobbyRPCs struct {
	store ports.SnapshotStore
	decks *sources.Resolver
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, store ports.SnapshotStore, decks *sources.Resolver) error {
	r := &lobbyRPCs{store: store, decks: decks}
	if err := initializer.RegisterRpc(RpcCreateLobby, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		return r.createLobby(ctx, logger, nk, payload)
	}); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcFindLobby, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		return r.findLobby(ctx, logger, nk, payload)
	}); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcListDecks, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		return r.listDecks(logger)
	})
}

// runningMatch finds the live match of a lobby code.
func runningMatch(ctx context.Context, nk MatchFinder, code string) (string, bool, error) {
	query := fmt.Sprintf("+label.code:%s", code)
	matches, err := nk.MatchList(ctx, 1, true, "", nil, nil, query)
	if err != nil {
		return "", false, err
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	return matches[0].MatchId, true, nil
}

func (r *lobbyRPCs) createLobby(ctx context.Context, logger runtime.Logger, nk MatchFinder, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	var req CreateLobbyRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", errBadPayload
		}
	}

	params := map[string]interface{}{}
	if req.Code != "" {
		if matchID, ok, err := runningMatch(ctx, nk, req.Code); err != nil {
			logger.Error("CreateLobby [User:%s]: Failed to list matches: %v", userID, err)
			return "", errInternal
		} else if ok {
			return marshalLobby(LobbyResponse{MatchID: matchID})
		}
		if _, err := r.store.Load(ctx, req.Code); errors.Is(err, ports.ErrSnapshotNotFound) {
			return "", errLobbyMissing
		} else if err != nil {
			logger.Error("CreateLobby [User:%s]: Failed to load lobby %s: %v", userID, req.Code, err)
			return "", errInternal
		}
		params["code"] = req.Code
	} else {
		if req.Rules != nil {
			if err := req.Rules.Validate(); err != nil {
				return "", runtime.NewError(fmt.Sprintf("invalid rules: %v", err), codeInvalidArgument)
			}
			rules, _ := json.Marshal(req.Rules)
			params["rules"] = string(rules)
		}
		if len(req.Decks) > 0 {
			decks, _ := json.Marshal(req.Decks)
			params["decks"] = string(decks)
		}
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameFillBlank, params)
	if err != nil {
		logger.Error("CreateLobby [User:%s]: Failed to create match: %v", userID, err)
		return "", errInternal
	}
	logger.Info("CreateLobby [User:%s]: Created match %s", userID, matchID)
	return marshalLobby(LobbyResponse{MatchID: matchID, IsNew: req.Code == ""})
}

func (r *lobbyRPCs) findLobby(ctx context.Context, logger runtime.Logger, nk MatchFinder, payload string) (string, error) {
	var req findLobbyRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Code == "" {
		return "", errBadPayload
	}
	matchID, ok, err := runningMatch(ctx, nk, req.Code)
	if err != nil {
		logger.Error("FindLobby: Failed to list matches: %v", err)
		return "", errInternal
	}
	if !ok {
		return "", errLobbyMissing
	}
	return marshalLobby(LobbyResponse{MatchID: matchID})
}

func (r *lobbyRPCs) listDecks(logger runtime.Logger) (string, error) {
	decks, err := r.decks.Decks()
	if err != nil {
		logger.Warn("ListDecks: Deck file unavailable: %v", err)
	}
	data, err := json.Marshal(map[string]interface{}{"decks": decks})
	if err != nil {
		return "", errInternal
	}
	return string(data), nil
}

func marshalLobby(resp LobbyResponse) (string, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return "", errInternal
	}
	return string(b), nil
}
