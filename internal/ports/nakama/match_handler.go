package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fillblank/internal/app"
	"fillblank/internal/domain"
	"fillblank/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// tickRate is ticks per second; it bounds how late a timeout can fire.
	tickRate = 5
	// emptyGraceSeconds is how long a lobby with nobody connected stays up.
	emptyGraceSeconds = 60
	codeLength        = 6
	maxPlayers        = 32
)

// scheduledTimeout is a pending timeout due at a match tick.
type scheduledTimeout struct {
	Timeout app.Timeout
	DueTick int64
}

// storedTimeout is a pending timeout as persisted: ticks do not survive the match.
type storedTimeout struct {
	Timeout   app.Timeout   `json:"timeout"`
	Remaining time.Duration `json:"remaining"`
}

type storedLobby struct {
	Lobby    json.RawMessage `json:"lobby"`
	Timeouts []storedTimeout `json:"timeouts,omitempty"`
}

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Code      string                      `json:"code"`
	Lobby     *domain.Lobby               `json:"-"`
	App       *app.Service                `json:"-"`
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	// Owner may start the game and change the computer players.
	Owner    string             `json:"owner"`
	Timeouts []scheduledTimeout `json:"-"`
	// EmptyTicks counts the ticks nobody has been connected for.
	EmptyTicks int64 `json:"empty_ticks"`
}

// schedule queues t to fire after its delay, on the next tick at the earliest.
func (ms *MatchState) schedule(t app.Timeout) {
	ticks := int64((t.After*tickRate + time.Second - 1) / time.Second)
	if ticks < 1 {
		ticks = 1
	}
	ms.Timeouts = append(ms.Timeouts, scheduledTimeout{Timeout: t, DueTick: ms.Tick + ticks})
}

// due removes and returns the timeouts due at the current tick.
func (ms *MatchState) due() []app.Timeout {
	var due []app.Timeout
	pending := ms.Timeouts[:0]
	for _, s := range ms.Timeouts {
		if s.DueTick <= ms.Tick {
			due = append(due, s.Timeout)
		} else {
			pending = append(pending, s)
		}
	}
	ms.Timeouts = pending
	return due
}

// nextOwner picks the first connected human in join order.
func (ms *MatchState) nextOwner() string {
	for _, id := range ms.Lobby.UserOrder {
		if _, ok := ms.Presences[id]; ok {
			return id
		}
	}
	return ""
}

func newLobbyCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:codeLength])
}

type matchHandler struct {
	sources ports.SourceResolver
	store   ports.SnapshotStore
	rules   domain.Rules
	// opts configure the service each match runs its lobby with.
	opts []app.Option
}

func newMatchHandler(sources ports.SourceResolver, store ports.SnapshotStore, rules domain.Rules, opts ...app.Option) *matchHandler {
	return &matchHandler{sources: sources, store: store, rules: rules, opts: opts}
}

// MatchInit is called when the match is created. Params may carry "code" to
// restore a stored lobby, and "rules" and "decks" as JSON for a new one.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	state := &MatchState{
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(nil, mh.opts...),
	}

	code, _ := params["code"].(string)
	if code != "" {
		if err := mh.restore(ctx, state, code); err != nil {
			logger.Error("MatchInit: Failed to restore lobby %s: %v", code, err)
			return nil, 0, ""
		}
		logger.Info("MatchInit: Restored lobby %s with %d pending timeouts.", code, len(state.Timeouts))
	} else {
		lobby, err := mh.newLobby(params)
		if err != nil {
			logger.Error("MatchInit: %v", err)
			return nil, 0, ""
		}
		state.Lobby = lobby
		state.Code = lobby.Code
		mh.persist(ctx, state, logger)
		logger.Debug("MatchInit: Created lobby %s.", state.Code)
	}

	label, err := matchLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	return state, tickRate, label
}

func (mh *matchHandler) newLobby(params map[string]interface{}) (*domain.Lobby, error) {
	rules := mh.rules
	if raw, ok := params["rules"].(string); ok && raw != "" {
		rules = domain.Rules{}
		if err := json.Unmarshal([]byte(raw), &rules); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
		}
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	decks := []domain.Source{{Kind: domain.SourceBuiltIn, ID: "base"}}
	if raw, ok := params["decks"].(string); ok && raw != "" {
		decks = nil
		if err := json.Unmarshal([]byte(raw), &decks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decks: %w", err)
		}
	}
	return domain.NewLobby(newLobbyCode(), rules, decks...), nil
}

func (mh *matchHandler) restore(ctx context.Context, state *MatchState, code string) error {
	data, err := mh.store.Load(ctx, code)
	if err != nil {
		return err
	}
	var stored storedLobby
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to unmarshal stored lobby: %w", err)
	}
	lobby, err := domain.RestoreLobby(stored.Lobby, state.App.Rand())
	if err != nil {
		return err
	}
	// Nobody is connected to a fresh match; they come back through MatchJoin.
	for id, user := range lobby.Users {
		if !user.IsComputer() && user.Presence == domain.PresenceJoined {
			user.Presence = domain.PresenceAway
			lobby.Users[id] = user
		}
	}
	state.Lobby = lobby
	state.Code = code
	for _, t := range stored.Timeouts {
		t.Timeout.After = t.Remaining
		state.schedule(t.Timeout)
	}
	return nil
}

func (mh *matchHandler) persist(ctx context.Context, state *MatchState, logger runtime.Logger) {
	lobby, err := state.Lobby.Snapshot()
	if err != nil {
		logger.Error("Persist: Failed to snapshot lobby %s: %v", state.Code, err)
		return
	}
	stored := storedLobby{Lobby: lobby}
	for _, s := range state.Timeouts {
		remaining := time.Duration(s.DueTick-state.Tick) * time.Second / tickRate
		stored.Timeouts = append(stored.Timeouts, storedTimeout{Timeout: s.Timeout, Remaining: remaining})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		logger.Error("Persist: Failed to marshal lobby %s: %v", state.Code, err)
		return
	}
	if err := mh.store.Save(ctx, state.Code, data); err != nil {
		logger.Error("Persist: Failed to save lobby %s: %v", state.Code, err)
	}
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if _, known := matchState.Lobby.Users[presence.GetUserId()]; !known && len(matchState.Lobby.Users) >= maxPlayers {
		return state, false, "Lobby full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p
		out, err := matchState.App.JoinLobby(matchState.Lobby, userID, p.GetUsername())
		if err := mh.commit(ctx, matchState, dispatcher, logger, out, err); err != nil {
			logger.Warn("MatchJoin: User %s could not join lobby %s: %v", userID, matchState.Code, err)
		}
		mh.sendSync(matchState, dispatcher, logger, p)
	}

	if _, ok := matchState.Presences[matchState.Owner]; !ok {
		matchState.Owner = matchState.nextOwner()
		logger.Debug("MatchJoin: Owner of lobby %s is now %s.", matchState.Code, matchState.Owner)
	}
	return matchState
}

// MatchLeave is called when one or more players disconnect.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		out, err := matchState.App.Disconnect(matchState.Lobby, userID)
		if err := mh.commit(ctx, matchState, dispatcher, logger, out, err); err != nil {
			logger.Warn("MatchLeave: Disconnect of %s failed: %v", userID, err)
		}
	}

	if _, ok := matchState.Presences[matchState.Owner]; !ok {
		matchState.Owner = matchState.nextOwner()
	}
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	for _, msg := range messages {
		var err error
		switch msg.GetOpCode() {
		case OpStartGame:
			err = mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpAction:
			err = mh.handleAction(ctx, matchState, dispatcher, logger, msg)
		case OpSetRole:
			err = mh.handleSetRole(ctx, matchState, dispatcher, logger, msg)
		case OpSetAICount:
			err = mh.handleSetAICount(ctx, matchState, dispatcher, logger, msg)
		case OpLeave:
			err = mh.handleLeave(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			continue
		}
		if err != nil {
			mh.sendError(matchState, dispatcher, logger, msg.GetUserId(), err)
		}
	}

	for _, t := range matchState.due() {
		out, err := matchState.App.HandleTimeout(matchState.Lobby, t)
		if errors.Is(err, app.ErrStaleTimeout) {
			logger.Debug("MatchLoop: Lobby %s dropped stale %s", matchState.Code, t)
			continue
		}
		if err := mh.commit(ctx, matchState, dispatcher, logger, out, err); err != nil {
			logger.Error("MatchLoop: Lobby %s failed to run %s: %v", matchState.Code, t, err)
		}
	}

	if len(matchState.Presences) > 0 {
		matchState.EmptyTicks = 0
	} else {
		matchState.EmptyTicks++
	}
	if matchState.EmptyTicks >= emptyGraceSeconds*tickRate {
		logger.Info("MatchLoop: Closing lobby %s, nobody came back.", matchState.Code)
		mh.persist(ctx, matchState, logger)
		return nil
	}
	return matchState
}

// commit settles an outcome: zero-delay timeouts run now, the rest are
// scheduled, events are dispatched and the lobby is persisted. err is the
// error of the mutation that produced out and is returned unchanged.
func (mh *matchHandler) commit(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, out app.Outcome, err error) error {
	if err != nil && out.Empty() {
		return err
	}
	settled, settleErr := state.App.Settle(state.Lobby, out)
	if settleErr != nil {
		logger.Error("Commit: Lobby %s failed to settle timeouts: %v", state.Code, settleErr)
		if err == nil {
			err = settleErr
		}
	}
	for _, t := range settled.Timeouts {
		state.schedule(t)
	}
	for _, ev := range settled.Events {
		mh.dispatch(state, dispatcher, logger, ev)
	}
	mh.persist(ctx, state, logger)
	mh.updateLabel(state, dispatcher, logger)
	return err
}

func decode(msg runtime.MatchData, v interface{}) error {
	if err := json.Unmarshal(msg.GetData(), v); err != nil {
		return domain.InvalidAction("The message could not be read.")
	}
	return nil
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) error {
	senderID := msg.GetUserId()
	logger.Info("StartGame: Request received from %s (owner=%s) in lobby %s", senderID, state.Owner, state.Code)
	if senderID != state.Owner {
		return domain.InvalidAction("Only the lobby owner can start the game.")
	}
	if len(state.Lobby.Sources) == 0 {
		return domain.InvalidAction("Add at least one deck before starting.")
	}

	templates := make([]domain.Templates, 0, len(state.Lobby.Sources))
	for _, source := range state.Lobby.Sources {
		t, _, err := mh.sources.Resolve(ctx, source)
		if err != nil {
			return fmt.Errorf("failed to resolve %s source %q: %w", source.Kind, source.ID, err)
		}
		templates = append(templates, t)
	}
	out, err := state.App.StartGame(state.Lobby, templates)
	if err := mh.commit(ctx, state, dispatcher, logger, out, err); err != nil {
		return err
	}
	logger.Info("StartGame: Lobby %s started with %d players.", state.Code, len(state.Lobby.Game.Players))
	return nil
}

func (mh *matchHandler) handleAction(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) error {
	var action app.Action
	if err := decode(msg, &action); err != nil {
		return err
	}
	out, err := state.App.Apply(state.Lobby, msg.GetUserId(), action)
	return mh.commit(ctx, state, dispatcher, logger, out, err)
}

type setRoleRequest struct {
	Role domain.Role `json:"role"`
}

func (mh *matchHandler) handleSetRole(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) error {
	var req setRoleRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	out, err := state.App.SetRole(state.Lobby, msg.GetUserId(), req.Role)
	return mh.commit(ctx, state, dispatcher, logger, out, err)
}

type setAICountRequest struct {
	Count int `json:"count"`
}

func (mh *matchHandler) handleSetAICount(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) error {
	if msg.GetUserId() != state.Owner {
		return domain.InvalidAction("Only the lobby owner can change the computer players.")
	}
	var req setAICountRequest
	if err := decode(msg, &req); err != nil {
		return err
	}
	out, err := state.App.SetAICount(state.Lobby, req.Count)
	return mh.commit(ctx, state, dispatcher, logger, out, err)
}

func (mh *matchHandler) handleLeave(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) error {
	userID := msg.GetUserId()
	out, err := state.App.LeaveLobby(state.Lobby, userID)
	if err := mh.commit(ctx, state, dispatcher, logger, out, err); err != nil {
		return err
	}
	if p, ok := state.Presences[userID]; ok {
		if err := dispatcher.MatchKick([]runtime.Presence{p}); err != nil {
			logger.Warn("Leave: Failed to kick %s: %v", userID, err)
		}
	}
	return nil
}

// dispatch sends an event to every connected user allowed to see it. Events
// with per-user additions go out one message per user.
func (mh *matchHandler) dispatch(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	if len(ev.Recipients) == 0 && len(ev.Additions) == 0 {
		data, err := json.Marshal(ev.MessageFor(""))
		if err != nil {
			logger.Error("Dispatch: Failed to marshal event %v: %v", ev.Kind, err)
			return
		}
		if err := dispatcher.BroadcastMessage(OpEvent, data, nil, nil, true); err != nil {
			logger.Warn("Dispatch: Broadcast of %v failed: %v", ev.Kind, err)
		}
		return
	}

	for userID, p := range state.Presences {
		if !ev.VisibleTo(userID) {
			continue
		}
		data, err := json.Marshal(ev.MessageFor(userID))
		if err != nil {
			logger.Error("Dispatch: Failed to marshal event %v: %v", ev.Kind, err)
			return
		}
		if err := dispatcher.BroadcastMessage(OpEvent, data, []runtime.Presence{p}, nil, true); err != nil {
			logger.Warn("Dispatch: Sending %v to %s failed: %v", ev.Kind, userID, err)
		}
	}
}

func (mh *matchHandler) sendSync(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, p runtime.Presence) {
	data, err := json.Marshal(state.App.View(state.Lobby, p.GetUserId()))
	if err != nil {
		logger.Error("Sync: Failed to marshal view: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpSync, data, []runtime.Presence{p}, nil, true)
}

type errorMessage struct {
	Kind    app.Kind `json:"kind"`
	Message string   `json:"message"`
}

// sendError tells a single user why their message was rejected.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, err error) {
	kind := app.ErrorKind(err)
	if kind == app.KindInternal {
		logger.Error("Lobby %s: message from %s failed: %v", state.Code, userID, err)
	} else {
		logger.Debug("Lobby %s: message from %s rejected: %v", state.Code, userID, err)
	}
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	data, _ := json.Marshal(errorMessage{Kind: kind, Message: app.ClientMessage(err)})
	dispatcher.BroadcastMessage(OpError, data, []runtime.Presence{presence}, nil, true)
}

// matchLabel lets clients find lobbies with queries like "+label.code:ABC123".
func matchLabel(state *MatchState) (string, error) {
	phase := "lobby"
	if state.Lobby.HasActiveGame() {
		phase = "playing"
	}
	players := 0
	for _, user := range state.Lobby.Users {
		if user.Presence != domain.PresenceLeft {
			players++
		}
	}
	label, err := structpb.NewStruct(map[string]interface{}{
		"code":    state.Code,
		"state":   phase,
		"players": players,
		"open":    players < maxPlayers,
	})
	if err != nil {
		return "", err
	}
	data, err := protojson.Marshal(label)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	if matchState, ok := state.(*MatchState); ok {
		mh.persist(ctx, matchState, logger)
		logger.Debug("MatchTerminate: Lobby %s saved.", matchState.Code)
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
