// Package engine runs lobbies for transports that do not bring their own game
// loop: one mutation in flight per lobby, timeouts on timers, snapshots after
// every change and an ordered outbox per lobby.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fillblank/internal/app"
	"fillblank/internal/domain"
	"fillblank/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	DefaultMutationWait    = 5 * time.Second
	DefaultDeliveryRetries = 3
	DefaultDeliveryBackoff = 200 * time.Millisecond

	// busyRetry is how long a timeout that found its lobby busy waits before trying again.
	busyRetry = 100 * time.Millisecond
)

// Options tunes a Hub. Zero values take the defaults.
type Options struct {
	MutationWait time.Duration
	// DeliveryRetries is how many failed attempts grow the backoff before it
	// levels off. Batches are never dropped.
	DeliveryRetries int
	DeliveryBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.MutationWait <= 0 {
		o.MutationWait = DefaultMutationWait
	}
	if o.DeliveryRetries <= 0 {
		o.DeliveryRetries = DefaultDeliveryRetries
	}
	if o.DeliveryBackoff <= 0 {
		o.DeliveryBackoff = DefaultDeliveryBackoff
	}
	return o
}

// Mutation changes a lobby and reports what happened.
type Mutation func(lobby *domain.Lobby) (app.Outcome, error)

// Hub owns the lobbies of one server process.
type Hub struct {
	svc     *app.Service
	store   ports.SnapshotStore
	sink    ports.EventSink
	sources ports.SourceResolver
	logger  runtime.Logger
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	lobbies map[string]*entry
	nextID  atomic.Uint64
}

type entry struct {
	code   string
	sem    chan struct{}
	lobby  *domain.Lobby
	outbox *outbox

	// pending is guarded by the semaphore.
	pending map[uint64]*pendingTimeout
}

type pendingTimeout struct {
	Timeout app.Timeout `json:"timeout"`
	Due     time.Time   `json:"due"`
	timer   *time.Timer
}

// record is what the hub persists per lobby: the lobby snapshot plus the
// timeouts still waiting to fire.
type record struct {
	Lobby    json.RawMessage   `json:"lobby"`
	Timeouts []*pendingTimeout `json:"timeouts,omitempty"`
}

// NewHub builds a hub. Close it to stop timers and delivery.
func NewHub(svc *app.Service, store ports.SnapshotStore, sink ports.EventSink, sources ports.SourceResolver, logger runtime.Logger, opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		svc:     svc,
		store:   store,
		sink:    sink,
		sources: sources,
		logger:  logger,
		opts:    opts.withDefaults(),
		ctx:     ctx,
		cancel:  cancel,
		lobbies: make(map[string]*entry),
	}
}

// Close stops every timer and outbox goroutine. Undelivered events are dropped.
func (h *Hub) Close() {
	h.cancel()
	h.mu.Lock()
	for _, e := range h.lobbies {
		if err := h.acquire(context.Background(), e); err != nil {
			h.logger.Warn("Close: Lobby %s still busy, leaving its timers to expire.", e.code)
			continue
		}
		for _, p := range e.pending {
			p.timer.Stop()
		}
		<-e.sem
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// CreateLobby registers a new empty lobby.
func (h *Hub) CreateLobby(ctx context.Context, code string, rules domain.Rules, sources ...domain.Source) error {
	if err := rules.Validate(); err != nil {
		return domain.InvalidAction("The game rules are not valid: %v.", err)
	}
	if _, err := h.lookup(ctx, code); err == nil {
		return app.ErrLobbyExists
	} else if !errors.Is(err, app.ErrLobbyNotFound) {
		return err
	}
	h.mu.Lock()
	if _, ok := h.lobbies[code]; ok {
		h.mu.Unlock()
		return app.ErrLobbyExists
	}
	e := h.register(domain.NewLobby(code, rules, sources...))
	h.mu.Unlock()

	return h.Do(ctx, e.code, func(*domain.Lobby) (app.Outcome, error) {
		return app.Outcome{}, nil
	})
}

// register adds a lobby entry. h.mu must be held.
func (h *Hub) register(lobby *domain.Lobby) *entry {
	e := &entry{
		code:    lobby.Code,
		sem:     make(chan struct{}, 1),
		lobby:   lobby,
		outbox:  newOutbox(),
		pending: make(map[uint64]*pendingTimeout),
	}
	h.lobbies[lobby.Code] = e
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.deliver(e)
	}()
	return e
}

// Restore loads every stored lobby and re-arms its pending timeouts.
func (h *Hub) Restore(ctx context.Context) (int, error) {
	codes, err := h.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list snapshots: %w", err)
	}
	restored := 0
	for _, code := range codes {
		if _, err := h.lookup(ctx, code); err != nil {
			h.logger.Error("Restore: Failed to restore lobby %s: %v", code, err)
			continue
		}
		restored++
	}
	return restored, nil
}

// lookup returns the lobby entry, loading it from the store if this process
// has not seen it yet.
func (h *Hub) lookup(ctx context.Context, code string) (*entry, error) {
	h.mu.Lock()
	if e, ok := h.lobbies[code]; ok {
		h.mu.Unlock()
		return e, nil
	}
	h.mu.Unlock()

	data, err := h.store.Load(ctx, code)
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		return nil, app.ErrLobbyNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lobby record %s: %w", code, err)
	}
	lobby, err := domain.RestoreLobby(rec.Lobby, h.svc.Rand())
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.lobbies[code]; ok {
		return e, nil
	}
	e := h.register(lobby)
	e.sem <- struct{}{}
	now := time.Now()
	for _, p := range rec.Timeouts {
		h.arm(e, p.Timeout, p.Due.Sub(now))
	}
	<-e.sem
	h.logger.Info("Restore: Lobby %s restored with %d pending timeouts.", code, len(rec.Timeouts))
	return e, nil
}

// Do runs fn with the lobby locked. It waits at most the configured mutation
// wait, or until ctx is done, and then gives up with app.ErrBusy. Zero-delay
// timeouts run inside the same lock; the lobby is then persisted, events are
// queued for delivery and delayed timeouts are armed.
func (h *Hub) Do(ctx context.Context, code string, fn Mutation) error {
	e, err := h.lookup(ctx, code)
	if err != nil {
		return err
	}
	if err := h.acquire(ctx, e); err != nil {
		return err
	}
	defer func() { <-e.sem }()
	return h.mutate(ctx, e, fn)
}

func (h *Hub) acquire(ctx context.Context, e *entry) error {
	select {
	case e.sem <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(h.opts.MutationWait)
	defer timer.Stop()
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return app.ErrBusy
	case <-timer.C:
		return app.ErrBusy
	}
}

// mutate runs fn against a locked entry.
func (h *Hub) mutate(ctx context.Context, e *entry, fn Mutation) error {
	out, fnErr := fn(e.lobby)
	if fnErr != nil && out.Empty() {
		return fnErr
	}
	settled, err := h.svc.Settle(e.lobby, out)
	if err != nil {
		h.logger.Error("Do: Lobby %s failed to settle timeouts: %v", e.code, err)
		if fnErr == nil {
			fnErr = err
		}
	}

	for _, t := range settled.Timeouts {
		h.arm(e, t, t.After)
	}
	if err := h.persist(ctx, e); err != nil {
		h.logger.Error("Do: Lobby %s failed to persist: %v", e.code, err)
	}
	if len(settled.Events) > 0 {
		e.outbox.push(settled.Events)
	}
	return fnErr
}

func (h *Hub) persist(ctx context.Context, e *entry) error {
	lobby, err := e.lobby.Snapshot()
	if err != nil {
		return err
	}
	rec := record{Lobby: lobby}
	for _, p := range e.pending {
		rec.Timeouts = append(rec.Timeouts, p)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return h.store.Save(ctx, e.code, data)
}

// arm schedules t to fire after d. The entry must be locked, or not yet shared.
func (h *Hub) arm(e *entry, t app.Timeout, d time.Duration) {
	if d < 0 {
		d = 0
	}
	id := h.nextID.Add(1)
	p := &pendingTimeout{Timeout: t, Due: time.Now().Add(d)}
	e.pending[id] = p
	p.timer = time.AfterFunc(d, func() { h.fire(e, id) })
}

// fire runs a due timeout. Timeouts whose round or stage has passed are dropped.
func (h *Hub) fire(e *entry, id uint64) {
	if h.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(h.ctx, h.opts.MutationWait)
	defer cancel()
	if err := h.acquire(ctx, e); err != nil {
		if h.ctx.Err() == nil {
			time.AfterFunc(busyRetry, func() { h.fire(e, id) })
		}
		return
	}
	defer func() { <-e.sem }()

	p, ok := e.pending[id]
	if !ok {
		return
	}
	delete(e.pending, id)
	err := h.mutate(ctx, e, func(lobby *domain.Lobby) (app.Outcome, error) {
		out, err := h.svc.HandleTimeout(lobby, p.Timeout)
		if errors.Is(err, app.ErrStaleTimeout) {
			h.logger.Debug("Timeout: Lobby %s dropped stale %s", e.code, p.Timeout)
			return app.Outcome{}, nil
		}
		return out, err
	})
	if err != nil {
		h.logger.Error("Timeout: Lobby %s failed to run %s: %v", e.code, p.Timeout, err)
	}
}

// Pending lists the timeouts armed for a lobby.
func (h *Hub) Pending(ctx context.Context, code string) ([]app.Timeout, error) {
	var timeouts []app.Timeout
	err := h.read(ctx, code, func(e *entry) {
		for _, p := range e.pending {
			timeouts = append(timeouts, p.Timeout)
		}
	})
	return timeouts, err
}

// read runs fn with the lobby locked without persisting anything.
func (h *Hub) read(ctx context.Context, code string, fn func(e *entry)) error {
	e, err := h.lookup(ctx, code)
	if err != nil {
		return err
	}
	if err := h.acquire(ctx, e); err != nil {
		return err
	}
	defer func() { <-e.sem }()
	fn(e)
	return nil
}

// RemoveLobby stops a lobby's timers and deletes its snapshot.
func (h *Hub) RemoveLobby(ctx context.Context, code string) error {
	e, err := h.lookup(ctx, code)
	if err != nil {
		return err
	}
	if err := h.acquire(ctx, e); err != nil {
		return err
	}
	defer func() { <-e.sem }()

	for id, p := range e.pending {
		p.timer.Stop()
		delete(e.pending, id)
	}
	h.mu.Lock()
	delete(h.lobbies, code)
	h.mu.Unlock()
	e.outbox.close()
	h.svc.Forget(code)
	return h.store.Delete(ctx, code)
}
