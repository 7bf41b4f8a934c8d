package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"fillblank/internal/app"
	"fillblank/internal/domain"
	"fillblank/internal/ports/store"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, source domain.Source) (domain.Templates, domain.Summary, error) {
	if source.ID == "missing" {
		return domain.Templates{}, domain.Summary{}, errors.New("no such deck")
	}
	var t domain.Templates
	for i := 0; i < 20; i++ {
		t.Calls = append(t.Calls, domain.Call{
			ID:    fmt.Sprintf("c%d", i),
			Parts: [][]domain.Part{{domain.TextPart("Why "), domain.SlotPart(domain.TransformNone)}},
		})
	}
	for i := 0; i < 100; i++ {
		t.Responses = append(t.Responses, domain.Response{ID: fmt.Sprintf("r%d", i), Source: source, Text: fmt.Sprintf("answer %d", i)})
	}
	return t, domain.Summary{Name: "test", Calls: len(t.Calls), Responses: len(t.Responses)}, nil
}

// recordingSink stores delivered batches and fails the first failures deliveries.
type recordingSink struct {
	mu       sync.Mutex
	failures int
	attempts int
	events   []app.Event
}

func (s *recordingSink) Deliver(ctx context.Context, code string, events []app.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errors.New("socket closed")
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingSink) kinds() []app.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]app.EventKind, len(s.events))
	for i, ev := range s.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (s *recordingSink) has(kind app.EventKind) bool {
	for _, k := range s.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

var builtIn = domain.Source{Kind: domain.SourceBuiltIn, ID: "base"}

func testRules(mutate func(r *domain.Rules)) domain.Rules {
	r := domain.DefaultRules()
	r.HandSize = 5
	r.ScoreLimit = nil
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func newTestHub(t *testing.T, snapshots *store.Memory, sink *recordingSink, opts Options) *Hub {
	t.Helper()
	svc := app.NewService(rand.New(rand.NewSource(1)))
	h := NewHub(svc, snapshots, sink, fakeResolver{}, noopLogger{}, opts)
	t.Cleanup(h.Close)
	return h
}

func startLobby(t *testing.T, h *Hub, code string, rules domain.Rules, players int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.CreateLobby(ctx, code, rules, builtIn))
	for i := 0; i < players; i++ {
		require.NoError(t, h.Join(ctx, code, fmt.Sprintf("u%d", i), fmt.Sprintf("Player %d", i)))
	}
	require.NoError(t, h.Start(ctx, code))
}

func submit(t *testing.T, h *Hub, code, userID string) {
	t.Helper()
	ctx := context.Background()
	view, err := h.View(ctx, code, userID)
	require.NoError(t, err)
	require.NotNil(t, view.Game)
	require.NoError(t, h.Apply(ctx, code, userID, app.Action{
		Kind:  app.ActionSubmit,
		Round: view.Game.Round.ID,
		Play:  []string{view.Hand[0].ID},
	}))
}

func TestEventsAreDeliveredInOrder(t *testing.T) {
	sink := &recordingSink{}
	h := newTestHub(t, store.NewMemory(), sink, Options{})
	startLobby(t, h, "ORDR", testRules(nil), 3)

	want := []app.EventKind{app.EventPlayerJoined, app.EventPlayerJoined, app.EventPlayerJoined, app.EventGameStarted}
	require.Eventually(t, func() bool { return len(sink.kinds()) == len(want) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, want, sink.kinds())
}

func TestLobbyErrors(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t, store.NewMemory(), &recordingSink{}, Options{})

	assert.ErrorIs(t, h.Join(ctx, "NONE", "u0", "x"), app.ErrLobbyNotFound)

	require.NoError(t, h.CreateLobby(ctx, "DUPE", testRules(nil)))
	assert.ErrorIs(t, h.CreateLobby(ctx, "DUPE", testRules(nil)), app.ErrLobbyExists)

	bad := testRules(func(r *domain.Rules) { r.HandSize = 1 })
	_, isInvalid := domain.InvalidActionReason(h.CreateLobby(ctx, "BAD", bad))
	assert.True(t, isInvalid)

	require.NoError(t, h.Join(ctx, "DUPE", "u0", "x"))
	require.NoError(t, h.Join(ctx, "DUPE", "u1", "y"))
	_, isInvalid = domain.InvalidActionReason(h.Start(ctx, "DUPE"))
	assert.True(t, isInvalid, "starting without decks")

	require.NoError(t, h.CreateLobby(ctx, "MISS", testRules(nil), domain.Source{Kind: domain.SourceJSONAgainstHumanity, ID: "missing"}))
	require.NoError(t, h.Join(ctx, "MISS", "u0", "x"))
	require.NoError(t, h.Join(ctx, "MISS", "u1", "y"))
	err := h.Start(ctx, "MISS")
	require.Error(t, err)
	assert.Equal(t, app.KindInternal, app.ErrorKind(err))

	require.NoError(t, h.RemoveLobby(ctx, "DUPE"))
	assert.ErrorIs(t, h.Join(ctx, "DUPE", "u0", "x"), app.ErrLobbyNotFound)
}

func TestDoReturnsBusyWhileLocked(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t, store.NewMemory(), &recordingSink{}, Options{MutationWait: 20 * time.Millisecond})
	require.NoError(t, h.CreateLobby(ctx, "BUSY", testRules(nil)))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- h.Do(ctx, "BUSY", func(*domain.Lobby) (app.Outcome, error) {
			close(entered)
			<-release
			return app.Outcome{}, nil
		})
	}()
	<-entered

	err := h.Join(ctx, "BUSY", "u0", "x")
	assert.ErrorIs(t, err, app.ErrBusy)
	assert.Equal(t, app.KindBusy, app.ErrorKind(err))

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, h.Join(ctx, "BUSY", "u0", "x"))
}

func TestRoundStartTimeoutFires(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(t, store.NewMemory(), &recordingSink{}, Options{})
	rules := testRules(func(r *domain.Rules) {
		r.Stages.Mode = domain.TimeLimitNone
		r.Stages.Revealing = nil
		r.Stages.Judging.After = 10 * time.Millisecond
	})
	startLobby(t, h, "NEXT", rules, 3)

	submit(t, h, "NEXT", "u0")
	submit(t, h, "NEXT", "u2")

	view, err := h.View(ctx, "NEXT", "u1")
	require.NoError(t, err)
	require.Equal(t, domain.StageJudging, view.Game.Round.Stage)
	require.NoError(t, h.Apply(ctx, "NEXT", "u1", app.Action{Kind: app.ActionJudge, Round: 0, PlayID: view.Game.Round.Plays[0].ID}))

	require.Eventually(t, func() bool {
		v, err := h.View(ctx, "NEXT", "u1")
		return err == nil && v.Game.Round.ID == 1 && v.Game.Round.Stage == domain.StagePlaying
	}, time.Second, 5*time.Millisecond)
}

func TestStaleTimersAreDropped(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	h := newTestHub(t, store.NewMemory(), sink, Options{})
	rules := testRules(func(r *domain.Rules) {
		r.Stages.Playing.Duration = 200 * time.Millisecond
		r.Stages.Revealing = nil
		r.Stages.Judging.Duration = time.Hour
	})
	startLobby(t, h, "STAL", rules, 3)
	submit(t, h, "STAL", "u0")
	submit(t, h, "STAL", "u2")

	require.Eventually(t, func() bool {
		pending, err := h.Pending(ctx, "STAL")
		return err == nil && len(pending) == 1
	}, 2*time.Second, 5*time.Millisecond)

	pending, err := h.Pending(ctx, "STAL")
	require.NoError(t, err)
	assert.Equal(t, domain.StageJudging, pending[0].Stage)
	assert.False(t, sink.has(app.EventStageTimerDone))
}

func TestDeliveryRetries(t *testing.T) {
	sink := &recordingSink{failures: 2}
	h := newTestHub(t, store.NewMemory(), sink, Options{DeliveryBackoff: time.Millisecond})
	require.NoError(t, h.CreateLobby(context.Background(), "RTRY", testRules(nil)))
	require.NoError(t, h.Join(context.Background(), "RTRY", "u0", "x"))

	require.Eventually(t, func() bool { return len(sink.kinds()) == 1 }, time.Second, 5*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 3, sink.attempts)
}

func TestDeliveryHoldsBatchUntilSinkRecovers(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{failures: 8}
	h := newTestHub(t, store.NewMemory(), sink, Options{DeliveryRetries: 2, DeliveryBackoff: time.Millisecond})
	require.NoError(t, h.CreateLobby(ctx, "HOLD", testRules(nil)))
	require.NoError(t, h.Join(ctx, "HOLD", "u0", "x"))
	require.NoError(t, h.Join(ctx, "HOLD", "u1", "y"))

	require.Eventually(t, func() bool { return len(sink.kinds()) == 2 }, 2*time.Second, 5*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 10, sink.attempts)
	require.Len(t, sink.events, 2)
	assert.Equal(t, "u0", sink.events[0].Payload.(app.PlayerJoinedPayload).UserID)
	assert.Equal(t, "u1", sink.events[1].Payload.(app.PlayerJoinedPayload).UserID)
}

func TestRestoreRearmsTimeouts(t *testing.T) {
	ctx := context.Background()
	snapshots := store.NewMemory()
	rules := testRules(func(r *domain.Rules) { r.Stages.Playing.Duration = 30 * time.Millisecond })

	first := newTestHub(t, snapshots, &recordingSink{}, Options{})
	startLobby(t, first, "SAVE", rules, 3)
	first.Close()

	second := newTestHub(t, snapshots, &recordingSink{}, Options{})
	restored, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	view, err := second.View(ctx, "SAVE", "u0")
	require.NoError(t, err)
	require.NotNil(t, view.Game)
	assert.Len(t, view.Hand, 5)
	assert.Equal(t, "u1", view.Game.Round.Czar)

	require.Eventually(t, func() bool {
		v, err := second.View(ctx, "SAVE", "u0")
		return err == nil && v.Game.Round.TimedOut
	}, time.Second, 5*time.Millisecond)
}
