package app

import (
	"errors"
	"fmt"
	"time"

	"fillblank/internal/domain"
)

// TimeoutKind identifies a scheduled stage-advancing callback.
type TimeoutKind string

const (
	// TimeoutFinishedPlaying advances a Playing round once nobody is left to play.
	TimeoutFinishedPlaying TimeoutKind = "FinishedPlaying"
	// TimeoutFinishedRevealing moves a fully revealed round into judging.
	TimeoutFinishedRevealing TimeoutKind = "FinishedRevealing"
	// TimeoutRoundStageTimerDone fires when a stage's time limit runs out.
	TimeoutRoundStageTimerDone TimeoutKind = "RoundStageTimerDone"
	// TimeoutRoundStart opens the next round after a round completes.
	TimeoutRoundStart TimeoutKind = "RoundStart"
)

// Timeout is a scheduled intent. Round and Stage identify what it was
// scheduled for; if the game has moved on by the time it fires it is a no-op.
type Timeout struct {
	Kind  TimeoutKind   `json:"kind"`
	Round int           `json:"round"`
	Stage domain.Stage  `json:"stage"`
	After time.Duration `json:"after"`
}

func (t Timeout) String() string {
	return fmt.Sprintf("%s(round=%d stage=%s after=%s)", t.Kind, t.Round, t.Stage, t.After)
}

// Outcome is everything a mutation produced for the outside world.
type Outcome struct {
	Events   []Event
	Timeouts []Timeout
}

func (o *Outcome) emit(events ...Event) {
	o.Events = append(o.Events, events...)
}

func (o *Outcome) schedule(timeouts ...Timeout) {
	o.Timeouts = append(o.Timeouts, timeouts...)
}

func (o *Outcome) merge(other Outcome) {
	o.Events = append(o.Events, other.Events...)
	o.Timeouts = append(o.Timeouts, other.Timeouts...)
}

// Empty reports whether nothing happened.
func (o Outcome) Empty() bool {
	return len(o.Events) == 0 && len(o.Timeouts) == 0
}

// HandleTimeout runs a fired timeout against the lobby. It returns
// ErrStaleTimeout when the round or stage it was scheduled for has passed.
func (s *Service) HandleTimeout(lobby *domain.Lobby, t Timeout) (Outcome, error) {
	if !lobby.HasActiveGame() {
		return Outcome{}, ErrStaleTimeout
	}
	round := lobby.Game.Round
	if round.ID != t.Round || round.Stage != t.Stage {
		return Outcome{}, ErrStaleTimeout
	}

	switch t.Kind {
	case TimeoutFinishedPlaying:
		return s.finishedPlaying(lobby)
	case TimeoutFinishedRevealing:
		return s.finishedRevealing(lobby)
	case TimeoutRoundStageTimerDone:
		return s.stageTimerDone(lobby)
	case TimeoutRoundStart:
		return s.StartNewRound(lobby)
	default:
		return Outcome{}, fmt.Errorf("unknown timeout kind: %s", t.Kind)
	}
}

// Settle runs every zero-delay timeout in out straight away, so they land in
// the same serialized mutation. The returned outcome only holds delayed timeouts.
// Stale inline timeouts are dropped.
func (s *Service) Settle(lobby *domain.Lobby, out Outcome) (Outcome, error) {
	settled := Outcome{Events: out.Events}
	pending := out.Timeouts
	for len(pending) > 0 {
		t := pending[0]
		pending = pending[1:]
		if t.After > 0 {
			settled.schedule(t)
			continue
		}
		next, err := s.HandleTimeout(lobby, t)
		if errors.Is(err, ErrStaleTimeout) {
			continue
		}
		if err != nil {
			return settled, fmt.Errorf("inline %s: %w", t, err)
		}
		settled.emit(next.Events...)
		pending = append(pending, next.Timeouts...)
	}
	return settled, nil
}

func finishedPlayingIfNeeded(round *domain.Round, after time.Duration) (Timeout, bool) {
	if round.Stage != domain.StagePlaying || round.WaitingFor() != nil {
		return Timeout{}, false
	}
	return Timeout{Kind: TimeoutFinishedPlaying, Round: round.ID, Stage: domain.StagePlaying, After: after}, true
}

func finishedRevealingIfNeeded(round *domain.Round, after time.Duration) (Timeout, bool) {
	if round.Stage != domain.StageRevealing || round.WaitingFor() != nil {
		return Timeout{}, false
	}
	return Timeout{Kind: TimeoutFinishedRevealing, Round: round.ID, Stage: domain.StageRevealing, After: after}, true
}

func stageTimer(round *domain.Round, stages domain.Stages) (Timeout, bool) {
	limit, ok := stages.TimeLimit(round.Stage)
	if !ok {
		return Timeout{}, false
	}
	return Timeout{Kind: TimeoutRoundStageTimerDone, Round: round.ID, Stage: round.Stage, After: limit}, true
}

func (s *Service) finishedPlaying(lobby *domain.Lobby) (Outcome, error) {
	g := lobby.Game
	if g.Round.WaitingFor() != nil {
		return Outcome{}, ErrStaleTimeout
	}
	if len(g.Round.Plays) == 0 {
		return s.StartNewRound(lobby)
	}

	var out Outcome
	if g.Rules.Stages.Revealing != nil {
		next, err := g.Round.StartRevealing(s.rng, s.now())
		if err != nil {
			return Outcome{}, err
		}
		g.Round = next
		ids := make([]string, len(next.Plays))
		for i, p := range next.Plays {
			ids[i] = p.ID
		}
		out.emit(broadcast(EventStartRevealing, StartRevealingPayload{Plays: ids}))
	} else {
		next, err := g.Round.StartJudging(s.rng, s.now())
		if err != nil {
			return Outcome{}, err
		}
		g.Round = next
		out.emit(broadcast(EventStartJudging, StartJudgingPayload{Plays: next.Public().Plays}))
	}
	if t, ok := stageTimer(g.Round, g.Rules.Stages); ok {
		out.schedule(t)
	}
	czarOut, err := s.czarActs(lobby)
	if err != nil {
		return Outcome{}, err
	}
	out.merge(czarOut)
	return out, nil
}

func (s *Service) finishedRevealing(lobby *domain.Lobby) (Outcome, error) {
	g := lobby.Game
	next, err := g.Round.StartJudging(s.rng, s.now())
	if err != nil {
		return Outcome{}, ErrStaleTimeout
	}
	g.Round = next

	var out Outcome
	out.emit(broadcast(EventStartJudging, StartJudgingPayload{}))
	if t, ok := stageTimer(g.Round, g.Rules.Stages); ok {
		out.schedule(t)
	}
	czarOut, err := s.czarActs(lobby)
	if err != nil {
		return Outcome{}, err
	}
	out.merge(czarOut)
	return out, nil
}

func (s *Service) stageTimerDone(lobby *domain.Lobby) (Outcome, error) {
	g := lobby.Game
	if _, timed := g.Rules.Stages.TimeLimit(g.Round.Stage); !timed {
		return Outcome{}, ErrStaleTimeout
	}
	switch g.Rules.Stages.Mode {
	case domain.TimeLimitSoft:
		if g.Round.TimedOut {
			return Outcome{}, nil
		}
		g.Round.TimedOut = true
		return Outcome{Events: []Event{broadcast(EventStageTimerDone, StageTimerDonePayload{
			Round: g.Round.ID,
			Stage: g.Round.Stage,
		})}}, nil
	case domain.TimeLimitHard:
		return s.dealWithLostPlayers(lobby, g.Round.WaitingFor())
	default:
		return Outcome{}, ErrStaleTimeout
	}
}
