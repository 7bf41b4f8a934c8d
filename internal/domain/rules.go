package domain

import (
	"errors"
	"time"
)

// TimeLimitMode decides what happens when a stage timer runs out.
type TimeLimitMode string

const (
	// TimeLimitNone disables stage timers.
	TimeLimitNone TimeLimitMode = ""
	// TimeLimitSoft marks the round as timed out and lets waiting players enforce it.
	TimeLimitSoft TimeLimitMode = "Soft"
	// TimeLimitHard skips whoever the round is still waiting for.
	TimeLimitHard TimeLimitMode = "Hard"
)

// StageRules configures one round stage.
type StageRules struct {
	// Duration is the stage time limit; zero means the stage is untimed.
	Duration time.Duration `json:"duration,omitempty"`
	// After is the pause between the stage finishing and the round moving on.
	After time.Duration `json:"after,omitempty"`
}

// Stages holds the per-stage timing. A nil Revealing skips the revealing stage.
type Stages struct {
	Mode      TimeLimitMode `json:"mode,omitempty"`
	Playing   StageRules    `json:"playing"`
	Revealing *StageRules   `json:"revealing,omitempty"`
	Judging   StageRules    `json:"judging"`
}

// For returns the rules of a stage, false when the stage has none.
func (s Stages) For(stage Stage) (StageRules, bool) {
	switch stage {
	case StagePlaying:
		return s.Playing, true
	case StageRevealing:
		if s.Revealing == nil {
			return StageRules{}, false
		}
		return *s.Revealing, true
	case StageJudging:
		return s.Judging, true
	default:
		return StageRules{}, false
	}
}

// TimeLimit returns the limit on a stage, false when it is untimed.
func (s Stages) TimeLimit(stage Stage) (time.Duration, bool) {
	if s.Mode == TimeLimitNone {
		return 0, false
	}
	rules, ok := s.For(stage)
	if !ok || rules.Duration <= 0 {
		return 0, false
	}
	return rules.Duration, true
}

// ComedyWriter adds blank cards players write themselves.
type ComedyWriter struct {
	Number    int  `json:"number"`
	Exclusive bool `json:"exclusive,omitempty"`
}

// Rando tracks the computer players in the lobby.
type Rando struct {
	Current []string `json:"current,omitempty"`
	Unused  []string `json:"unused,omitempty"`
}

// DefaultTopUpThreshold is the slot count at which extra cards are dealt.
const DefaultTopUpThreshold = 2

// HouseRules are optional gameplay variations.
type HouseRules struct {
	PackingHeat  bool          `json:"packingHeat,omitempty"`
	ComedyWriter *ComedyWriter `json:"comedyWriter,omitempty"`
	Rando        Rando         `json:"rando"`
	// AllowAICzar lets computer players judge.
	AllowAICzar bool `json:"allowAiCzar,omitempty"`
	// TopUpThreshold overrides DefaultTopUpThreshold when positive.
	TopUpThreshold int `json:"topUpThreshold,omitempty"`
}

// TopUp reports how many extra cards each player gets for a call with the given slots.
// Calls above the threshold always top up; calls at it only with packing heat.
func (h HouseRules) TopUp(slots int) int {
	threshold := h.TopUpThreshold
	if threshold <= 0 {
		threshold = DefaultTopUpThreshold
	}
	if slots > threshold || (slots == threshold && h.PackingHeat) {
		return slots - 1
	}
	return 0
}

// IsAI reports whether userID is one of the current computer players.
func (h HouseRules) IsAI(userID string) bool {
	for _, id := range h.Rando.Current {
		if id == userID {
			return true
		}
	}
	return false
}

// Rules is the configuration a game is played under.
type Rules struct {
	HandSize   int        `json:"handSize"`
	ScoreLimit *int       `json:"scoreLimit,omitempty"`
	HouseRules HouseRules `json:"houseRules"`
	Stages     Stages     `json:"stages"`
}

// DefaultRules mirror the lobby defaults.
func DefaultRules() Rules {
	limit := 25
	return Rules{
		HandSize:   10,
		ScoreLimit: &limit,
		Stages: Stages{
			Mode:      TimeLimitSoft,
			Playing:   StageRules{Duration: 60 * time.Second},
			Revealing: &StageRules{Duration: 60 * time.Second},
			Judging:   StageRules{Duration: 60 * time.Second, After: 5 * time.Second},
		},
	}
}

var (
	errHandSize   = errors.New("hand size must be between 3 and 50")
	errScoreLimit = errors.New("score limit must be positive")
	errBlanks     = errors.New("comedy writer needs at least one blank card")
	errTimeMode   = errors.New("unknown time limit mode")
)

// Validate checks the rules can be played with.
func (r Rules) Validate() error {
	if r.HandSize < 3 || r.HandSize > 50 {
		return errHandSize
	}
	if r.ScoreLimit != nil && *r.ScoreLimit < 1 {
		return errScoreLimit
	}
	if cw := r.HouseRules.ComedyWriter; cw != nil && cw.Number < 1 {
		return errBlanks
	}
	switch r.Stages.Mode {
	case TimeLimitNone, TimeLimitSoft, TimeLimitHard:
	default:
		return errTimeMode
	}
	return nil
}
