package bot

import (
	"math"
	"sort"

	"fillblank/internal/domain"
)

// SmartBrain scores every card through a rule pipeline and plays the best ones.
type SmartBrain struct {
	Memory *Memory
	Rules  []SelectionRule
	Tuning Tuning
}

// NewSmartBrain returns a SmartBrain with the default pipeline and tuning.
func NewSmartBrain() *SmartBrain {
	return &SmartBrain{Memory: NewMemory(), Rules: DefaultRules(), Tuning: DefaultTuning}
}

func (b *SmartBrain) ChoosePlay(call domain.Call, hand []domain.Response) (domain.Play, error) {
	ctx := &SelectionContext{
		Call:   call,
		Hand:   hand,
		Scores: make([]float64, len(hand)),
		Memory: b.Memory,
		Tuning: b.Tuning,
	}
	for _, rule := range b.Rules {
		rule.Apply(ctx)
	}

	order := make([]int, len(hand))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return ctx.Scores[order[i]] > ctx.Scores[order[j]]
	})
	return pickInOrder(hand, order, call.SlotCount())
}

func (b *SmartBrain) ChooseWinner(call domain.Call, plays []domain.StoredPlay) (string, error) {
	if len(plays) == 0 {
		return "", ErrNoPlays
	}
	target := b.Tuning.DefaultLength
	if b.Memory != nil {
		if avg, ok := b.Memory.AverageWinningLength(); ok {
			target = avg
		}
	}

	best, bestScore := 0, math.Inf(-1)
	for i, p := range plays {
		score := float64(len(p.Likes)) * b.Tuning.LikeWeight
		for _, card := range p.Play {
			if target > 0 {
				score -= math.Abs(float64(len(card.Text))-target) / target * b.Tuning.LengthWeight
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return plays[best].ID, nil
}

func (b *SmartBrain) Observe(round domain.PublicRound) {
	if b.Memory != nil {
		b.Memory.Record(round)
	}
}
