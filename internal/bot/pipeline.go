package bot

import (
	"math"

	"fillblank/internal/domain"
)

// SelectionContext holds the state for the card scoring pipeline.
type SelectionContext struct {
	Call   domain.Call
	Hand   []domain.Response
	Scores []float64 // parallel to Hand; higher is better
	Memory *Memory
	Tuning Tuning
}

// SelectionRule represents a logic unit that can influence which cards get played.
type SelectionRule interface {
	Name() string
	Apply(ctx *SelectionContext)
}

// AvoidBlanksRule keeps blank cards for last, since a computer cannot write a good joke.
type AvoidBlanksRule struct{}

func (r *AvoidBlanksRule) Name() string { return "AvoidBlanks" }

func (r *AvoidBlanksRule) Apply(ctx *SelectionContext) {
	for i, card := range ctx.Hand {
		if card.IsBlank() {
			ctx.Scores[i] -= ctx.Tuning.BlankPenalty
		}
	}
}

// FavorWinningLengthRule prefers cards about as long as the ones that have been winning.
type FavorWinningLengthRule struct{}

func (r *FavorWinningLengthRule) Name() string { return "FavorWinningLength" }

func (r *FavorWinningLengthRule) Apply(ctx *SelectionContext) {
	target := ctx.Tuning.DefaultLength
	if ctx.Memory != nil {
		if avg, ok := ctx.Memory.AverageWinningLength(); ok {
			target = avg
		}
	}
	if target <= 0 {
		return
	}
	for i, card := range ctx.Hand {
		if card.IsBlank() {
			continue
		}
		distance := math.Abs(float64(len(card.Text))-target) / target
		ctx.Scores[i] -= distance * ctx.Tuning.LengthWeight
	}
}

// FavorShortShoutsRule prefers short cards when the call shouts its slots in capitals.
type FavorShortShoutsRule struct{}

func (r *FavorShortShoutsRule) Name() string { return "FavorShortShouts" }

func (r *FavorShortShoutsRule) Apply(ctx *SelectionContext) {
	if !shouts(ctx.Call) {
		return
	}
	for i, card := range ctx.Hand {
		ctx.Scores[i] -= float64(len(card.Text)) * ctx.Tuning.ShoutLengthWeight
	}
}

func shouts(call domain.Call) bool {
	for _, line := range call.Parts {
		for _, part := range line {
			if part.IsSlot() && part.Slot.Transform == domain.TransformUpperCase {
				return true
			}
		}
	}
	return false
}

// DefaultRules is the pipeline SmartBrain runs when none is supplied.
func DefaultRules() []SelectionRule {
	return []SelectionRule{
		&AvoidBlanksRule{},
		&FavorWinningLengthRule{},
		&FavorShortShoutsRule{},
	}
}
