package bot

import (
	"fmt"
	"math/rand"
)

// BotLevel selects a Brain implementation.
type BotLevel int

const (
	BotLevelRandom BotLevel = iota
	BotLevelFirst
	BotLevelSmart
)

// ParseBotLevel maps a config string onto a level.
func ParseBotLevel(s string) (BotLevel, error) {
	switch s {
	case "", "random":
		return BotLevelRandom, nil
	case "first":
		return BotLevelFirst, nil
	case "smart":
		return BotLevelSmart, nil
	default:
		return 0, fmt.Errorf("unknown bot level: %q", s)
	}
}

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level BotLevel, rng *rand.Rand) (Brain, error) {
	switch level {
	case BotLevelRandom:
		return NewRandomBrain(rng), nil
	case BotLevelFirst:
		return FirstBrain{}, nil
	case BotLevelSmart:
		return NewSmartBrain(), nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}
