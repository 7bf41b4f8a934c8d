package bot

import (
	"sync"

	"fillblank/internal/domain"
)

// Memory stores what a computer player has learned about the czars' taste.
type Memory struct {
	mu           sync.Mutex
	wins         int
	winningChars int
}

// NewMemory initializes a fresh memory state.
func NewMemory() *Memory {
	return &Memory{}
}

// Record notes the winning play of a completed round.
func (m *Memory) Record(round domain.PublicRound) {
	if round.Stage != domain.StageComplete || round.Winner == "" {
		return
	}
	for _, p := range round.Plays {
		if p.PlayedBy != round.Winner {
			continue
		}
		m.mu.Lock()
		for _, card := range p.Play {
			m.wins++
			m.winningChars += len(card.Text)
		}
		m.mu.Unlock()
		return
	}
}

// AverageWinningLength is the mean length of winning cards seen so far.
func (m *Memory) AverageWinningLength() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.wins == 0 {
		return 0, false
	}
	return float64(m.winningChars) / float64(m.wins), true
}

// Reset clears the memory for a new game.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wins = 0
	m.winningChars = 0
}
