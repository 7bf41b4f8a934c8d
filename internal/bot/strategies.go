package bot

import (
	"math/rand"
	"sync"
	"time"

	"fillblank/internal/domain"
)

// FirstBrain always plays the first cards in hand and crowns the first play.
type FirstBrain struct{}

func (FirstBrain) ChoosePlay(call domain.Call, hand []domain.Response) (domain.Play, error) {
	order := make([]int, len(hand))
	for i := range order {
		order[i] = i
	}
	return pickInOrder(hand, preferPrinted(hand, order), call.SlotCount())
}

func (FirstBrain) ChooseWinner(call domain.Call, plays []domain.StoredPlay) (string, error) {
	if len(plays) == 0 {
		return "", ErrNoPlays
	}
	return plays[0].ID, nil
}

func (FirstBrain) Observe(domain.PublicRound) {}

// RandomBrain picks random cards and random winners from a seeded source.
type RandomBrain struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomBrain uses rng, or a time-seeded source when rng is nil.
func NewRandomBrain(rng *rand.Rand) *RandomBrain {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomBrain{rng: rng}
}

func (b *RandomBrain) ChoosePlay(call domain.Call, hand []domain.Response) (domain.Play, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return pickInOrder(hand, preferPrinted(hand, b.rng.Perm(len(hand))), call.SlotCount())
}

func (b *RandomBrain) ChooseWinner(call domain.Call, plays []domain.StoredPlay) (string, error) {
	if len(plays) == 0 {
		return "", ErrNoPlays
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return plays[b.rng.Intn(len(plays))].ID, nil
}

func (b *RandomBrain) Observe(domain.PublicRound) {}
