package app

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"fillblank/internal/bot"
)

// Service contains the fill-in-the-blank use-cases operating on lobby state.
// It holds no lobby state itself; callers serialize mutations per lobby.
type Service struct {
	rng   *rand.Rand
	clock func() time.Time
	level bot.BotLevel

	mu     sync.Mutex
	agents map[string]*bot.Agent
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithBotLevel picks the brain computer players are given.
func WithBotLevel(level bot.BotLevel) Option {
	return func(s *Service) { s.level = level }
}

// NewService constructs a Service with provided rng or a time-seeded default.
// The rng is shared by every lobby, so it is wrapped to be safe for concurrent use.
func NewService(rng *rand.Rand, opts ...Option) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Service{
		rng:    rand.New(&lockedSource{src: rng}),
		clock:  time.Now,
		agents: make(map[string]*bot.Agent),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rand returns the shared shuffle source, for rehydrating snapshots.
func (s *Service) Rand() *rand.Rand {
	return s.rng
}

func (s *Service) now() time.Time {
	return s.clock()
}

// agent returns the computer player for userID in lobby code, creating it on first use.
func (s *Service) agent(code, userID, name string) *bot.Agent {
	key := code + "/" + userID
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.agents[key]; ok {
		return a
	}
	identity := bot.BotIdentity{UserID: userID, DisplayName: name}
	level := s.level
	if known, ok := bot.IdentityFor(userID); ok {
		identity = known
		// A provisioned identity may ask for its own difficulty.
		if l, err := bot.ParseBotLevel(known.Difficulty); err == nil && known.Difficulty != "" {
			level = l
		}
	}
	brain, err := bot.NewBrain(level, rand.New(rand.NewSource(s.rng.Int63())))
	if err != nil {
		brain = bot.NewRandomBrain(rand.New(rand.NewSource(s.rng.Int63())))
	}
	a := bot.NewAgent(identity, brain)
	s.agents[key] = a
	return a
}

// Forget drops the computer players of a lobby.
func (s *Service) Forget(code string) {
	prefix := code + "/"
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.agents {
		if strings.HasPrefix(key, prefix) {
			delete(s.agents, key)
		}
	}
}

// lockedSource guards a shared source.
type lockedSource struct {
	mu  sync.Mutex
	src *rand.Rand
}

func (l *lockedSource) Int63() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Int63()
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}

func (l *lockedSource) Seed(seed int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.src.Seed(seed)
}
