package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"fillblank/internal/ports"
)

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts ports.AccountPort
	rng      *rand.Rand
}

// NewService constructs an onboarding service.
// accounts must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		rng:      rng,
	}
}

// OnboardNewUser gives a newly created account a display name players will see in lobbies.
// It returns the generated name.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (string, error) {
	if s.accounts == nil {
		return "", fmt.Errorf("onboarding service not configured")
	}

	displayName := s.generateFriendlyName()
	if err := s.accounts.SetDisplayName(ctx, userID, displayName); err != nil {
		return "", fmt.Errorf("failed to name user %s: %w", userID, err)
	}
	return displayName, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Awkward", "Cheeky", "Deadpan", "Giddy", "Petty", "Smug", "Snarky", "Witty", "Wry", "Zany"}
	nouns := []string{"Blank", "Caller", "Czar", "Joker", "Punster", "Quip", "Riddler", "Scribe", "Wag", "Wit"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
