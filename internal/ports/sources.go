package ports

import (
	"context"

	"fillblank/internal/domain"
)

// SourceResolver loads the cards a source contributes to a game.
type SourceResolver interface {
	// Resolve returns the card templates of source and a summary for display.
	Resolve(ctx context.Context, source domain.Source) (domain.Templates, domain.Summary, error)
}
