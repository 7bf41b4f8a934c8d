package ports

import (
	"context"

	"fillblank/internal/app"
)

// EventSink delivers a lobby's events to its users, honoring each event's
// recipients and per-user additions. Deliveries for one lobby arrive in order.
type EventSink interface {
	Deliver(ctx context.Context, code string, events []app.Event) error
}
