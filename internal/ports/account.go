package ports

import "context"

// AccountPort names player accounts.
type AccountPort interface {
	// SetDisplayName changes the name other players see. The login username is left alone.
	SetDisplayName(ctx context.Context, userID, displayName string) error
}
