package nakama

import (
	"context"

	"fillblank/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// AccountUpdater is the part of runtime.NakamaModule accounts need.
type AccountUpdater interface {
	AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error
}

// NakamaAccountAdapter implements ports.AccountPort using Nakama's account API.
type NakamaAccountAdapter struct {
	nk AccountUpdater
}

// NewNakamaAccountAdapter creates a new account adapter.
func NewNakamaAccountAdapter(nk AccountUpdater) *NakamaAccountAdapter {
	return &NakamaAccountAdapter{nk: nk}
}

// SetDisplayName updates only the display name; Nakama keeps fields passed empty.
func (a *NakamaAccountAdapter) SetDisplayName(ctx context.Context, userID, displayName string) error {
	return a.nk.AccountUpdateId(ctx, userID, "", nil, displayName, "", "", "", "")
}

var (
	_ ports.AccountPort = (*NakamaAccountAdapter)(nil)
	_ AccountUpdater    = (runtime.NakamaModule)(nil)
)
