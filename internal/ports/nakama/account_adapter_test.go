package nakama

import (
	"context"
	"testing"
)

type fakeAccounts struct {
	userID, username, displayName string
}

func (f *fakeAccounts) AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error {
	f.userID, f.username, f.displayName = userID, username, displayName
	return nil
}

func TestSetDisplayNameKeepsUsername(t *testing.T) {
	nk := &fakeAccounts{}
	if err := NewNakamaAccountAdapter(nk).SetDisplayName(context.Background(), "user-1", "WittyWag1234"); err != nil {
		t.Fatalf("SetDisplayName error: %v", err)
	}
	if nk.userID != "user-1" || nk.displayName != "WittyWag1234" || nk.username != "" {
		t.Fatalf("update = %+v", nk)
	}
}
