package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"
)

type BotIdentity struct {
	DeviceID    string `json:"device_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "random", "first", "smart"
	AvatarIndex int    `json:"avatar_index"`
}

var defaultNames = []string{
	"Rando Cardrissian",
	"HAL 9000",
	"GLaDOS",
	"Wheatley",
	"TEC-XX",
	"EDI",
	"343 Guilty Spark",
	"Cortana",
	"J.A.R.V.I.S.",
	"Deep Thought",
	"Gibson",
	"Skynet",
	"Project 2501",
	"SHODAN",
	"Mr. House",
}

var (
	identitiesMu  sync.RWMutex
	botIdentities []BotIdentity
	botIDMap      map[string]BotIdentity
	loadOnce      sync.Once
	provisionOnce sync.Once
	loadErr       error
)

// LoadIdentities loads the bot profiles from the given path.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}

		var identities []BotIdentity
		if err := json.Unmarshal(data, &identities); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}
		setIdentities(identities)
	})
	return loadErr
}

func setIdentities(identities []BotIdentity) {
	identitiesMu.Lock()
	defer identitiesMu.Unlock()
	botIdentities = identities
	botIDMap = make(map[string]BotIdentity)
	for _, identity := range identities {
		if identity.UserID != "" {
			botIDMap[identity.UserID] = identity
		}
	}
}

// ProvisionBots ensures that bot accounts exist in the Nakama database and have the is_bot metadata.
func ProvisionBots(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) error {
	provisionOnce.Do(func() {
		identitiesMu.RLock()
		identities := append([]BotIdentity(nil), botIdentities...)
		identitiesMu.RUnlock()

		for i := range identities {
			identity := &identities[i]
			if identity.DeviceID == "" {
				continue
			}

			userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
			if err != nil {
				logger.Error("ProvisionBots: Failed to authenticate bot %s: %v", identity.Username, err)
				continue
			}
			identity.UserID = userID
			identity.Username = username

			metadata := map[string]interface{}{
				"is_bot":       true,
				"difficulty":   identity.Difficulty,
				"avatar_index": identity.AvatarIndex,
			}
			if err := nk.AccountUpdateId(ctx, userID, identity.Username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
				logger.Warn("ProvisionBots: Failed to update bot account %s: %v", userID, err)
			}
			logger.Info("ProvisionBots: Bot %s (%s) is ready. Difficulty: %s", identity.DisplayName, userID, identity.Difficulty)
		}
		setIdentities(identities)
	})
	return nil
}

// GetBotIdentity returns an identity for a bot by index (mod pool size).
func GetBotIdentity(index int) BotIdentity {
	identitiesMu.RLock()
	defer identitiesMu.RUnlock()
	if len(botIdentities) == 0 {
		return BotIdentity{
			UserID:      fmt.Sprintf("ai-%d", index),
			DisplayName: defaultNames[index%len(defaultNames)],
		}
	}
	identity := botIdentities[index%len(botIdentities)]
	if identity.UserID == "" {
		identity.UserID = fmt.Sprintf("ai-%d", index)
	}
	if identity.DisplayName == "" {
		identity.DisplayName = identity.Username
	}
	return identity
}

// IdentityFor returns the loaded identity with userID, if any.
func IdentityFor(userID string) (BotIdentity, bool) {
	identitiesMu.RLock()
	defer identitiesMu.RUnlock()
	identity, ok := botIDMap[userID]
	return identity, ok
}
