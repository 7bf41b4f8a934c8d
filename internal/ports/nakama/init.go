package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"fillblank/internal/app"
	"fillblank/internal/bot"
	"fillblank/internal/config"
	"fillblank/internal/ports/sources"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs, hooks and the match handler for Nakama runtime.
// Settings come from the runtime env, e.g. "fillblank.rules.hand_size=8".
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg, err := config.Load("", env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := bot.LoadIdentities(cfg.AIIdentitiesPath); err != nil {
		logger.Warn("InitModule: Could not load AI identities, using generated names: %v", err)
	} else if err := bot.ProvisionBots(ctx, nk, logger); err != nil {
		logger.Warn("InitModule: Could not provision AI accounts: %v", err)
	}
	decks, err := sources.NewResolver(cfg.DecksPath)
	if err != nil {
		return err
	}
	store := NewNakamaStorageAdapter(nk)
	rules := cfg.GameRules()
	level := cfg.BotLevel()

	if err := RegisterRPCs(initializer, store, decks); err != nil {
		return err
	}
	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchNameFillBlank, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(decks, store, rules, app.WithBotLevel(level)), nil
	}); err != nil {
		return err
	}

	logger.Info("FillBlank Go module loaded.")
	return nil
}
