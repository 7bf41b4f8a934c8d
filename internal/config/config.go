package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"fillblank/internal/bot"
	"fillblank/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FILLBLANK_STORAGE_TYPE.
const EnvPrefix = "FILLBLANK"

// OverridePrefix prefixes keys in the Nakama runtime env, e.g. "fillblank.rules.hand_size".
const OverridePrefix = "fillblank."

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Storage struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`
}

// Rules are the defaults lobbies are created with.
type Rules struct {
	HandSize int `mapstructure:"hand_size"`
	// ScoreLimit of zero plays until the players stop.
	ScoreLimit     int           `mapstructure:"score_limit"`
	TimeLimitMode  string        `mapstructure:"time_limit_mode"`
	Playing        time.Duration `mapstructure:"playing"`
	Revealing      time.Duration `mapstructure:"revealing"`
	SkipRevealing  bool          `mapstructure:"skip_revealing"`
	Judging        time.Duration `mapstructure:"judging"`
	AfterJudging   time.Duration `mapstructure:"after_judging"`
	AllowAICzar    bool          `mapstructure:"allow_ai_czar"`
	TopUpThreshold int           `mapstructure:"top_up_threshold"`
}

type Config struct {
	ListenAddr       string        `mapstructure:"listen_addr"`
	LogLevel         string        `mapstructure:"log_level"`
	TokenSecret      string        `mapstructure:"token_secret"`
	TokenIssuer      string        `mapstructure:"token_issuer"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	Storage          Storage       `mapstructure:"storage"`
	DecksPath        string        `mapstructure:"decks_path"`
	AIIdentitiesPath string        `mapstructure:"ai_identities_path"`
	// AILevel is the brain computer players get: random, first or smart.
	AILevel         string        `mapstructure:"ai_level"`
	MutationWait    time.Duration `mapstructure:"mutation_wait"`
	DeliveryRetries int           `mapstructure:"delivery_retries"`
	DeliveryBackoff time.Duration `mapstructure:"delivery_backoff"`
	Rules           Rules         `mapstructure:"rules"`
}

var (
	cfg      *Config
	loadOnce sync.Once
	loadErr  error
)

// LoadConfig loads the process configuration once. path may be empty.
func LoadConfig(path string) error {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			loadErr = fmt.Errorf("failed to load .env: %w", err)
			return
		}
		cfg, loadErr = Load(path, nil)
	})
	return loadErr
}

// GetConfig returns the configuration LoadConfig read, nil before that.
func GetConfig() *Config {
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("token_secret", "")
	v.SetDefault("token_issuer", "fillblank")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("decks_path", "")
	v.SetDefault("ai_identities_path", "data/ai_identities.json")
	v.SetDefault("ai_level", "smart")
	v.SetDefault("mutation_wait", 5*time.Second)
	v.SetDefault("delivery_retries", 3)
	v.SetDefault("delivery_backoff", 200*time.Millisecond)

	v.SetDefault("rules.hand_size", 10)
	v.SetDefault("rules.score_limit", 25)
	v.SetDefault("rules.time_limit_mode", "soft")
	v.SetDefault("rules.playing", 60*time.Second)
	v.SetDefault("rules.revealing", 60*time.Second)
	v.SetDefault("rules.skip_revealing", false)
	v.SetDefault("rules.judging", 60*time.Second)
	v.SetDefault("rules.after_judging", 5*time.Second)
	v.SetDefault("rules.allow_ai_czar", false)
	v.SetDefault("rules.top_up_threshold", 0)
}

// Load reads defaults, then the file at path if any, then FILLBLANK_*
// environment variables, then overrides keyed "fillblank.<key>".
func Load(path string, overrides map[string]string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range overrides {
		if strings.HasPrefix(key, OverridePrefix) {
			v.Set(strings.TrimPrefix(key, OverridePrefix), value)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks settings that would otherwise fail later.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory:
	case StoragePostgres, StorageSQLite:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage %s needs a dsn", c.Storage.Type)
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if _, err := bot.ParseBotLevel(c.AILevel); err != nil {
		return err
	}
	if _, err := parseMode(c.Rules.TimeLimitMode); err != nil {
		return err
	}
	if err := c.GameRules().Validate(); err != nil {
		return fmt.Errorf("invalid default rules: %w", err)
	}
	return nil
}

func parseMode(mode string) (domain.TimeLimitMode, error) {
	switch strings.ToLower(mode) {
	case "", "none":
		return domain.TimeLimitNone, nil
	case "soft":
		return domain.TimeLimitSoft, nil
	case "hard":
		return domain.TimeLimitHard, nil
	default:
		return domain.TimeLimitNone, fmt.Errorf("unknown time limit mode %q", mode)
	}
}

// BotLevel is the parsed AILevel.
func (c *Config) BotLevel() bot.BotLevel {
	level, _ := bot.ParseBotLevel(c.AILevel)
	return level
}

// GameRules converts the configured defaults into lobby rules.
func (c *Config) GameRules() domain.Rules {
	r := domain.DefaultRules()
	r.HandSize = c.Rules.HandSize
	r.ScoreLimit = nil
	if c.Rules.ScoreLimit > 0 {
		limit := c.Rules.ScoreLimit
		r.ScoreLimit = &limit
	}
	r.Stages.Mode, _ = parseMode(c.Rules.TimeLimitMode)
	r.Stages.Playing = domain.StageRules{Duration: c.Rules.Playing}
	r.Stages.Revealing = &domain.StageRules{Duration: c.Rules.Revealing}
	if c.Rules.SkipRevealing {
		r.Stages.Revealing = nil
	}
	r.Stages.Judging = domain.StageRules{Duration: c.Rules.Judging, After: c.Rules.AfterJudging}
	r.HouseRules.AllowAICzar = c.Rules.AllowAICzar
	r.HouseRules.TopUpThreshold = c.Rules.TopUpThreshold
	return r
}
