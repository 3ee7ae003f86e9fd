package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" default:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" default:"30m"`
}

// SweeperConfig controls the background expiry jobs. The coinflip window is
// clamped to [1m, 30m] by the sweeper itself.
type SweeperConfig struct {
	Interval        time.Duration `env:"SWEEP_INTERVAL" default:"30s"`
	CoinflipWindow  time.Duration `env:"SWEEP_COINFLIP_WINDOW" default:"5m"`
	BattleWindow    time.Duration `env:"SWEEP_BATTLE_WINDOW" default:"10m"`
	GiveawayGrace   time.Duration `env:"SWEEP_GIVEAWAY_GRACE" default:"10s"`
	CrashIdleWindow time.Duration `env:"SWEEP_CRASH_IDLE_WINDOW" default:"15m"`
}

// GamesConfig holds per-game tunables.
type GamesConfig struct {
	// CoinflipTolerancePct is the allowed deviation of a joiner's stake
	// value from the creator's, in percent. Boundary values are accepted.
	CoinflipTolerancePct int64 `env:"GAME_COINFLIP_TOLERANCE_PCT" default:"10"`
	// ChamberCount is the number of chambers a chamber game starts with.
	ChamberCount int `env:"GAME_CHAMBER_COUNT" default:"6"`
	// PriceCacheTTL bounds staleness of the item price cache.
	PriceCacheTTL time.Duration `env:"GAME_PRICE_CACHE_TTL" default:"1m"`
}
