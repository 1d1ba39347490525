package constants

import "time"

const (
	LeaderboardCacheTTL  = 5 * time.Minute
	ActiveSeasonCacheTTL = 5 * time.Minute
	PlayerCacheTTL       = 5 * time.Minute
	FightPeriodCacheTTL  = 5 * time.Minute
)

const (
	DatabaseTimeout = 5 * time.Second
	CacheTimeout    = 3 * time.Second
	RequestTimeout  = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 500
	HistoryListLimit        = 100
	MaxUploadBytes          = 32 << 20

	// Replay batches history recomputes through an errgroup with this
	// many workers.
	ReplayWorkers = 4

	// Conditional player-list writes re-read and retry this many times
	// when they lose to a concurrent writer.
	WriteRetries = 3
)

// DKP weights. Kills come from scanner exports; deaths only count once an
// admin has verified the T4/T5 split.
const (
	T4KillWeight  = 1
	T5KillWeight  = 2
	T4DeathWeight = 4
	T5DeathWeight = 8
)

const (
	DefaultKingdomID = "3584"
	DefaultSortKey   = "kill_points_gained"
	SeasonIDPrefix   = "season_"
)
