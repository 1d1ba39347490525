package domain

import (
	"time"
)

// StatVector holds the five tracked stats for a player at a point in time.
// Snapshot values are non-negative; deltas may go negative and are surfaced
// as-is rather than clamped.
type StatVector struct {
	Power      int64 `json:"power"`
	KillPoints int64 `json:"kill_points"`
	Deads      int64 `json:"deads"`
	T4Kills    int64 `json:"t4_kills"`
	T5Kills    int64 `json:"t5_kills"`
}

// Sub returns the field-wise difference v - other.
func (v StatVector) Sub(other StatVector) StatVector {
	return StatVector{
		Power:      v.Power - other.Power,
		KillPoints: v.KillPoints - other.KillPoints,
		Deads:      v.Deads - other.Deads,
		T4Kills:    v.T4Kills - other.T4Kills,
		T5Kills:    v.T5Kills - other.T5Kills,
	}
}

// Add returns the field-wise sum v + other.
func (v StatVector) Add(other StatVector) StatVector {
	return StatVector{
		Power:      v.Power + other.Power,
		KillPoints: v.KillPoints + other.KillPoints,
		Deads:      v.Deads + other.Deads,
		T4Kills:    v.T4Kills + other.T4Kills,
		T5Kills:    v.T5Kills + other.T5Kills,
	}
}

// Field returns the named stat, or 0 for an unknown name.
func (v StatVector) Field(name string) int64 {
	switch name {
	case "power":
		return v.Power
	case "kill_points":
		return v.KillPoints
	case "deads":
		return v.Deads
	case "t4_kills":
		return v.T4Kills
	case "t5_kills":
		return v.T5Kills
	default:
		return 0
	}
}

// StatFields lists the stat field names in canonical order.
var StatFields = []string{"power", "kill_points", "deads", "t4_kills", "t5_kills"}

// HasKvKActivity reports whether any combat-relevant stat is positive.
// Power is deliberately excluded: a power-only record means the account
// exists but has not fought.
func (v StatVector) HasKvKActivity() bool {
	return v.KillPoints > 0 || v.Deads > 0 || v.T4Kills > 0 || v.T5Kills > 0
}

// PlayerRecord is one player's row in a snapshot. GovernorID is the stable
// identity key; GovernorName is display-only and may change between uploads.
type PlayerRecord struct {
	GovernorID   string     `json:"governor_id"`
	GovernorName string     `json:"governor_name"`
	Stats        StatVector `json:"stats"`
}

// AccountType classifies a player account for consolidation purposes.
type AccountType string

const (
	AccountMain     AccountType = "main"
	AccountFarm     AccountType = "farm"
	AccountVacation AccountType = "vacation"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	return t == AccountMain || t == AccountFarm || t == AccountVacation
}

// PlayerDelta is a snapshot row enriched with its delta from the season
// baseline, rank, classification, and optional verified death data.
type PlayerDelta struct {
	GovernorID   string     `json:"governor_id"`
	GovernorName string     `json:"governor_name"`
	Stats        StatVector `json:"stats"`
	Delta        StatVector `json:"delta"`

	InBaseline           bool `json:"in_baseline"`
	NewlyAddedToBaseline bool `json:"newly_added_to_baseline"`
	Rank                 int  `json:"rank"`

	AccountType         AccountType `json:"account_type,omitempty"`
	IsDeadWeight        bool        `json:"is_dead_weight,omitempty"`
	LinkedToMain        string      `json:"linked_to_main,omitempty"`
	FarmAccounts        []string    `json:"farm_accounts,omitempty"`
	ClassificationNotes string      `json:"classification_notes,omitempty"`

	VerifiedDeaths *VerifiedDeaths `json:"verified_deaths,omitempty"`
}

// VerifiedDeaths is admin-entered T4/T5 death data for one player. Automated
// exports cannot tell combat deaths from attrition, so death scoring is gated
// behind this record.
type VerifiedDeaths struct {
	T4Deaths   int64     `json:"t4_deaths"`
	T5Deaths   int64     `json:"t5_deaths"`
	Verified   bool      `json:"verified"`
	VerifiedAt time.Time `json:"verified_at"`
	Notes      string    `json:"notes,omitempty"`
}

// ContributionScore is the derived DKP breakdown for one player.
type ContributionScore struct {
	GovernorID   string `json:"governor_id"`
	GovernorName string `json:"governor_name"`
	Rank         int    `json:"rank"`

	T4KillScore  int64 `json:"t4_kill_score"`
	T5KillScore  int64 `json:"t5_kill_score"`
	T4DeathScore int64 `json:"t4_death_score"`
	T5DeathScore int64 `json:"t5_death_score"`

	TotalKillScore         int64 `json:"total_kill_score"`
	TotalDeathScore        int64 `json:"total_death_score"`
	TotalContributionScore int64 `json:"total_contribution_score"`

	HasVerifiedDeaths bool `json:"has_verified_deaths"`
}

// FarmDetail is the per-farm breakdown retained on a consolidated row.
type FarmDetail struct {
	GovernorID   string     `json:"governor_id"`
	GovernorName string     `json:"governor_name"`
	Stats        StatVector `json:"stats"`
	Delta        StatVector `json:"delta"`
}

// CombinedRow is a main account merged with all of its linked farms. Farms and
// vacation accounts never appear as standalone rows in a consolidated board.
type CombinedRow struct {
	GovernorID   string      `json:"governor_id"`
	GovernorName string      `json:"governor_name"`
	AccountType  AccountType `json:"account_type"`

	CombinedStats StatVector `json:"combined_stats"`
	CombinedDelta StatVector `json:"combined_delta"`

	MainStats StatVector `json:"main_stats"`
	MainDelta StatVector `json:"main_delta"`

	FarmCount   int          `json:"farm_count"`
	FarmDetails []FarmDetail `json:"farm_details,omitempty"`

	Rank int `json:"rank"`
}

// TopPlayer identifies the leader for one summary category.
type TopPlayer struct {
	GovernorID   string `json:"governor_id"`
	GovernorName string `json:"governor_name"`
	Value        int64  `json:"value"`
}

// Summary aggregates kingdom-wide statistics for one snapshot.
type Summary struct {
	PlayerCount int                  `json:"player_count"`
	Totals      map[string]int64     `json:"totals"`
	Averages    map[string]int64     `json:"averages"`
	TopPlayers  map[string]TopPlayer `json:"top_players"`
}

// Baseline is the zero-point all season deltas are measured against. It is
// amended in place as new or returning players appear.
type Baseline struct {
	SeasonID    string         `json:"season_id"`
	FileName    string         `json:"file_name"`
	Timestamp   time.Time      `json:"timestamp"`
	LastUpdated time.Time      `json:"last_updated"`
	Players     []PlayerRecord `json:"players"`

	// Version fences player-list amendments against concurrent writers.
	Version int64 `json:"version"`
}

// Snapshot is the latest processed upload for a season, fully replaced on
// every new upload.
type Snapshot struct {
	SeasonID    string        `json:"season_id"`
	FileName    string        `json:"file_name"`
	Description string        `json:"description"`
	Timestamp   time.Time     `json:"timestamp"`
	Players     []PlayerDelta `json:"players"`
	Summary     Summary       `json:"summary"`

	// Version fences player-list mutations against concurrent writers.
	Version int64 `json:"version"`
}

// UploadEntry is one append-only history record per upload. History is the
// only durable ordered record of what a player's stats were at time T.
type UploadEntry struct {
	ID          string        `json:"upload_id"`
	SeasonID    string        `json:"season_id"`
	FileName    string        `json:"file_name"`
	Description string        `json:"description"`
	Timestamp   time.Time     `json:"timestamp"`
	Players     []PlayerDelta `json:"players"`
	Summary     Summary       `json:"summary"`
}

// SeasonStatus tracks a season's lifecycle.
type SeasonStatus string

const (
	SeasonPreparing SeasonStatus = "preparing"
	SeasonActive    SeasonStatus = "active"
	SeasonCompleted SeasonStatus = "completed"
	SeasonArchived  SeasonStatus = "archived"
)

// Season is one KvK event. Seasons are fully independent of each other; only
// one may be active at a time, and archived seasons are read-only.
type Season struct {
	SeasonID     string       `json:"season_id"`
	SeasonName   string       `json:"season_name"`
	SeasonNumber int          `json:"season_number"`
	Status       SeasonStatus `json:"status"`

	IsActive   bool `json:"is_active"`
	IsArchived bool `json:"is_archived"`

	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`

	Description string `json:"description,omitempty"`
	KingdomID   string `json:"kingdom_id,omitempty"`

	HasBaseline    bool `json:"has_baseline"`
	HasCurrentData bool `json:"has_current_data"`
	TotalUploads   int  `json:"total_uploads"`
	PlayerCount    int  `json:"player_count"`
}

// FightPeriodStatus is derived from a period's start and end times.
type FightPeriodStatus string

const (
	FightUpcoming  FightPeriodStatus = "upcoming"
	FightActive    FightPeriodStatus = "active"
	FightCompleted FightPeriodStatus = "completed"
)

// FightPeriod marks a window of real combat within a season, used to separate
// fight KP from trade KP when reading deltas.
type FightPeriod struct {
	SeasonID    string            `json:"season_id"`
	FightNumber int               `json:"fight_number"`
	FightName   string            `json:"fight_name"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     *time.Time        `json:"end_time,omitempty"`
	Status      FightPeriodStatus `json:"status"`
	Description string            `json:"description,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
