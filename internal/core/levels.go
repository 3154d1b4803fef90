package core

import "time"

// LevelConfig describes one tier of the earning schedule: the deposit needed
// to activate it, how many tasks it unlocks per day and what each task pays.
type LevelConfig struct {
	Level           int     `json:"level"`
	Name            string  `json:"name"`
	Deposit         float64 `json:"deposit"`
	WeekdayTasks    int     `json:"weekday_tasks"`
	WeekendTasks    int     `json:"weekend_tasks"`
	RewardPerTask   float64 `json:"reward_per_task"`
	DailyIncome     float64 `json:"daily_income"`
	WeekendIncome   float64 `json:"weekend_income"`
	VIPRequiredTeam int     `json:"vip_required_team"`
}

// RegularLevels is the LV0-LV4 schedule. Daily/weekend income is always
// quota * reward; the columns are kept precomputed because clients display
// them directly.
var RegularLevels = []LevelConfig{
	{Level: 0, Name: "LV0", Deposit: 0, WeekdayTasks: 4, WeekendTasks: 2, RewardPerTask: 1, DailyIncome: 4, WeekendIncome: 2, VIPRequiredTeam: 1},
	{Level: 1, Name: "LV1", Deposit: 200, WeekdayTasks: 12, WeekendTasks: 6, RewardPerTask: 0.5, DailyIncome: 6, WeekendIncome: 3, VIPRequiredTeam: 2},
	{Level: 2, Name: "LV2", Deposit: 680, WeekdayTasks: 20, WeekendTasks: 10, RewardPerTask: 1, DailyIncome: 20, WeekendIncome: 10, VIPRequiredTeam: 3},
	{Level: 3, Name: "LV3", Deposit: 1560, WeekdayTasks: 22, WeekendTasks: 11, RewardPerTask: 2, DailyIncome: 44, WeekendIncome: 22, VIPRequiredTeam: 4},
	{Level: 4, Name: "LV4", Deposit: 3600, WeekdayTasks: 26, WeekendTasks: 13, RewardPerTask: 4, DailyIncome: 104, WeekendIncome: 52, VIPRequiredTeam: 5},
}

// VIPLevels is the parallel sLV0-sLV4 schedule. VIP tiers are already
// unlocked, so their team requirement is always 0.
var VIPLevels = []LevelConfig{
	{Level: 0, Name: "sLV0 (VIP)", Deposit: 0, WeekdayTasks: 5, WeekendTasks: 3, RewardPerTask: 0.4, DailyIncome: 2, WeekendIncome: 1.2, VIPRequiredTeam: 0},
	{Level: 1, Name: "sLV1 (VIP)", Deposit: 200, WeekdayTasks: 16, WeekendTasks: 8, RewardPerTask: 0.5, DailyIncome: 8, WeekendIncome: 4, VIPRequiredTeam: 0},
	{Level: 2, Name: "sLV2 (VIP)", Deposit: 680, WeekdayTasks: 28, WeekendTasks: 14, RewardPerTask: 1, DailyIncome: 28, WeekendIncome: 14, VIPRequiredTeam: 0},
	{Level: 3, Name: "sLV3 (VIP)", Deposit: 1560, WeekdayTasks: 32, WeekendTasks: 16, RewardPerTask: 2, DailyIncome: 64, WeekendIncome: 32, VIPRequiredTeam: 0},
	{Level: 4, Name: "sLV4 (VIP)", Deposit: 3600, WeekdayTasks: 36, WeekendTasks: 18, RewardPerTask: 4, DailyIncome: 144, WeekendIncome: 72, VIPRequiredTeam: 0},
}

// CommissionRates holds the referral percentages per tier: the direct inviter
// earns 3% of a downline task reward, the inviter's inviter 2%, the third hop 1%.
var CommissionRates = [ReferralDepth]float64{0.03, 0.02, 0.01}

// ReferralDepth is how many hops up the invite tree commissions travel.
const ReferralDepth = 3

// MinWithdrawal is the smallest withdrawal request accepted, in USDT.
const MinWithdrawal = 20.0

// ContractDuration is the length of the earning contract started by the
// first approved deposit.
const ContractDuration = 365 * 24 * time.Hour

// BonusMilestones are the contract ages (in months) at which a one-time
// bonus is paid out.
var BonusMilestones = []int{2, 5, 8, 12}

// TimeBonuses maps contract age in months -> level -> bonus amount in USDT.
// LV0 accounts earn no time bonus.
var TimeBonuses = map[int]map[int]float64{
	2:  {1: 300, 2: 400, 3: 500, 4: 500},
	5:  {1: 600, 2: 800, 3: 1000, 4: 1200},
	8:  {1: 1500, 2: 2000, 3: 2500, 4: 3000},
	12: {1: 3500, 2: 4200, 3: 6000, 4: 7500},
}

// LevelFor returns the schedule row for a level. Unknown levels fall back to
// the regular LV0 row rather than erroring, so a corrupt profile still
// resolves to the free tier.
func LevelFor(level int, vip bool) LevelConfig {
	levels := RegularLevels
	if vip {
		levels = VIPLevels
	}
	for _, l := range levels {
		if l.Level == level {
			return l
		}
	}
	return RegularLevels[0]
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// MaxTasks returns the task quota for a level on the given day.
func MaxTasks(level int, vip bool, t time.Time) int {
	cfg := LevelFor(level, vip)
	if IsWeekend(t) {
		return cfg.WeekendTasks
	}
	return cfg.WeekdayTasks
}

// RewardPerTask returns the payout of a single task at a level.
func RewardPerTask(level int, vip bool) float64 {
	return LevelFor(level, vip).RewardPerTask
}

// DailyIncome returns the maximum income for a level on the given day.
func DailyIncome(level int, vip bool, t time.Time) float64 {
	cfg := LevelFor(level, vip)
	if IsWeekend(t) {
		return cfg.WeekendIncome
	}
	return cfg.DailyIncome
}

// LevelForDeposit returns the highest level whose deposit requirement is
// covered by the given locked deposit. Used on deposit approval to promote
// the account.
func LevelForDeposit(lockedDeposit float64) int {
	level := 0
	for _, l := range RegularLevels {
		if lockedDeposit >= l.Deposit {
			level = l.Level
		}
	}
	return level
}

// DayKey formats t as the calendar-day key used by the task completion
// ledger. Days roll over at 00:00 UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
