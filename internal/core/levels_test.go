package core

import (
	"math"
	"testing"
	"time"
)

var (
	monday   = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	saturday = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
)

func TestLevelForFallsBackToLV0(t *testing.T) {
	cfg := LevelFor(99, false)
	if cfg.Level != 0 || cfg.Name != "LV0" {
		t.Errorf("expected LV0 fallback, got %+v", cfg)
	}

	cfg = LevelFor(-1, true)
	if cfg.Level != 0 || cfg.Name != "LV0" {
		t.Errorf("expected LV0 fallback for vip, got %+v", cfg)
	}
}

func TestMaxTasks(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		vip     bool
		day     time.Time
		want    int
	}{
		{"LV0 weekday", 0, false, monday, 4},
		{"LV0 weekend", 0, false, saturday, 2},
		{"LV2 weekday", 2, false, monday, 20},
		{"LV2 weekend", 2, false, saturday, 10},
		{"LV4 weekday", 4, false, monday, 26},
		{"sLV0 weekday", 0, true, monday, 5},
		{"sLV2 weekend", 2, true, saturday, 14},
		{"sLV4 weekday", 4, true, monday, 36},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxTasks(tt.level, tt.vip, tt.day); got != tt.want {
				t.Errorf("MaxTasks(%d, %v) = %d, want %d", tt.level, tt.vip, got, tt.want)
			}
		})
	}
}

func TestDailyIncomeMatchesQuotaTimesReward(t *testing.T) {
	for _, levels := range [][]LevelConfig{RegularLevels, VIPLevels} {
		for _, cfg := range levels {
			weekday := float64(cfg.WeekdayTasks) * cfg.RewardPerTask
			if math.Abs(cfg.DailyIncome-weekday) > 1e-9 {
				t.Errorf("%s: daily income %v != %d tasks * %v", cfg.Name, cfg.DailyIncome, cfg.WeekdayTasks, cfg.RewardPerTask)
			}
			weekend := float64(cfg.WeekendTasks) * cfg.RewardPerTask
			if math.Abs(cfg.WeekendIncome-weekend) > 1e-9 {
				t.Errorf("%s: weekend income %v != %d tasks * %v", cfg.Name, cfg.WeekendIncome, cfg.WeekendTasks, cfg.RewardPerTask)
			}
		}
	}
}

func TestLevelForDeposit(t *testing.T) {
	tests := []struct {
		deposit float64
		want    int
	}{
		{0, 0},
		{199.99, 0},
		{200, 1},
		{679, 1},
		{680, 2},
		{1560, 3},
		{3599, 3},
		{3600, 4},
		{100000, 4},
	}
	for _, tt := range tests {
		if got := LevelForDeposit(tt.deposit); got != tt.want {
			t.Errorf("LevelForDeposit(%v) = %d, want %d", tt.deposit, got, tt.want)
		}
	}
}

func TestIsWeekend(t *testing.T) {
	if IsWeekend(monday) {
		t.Error("monday reported as weekend")
	}
	if !IsWeekend(saturday) {
		t.Error("saturday not reported as weekend")
	}
	sunday := saturday.AddDate(0, 0, 1)
	if !IsWeekend(sunday) {
		t.Error("sunday not reported as weekend")
	}
}

func TestDayKeyUsesUTC(t *testing.T) {
	// 01:30 in UTC+3 is still 22:30 UTC the previous day
	loc := time.FixedZone("UTC+3", 3*3600)
	local := time.Date(2024, 3, 5, 1, 30, 0, 0, loc)
	if got := DayKey(local); got != "2024-03-04" {
		t.Errorf("DayKey = %s, want 2024-03-04", got)
	}
}

func TestCommissionRates(t *testing.T) {
	want := [3]float64{0.03, 0.02, 0.01}
	if CommissionRates != want {
		t.Errorf("CommissionRates = %v, want %v", CommissionRates, want)
	}
}

func TestTimeBonusesCoverAllMilestones(t *testing.T) {
	for _, months := range BonusMilestones {
		levels, ok := TimeBonuses[months]
		if !ok {
			t.Fatalf("no bonus table for %d months", months)
		}
		for level := 1; level <= 4; level++ {
			if _, ok := levels[level]; !ok {
				t.Errorf("no bonus for %d months at level %d", months, level)
			}
		}
		if _, ok := levels[0]; ok {
			t.Errorf("LV0 should not earn a bonus at %d months", months)
		}
	}
}
