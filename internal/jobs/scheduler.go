package jobs

import (
	"context"
	"time"

	"wtq-task-mining/internal/core"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// JobStore is the subset of the storage layer the scheduled jobs run
// against.
type JobStore interface {
	ResetTodayCommissions() (int64, error)
	ProfilesWithContract() ([]*core.Profile, error)
	AwardTimeBonus(ctx context.Context, userID int64, months int, amount float64) (bool, error)
}

// Scheduler runs the recurring maintenance jobs: the midnight commission
// reset and the contract milestone bonus payout.
type Scheduler struct {
	cron  *cron.Cron
	store JobStore
}

// NewScheduler creates a Scheduler with all jobs registered. Times are UTC,
// matching the task day boundary.
func NewScheduler(store JobStore) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(cron.WithLocation(time.UTC)),
		store: store,
	}

	if _, err := s.cron.AddFunc("0 0 * * *", s.resetTodayCommissions); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc("0 1 * * *", s.awardTimeBonuses); err != nil {
		return nil, err
	}

	return s, nil
}

// Start launches the scheduler in its own goroutine
func (s *Scheduler) Start() {
	log.Info("⏰ Scheduler started")
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("⏰ Scheduler stopped")
}

// resetTodayCommissions zeroes the daily commission counters at midnight
func (s *Scheduler) resetTodayCommissions() {
	n, err := s.store.ResetTodayCommissions()
	if err != nil {
		log.Errorf("Failed to reset today commissions: %v", err)
		return
	}
	log.WithFields(log.Fields{"profiles": n}).Info("🌙 Daily commission counters reset")
}

// awardTimeBonuses pays out contract milestone bonuses that have come due.
// The store keeps one award per user and milestone, so re-running the job
// is harmless.
func (s *Scheduler) awardTimeBonuses() {
	profiles, err := s.store.ProfilesWithContract()
	if err != nil {
		log.Errorf("Failed to load contract profiles: %v", err)
		return
	}

	now := time.Now().UTC()
	awarded := 0

	for _, p := range profiles {
		if p.ContractStart == nil {
			continue
		}
		for _, months := range core.BonusMilestones {
			if now.Before(p.ContractStart.AddDate(0, months, 0)) {
				continue
			}
			amount, ok := core.TimeBonuses[months][p.Level]
			if !ok {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			paid, err := s.store.AwardTimeBonus(ctx, p.ID, months, amount)
			cancel()
			if err != nil {
				log.WithFields(log.Fields{"user_id": p.ID, "months": months}).Errorf("Failed to award bonus: %v", err)
				continue
			}
			if paid {
				awarded++
				log.WithFields(log.Fields{
					"user_id": p.ID,
					"months":  months,
					"amount":  amount,
				}).Info("🎁 Time bonus awarded")
			}
		}
	}

	if awarded > 0 {
		log.WithFields(log.Fields{"awards": awarded}).Info("🎁 Time bonus run finished")
	}
}
