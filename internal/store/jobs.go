package store

import (
	"context"
	"fmt"

	"wtq-task-mining/internal/core"
)

// ResetTodayCommissions zeroes the rolling daily commission counter on all
// profiles. Runs from the midnight scheduler; returns how many rows changed.
func (s *Store) ResetTodayCommissions() (int64, error) {
	result, err := s.DB.Exec(`UPDATE profiles SET today_commission = 0 WHERE today_commission != 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset today commissions: %w", err)
	}
	return result.RowsAffected()
}

// ProfilesWithContract returns profiles whose earning contract has started
func (s *Store) ProfilesWithContract() ([]*core.Profile, error) {
	rows, err := s.DB.Query(`SELECT ` + profileColumns + ` FROM profiles WHERE contract_start IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contract profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*core.Profile
	for rows.Next() {
		p, err := scanProfileRow(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// AwardTimeBonus pays a contract milestone bonus once. The UNIQUE(user_id,
// months) constraint makes the insert the idempotency guard: if the award
// already exists nothing is credited and false is returned.
func (s *Store) AwardTimeBonus(ctx context.Context, userID int64, months int, amount float64) (bool, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO bonus_awards (user_id, months, amount) VALUES (?, ?, ?)`,
		userID, months, amount,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record bonus award: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE profiles
		SET available_balance = available_balance + ?,
		    total_balance = total_balance + ?,
		    total_revenue = total_revenue + ?
		WHERE id = ?
	`, amount, amount, amount, userID)
	if err != nil {
		return false, fmt.Errorf("failed to credit bonus: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit bonus: %w", err)
	}
	return true, nil
}
