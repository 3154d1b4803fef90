package store

import (
	"context"
	"database/sql"
	"fmt"

	"wtq-task-mining/internal/core"
)

// CompleteTask records one task completion for the given day and pays it
// out. The quota check, the worker's credit and the referral commissions all
// happen in a single transaction, so concurrent submissions cannot push the
// day past the quota or credit an inviter without the worker being paid.
func (s *Store) CompleteTask(ctx context.Context, userID int64, day string, quota int, reward float64, rates []float64) (*core.TaskCompletion, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Ensure the day row exists before the guarded increment.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO task_completions (user_id, day) VALUES (?, ?)
		ON CONFLICT(user_id, day) DO NOTHING
	`, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure completion row: %w", err)
	}

	// The WHERE clause is the quota ceiling: once tasks_completed reaches
	// the quota the update matches nothing and the whole operation aborts.
	result, err := tx.ExecContext(ctx, `
		UPDATE task_completions
		SET tasks_completed = tasks_completed + 1,
		    earnings = earnings + ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND day = ? AND tasks_completed < ?
	`, reward, userID, day, quota)
	if err != nil {
		return nil, fmt.Errorf("failed to increment completion: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, core.ErrQuotaExceeded
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE profiles
		SET available_balance = available_balance + ?,
		    total_balance = total_balance + ?,
		    today_commission = today_commission + ?,
		    total_revenue = total_revenue + ?
		WHERE id = ?
	`, reward, reward, reward, reward, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to credit reward: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, core.ErrUserNotFound
	}

	if err := distributeCommissions(ctx, tx, userID, reward, rates); err != nil {
		return nil, err
	}

	var completion core.TaskCompletion
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, day, tasks_completed, earnings, updated_at
		FROM task_completions WHERE user_id = ? AND day = ?
	`, userID, day).Scan(
		&completion.ID, &completion.UserID, &completion.Day,
		&completion.TasksCompleted, &completion.Earnings, &completion.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}
	return &completion, nil
}

// distributeCommissions walks the invite chain up to len(rates) hops and
// credits each ancestor its tier's share of the reward. A seen set guards
// against invited_by cycles in imported data.
func distributeCommissions(ctx context.Context, tx *sql.Tx, userID int64, reward float64, rates []float64) error {
	tierColumns := []string{"level1_commission", "level2_commission", "level3_commission"}

	seen := map[int64]bool{userID: true}
	current := userID

	for hop := 0; hop < len(rates) && hop < len(tierColumns); hop++ {
		var invitedBy sql.NullInt64
		err := tx.QueryRowContext(ctx, `SELECT invited_by FROM profiles WHERE id = ?`, current).Scan(&invitedBy)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("failed to look up inviter: %w", err)
		}
		if !invitedBy.Valid || seen[invitedBy.Int64] {
			return nil
		}

		ancestor := invitedBy.Int64
		seen[ancestor] = true
		commission := reward * rates[hop]

		query := fmt.Sprintf(`
			UPDATE profiles
			SET available_balance = available_balance + ?,
			    total_balance = total_balance + ?,
			    total_commission = total_commission + ?,
			    today_commission = today_commission + ?,
			    %s = %s + ?
			WHERE id = ?
		`, tierColumns[hop], tierColumns[hop])

		if _, err := tx.ExecContext(ctx, query, commission, commission, commission, commission, commission, ancestor); err != nil {
			return fmt.Errorf("failed to credit tier %d commission: %w", hop+1, err)
		}

		current = ancestor
	}
	return nil
}

// GetTaskCompletion retrieves a user's completion row for a day
func (s *Store) GetTaskCompletion(userID int64, day string) (*core.TaskCompletion, error) {
	var completion core.TaskCompletion
	err := s.DB.QueryRow(`
		SELECT id, user_id, day, tasks_completed, earnings, updated_at
		FROM task_completions WHERE user_id = ? AND day = ?
	`, userID, day).Scan(
		&completion.ID, &completion.UserID, &completion.Day,
		&completion.TasksCompleted, &completion.Earnings, &completion.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task completion not found")
		}
		return nil, fmt.Errorf("failed to get task completion: %w", err)
	}
	return &completion, nil
}
