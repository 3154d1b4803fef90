package store

import (
	"context"
	"database/sql"
	"fmt"

	"wtq-task-mining/internal/core"
)

const transactionColumns = `id, user_id, type, amount, status, wallet_address, processed_at, processed_by, created_at`

// CreateTransaction creates a new pending transaction
func (s *Store) CreateTransaction(userID int64, txType core.TransactionType, amount float64, walletAddress string) (*core.Transaction, error) {
	result, err := s.DB.Exec(
		`INSERT INTO transactions (user_id, type, amount, status, wallet_address) VALUES (?, ?, ?, 'pending', ?)`,
		userID, string(txType), amount, walletAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetTransactionByID(id)
}

// GetTransactionByID retrieves a transaction by ID
func (s *Store) GetTransactionByID(id int64) (*core.Transaction, error) {
	row := s.DB.QueryRow(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrTransactionNotFound
	}
	return tx, err
}

// GetTransactionsByUser retrieves all transactions of a user, newest first
func (s *Store) GetTransactionsByUser(userID int64) ([]*core.Transaction, error) {
	rows, err := s.DB.Query(
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// GetTransactionsByStatus retrieves all transactions in a given status,
// oldest first so admins work through the queue in order
func (s *Store) GetTransactionsByStatus(status core.TransactionStatus) ([]*core.Transaction, error) {
	rows, err := s.DB.Query(
		`SELECT `+transactionColumns+` FROM transactions WHERE status = ? ORDER BY created_at ASC, id ASC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ProcessDeposit settles a pending deposit. Approval locks the amount into
// the deposit, starts the contract clock if not running, and promotes the
// account to the highest level the new locked deposit covers. Rejection only
// marks the row. Either way the pending state is claimed first, so a
// transaction settles exactly once.
func (s *Store) ProcessDeposit(ctx context.Context, txID int64, approved bool, processedBy *int64) (*core.Transaction, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pending, err := claimPending(ctx, tx, txID, core.TransactionDeposit, approved, processedBy)
	if err != nil {
		return nil, err
	}

	if approved {
		_, err = tx.ExecContext(ctx, `
			UPDATE profiles
			SET locked_deposit = locked_deposit + ?,
			    total_balance = total_balance + ?,
			    contract_start = COALESCE(contract_start, CURRENT_TIMESTAMP)
			WHERE id = ?
		`, pending.Amount, pending.Amount, pending.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to credit deposit: %w", err)
		}

		var locked float64
		if err := tx.QueryRowContext(ctx, `SELECT locked_deposit FROM profiles WHERE id = ?`, pending.UserID).Scan(&locked); err != nil {
			return nil, fmt.Errorf("failed to read locked deposit: %w", err)
		}

		level := core.LevelForDeposit(locked)
		_, err = tx.ExecContext(ctx, `UPDATE profiles SET level = ? WHERE id = ? AND level < ?`, level, pending.UserID, level)
		if err != nil {
			return nil, fmt.Errorf("failed to update level: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit deposit: %w", err)
	}
	return s.GetTransactionByID(txID)
}

// ProcessWithdrawal settles a pending withdrawal. Approval debits the
// available and total balances; if the balance no longer covers the amount
// the transaction stays pending and ErrInsufficientBalance is returned, so
// admins can reject it explicitly or wait for the balance to recover.
func (s *Store) ProcessWithdrawal(ctx context.Context, txID int64, approved bool, processedBy *int64) (*core.Transaction, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pending, err := claimPending(ctx, tx, txID, core.TransactionWithdrawal, approved, processedBy)
	if err != nil {
		return nil, err
	}

	if approved {
		// Guarded debit: matches only while the balance still covers the
		// amount, since it may have shrunk since the request was made.
		result, err := tx.ExecContext(ctx, `
			UPDATE profiles
			SET available_balance = available_balance - ?,
			    total_balance = total_balance - ?,
			    total_withdrawal = total_withdrawal + ?
			WHERE id = ? AND available_balance >= ?
		`, pending.Amount, pending.Amount, pending.Amount, pending.UserID, pending.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to debit withdrawal: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, core.ErrInsufficientBalance
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit withdrawal: %w", err)
	}
	return s.GetTransactionByID(txID)
}

// claimPending flips a pending transaction of the expected type into its
// terminal state within tx. A zero-row update means the transaction was
// already settled by someone else.
func claimPending(ctx context.Context, tx *sql.Tx, txID int64, txType core.TransactionType, approved bool, processedBy *int64) (*core.Transaction, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND type = ?`, txID, string(txType))
	pending, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	status := core.StatusRejected
	if approved {
		status = core.StatusApproved
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?, processed_at = CURRENT_TIMESTAMP, processed_by = ?
		WHERE id = ? AND status = 'pending'
	`, string(status), processedBy, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to settle transaction: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, core.ErrTransactionProcessed
	}
	return pending, nil
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var t core.Transaction
	var txType, status string
	var processedAt sql.NullTime
	var processedBy sql.NullInt64

	err := row.Scan(&t.ID, &t.UserID, &txType, &t.Amount, &status, &t.WalletAddress, &processedAt, &processedBy, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.Type = core.TransactionType(txType)
	t.Status = core.TransactionStatus(status)
	if processedAt.Valid {
		t.ProcessedAt = &processedAt.Time
	}
	if processedBy.Valid {
		t.ProcessedBy = &processedBy.Int64
	}
	return &t, nil
}

func collectTransactions(rows *sql.Rows) ([]*core.Transaction, error) {
	var txs []*core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
