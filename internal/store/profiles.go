package store

import (
	"database/sql"
	"fmt"

	"wtq-task-mining/internal/core"
)

const profileColumns = `id, email, password_hash, invite_code, invited_by, level, is_vip,
	available_balance, total_balance, locked_deposit, total_revenue, total_withdrawal,
	total_commission, today_commission, level1_commission, level2_commission, level3_commission,
	contract_start, wallet_address, created_at`

// CreateProfile creates a new profile
func (s *Store) CreateProfile(email, passwordHash, inviteCode string, invitedBy *int64) (*core.Profile, error) {
	query := `
		INSERT INTO profiles (email, password_hash, invite_code, invited_by)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.DB.Exec(query, email, passwordHash, inviteCode, invitedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get profile ID: %w", err)
	}

	return s.GetProfileByID(id)
}

// GetProfileByID retrieves a profile by ID
func (s *Store) GetProfileByID(id int64) (*core.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`
	return s.scanProfile(s.DB.QueryRow(query, id))
}

// GetProfileByEmail retrieves a profile by email
func (s *Store) GetProfileByEmail(email string) (*core.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = ?`
	return s.scanProfile(s.DB.QueryRow(query, email))
}

// GetProfileByInviteCode retrieves a profile by its invite code
func (s *Store) GetProfileByInviteCode(inviteCode string) (*core.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE invite_code = ?`
	return s.scanProfile(s.DB.QueryRow(query, inviteCode))
}

// ListProfiles retrieves all profiles, newest first
func (s *Store) ListProfiles() ([]*core.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC`

	rows, err := s.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
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

// SetWalletAddress stores a user's payout address
func (s *Store) SetWalletAddress(userID int64, address string) error {
	result, err := s.DB.Exec(`UPDATE profiles SET wallet_address = ? WHERE id = ?`, address, userID)
	if err != nil {
		return fmt.Errorf("failed to set wallet address: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// SetVIP switches a profile to the VIP task schedule
func (s *Store) SetVIP(userID int64) error {
	result, err := s.DB.Exec(`UPDATE profiles SET is_vip = 1 WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to set vip: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanProfile(row *sql.Row) (*core.Profile, error) {
	p, err := scanProfileRow(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrUserNotFound
	}
	return p, err
}

func scanProfileRow(row rowScanner) (*core.Profile, error) {
	var p core.Profile
	var invitedBy sql.NullInt64
	var contractStart sql.NullTime

	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.InviteCode, &invitedBy, &p.Level, &p.IsVIP,
		&p.AvailableBalance, &p.TotalBalance, &p.LockedDeposit, &p.TotalRevenue, &p.TotalWithdrawal,
		&p.TotalCommission, &p.TodayCommission, &p.Level1Commission, &p.Level2Commission, &p.Level3Commission,
		&contractStart, &p.WalletAddress, &p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	if invitedBy.Valid {
		p.InvitedBy = &invitedBy.Int64
	}
	if contractStart.Valid {
		p.ContractStart = &contractStart.Time
	}
	return &p, nil
}
