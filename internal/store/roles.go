package store

import "fmt"

// HasRole reports whether a user holds the given role
func (s *Store) HasRole(userID int64, role string) (bool, error) {
	var count int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = ?`, userID, role).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

// GrantRole grants a role to a user. Granting an already held role is a
// no-op.
func (s *Store) GrantRole(userID int64, role string) error {
	_, err := s.DB.Exec(`INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`, userID, role)
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

// IsTelegramAdmin reports whether a Telegram chat is on the admin allow-list
func (s *Store) IsTelegramAdmin(chatID int64) (bool, error) {
	var count int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM telegram_admins WHERE chat_id = ?`, chatID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check telegram admin: %w", err)
	}
	return count > 0, nil
}

// AddTelegramAdmin puts a Telegram chat on the admin allow-list
func (s *Store) AddTelegramAdmin(chatID int64) error {
	_, err := s.DB.Exec(`INSERT OR IGNORE INTO telegram_admins (chat_id) VALUES (?)`, chatID)
	if err != nil {
		return fmt.Errorf("failed to add telegram admin: %w", err)
	}
	return nil
}

// TelegramAdmins returns all admin chat IDs
func (s *Store) TelegramAdmins() ([]int64, error) {
	rows, err := s.DB.Query(`SELECT chat_id FROM telegram_admins`)
	if err != nil {
		return nil, fmt.Errorf("failed to query telegram admins: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
