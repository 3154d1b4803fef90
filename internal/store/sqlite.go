package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the database connection
type Store struct {
	DB *sql.DB
}

// NewStore creates a new Store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids busy errors
	// inside multi-statement transactions.
	db.SetMaxOpenConns(1)

	store := &Store{DB: db}

	// Run migrations
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates all necessary tables
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		invite_code TEXT UNIQUE NOT NULL,
		invited_by INTEGER,
		level INTEGER NOT NULL DEFAULT 0,
		is_vip BOOLEAN NOT NULL DEFAULT 0,
		available_balance REAL NOT NULL DEFAULT 0,
		total_balance REAL NOT NULL DEFAULT 0,
		locked_deposit REAL NOT NULL DEFAULT 0,
		total_revenue REAL NOT NULL DEFAULT 0,
		total_withdrawal REAL NOT NULL DEFAULT 0,
		total_commission REAL NOT NULL DEFAULT 0,
		today_commission REAL NOT NULL DEFAULT 0,
		level1_commission REAL NOT NULL DEFAULT 0,
		level2_commission REAL NOT NULL DEFAULT 0,
		level3_commission REAL NOT NULL DEFAULT 0,
		contract_start DATETIME,
		wallet_address TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(invited_by) REFERENCES profiles(id)
	);

	CREATE INDEX IF NOT EXISTS idx_profiles_invited_by ON profiles(invited_by);

	CREATE TABLE IF NOT EXISTS task_completions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		day TEXT NOT NULL,
		tasks_completed INTEGER NOT NULL DEFAULT 0,
		earnings REAL NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, day),
		FOREIGN KEY(user_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		type TEXT CHECK(type IN ('deposit', 'withdrawal')) NOT NULL,
		amount REAL NOT NULL,
		status TEXT CHECK(status IN ('pending', 'approved', 'rejected')) NOT NULL DEFAULT 'pending',
		wallet_address TEXT NOT NULL DEFAULT '',
		processed_at DATETIME,
		processed_by INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES profiles(id),
		FOREIGN KEY(processed_by) REFERENCES profiles(id)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);

	CREATE TABLE IF NOT EXISTS user_roles (
		user_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, role),
		FOREIGN KEY(user_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS bonus_awards (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		months INTEGER NOT NULL,
		amount REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, months),
		FOREIGN KEY(user_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS telegram_admins (
		chat_id INTEGER PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.DB.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	// Migrations for existing databases
	if err := s.migrateWalletAddress(); err != nil {
		return fmt.Errorf("failed to migrate wallet_address column: %w", err)
	}

	return nil
}

// migrateWalletAddress adds wallet_address to profiles if it doesn't exist
func (s *Store) migrateWalletAddress() error {
	_, err := s.DB.Exec(`ALTER TABLE profiles ADD COLUMN wallet_address TEXT NOT NULL DEFAULT ''`)
	if err != nil && err.Error() != "duplicate column name: wallet_address" {
		return err
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.DB.Close()
}
