package core

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrQuotaExceeded        = errors.New("daily task quota exceeded")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrMinWithdrawal        = errors.New("amount below minimum withdrawal")
	ErrWalletRequired       = errors.New("wallet address required")
	ErrInsufficientBalance  = errors.New("insufficient available balance")
	ErrTransactionProcessed = errors.New("transaction already processed")
	ErrNotEligible          = errors.New("vip requirements not met")
	ErrAlreadyVIP           = errors.New("account is already vip")
)
