package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Store interface defines the methods required from the storage layer
type Store interface {
	// Profile operations
	CreateProfile(email, passwordHash, inviteCode string, invitedBy *int64) (*Profile, error)
	GetProfileByID(id int64) (*Profile, error)
	GetProfileByEmail(email string) (*Profile, error)
	GetProfileByInviteCode(inviteCode string) (*Profile, error)
	ListProfiles() ([]*Profile, error)
	SetWalletAddress(userID int64, address string) error
	SetVIP(userID int64) error

	// Task completion operations
	CompleteTask(ctx context.Context, userID int64, day string, quota int, reward float64, rates []float64) (*TaskCompletion, error)
	GetTaskCompletion(userID int64, day string) (*TaskCompletion, error)

	// Transaction operations
	CreateTransaction(userID int64, txType TransactionType, amount float64, walletAddress string) (*Transaction, error)
	GetTransactionByID(id int64) (*Transaction, error)
	GetTransactionsByUser(userID int64) ([]*Transaction, error)
	GetTransactionsByStatus(status TransactionStatus) ([]*Transaction, error)
	ProcessDeposit(ctx context.Context, txID int64, approved bool, processedBy *int64) (*Transaction, error)
	ProcessWithdrawal(ctx context.Context, txID int64, approved bool, processedBy *int64) (*Transaction, error)

	// Referral tree operations
	DescendantsUpTo(userID int64, depth int) (map[int][]*Profile, error)
	CountTeamAtLevel(userID int64, minLevel int) (int, error)

	// Role operations
	HasRole(userID int64, role string) (bool, error)
	GrantRole(userID int64, role string) error
}

// Notifier receives events worth pushing to the operators, typically the
// Telegram bot. A nil notifier is allowed and means no notifications.
type Notifier interface {
	NotifyTransaction(tx *Transaction, userEmail string)
}

// Service provides business logic for the application
type Service struct {
	store    Store
	notifier Notifier
}

// NewService creates a new Service instance
func NewService(store Store) *Service {
	return &Service{store: store}
}

// SetNotifier attaches a notifier for new pending transactions
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SignUp registers a new account. The invite code is optional; codes that
// match no existing account are ignored rather than rejected, so stale
// referral links still let people register.
func (s *Service) SignUp(email, password, inviteCode string) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}

	if _, err := s.store.GetProfileByEmail(email); err == nil {
		return nil, ErrEmailTaken
	}

	var invitedBy *int64
	if code := strings.ToUpper(strings.TrimSpace(inviteCode)); code != "" {
		if inviter, err := s.store.GetProfileByInviteCode(code); err == nil {
			invitedBy = &inviter.ID
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	profile, err := s.store.CreateProfile(email, string(hash), code, invitedBy)
	if err != nil {
		return nil, err
	}
	if err := s.store.GrantRole(profile.ID, RoleUser); err != nil {
		return nil, fmt.Errorf("failed to grant default role: %w", err)
	}
	return profile, nil
}

// SignIn verifies credentials and returns the matching profile
func (s *Service) SignIn(email, password string) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	profile, err := s.store.GetProfileByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return profile, nil
}

// GetProfile retrieves a profile by ID
func (s *Service) GetProfile(userID int64) (*Profile, error) {
	return s.store.GetProfileByID(userID)
}

// CompleteTask records one task completion for the user's current day,
// credits the reward and distributes referral commissions up the invite
// chain. The whole operation commits atomically or not at all.
func (s *Service) CompleteTask(ctx context.Context, userID int64, now time.Time) (*TaskCompletion, error) {
	profile, err := s.store.GetProfileByID(userID)
	if err != nil {
		return nil, err
	}

	quota := MaxTasks(profile.Level, profile.IsVIP, now)
	reward := RewardPerTask(profile.Level, profile.IsVIP)

	return s.store.CompleteTask(ctx, userID, DayKey(now), quota, reward, CommissionRates[:])
}

// TodayStatus returns the user's task progress for the given moment
func (s *Service) TodayStatus(userID int64, now time.Time) (*TodayStatus, error) {
	profile, err := s.store.GetProfileByID(userID)
	if err != nil {
		return nil, err
	}

	status := &TodayStatus{
		Day:           DayKey(now),
		MaxTasks:      MaxTasks(profile.Level, profile.IsVIP, now),
		RewardPerTask: RewardPerTask(profile.Level, profile.IsVIP),
		DailyIncome:   DailyIncome(profile.Level, profile.IsVIP, now),
		Weekend:       IsWeekend(now),
	}

	completion, err := s.store.GetTaskCompletion(userID, status.Day)
	if err == nil {
		status.TasksCompleted = completion.TasksCompleted
		status.Earnings = completion.Earnings
	}
	return status, nil
}

// RequestDeposit creates a pending deposit for admin review
func (s *Service) RequestDeposit(userID int64, amount float64) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	profile, err := s.store.GetProfileByID(userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.CreateTransaction(userID, TransactionDeposit, amount, "")
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyTransaction(tx, profile.Email)
	}
	return tx, nil
}

// RequestWithdrawal creates a pending withdrawal for admin review. The
// amount must meet the minimum and fit within the available balance at
// request time; the balance is only debited when an admin approves.
func (s *Service) RequestWithdrawal(userID int64, amount float64, walletAddress string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount < MinWithdrawal {
		return nil, ErrMinWithdrawal
	}
	if strings.TrimSpace(walletAddress) == "" {
		return nil, ErrWalletRequired
	}

	profile, err := s.store.GetProfileByID(userID)
	if err != nil {
		return nil, err
	}
	if profile.AvailableBalance < amount {
		return nil, ErrInsufficientBalance
	}

	if err := s.store.SetWalletAddress(userID, walletAddress); err != nil {
		return nil, err
	}

	tx, err := s.store.CreateTransaction(userID, TransactionWithdrawal, amount, walletAddress)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.NotifyTransaction(tx, profile.Email)
	}
	return tx, nil
}

// ProcessTransaction approves or rejects a pending transaction. processedBy
// is the acting admin's user ID, or nil when approval came from an external
// channel such as the Telegram bot.
func (s *Service) ProcessTransaction(ctx context.Context, txID int64, approved bool, processedBy *int64) (*Transaction, error) {
	tx, err := s.store.GetTransactionByID(txID)
	if err != nil {
		return nil, err
	}

	switch tx.Type {
	case TransactionDeposit:
		return s.store.ProcessDeposit(ctx, txID, approved, processedBy)
	case TransactionWithdrawal:
		return s.store.ProcessWithdrawal(ctx, txID, approved, processedBy)
	default:
		return nil, fmt.Errorf("unknown transaction type: %s", tx.Type)
	}
}

// Transactions returns a user's transactions, newest first
func (s *Service) Transactions(userID int64) ([]*Transaction, error) {
	return s.store.GetTransactionsByUser(userID)
}

// PendingTransactions returns all transactions awaiting review
func (s *Service) PendingTransactions() ([]*Transaction, error) {
	return s.store.GetTransactionsByStatus(StatusPending)
}

// CheckVipEligibility reports whether the user meets the team requirement
// of their current level. Only direct invitees that reached LV1 or above
// count toward the requirement, regardless of the user's own level. VIP
// accounts are always reported ineligible since they already switched tracks.
func (s *Service) CheckVipEligibility(userID int64) (*VIPEligibility, error) {
	profile, err := s.store.GetProfileByID(userID)
	if err != nil {
		return nil, err
	}
	if profile.IsVIP {
		return &VIPEligibility{Eligible: false}, nil
	}

	required := LevelFor(profile.Level, false).VIPRequiredTeam
	current, err := s.store.CountTeamAtLevel(userID, 1)
	if err != nil {
		return nil, err
	}

	return &VIPEligibility{
		Eligible:     current >= required,
		RequiredTeam: required,
		CurrentTeam:  current,
	}, nil
}

// ClaimVip switches an eligible account to the VIP task schedule
func (s *Service) ClaimVip(ctx context.Context, userID int64) error {
	profile, err := s.store.GetProfileByID(userID)
	if err != nil {
		return err
	}
	if profile.IsVIP {
		return ErrAlreadyVIP
	}

	eligibility, err := s.CheckVipEligibility(userID)
	if err != nil {
		return err
	}
	if !eligibility.Eligible {
		return ErrNotEligible
	}

	return s.store.SetVIP(userID)
}

// TeamReport builds the referral network summary for a user: members per
// commission tier plus the accumulated commission totals.
func (s *Service) TeamReport(userID int64) (*TeamReport, error) {
	profile, err := s.store.GetProfileByID(userID)
	if err != nil {
		return nil, err
	}

	byTier, err := s.store.DescendantsUpTo(userID, ReferralDepth)
	if err != nil {
		return nil, err
	}

	report := &TeamReport{
		TotalCommission: profile.TotalCommission,
		TodayCommission: profile.TodayCommission,
	}
	tierCommissions := []float64{profile.Level1Commission, profile.Level2Commission, profile.Level3Commission}

	for tier := 1; tier <= ReferralDepth; tier++ {
		members := byTier[tier]
		report.Tiers = append(report.Tiers, TierStats{
			Tier:       tier,
			Rate:       CommissionRates[tier-1],
			Members:    len(members),
			Commission: tierCommissions[tier-1],
		})
		for _, m := range members {
			report.TotalMembers++
			report.Members = append(report.Members, TeamMember{
				ID:        m.ID,
				Email:     m.Email,
				Level:     m.Level,
				IsVIP:     m.IsVIP,
				Tier:      tier,
				CreatedAt: m.CreatedAt,
			})
		}
	}
	return report, nil
}

// IsAdmin reports whether the user holds the admin role
func (s *Service) IsAdmin(userID int64) (bool, error) {
	return s.store.HasRole(userID, RoleAdmin)
}

// EnsureAdmin grants the admin role to the account with the given email.
// Used at startup to seed the first admin; missing accounts are not an
// error so the server can boot before the admin has registered.
func (s *Service) EnsureAdmin(email string) error {
	profile, err := s.store.GetProfileByEmail(email)
	if err != nil {
		return nil
	}
	return s.store.GrantRole(profile.ID, RoleAdmin)
}

// ListProfiles returns every account, for the admin panel
func (s *Service) ListProfiles() ([]*Profile, error) {
	return s.store.ListProfiles()
}

// generateInviteCode generates a random invite code
func generateInviteCode() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(bytes)), nil
}
