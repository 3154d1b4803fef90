package core

import "time"

// Profile represents a user account with its balance ledger
type Profile struct {
	ID               int64
	Email            string
	PasswordHash     string
	InviteCode       string
	InvitedBy        *int64 // Nullable FK to the inviter's profile
	Level            int
	IsVIP            bool
	AvailableBalance float64
	TotalBalance     float64
	LockedDeposit    float64
	TotalRevenue     float64
	TotalWithdrawal  float64
	TotalCommission  float64
	TodayCommission  float64
	Level1Commission float64
	Level2Commission float64
	Level3Commission float64
	ContractStart    *time.Time // Set by the first approved deposit
	WalletAddress    string
	CreatedAt        time.Time
}

// TaskCompletion tracks one user's progress for one calendar day
type TaskCompletion struct {
	ID             int64
	UserID         int64
	Day            string // YYYY-MM-DD in UTC
	TasksCompleted int
	Earnings       float64
	UpdatedAt      time.Time
}

// TransactionType represents the kind of a money transaction
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// TransactionStatus represents the lifecycle state of a transaction.
// Pending is the only non-terminal state.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Transaction represents a deposit or withdrawal request
type Transaction struct {
	ID            int64
	UserID        int64
	Type          TransactionType
	Amount        float64
	Status        TransactionStatus
	WalletAddress string // Payout address for withdrawals
	ProcessedAt   *time.Time
	ProcessedBy   *int64 // Admin who processed it; nil for external approvals
	CreatedAt     time.Time
}

// Role represents a granted role such as "admin"
type Role struct {
	UserID    int64
	Role      string
	CreatedAt time.Time
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// BonusAward records a paid-out contract milestone bonus
type BonusAward struct {
	ID        int64
	UserID    int64
	Months    int
	Amount    float64
	CreatedAt time.Time
}

// TierStats summarizes one referral tier of a user's team
type TierStats struct {
	Tier       int
	Rate       float64
	Members    int
	Commission float64
}

// TeamMember represents one direct or indirect invitee in a team report
type TeamMember struct {
	ID        int64
	Email     string
	Level     int
	IsVIP     bool
	Tier      int
	CreatedAt time.Time
}

// TeamReport aggregates a user's referral network
type TeamReport struct {
	TotalMembers    int
	TotalCommission float64
	TodayCommission float64
	Tiers           []TierStats
	Members         []TeamMember
}

// TodayStatus describes a user's task progress for the current day
type TodayStatus struct {
	Day            string
	TasksCompleted int
	MaxTasks       int
	RewardPerTask  float64
	Earnings       float64
	DailyIncome    float64
	Weekend        bool
}

// VIPEligibility reports whether a user can switch to the VIP track
type VIPEligibility struct {
	Eligible     bool
	RequiredTeam int
	CurrentTeam  int
}
