package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"wtq-task-mining/internal/core"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

type profileData struct {
	ID               int64      `json:"id"`
	Email            string     `json:"email"`
	InviteCode       string     `json:"invite_code"`
	Level            int        `json:"level"`
	LevelName        string     `json:"level_name"`
	IsVIP            bool       `json:"is_vip"`
	AvailableBalance float64    `json:"available_balance"`
	TotalBalance     float64    `json:"total_balance"`
	LockedDeposit    float64    `json:"locked_deposit"`
	TotalRevenue     float64    `json:"total_revenue"`
	TotalWithdrawal  float64    `json:"total_withdrawal"`
	TotalCommission  float64    `json:"total_commission"`
	TodayCommission  float64    `json:"today_commission"`
	ContractStart    *time.Time `json:"contract_start,omitempty"`
	ContractEnd      *time.Time `json:"contract_end,omitempty"`
}

func profileResponse(p *core.Profile) profileData {
	data := profileData{
		ID:               p.ID,
		Email:            p.Email,
		InviteCode:       p.InviteCode,
		Level:            p.Level,
		LevelName:        core.LevelFor(p.Level, p.IsVIP).Name,
		IsVIP:            p.IsVIP,
		AvailableBalance: p.AvailableBalance,
		TotalBalance:     p.TotalBalance,
		LockedDeposit:    p.LockedDeposit,
		TotalRevenue:     p.TotalRevenue,
		TotalWithdrawal:  p.TotalWithdrawal,
		TotalCommission:  p.TotalCommission,
		TodayCommission:  p.TodayCommission,
		ContractStart:    p.ContractStart,
	}
	if p.ContractStart != nil {
		end := p.ContractStart.Add(core.ContractDuration)
		data.ContractEnd = &end
	}
	return data
}

type transactionData struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Type          string     `json:"type"`
	Amount        float64    `json:"amount"`
	Status        string     `json:"status"`
	WalletAddress string     `json:"wallet_address,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func transactionResponse(t *core.Transaction) transactionData {
	return transactionData{
		ID:            t.ID,
		UserID:        t.UserID,
		Type:          string(t.Type),
		Amount:        t.Amount,
		Status:        string(t.Status),
		WalletAddress: t.WalletAddress,
		ProcessedAt:   t.ProcessedAt,
		CreatedAt:     t.CreatedAt,
	}
}

// handleProfile returns the authenticated user's profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	profile, err := s.service.GetProfile(userID)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to load profile")
		return
	}
	s.writeJSON(w, http.StatusOK, profileResponse(profile))
}

// handleLevels returns both level schedules
func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"regular": core.RegularLevels,
		"vip":     core.VIPLevels,
	})
}

// handleTodayStatus returns the user's task progress for the current day
func (s *Server) handleTodayStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	status, err := s.service.TodayStatus(userID, time.Now())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to load task status")
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// handleCompleteTask records one task completion for the user
func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	completion, err := s.service.CompleteTask(r.Context(), userID, time.Now())
	if err != nil {
		if errors.Is(err, core.ErrQuotaExceeded) {
			s.writeError(w, r, http.StatusConflict, err.Error())
			return
		}
		log.WithFields(log.Fields{"user_id": userID}).Errorf("Task completion failed: %v", err)
		s.writeError(w, r, http.StatusInternalServerError, "failed to complete task")
		return
	}
	s.writeJSON(w, http.StatusOK, completion)
}

// handleTeam returns the user's referral network summary
func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	report, err := s.service.TeamReport(userID)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to load team")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleVipEligibility reports whether the user can switch to the VIP track
func (s *Server) handleVipEligibility(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	eligibility, err := s.service.CheckVipEligibility(userID)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to check eligibility")
		return
	}
	s.writeJSON(w, http.StatusOK, eligibility)
}

// handleClaimVip switches an eligible user to the VIP schedule
func (s *Server) handleClaimVip(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	if err := s.service.ClaimVip(r.Context(), userID); err != nil {
		switch {
		case errors.Is(err, core.ErrNotEligible), errors.Is(err, core.ErrAlreadyVIP):
			s.writeError(w, r, http.StatusConflict, err.Error())
		default:
			s.writeError(w, r, http.StatusInternalServerError, "failed to claim vip")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type amountRequest struct {
	Amount        float64 `json:"amount"`
	WalletAddress string  `json:"wallet_address"`
}

// handleDepositInfo returns the company wallet users pay into
func (s *Server) handleDepositInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"deposit_wallet": s.depositWallet})
}

// handleRequestDeposit creates a pending deposit
func (s *Server) handleRequestDeposit(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := s.service.RequestDeposit(userID, req.Amount)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			s.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, "failed to create deposit")
		return
	}

	log.WithFields(log.Fields{"user_id": userID, "amount": req.Amount}).Info("💰 Deposit requested")
	s.writeJSON(w, http.StatusCreated, transactionResponse(tx))
}

// handleRequestWithdrawal creates a pending withdrawal
func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := s.service.RequestWithdrawal(userID, req.Amount, req.WalletAddress)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount),
			errors.Is(err, core.ErrMinWithdrawal),
			errors.Is(err, core.ErrWalletRequired):
			s.writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, core.ErrInsufficientBalance):
			s.writeError(w, r, http.StatusConflict, err.Error())
		default:
			s.writeError(w, r, http.StatusInternalServerError, "failed to create withdrawal")
		}
		return
	}

	log.WithFields(log.Fields{"user_id": userID, "amount": req.Amount}).Info("💸 Withdrawal requested")
	s.writeJSON(w, http.StatusCreated, transactionResponse(tx))
}

// handleTransactions returns the user's transaction history
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.getUserID(r)

	txs, err := s.service.Transactions(userID)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	out := make([]transactionData, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionResponse(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handlePendingTransactions returns all transactions awaiting review
func (s *Server) handlePendingTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.service.PendingTransactions()
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	out := make([]transactionData, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionResponse(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleApproveTransaction approves a pending transaction
func (s *Server) handleApproveTransaction(w http.ResponseWriter, r *http.Request) {
	s.processTransaction(w, r, true)
}

// handleRejectTransaction rejects a pending transaction
func (s *Server) handleRejectTransaction(w http.ResponseWriter, r *http.Request) {
	s.processTransaction(w, r, false)
}

func (s *Server) processTransaction(w http.ResponseWriter, r *http.Request, approved bool) {
	adminID, _ := s.getUserID(r)

	txID, err := strconv.ParseInt(chi.URLParam(r, "transactionID"), 10, 64)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := s.service.ProcessTransaction(r.Context(), txID, approved, &adminID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTransactionNotFound):
			s.writeError(w, r, http.StatusNotFound, err.Error())
		case errors.Is(err, core.ErrTransactionProcessed):
			s.writeError(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, core.ErrInsufficientBalance):
			s.writeError(w, r, http.StatusConflict, err.Error())
		default:
			log.WithFields(log.Fields{"tx_id": txID, "admin_id": adminID}).Errorf("Transaction processing failed: %v", err)
			s.writeError(w, r, http.StatusInternalServerError, "failed to process transaction")
		}
		return
	}

	log.WithFields(log.Fields{
		"tx_id":    tx.ID,
		"type":     tx.Type,
		"status":   tx.Status,
		"admin_id": adminID,
	}).Info("🧾 Transaction processed")
	s.writeJSON(w, http.StatusOK, transactionResponse(tx))
}

// handleListUsers returns every account for the admin panel
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.service.ListProfiles()
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to load users")
		return
	}

	out := make([]profileData, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileResponse(p))
	}
	s.writeJSON(w, http.StatusOK, out)
}
