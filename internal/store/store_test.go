package store_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"wtq-task-mining/internal/core"
	"wtq-task-mining/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createUser(t *testing.T, s *store.Store, email, inviteCode string, invitedBy *int64) *core.Profile {
	t.Helper()
	p, err := s.CreateProfile(email, "hash", inviteCode, invitedBy)
	if err != nil {
		t.Fatalf("failed to create profile %s: %v", email, err)
	}
	return p
}

func setBalance(t *testing.T, s *store.Store, userID int64, available, total float64) {
	t.Helper()
	_, err := s.DB.Exec(`UPDATE profiles SET available_balance = ?, total_balance = ? WHERE id = ?`, available, total, userID)
	if err != nil {
		t.Fatalf("failed to set balance: %v", err)
	}
}

func setLevel(t *testing.T, s *store.Store, userID int64, level int) {
	t.Helper()
	if _, err := s.DB.Exec(`UPDATE profiles SET level = ? WHERE id = ?`, level, userID); err != nil {
		t.Fatalf("failed to set level: %v", err)
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

const day = "2024-03-04"

func TestCompleteTaskQuotaCeiling(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "worker@example.com", "AAAA0001", nil)

	quota := 4
	reward := 1.0
	rates := core.CommissionRates[:]

	for i := 1; i <= quota; i++ {
		completion, err := s.CompleteTask(context.Background(), user.ID, day, quota, reward, rates)
		if err != nil {
			t.Fatalf("completion %d failed: %v", i, err)
		}
		if completion.TasksCompleted != i {
			t.Errorf("after %d completions got counter %d", i, completion.TasksCompleted)
		}
	}

	_, err := s.CompleteTask(context.Background(), user.ID, day, quota, reward, rates)
	if !errors.Is(err, core.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// The rejected attempt must not have changed anything
	completion, err := s.GetTaskCompletion(user.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	if completion.TasksCompleted != quota {
		t.Errorf("counter = %d after rejection, want %d", completion.TasksCompleted, quota)
	}
	if !approxEqual(completion.Earnings, float64(quota)*reward) {
		t.Errorf("earnings = %v, want %v", completion.Earnings, float64(quota)*reward)
	}

	p, err := s.GetProfileByID(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := float64(quota) * reward
	if !approxEqual(p.AvailableBalance, want) || !approxEqual(p.TotalBalance, want) || !approxEqual(p.TotalRevenue, want) {
		t.Errorf("balances = %v/%v/%v, want all %v", p.AvailableBalance, p.TotalBalance, p.TotalRevenue, want)
	}
}

func TestCompleteTaskNewDayStartsFresh(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "worker@example.com", "AAAA0002", nil)

	if _, err := s.CompleteTask(context.Background(), user.ID, day, 1, 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CompleteTask(context.Background(), user.ID, day, 1, 1, nil); !errors.Is(err, core.ErrQuotaExceeded) {
		t.Fatalf("expected quota error on same day, got %v", err)
	}

	completion, err := s.CompleteTask(context.Background(), user.ID, "2024-03-05", 1, 1, nil)
	if err != nil {
		t.Fatalf("next day completion failed: %v", err)
	}
	if completion.TasksCompleted != 1 {
		t.Errorf("next day counter = %d, want 1", completion.TasksCompleted)
	}
}

func TestCommissionChainThreeHops(t *testing.T) {
	s := newTestStore(t)
	a := createUser(t, s, "a@example.com", "CODEA", nil)
	b := createUser(t, s, "b@example.com", "CODEB", &a.ID)
	c := createUser(t, s, "c@example.com", "CODEC", &b.ID)
	d := createUser(t, s, "d@example.com", "CODED", &c.ID)

	reward := 2.0
	if _, err := s.CompleteTask(context.Background(), d.ID, day, 10, reward, core.CommissionRates[:]); err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		id   int64
		rate float64
		tier int
	}{
		{c.ID, 0.03, 1},
		{b.ID, 0.02, 2},
		{a.ID, 0.01, 3},
	}
	for _, check := range checks {
		p, err := s.GetProfileByID(check.id)
		if err != nil {
			t.Fatal(err)
		}
		commission := reward * check.rate
		if !approxEqual(p.TotalCommission, commission) {
			t.Errorf("user %d total_commission = %v, want %v", check.id, p.TotalCommission, commission)
		}
		if !approxEqual(p.TodayCommission, commission) {
			t.Errorf("user %d today_commission = %v, want %v", check.id, p.TodayCommission, commission)
		}
		if !approxEqual(p.AvailableBalance, commission) || !approxEqual(p.TotalBalance, commission) {
			t.Errorf("user %d balances = %v/%v, want %v", check.id, p.AvailableBalance, p.TotalBalance, commission)
		}

		tiers := []float64{p.Level1Commission, p.Level2Commission, p.Level3Commission}
		for i, got := range tiers {
			want := 0.0
			if i+1 == check.tier {
				want = commission
			}
			if !approxEqual(got, want) {
				t.Errorf("user %d tier %d commission = %v, want %v", check.id, i+1, got, want)
			}
		}
	}

	// Conservation: worker reward plus commissions is exactly 6% on top
	var sum float64
	for _, id := range []int64{a.ID, b.ID, c.ID, d.ID} {
		p, _ := s.GetProfileByID(id)
		sum += p.TotalBalance
	}
	if !approxEqual(sum, reward*1.06) {
		t.Errorf("total credited = %v, want %v", sum, reward*1.06)
	}
}

func TestCommissionChainSingleInviter(t *testing.T) {
	s := newTestStore(t)
	a := createUser(t, s, "root@example.com", "ROOT1", nil)
	b := createUser(t, s, "leaf@example.com", "LEAF1", &a.ID)

	if _, err := s.CompleteTask(context.Background(), b.ID, day, 10, 1, core.CommissionRates[:]); err != nil {
		t.Fatal(err)
	}

	p, err := s.GetProfileByID(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(p.TotalCommission, 0.03) {
		t.Errorf("root commission = %v, want 0.03", p.TotalCommission)
	}
	if !approxEqual(p.Level2Commission, 0) || !approxEqual(p.Level3Commission, 0) {
		t.Error("root earned tier 2 or 3 commission with no deeper chain")
	}
}

func TestCommissionCycleGuard(t *testing.T) {
	s := newTestStore(t)
	a := createUser(t, s, "a@example.com", "CYCA", nil)
	b := createUser(t, s, "b@example.com", "CYCB", &a.ID)

	// Corrupt the tree into a 2-cycle
	if _, err := s.DB.Exec(`UPDATE profiles SET invited_by = ? WHERE id = ?`, b.ID, a.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := s.CompleteTask(context.Background(), b.ID, day, 10, 1, core.CommissionRates[:]); err != nil {
		t.Fatalf("completion in cyclic tree failed: %v", err)
	}

	pa, _ := s.GetProfileByID(a.ID)
	pb, _ := s.GetProfileByID(b.ID)
	if !approxEqual(pa.TotalCommission, 0.03) {
		t.Errorf("a commission = %v, want 0.03 exactly once", pa.TotalCommission)
	}
	if !approxEqual(pb.TotalCommission, 0) {
		t.Errorf("b received commission %v from its own task", pb.TotalCommission)
	}
}

func TestProcessDepositApproval(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "dep@example.com", "DEP01", nil)

	tx, err := s.CreateTransaction(user.ID, core.TransactionDeposit, 680, "")
	if err != nil {
		t.Fatal(err)
	}
	if tx.Status != core.StatusPending {
		t.Fatalf("new transaction status = %s, want pending", tx.Status)
	}

	admin := createUser(t, s, "admin@example.com", "ADM01", nil)
	processed, err := s.ProcessDeposit(context.Background(), tx.ID, true, &admin.ID)
	if err != nil {
		t.Fatal(err)
	}
	if processed.Status != core.StatusApproved {
		t.Errorf("status = %s, want approved", processed.Status)
	}
	if processed.ProcessedAt == nil {
		t.Error("processed_at not set")
	}
	if processed.ProcessedBy == nil || *processed.ProcessedBy != admin.ID {
		t.Error("processed_by not set to the admin")
	}

	p, err := s.GetProfileByID(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(p.LockedDeposit, 680) {
		t.Errorf("locked_deposit = %v, want 680", p.LockedDeposit)
	}
	if !approxEqual(p.TotalBalance, 680) {
		t.Errorf("total_balance = %v, want 680", p.TotalBalance)
	}
	if !approxEqual(p.AvailableBalance, 0) {
		t.Errorf("available_balance = %v, deposits must not be withdrawable", p.AvailableBalance)
	}
	if p.Level != 2 {
		t.Errorf("level = %d, want 2 for a 680 deposit", p.Level)
	}
	if p.ContractStart == nil {
		t.Error("contract_start not set by first approved deposit")
	}

	// Terminal state: re-processing must fail and change nothing
	if _, err := s.ProcessDeposit(context.Background(), tx.ID, true, &admin.ID); !errors.Is(err, core.ErrTransactionProcessed) {
		t.Fatalf("expected ErrTransactionProcessed, got %v", err)
	}
	p2, _ := s.GetProfileByID(user.ID)
	if !approxEqual(p2.LockedDeposit, 680) {
		t.Errorf("locked_deposit changed to %v on re-processing", p2.LockedDeposit)
	}
}

func TestProcessDepositRejection(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "dep@example.com", "DEP02", nil)

	tx, err := s.CreateTransaction(user.ID, core.TransactionDeposit, 200, "")
	if err != nil {
		t.Fatal(err)
	}

	processed, err := s.ProcessDeposit(context.Background(), tx.ID, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if processed.Status != core.StatusRejected {
		t.Errorf("status = %s, want rejected", processed.Status)
	}

	p, _ := s.GetProfileByID(user.ID)
	if !approxEqual(p.LockedDeposit, 0) || p.Level != 0 || p.ContractStart != nil {
		t.Error("rejection must not touch the profile")
	}
}

func TestDepositLevelNeverDowngrades(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "dep@example.com", "DEP03", nil)
	setLevel(t, s, user.ID, 3)

	tx, _ := s.CreateTransaction(user.ID, core.TransactionDeposit, 200, "")
	if _, err := s.ProcessDeposit(context.Background(), tx.ID, true, nil); err != nil {
		t.Fatal(err)
	}

	p, _ := s.GetProfileByID(user.ID)
	if p.Level != 3 {
		t.Errorf("level = %d, a small deposit must not downgrade level 3", p.Level)
	}
}

func TestProcessWithdrawalApproval(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "wd@example.com", "WD01", nil)
	setBalance(t, s, user.ID, 100, 100)

	tx, err := s.CreateTransaction(user.ID, core.TransactionWithdrawal, 50, "TRC20-addr")
	if err != nil {
		t.Fatal(err)
	}

	processed, err := s.ProcessWithdrawal(context.Background(), tx.ID, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if processed.Status != core.StatusApproved {
		t.Errorf("status = %s, want approved", processed.Status)
	}

	p, _ := s.GetProfileByID(user.ID)
	if !approxEqual(p.AvailableBalance, 50) || !approxEqual(p.TotalBalance, 50) {
		t.Errorf("balances = %v/%v, want 50/50", p.AvailableBalance, p.TotalBalance)
	}
	if !approxEqual(p.TotalWithdrawal, 50) {
		t.Errorf("total_withdrawal = %v, want 50", p.TotalWithdrawal)
	}
}

func TestProcessWithdrawalInsufficientBalance(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "wd@example.com", "WD02", nil)
	setBalance(t, s, user.ID, 100, 100)

	tx, err := s.CreateTransaction(user.ID, core.TransactionWithdrawal, 80, "addr")
	if err != nil {
		t.Fatal(err)
	}

	// Balance shrinks between request and approval
	setBalance(t, s, user.ID, 30, 30)

	_, err = s.ProcessWithdrawal(context.Background(), tx.ID, true, nil)
	if !errors.Is(err, core.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// The transaction must still be pending so it can be rejected
	reread, err := s.GetTransactionByID(tx.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reread.Status != core.StatusPending {
		t.Errorf("status = %s after failed approval, want pending", reread.Status)
	}

	p, _ := s.GetProfileByID(user.ID)
	if !approxEqual(p.AvailableBalance, 30) {
		t.Errorf("balance changed to %v by failed approval", p.AvailableBalance)
	}

	if _, err := s.ProcessWithdrawal(context.Background(), tx.ID, false, nil); err != nil {
		t.Fatalf("rejecting after failed approval: %v", err)
	}
}

func TestDescendantsUpToTiers(t *testing.T) {
	s := newTestStore(t)
	root := createUser(t, s, "root@example.com", "R0", nil)
	c1 := createUser(t, s, "c1@example.com", "C1", &root.ID)
	c2 := createUser(t, s, "c2@example.com", "C2", &root.ID)
	g1 := createUser(t, s, "g1@example.com", "G1", &c1.ID)
	gg1 := createUser(t, s, "gg1@example.com", "GG1", &g1.ID)
	createUser(t, s, "ggg@example.com", "GGG1", &gg1.ID) // tier 4, out of range

	byTier, err := s.DescendantsUpTo(root.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(byTier[1]) != 2 {
		t.Errorf("tier 1 = %d members, want 2", len(byTier[1]))
	}
	if len(byTier[2]) != 1 || byTier[2][0].ID != g1.ID {
		t.Errorf("tier 2 = %+v, want just g1", byTier[2])
	}
	if len(byTier[3]) != 1 || byTier[3][0].ID != gg1.ID {
		t.Errorf("tier 3 = %+v, want just gg1", byTier[3])
	}
	if len(byTier[4]) != 0 {
		t.Error("tier 4 should be out of range")
	}
	_ = c2
}

func TestAncestorsUpTo(t *testing.T) {
	s := newTestStore(t)
	a := createUser(t, s, "a@example.com", "AA", nil)
	b := createUser(t, s, "b@example.com", "BB", &a.ID)
	c := createUser(t, s, "c@example.com", "CC", &b.ID)

	ancestors, err := s.AncestorsUpTo(c.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(ancestors) != 2 {
		t.Fatalf("got %d ancestors, want 2", len(ancestors))
	}
	if ancestors[0].ID != b.ID || ancestors[1].ID != a.ID {
		t.Errorf("ancestors out of order: %d, %d", ancestors[0].ID, ancestors[1].ID)
	}
}

func TestCountTeamAtLevel(t *testing.T) {
	s := newTestStore(t)
	root := createUser(t, s, "root@example.com", "R0", nil)

	low := createUser(t, s, "low@example.com", "L0", &root.ID)
	qualified := createUser(t, s, "q1@example.com", "Q1", &root.ID)
	vip := createUser(t, s, "vip@example.com", "V1", &root.ID)
	setLevel(t, s, low.ID, 1)
	setLevel(t, s, qualified.ID, 2)
	setLevel(t, s, vip.ID, 3)
	if err := s.SetVIP(vip.ID); err != nil {
		t.Fatal(err)
	}

	// Indirect invitees don't count
	createUser(t, s, "indirect@example.com", "I1", &qualified.ID)

	count, err := s.CountTeamAtLevel(root.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (only the non-VIP level 2 direct invitee)", count)
	}
}

func TestAwardTimeBonusIdempotent(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "bonus@example.com", "B0", nil)

	paid, err := s.AwardTimeBonus(context.Background(), user.ID, 2, 300)
	if err != nil {
		t.Fatal(err)
	}
	if !paid {
		t.Fatal("first award not paid")
	}

	paid, err = s.AwardTimeBonus(context.Background(), user.ID, 2, 300)
	if err != nil {
		t.Fatal(err)
	}
	if paid {
		t.Error("second award for the same milestone was paid")
	}

	p, _ := s.GetProfileByID(user.ID)
	if !approxEqual(p.AvailableBalance, 300) || !approxEqual(p.TotalRevenue, 300) {
		t.Errorf("balances = %v/%v, want 300 once", p.AvailableBalance, p.TotalRevenue)
	}
}

func TestResetTodayCommissions(t *testing.T) {
	s := newTestStore(t)
	a := createUser(t, s, "a@example.com", "RA", nil)
	b := createUser(t, s, "b@example.com", "RB", &a.ID)

	if _, err := s.CompleteTask(context.Background(), b.ID, day, 10, 1, core.CommissionRates[:]); err != nil {
		t.Fatal(err)
	}

	// Both the worker's daily counter and the inviter's commission counter
	// are nonzero after the completion
	n, err := s.ResetTodayCommissions()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("reset touched %d rows, want 2", n)
	}

	for _, id := range []int64{a.ID, b.ID} {
		p, _ := s.GetProfileByID(id)
		if !approxEqual(p.TodayCommission, 0) {
			t.Errorf("user %d today_commission = %v after reset", id, p.TodayCommission)
		}
	}

	p, _ := s.GetProfileByID(a.ID)
	if !approxEqual(p.TotalCommission, 0.03) {
		t.Errorf("total_commission = %v, reset must keep lifetime totals", p.TotalCommission)
	}
}

func TestRolesAndTelegramAdmins(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "admin@example.com", "RO1", nil)

	ok, err := s.HasRole(user.ID, core.RoleAdmin)
	if err != nil || ok {
		t.Fatalf("fresh user has admin role: %v %v", ok, err)
	}

	if err := s.GrantRole(user.ID, core.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if err := s.GrantRole(user.ID, core.RoleAdmin); err != nil {
		t.Fatalf("re-granting should be a no-op, got %v", err)
	}
	if ok, _ := s.HasRole(user.ID, core.RoleAdmin); !ok {
		t.Error("granted role not found")
	}

	if ok, _ := s.IsTelegramAdmin(42); ok {
		t.Error("unknown chat reported as admin")
	}
	if err := s.AddTelegramAdmin(42); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.IsTelegramAdmin(42); !ok {
		t.Error("registered chat not reported as admin")
	}
	chats, err := s.TelegramAdmins()
	if err != nil || len(chats) != 1 || chats[0] != 42 {
		t.Errorf("TelegramAdmins = %v, %v", chats, err)
	}
}

func TestGetProfileByInviteCode(t *testing.T) {
	s := newTestStore(t)
	user := createUser(t, s, "ref@example.com", "REFCODE1", nil)

	found, err := s.GetProfileByInviteCode("REFCODE1")
	if err != nil {
		t.Fatal(err)
	}
	if found.ID != user.ID {
		t.Errorf("found profile %d, want %d", found.ID, user.ID)
	}

	if _, err := s.GetProfileByInviteCode("NOPE"); !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
