package store

import (
	"errors"
	"testing"

	"github.com/sorenhale/chorebank/internal/model"
)

func TestGetBalanceLazyCreate(t *testing.T) {
	db := setupTestDB(t)
	_, _, child := seedFamily(t, db)
	ps := NewPointStore(db)

	b, err := ps.GetBalance(child.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if b.Balance != 0 {
		t.Errorf("fresh balance = %d, want 0", b.Balance)
	}

	// Second read sees the same row
	b2, err := ps.GetBalance(child.ID)
	if err != nil {
		t.Fatalf("get balance again: %v", err)
	}
	if b2.Balance != 0 {
		t.Errorf("balance = %d, want 0", b2.Balance)
	}
}

func TestCreditAndDebit(t *testing.T) {
	db := setupTestDB(t)
	_, _, child := seedFamily(t, db)
	ps := NewPointStore(db)

	b, err := ps.Credit(child.ID, 50, "chores", nil)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if b.Balance != 50 {
		t.Errorf("balance after credit = %d, want 50", b.Balance)
	}

	b, err = ps.Debit(child.ID, 20, "candy", nil)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if b.Balance != 30 {
		t.Errorf("balance after debit = %d, want 30", b.Balance)
	}
}

func TestDebitInsufficientWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	_, _, child := seedFamily(t, db)
	ps := NewPointStore(db)

	if _, err := ps.Credit(child.ID, 10, "start", nil); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, err := ps.Debit(child.ID, 11, "too much", nil)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	b, err := ps.GetBalance(child.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if b.Balance != 10 {
		t.Errorf("balance = %d, want 10 (unchanged)", b.Balance)
	}

	history, err := ps.History(child.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history entries = %d, want 1 (failed debit must not be recorded)", len(history))
	}
}

func TestHistoryMatchesBalance(t *testing.T) {
	db := setupTestDB(t)
	_, _, child := seedFamily(t, db)
	ps := NewPointStore(db)

	ops := []struct {
		credit bool
		amount int
	}{
		{true, 100}, {false, 30}, {true, 5}, {false, 25}, {true, 1},
	}
	for _, op := range ops {
		var err error
		if op.credit {
			_, err = ps.Credit(child.ID, op.amount, "op", nil)
		} else {
			_, err = ps.Debit(child.ID, op.amount, "op", nil)
		}
		if err != nil {
			t.Fatalf("op %+v: %v", op, err)
		}
	}

	history, err := ps.History(child.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != len(ops) {
		t.Fatalf("history entries = %d, want %d", len(history), len(ops))
	}

	// Signed sum of history equals the stored balance
	sum := 0
	for _, e := range history {
		switch e.Type {
		case model.HistoryTypeAdd:
			sum += e.Amount
		case model.HistoryTypeDeduct:
			sum -= e.Amount
		default:
			t.Fatalf("unexpected history type %q", e.Type)
		}
	}

	b, err := ps.GetBalance(child.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if sum != b.Balance {
		t.Errorf("history sum = %d, balance = %d; must match", sum, b.Balance)
	}

	// Newest first: the last op is the first entry
	if history[0].Amount != 1 || history[0].Type != model.HistoryTypeAdd {
		t.Errorf("first history entry = %+v, want the most recent credit of 1", history[0])
	}
	// Each entry records the balance it produced
	if history[0].ResultingBalance != b.Balance {
		t.Errorf("latest resulting_balance = %d, want %d", history[0].ResultingBalance, b.Balance)
	}
}

func TestLeaderboardOrder(t *testing.T) {
	db := setupTestDB(t)
	family, parent, child := seedFamily(t, db)
	us := NewUserStore(db)
	ps := NewPointStore(db)

	third, err := us.Create("abe", "hash", "Abe Tester", model.RoleChild, family.ID)
	if err != nil {
		t.Fatalf("create third: %v", err)
	}

	if _, err := ps.Credit(child.ID, 40, "chores", nil); err != nil {
		t.Fatalf("credit child: %v", err)
	}
	if _, err := ps.Credit(third.ID, 90, "chores", nil); err != nil {
		t.Fatalf("credit third: %v", err)
	}
	// Parent never earned points and has no balance row

	entries, err := ps.Leaderboard(family.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].UserID != third.ID || entries[0].Points != 90 {
		t.Errorf("first = %+v, want user %d with 90", entries[0], third.ID)
	}
	if entries[1].UserID != child.ID || entries[1].Points != 40 {
		t.Errorf("second = %+v, want user %d with 40", entries[1], child.ID)
	}
	if entries[2].UserID != parent.ID || entries[2].Points != 0 {
		t.Errorf("third = %+v, want user %d with 0 (no balance row)", entries[2], parent.ID)
	}
}
