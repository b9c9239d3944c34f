package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestTaskEscrowMath(t *testing.T) {
	task := Task{CoinsPerWorker: 10, RequiredWorkers: 5}

	if got := task.TotalEscrow(); got != 50 {
		t.Errorf("TotalEscrow() = %d, want 50", got)
	}

	task.CurrentWorkers = 2
	if got := task.RefundOnCancel(); got != 30 {
		t.Errorf("RefundOnCancel() with 2 of 5 filled = %d, want 30", got)
	}

	task.CurrentWorkers = 5
	if got := task.RefundOnCancel(); got != 0 {
		t.Errorf("RefundOnCancel() with all slots filled = %d, want 0", got)
	}
}

func TestTaskStatusAccepting(t *testing.T) {
	cases := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusOpen, true},
		{TaskStatusInProgress, true},
		{TaskStatusCompleted, false},
		{TaskStatusCancelled, false},
	}
	for _, c := range cases {
		if got := c.status.Accepting(); got != c.want {
			t.Errorf("%s.Accepting() = %v, want %v", c.status, got, c.want)
		}
		if got := c.status.Cancellable(); got != c.want {
			t.Errorf("%s.Cancellable() = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestSubmissionStatusTerminal(t *testing.T) {
	if SubmissionStatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	if !SubmissionStatusApproved.Terminal() {
		t.Error("approved must be terminal")
	}
	if !SubmissionStatusRejected.Terminal() {
		t.Error("rejected must be terminal")
	}
}

func TestWithdrawalAmount(t *testing.T) {
	cases := []struct {
		coins int64
		want  float64
	}{
		{200, 10},
		{500, 25},
		{210, 10.5},
	}
	for _, c := range cases {
		if got := WithdrawalAmount(c.coins); got != c.want {
			t.Errorf("WithdrawalAmount(%d) = %v, want %v", c.coins, got, c.want)
		}
	}
}

func TestPaymentMethodValid(t *testing.T) {
	for _, m := range []PaymentMethod{PaymentMethodPaypal, PaymentMethodBank, PaymentMethodCrypto} {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
	}
	if PaymentMethod("venmo").Valid() {
		t.Error("unknown method should be invalid")
	}
}

func TestCoinPackPrice(t *testing.T) {
	cases := []struct {
		coins int64
		price int64
		ok    bool
	}{
		{10, 1, true},
		{150, 10, true},
		{500, 20, true},
		{1000, 35, true},
		{42, 0, false},
	}
	for _, c := range cases {
		price, ok := CoinPackPrice(c.coins)
		if price != c.price || ok != c.ok {
			t.Errorf("CoinPackPrice(%d) = (%d, %v), want (%d, %v)", c.coins, price, ok, c.price, c.ok)
		}
	}
}

func TestRoleSelectable(t *testing.T) {
	if !RoleWorker.Selectable() || !RoleBuyer.Selectable() {
		t.Error("worker and buyer must be selectable")
	}
	if RoleAdmin.Selectable() {
		t.Error("admin must never be self-assignable")
	}
	if RoleNone.Selectable() {
		t.Error("empty role must not be selectable")
	}
}

func TestActorCanDecideFor(t *testing.T) {
	buyerID := uuid.New()
	otherID := uuid.New()

	owner := Actor{ID: buyerID, Role: RoleBuyer}
	if !owner.CanDecideFor(buyerID) {
		t.Error("owning buyer must be able to decide")
	}
	if owner.CanDecideFor(otherID) {
		t.Error("buyer must not decide for another buyer's task")
	}

	admin := Actor{ID: otherID, Role: RoleAdmin}
	if !admin.CanDecideFor(buyerID) {
		t.Error("admin must be able to decide for any buyer")
	}

	system := SystemActor()
	if !system.CanDecideFor(buyerID) {
		t.Error("system actor must bypass the ownership check")
	}
	if !system.IsAdmin() {
		t.Error("system actor must have admin capability")
	}

	worker := Actor{ID: otherID, Role: RoleWorker}
	if worker.CanDecideFor(buyerID) {
		t.Error("worker must never decide reviews")
	}
}
