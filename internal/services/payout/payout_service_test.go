package payout

import (
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/services/ledger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.Withdrawal{}, &models.CoinTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newWorker(t *testing.T, db *gorm.DB, coins int64) models.User {
	t.Helper()
	u := models.User{
		ID:          uuid.New(),
		DisplayName: "Test Worker",
		Email:       uuid.NewString() + "@example.test",
		Password:    "x",
		Role:        models.RoleWorker,
		IsActive:    true,
		Coins:       coins,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func workerCoins(t *testing.T, db *gorm.DB, id uuid.UUID) int64 {
	t.Helper()
	var u models.User
	if err := db.First(&u, "id = ?", id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u.Coins
}

var admin = models.Actor{ID: uuid.New(), Role: models.RoleAdmin}

func TestRequestDebitsImmediately(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, ledger.NewService(db))
	worker := newWorker(t, db, 500)

	wd, err := svc.Request(worker.ID, 200, models.PaymentMethodPaypal, "worker@paypal.test")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if wd.Status != models.WithdrawalStatusPending {
		t.Errorf("status = %s, want pending", wd.Status)
	}
	if wd.Amount != 10 {
		t.Errorf("amount = %v, want 10 (200 coins at 20 per unit)", wd.Amount)
	}
	if got := workerCoins(t, db, worker.ID); got != 300 {
		t.Errorf("balance = %d, want 300 after escrowing 200", got)
	}
}

func TestRequestValidation(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, ledger.NewService(db))
	worker := newWorker(t, db, 500)

	if _, err := svc.Request(worker.ID, 199, models.PaymentMethodPaypal, "x"); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("below minimum: err = %v, want ErrBelowMinimum", err)
	}
	if _, err := svc.Request(worker.ID, 200, models.PaymentMethod("venmo"), "x"); !errors.Is(err, ErrInvalidMethod) {
		t.Fatalf("bad method: err = %v, want ErrInvalidMethod", err)
	}
	if _, err := svc.Request(worker.ID, 600, models.PaymentMethodBank, "x"); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("over balance: err = %v, want ErrInsufficientBalance", err)
	}
	if got := workerCoins(t, db, worker.ID); got != 500 {
		t.Errorf("failed requests must not touch the balance, got %d", got)
	}
}

func TestRejectRestoresCoins(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, ledger.NewService(db))
	worker := newWorker(t, db, 500)

	wd, err := svc.Request(worker.ID, 200, models.PaymentMethodBank, "IBAN123")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	rejected, err := svc.Reject(wd.ID, admin, "payment details incomplete")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.WithdrawalStatusRejected {
		t.Errorf("status = %s, want rejected", rejected.Status)
	}
	if got := workerCoins(t, db, worker.ID); got != 500 {
		t.Errorf("rejection must restore the escrow, balance = %d, want 500", got)
	}

	// Terminal: no second compensating credit.
	if _, err := svc.Reject(wd.ID, admin, "again"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second reject: err = %v, want ErrInvalidState", err)
	}
	if got := workerCoins(t, db, worker.ID); got != 500 {
		t.Errorf("double reject must not double refund, balance = %d", got)
	}
}

func TestApproveThenProcessChain(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, ledger.NewService(db))
	worker := newWorker(t, db, 500)

	wd, err := svc.Request(worker.ID, 200, models.PaymentMethodCrypto, "0xabc")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// processed requires approved first
	if _, err := svc.MarkProcessed(wd.ID, admin); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("process before approve: err = %v, want ErrInvalidState", err)
	}

	approved, err := svc.Approve(wd.ID, admin)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.WithdrawalStatusApproved {
		t.Errorf("status = %s, want approved", approved.Status)
	}
	// Approval moves no coins; they left at request time.
	if got := workerCoins(t, db, worker.ID); got != 300 {
		t.Errorf("balance = %d, want 300", got)
	}

	if _, err := svc.Reject(wd.ID, admin, "too late"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("reject after approve: err = %v, want ErrInvalidState", err)
	}

	processed, err := svc.MarkProcessed(wd.ID, admin)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if processed.Status != models.WithdrawalStatusProcessed {
		t.Errorf("status = %s, want processed", processed.Status)
	}
	if processed.ProcessedAt == nil {
		t.Error("processed_at must be set")
	}
	if got := workerCoins(t, db, worker.ID); got != 300 {
		t.Errorf("processing must not touch the balance, got %d", got)
	}
}

func TestReviewRequiresAdmin(t *testing.T) {
	db := testDB(t)
	svc := NewService(db, ledger.NewService(db))
	worker := newWorker(t, db, 500)

	wd, err := svc.Request(worker.ID, 200, models.PaymentMethodPaypal, "x")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	self := models.Actor{ID: worker.ID, Role: models.RoleWorker}
	if _, err := svc.Approve(wd.ID, self); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("worker approve: err = %v, want ErrNotAuthorized", err)
	}
	if _, err := svc.Reject(wd.ID, self, "no"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("worker reject: err = %v, want ErrNotAuthorized", err)
	}
	if _, err := svc.MarkProcessed(wd.ID, self); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("worker process: err = %v, want ErrNotAuthorized", err)
	}
}
