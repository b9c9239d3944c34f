package handlers

import (
	"testing"

	"github.com/google/uuid"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/services/ledger"
)

func TestRoleSelectionGrantsBonusOnce(t *testing.T) {
	db := testDB(t)
	h := &AuthHandler{DB: db, Ledger: ledger.NewService(db)}

	u := models.User{
		ID:          uuid.New(),
		DisplayName: "Fresh Account",
		Email:       uuid.NewString() + "@example.test",
		Password:    "x",
		Role:        models.RoleNone,
		IsActive:    true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := h.applyRoleSelection(u.ID, models.RoleWorker)
	if err != nil {
		t.Fatalf("select role: %v", err)
	}
	if got.Role != models.RoleWorker {
		t.Errorf("role = %s, want worker", got.Role)
	}
	if got.Coins != models.InitialCoinsWorker {
		t.Errorf("coins = %d, want %d", got.Coins, models.InitialCoinsWorker)
	}

	// A retried or duplicate selection of the same role is a no-op for the
	// grant: the flag was flipped in the same transaction as the credit.
	got, err = h.applyRoleSelection(u.ID, models.RoleWorker)
	if err != nil {
		t.Fatalf("repeat selection: %v", err)
	}
	if got.Coins != models.InitialCoinsWorker {
		t.Errorf("coins = %d after repeat, want %d", got.Coins, models.InitialCoinsWorker)
	}

	var grants int64
	db.Model(&models.CoinTransaction{}).
		Where("user_id = ? AND type = ?", u.ID, models.CoinTrxBonus).
		Count(&grants)
	if grants != 1 {
		t.Errorf("bonus ledger entries = %d, want 1", grants)
	}

	// Switching roles after selection is reserved for admins.
	if _, err := h.applyRoleSelection(u.ID, models.RoleBuyer); err == nil {
		t.Error("changing a set role must fail")
	}
}

func TestRoleSelectionBuyerGrant(t *testing.T) {
	db := testDB(t)
	h := &AuthHandler{DB: db, Ledger: ledger.NewService(db)}

	u := models.User{
		ID:          uuid.New(),
		DisplayName: "Fresh Buyer",
		Email:       uuid.NewString() + "@example.test",
		Password:    "x",
		Role:        models.RoleNone,
		IsActive:    true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := h.applyRoleSelection(u.ID, models.RoleBuyer)
	if err != nil {
		t.Fatalf("select role: %v", err)
	}
	if got.Coins != models.InitialCoinsBuyer {
		t.Errorf("coins = %d, want %d", got.Coins, models.InitialCoinsBuyer)
	}
}
