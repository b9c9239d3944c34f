package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
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
	if err := gdb.AutoMigrate(&models.User{}, &models.Payment{}, &models.CoinTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newBuyer(t *testing.T, db *gorm.DB, coins int64) models.User {
	t.Helper()
	u := models.User{
		ID:          uuid.New(),
		DisplayName: "Test Buyer",
		Email:       uuid.NewString() + "@example.test",
		Password:    "x",
		Role:        models.RoleBuyer,
		IsActive:    true,
		Coins:       coins,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func buyerCoins(t *testing.T, db *gorm.DB, id uuid.UUID) int64 {
	t.Helper()
	var u models.User
	if err := db.First(&u, "id = ?", id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u.Coins
}

func TestProcessEventCreditsOnce(t *testing.T) {
	db := testDB(t)
	h := &PaymentHandler{DB: db, Ledger: ledger.NewService(db)}
	buyer := newBuyer(t, db, 0)

	payload := WebhookPayload{
		EventID: "EV-" + uuid.NewString(),
		BuyerID: buyer.ID.String(),
		Amount:  10,
		Coins:   150,
		Status:  "succeeded",
	}

	credited, err := h.processEvent(buyer.ID, payload)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if !credited {
		t.Fatal("first delivery must credit")
	}
	if got := buyerCoins(t, db, buyer.ID); got != 150 {
		t.Errorf("balance = %d, want 150", got)
	}

	// The processor retries the same event.
	credited, err = h.processEvent(buyer.ID, payload)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if credited {
		t.Error("redelivery must not credit again")
	}
	if got := buyerCoins(t, db, buyer.ID); got != 150 {
		t.Errorf("balance = %d after redelivery, want 150", got)
	}

	var payments int64
	db.Model(&models.Payment{}).Where("event_id = ?", payload.EventID).Count(&payments)
	if payments != 1 {
		t.Errorf("payment rows = %d, want 1", payments)
	}
}

func TestProcessEventFailedStatus(t *testing.T) {
	db := testDB(t)
	h := &PaymentHandler{DB: db, Ledger: ledger.NewService(db)}
	buyer := newBuyer(t, db, 0)

	payload := WebhookPayload{
		EventID: "EV-" + uuid.NewString(),
		BuyerID: buyer.ID.String(),
		Amount:  10,
		Coins:   150,
		Status:  "failed",
	}

	credited, err := h.processEvent(buyer.ID, payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if credited {
		t.Error("failed event must not credit")
	}
	if got := buyerCoins(t, db, buyer.ID); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}

	var payment models.Payment
	if err := db.First(&payment, "event_id = ?", payload.EventID).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Status != models.PaymentStatusFailed {
		t.Errorf("payment status = %s, want failed", payment.Status)
	}

	// A late succeeded delivery for the same event must not revive it.
	payload.Status = "succeeded"
	credited, err = h.processEvent(buyer.ID, payload)
	if err != nil {
		t.Fatalf("late delivery: %v", err)
	}
	if credited {
		t.Error("terminal payment must never be reprocessed")
	}
	if got := buyerCoins(t, db, buyer.ID); got != 0 {
		t.Errorf("balance = %d after late delivery, want 0", got)
	}
}

func TestGetPacksSorted(t *testing.T) {
	h := &PaymentHandler{}
	app := fiber.New()
	app.Get("/coins/packs", h.GetPacks)

	resp, err := app.Test(httptest.NewRequest("GET", "/coins/packs", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
		Data    []struct {
			Coins int64 `json:"coins"`
			Price int64 `json:"price"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(body.Data) != len(models.CoinPacks) {
		t.Fatalf("packs = %d, want %d", len(body.Data), len(models.CoinPacks))
	}
	for i := 1; i < len(body.Data); i++ {
		if body.Data[i].Coins <= body.Data[i-1].Coins {
			t.Fatalf("packs not in ascending coin order: %v", body.Data)
		}
	}
	for _, p := range body.Data {
		if want := models.CoinPacks[p.Coins]; p.Price != want {
			t.Errorf("pack %d price = %d, want %d", p.Coins, p.Price, want)
		}
	}
}
