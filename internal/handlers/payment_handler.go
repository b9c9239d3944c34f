package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/services/gateway"
	"github.com/microearn/microearn/internal/services/ledger"
)

// PaymentHandler is the only path that mints coins into circulation: the
// external processor reports a successful charge and the buyer is credited
// exactly once per event.
type PaymentHandler struct {
	DB       *gorm.DB
	Gateway  *gateway.Service
	Ledger   *ledger.Service
	Notifier *Notifier
	RDB      *redis.Client
}

func NewPaymentHandler(db *gorm.DB, gatewaySvc *gateway.Service, ledgerSvc *ledger.Service, notifier *Notifier, rdb *redis.Client) *PaymentHandler {
	return &PaymentHandler{DB: db, Gateway: gatewaySvc, Ledger: ledgerSvc, Notifier: notifier, RDB: rdb}
}

func (h *PaymentHandler) GetPacks(c *fiber.Ctx) error {
	amounts := make([]int64, 0, len(models.CoinPacks))
	for coins := range models.CoinPacks {
		amounts = append(amounts, coins)
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i] < amounts[j] })

	packs := make([]fiber.Map, 0, len(amounts))
	for _, coins := range amounts {
		packs = append(packs, fiber.Map{"coins": coins, "price": models.CoinPacks[coins]})
	}
	return c.JSON(fiber.Map{"success": true, "data": packs})
}

type CreatePaymentReq struct {
	Coins int64 `json:"coins"`
}

// CreatePayment opens a hosted checkout for one of the fixed coin packs.
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var req CreatePaymentReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}

	price, ok := models.CoinPackPrice(req.Coins)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "Unknown coin pack")
	}

	var buyer models.User
	if err := h.DB.First(&buyer, "id = ?", uID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	merchantRef := "ME-" + uuid.New().String()[:8]
	itemName := fmt.Sprintf("%d MicroEarn coins", req.Coins)

	resp, err := h.Gateway.CreateCheckout(merchantRef, price, itemName, buyer.DisplayName, buyer.Email)
	if err != nil {
		log.Printf("Gateway error: %v", err)
		return fail(c, fiber.StatusInternalServerError, "Payment gateway error")
	}

	payment := models.Payment{
		BuyerID:     uID,
		EventID:     resp.Data.Reference,
		Coins:       req.Coins,
		Amount:      price,
		CheckoutURL: resp.Data.CheckoutURL,
		Status:      models.PaymentStatusPending,
	}
	if err := h.DB.Create(&payment).Error; err != nil {
		log.Printf("Failed to save payment: %v", err)
		// The buyer can still pay via the checkout link; the webhook will
		// recreate the row.
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"checkout_url": resp.Data.CheckoutURL,
			"reference":    resp.Data.Reference,
		},
	})
}

type WebhookPayload struct {
	EventID string `json:"event_id"`
	BuyerID string `json:"buyer_id"`
	Amount  int64  `json:"amount"`
	Coins   int64  `json:"coins"`
	Status  string `json:"status"` // succeeded | failed
}

// HandleWebhook validates the processor's signature and credits the buyer at
// most once per event: a redis SETNX fast guard in front of the unique
// event_id index plus a locked status re-check inside the transaction.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	signature := c.Get("X-Callback-Signature")
	if signature == "" {
		return fail(c, fiber.StatusBadRequest, "Missing signature")
	}

	body := c.Body()
	if !h.Gateway.ValidateSignature(signature, string(body)) {
		return fail(c, fiber.StatusBadRequest, "Invalid signature")
	}

	var payload WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid payload")
	}
	if payload.EventID == "" {
		return fail(c, fiber.StatusBadRequest, "Missing event id")
	}

	// The fast guard only reads here; the key is written after a successful
	// commit, so a transient transaction failure leaves the retry path open.
	if h.RDB != nil {
		seen, err := h.RDB.Exists(context.Background(), "payment_event:"+payload.EventID).Result()
		if err == nil && seen > 0 {
			return c.JSON(fiber.Map{"success": true})
		}
	}

	buyerID, err := uuid.Parse(payload.BuyerID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid buyer id")
	}

	credited, err := h.processEvent(buyerID, payload)
	if err != nil {
		log.Printf("Webhook processing failed for event %s: %v", payload.EventID, err)
		return fail(c, fiber.StatusInternalServerError, "Failed to process event")
	}

	if h.RDB != nil {
		h.RDB.Set(context.Background(), "payment_event:"+payload.EventID, 1, 24*time.Hour)
	}

	if credited {
		h.Notifier.Notify(buyerID,
			fmt.Sprintf("Payment received. %d coins have been added to your balance.", payload.Coins),
			"/buyer/payments")
	}

	return c.JSON(fiber.Map{"success": true})
}

// processEvent settles one gateway event. The unique event_id index plus the
// locked pending-only re-check make replays credit at most once.
func (h *PaymentHandler) processEvent(buyerID uuid.UUID, payload WebhookPayload) (bool, error) {
	var credited bool
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "event_id = ?", payload.EventID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			payment = models.Payment{
				BuyerID: buyerID,
				EventID: payload.EventID,
				Coins:   payload.Coins,
				Amount:  payload.Amount,
				Status:  models.PaymentStatusPending,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		// Terminal rows are never reprocessed.
		if payment.Status != models.PaymentStatusPending {
			return nil
		}

		if payload.Status != "succeeded" {
			return tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
				Update("status", models.PaymentStatusFailed).Error
		}

		now := time.Now()
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(map[string]interface{}{
			"status":  models.PaymentStatusSucceeded,
			"paid_at": now,
		}).Error; err != nil {
			return err
		}

		desc := fmt.Sprintf("Purchased %d coins", payment.Coins)
		if err := h.Ledger.Credit(tx, payment.BuyerID, payment.Coins, models.CoinTrxPurchase, &payment.ID, desc); err != nil {
			return err
		}
		credited = true
		return nil
	})
	return credited, err
}

// History returns the buyer's payment audit rows.
func (h *PaymentHandler) History(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var payments []models.Payment
	if err := h.DB.Where("buyer_id = ?", uID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list payments")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payments,
	})
}
