package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/services/payout"
)

type WithdrawalHandler struct {
	DB       *gorm.DB
	Payouts  *payout.Service
	Notifier *Notifier
}

func NewWithdrawalHandler(db *gorm.DB, payoutSvc *payout.Service, notifier *Notifier) *WithdrawalHandler {
	return &WithdrawalHandler{DB: db, Payouts: payoutSvc, Notifier: notifier}
}

type WithdrawalReq struct {
	Coins          int64  `json:"coins"`
	PaymentMethod  string `json:"payment_method"`
	PaymentDetails string `json:"payment_details"`
}

// Request escrows the coins immediately; the worker's balance drops before
// any admin sees the request.
func (h *WithdrawalHandler) Request(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var req WithdrawalReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}
	if req.PaymentDetails == "" {
		return fail(c, fiber.StatusBadRequest, "Payment details are required")
	}

	wd, err := h.Payouts.Request(uID, req.Coins, models.PaymentMethod(req.PaymentMethod), req.PaymentDetails)
	if err != nil {
		return svcError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Withdrawal requested",
		"data":    wd,
	})
}

// ListMine returns the worker's withdrawal history.
func (h *WithdrawalHandler) ListMine(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var wds []models.Withdrawal
	if err := h.DB.Where("worker_id = ?", uID).
		Order("created_at DESC").
		Find(&wds).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list withdrawals")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    wds,
	})
}

// ListPending is the admin review queue.
func (h *WithdrawalHandler) ListPending(c *fiber.Ctx) error {
	status := c.Query("status", string(models.WithdrawalStatusPending))

	var wds []models.Withdrawal
	if err := h.DB.Preload("Worker").
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&wds).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list withdrawals")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    wds,
	})
}

func (h *WithdrawalHandler) Approve(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return svcError(c, err)
	}

	wdID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid withdrawal ID")
	}

	wd, err := h.Payouts.Approve(wdID, actor)
	if err != nil {
		return svcError(c, err)
	}

	h.Notifier.Notify(wd.WorkerID,
		fmt.Sprintf("Your withdrawal of %d coins was approved and will be paid out shortly.", wd.Coins),
		"/worker/withdrawals")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Withdrawal approved",
		"data":    wd,
	})
}

func (h *WithdrawalHandler) Reject(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return svcError(c, err)
	}

	wdID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid withdrawal ID")
	}

	var req RejectReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}
	if req.Reason == "" {
		return fail(c, fiber.StatusBadRequest, "Rejection reason is required")
	}

	wd, err := h.Payouts.Reject(wdID, actor, req.Reason)
	if err != nil {
		return svcError(c, err)
	}

	h.Notifier.Notify(wd.WorkerID,
		fmt.Sprintf("Your withdrawal was rejected (%s). The %d coins are back in your balance.", wd.RejectionReason, wd.Coins),
		"/worker/withdrawals")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Withdrawal rejected, coins restored",
		"data":    wd,
	})
}

func (h *WithdrawalHandler) MarkProcessed(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return svcError(c, err)
	}

	wdID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid withdrawal ID")
	}

	wd, err := h.Payouts.MarkProcessed(wdID, actor)
	if err != nil {
		return svcError(c, err)
	}

	h.Notifier.Notify(wd.WorkerID,
		fmt.Sprintf("Your withdrawal of %.2f has been paid out via %s.", wd.Amount, wd.PaymentMethod),
		"/worker/withdrawals")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Withdrawal marked as processed",
		"data":    wd,
	})
}
