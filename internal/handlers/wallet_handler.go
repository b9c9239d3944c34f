package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/models"
)

type WalletHandler struct {
	DB *gorm.DB
}

func NewWalletHandler(db *gorm.DB) *WalletHandler {
	return &WalletHandler{DB: db}
}

// GetBalance returns the spendable balance plus the audit counters.
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var u models.User
	if err := h.DB.First(&u, "id = ?", uID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"coins":        u.Coins,
			"total_earned": u.TotalEarned,
			"total_spent":  u.TotalSpent,
		},
	})
}

// GetTransactions returns the user's coin movement history.
func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int64
	if err := h.DB.Model(&models.CoinTransaction{}).
		Where("user_id = ?", uID).
		Count(&total).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list transactions")
	}

	var trxs []models.CoinTransaction
	if err := h.DB.Where("user_id = ?", uID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&trxs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list transactions")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    trxs,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}
