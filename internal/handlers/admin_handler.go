package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/models"
)

// AdminHandler holds the platform-wide views and the user override actions
// reserved for admins. Route-level RequireRoles(admin) gates all of it.
type AdminHandler struct {
	DB       *gorm.DB
	Notifier *Notifier
}

func NewAdminHandler(db *gorm.DB, notifier *Notifier) *AdminHandler {
	return &AdminHandler{DB: db, Notifier: notifier}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	q := h.DB.Model(&models.User{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q = q.Where("email ILIKE ? OR display_name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list users")
	}

	var users []models.User
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list users")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

type SetActiveReq struct {
	IsActive bool `json:"is_active"`
}

// SetUserActive gates whether the user can take any further action.
func (h *AdminHandler) SetUserActive(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var req SetActiveReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}

	result := h.DB.Model(&models.User{}).Where("id = ?", userID).Update("is_active", req.IsActive)
	if result.Error != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to update user")
	}
	if result.RowsAffected == 0 {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

type OverrideRoleReq struct {
	Role string `json:"role"`
}

// OverrideRole is the only way a role changes after role-selection.
func (h *AdminHandler) OverrideRole(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var req OverrideRoleReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		return fail(c, fiber.StatusBadRequest, "Invalid role")
	}

	result := h.DB.Model(&models.User{}).Where("id = ?", userID).Update("role", role)
	if result.Error != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to update user")
	}
	if result.RowsAffected == 0 {
		return fail(c, fiber.StatusNotFound, "User not found")
	}

	h.Notifier.Notify(userID, "An admin changed your account role to "+string(role)+".", "/")

	return c.JSON(fiber.Map{"success": true})
}

func (h *AdminHandler) ListTasks(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	q := h.DB.Model(&models.Task{})
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list tasks")
	}

	var tasks []models.Task
	if err := q.Preload("Buyer").Order("created_at DESC").Limit(limit).Offset(offset).Find(&tasks).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list tasks")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    tasks,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// Stats is the admin dashboard summary.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	var workers, buyers int64
	h.DB.Model(&models.User{}).Where("role = ?", models.RoleWorker).Count(&workers)
	h.DB.Model(&models.User{}).Where("role = ?", models.RoleBuyer).Count(&buyers)

	var coinsInCirculation int64
	h.DB.Model(&models.User{}).Select("COALESCE(SUM(coins), 0)").Scan(&coinsInCirculation)

	var openTasks, pendingWithdrawals int64
	h.DB.Model(&models.Task{}).
		Where("status IN ?", []models.TaskStatus{models.TaskStatusOpen, models.TaskStatusInProgress}).
		Count(&openTasks)
	h.DB.Model(&models.Withdrawal{}).
		Where("status = ?", models.WithdrawalStatusPending).
		Count(&pendingWithdrawals)

	var totalPaidOut float64
	h.DB.Model(&models.Withdrawal{}).
		Where("status = ?", models.WithdrawalStatusProcessed).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totalPaidOut)

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"workers":              workers,
			"buyers":               buyers,
			"coins_in_circulation": coinsInCirculation,
			"open_tasks":           openTasks,
			"pending_withdrawals":  pendingWithdrawals,
			"total_paid_out":       totalPaidOut,
		},
	})
}
