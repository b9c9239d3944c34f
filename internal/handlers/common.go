package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/realtime"
	"github.com/microearn/microearn/internal/services/ledger"
	"github.com/microearn/microearn/internal/services/payout"
	"github.com/microearn/microearn/internal/services/review"
	"github.com/microearn/microearn/internal/services/tasklife"
)

func getAuth(c *fiber.Ctx) (uuid.UUID, error) {
	rawID, ok := c.Locals("userId").(string)
	if !ok || rawID == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	uID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid user id")
	}
	return uID, nil
}

// getActor builds the capability value for state-changing service calls from
// the verified JWT locals.
func getActor(c *fiber.Ctx) (models.Actor, error) {
	uID, err := getAuth(c)
	if err != nil {
		return models.Actor{}, err
	}
	role, _ := c.Locals("role").(string)
	return models.Actor{ID: uID, Role: models.Role(role)}, nil
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// svcError maps domain sentinel errors to HTTP responses. Everything in the
// taxonomy is a caller mistake, not a transient fault.
func svcError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fail(c, fiber.StatusPaymentRequired, "Insufficient coin balance")
	case errors.Is(err, tasklife.ErrInvalidTaskState):
		return fail(c, fiber.StatusConflict, "Task is already completed or cancelled")
	case errors.Is(err, tasklife.ErrTaskAlreadyFull):
		return fail(c, fiber.StatusConflict, "Task already has the required number of approved workers")
	case errors.Is(err, tasklife.ErrNotAuthorized),
		errors.Is(err, review.ErrNotAuthorized),
		errors.Is(err, payout.ErrNotAuthorized):
		return fail(c, fiber.StatusForbidden, "You are not allowed to perform this action")
	case errors.Is(err, review.ErrTaskNotOpen):
		return fail(c, fiber.StatusConflict, "Task is not accepting submissions")
	case errors.Is(err, review.ErrDuplicateSubmission):
		return fail(c, fiber.StatusConflict, "You have already submitted for this task")
	case errors.Is(err, review.ErrAlreadyReviewed):
		return fail(c, fiber.StatusConflict, "Submission has already been reviewed")
	case errors.Is(err, review.ErrEmptyReason):
		return fail(c, fiber.StatusBadRequest, "Rejection reason is required")
	case errors.Is(err, payout.ErrBelowMinimum):
		return fail(c, fiber.StatusBadRequest, "Minimum withdrawal is 200 coins")
	case errors.Is(err, payout.ErrInvalidMethod):
		return fail(c, fiber.StatusBadRequest, "Unsupported payment method")
	case errors.Is(err, payout.ErrInvalidState):
		return fail(c, fiber.StatusConflict, "Withdrawal is not in a state that allows this action")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fail(c, fiber.StatusNotFound, "Not found")
	}

	if e, ok := err.(*fiber.Error); ok {
		return fail(c, e.Code, e.Message)
	}
	log.Printf("internal error: %v", err)
	return fail(c, fiber.StatusInternalServerError, "Something went wrong")
}

// Notifier writes an in-app notification row, pushes it over the websocket
// hub and publishes it for any other interested process.
type Notifier struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func (n *Notifier) Notify(userID uuid.UUID, message, actionRoute string) {
	notif := models.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Message:     message,
		ActionRoute: actionRoute,
	}
	if err := n.DB.Create(&notif).Error; err != nil {
		log.Printf("Failed to store notification for %s: %v", userID, err)
		return
	}

	payload := fiber.Map{"type": "notification", "notification": notif}
	n.Hub.SendToUser(userID, payload)

	if n.RDB != nil {
		n.RDB.Publish(context.Background(), "notifications:"+userID.String(), notif.Message)
	}
}
