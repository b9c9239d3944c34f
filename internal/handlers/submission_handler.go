package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/services/review"
)

type SubmissionHandler struct {
	DB       *gorm.DB
	Review   *review.Service
	Notifier *Notifier

	// How long a submission may sit pending before the sweep approves it.
	AutoApproveAfter time.Duration
	SweepInterval    time.Duration
}

func NewSubmissionHandler(db *gorm.DB, reviewSvc *review.Service, notifier *Notifier, autoApproveAfter, sweepInterval time.Duration) *SubmissionHandler {
	return &SubmissionHandler{
		DB:               db,
		Review:           reviewSvc,
		Notifier:         notifier,
		AutoApproveAfter: autoApproveAfter,
		SweepInterval:    sweepInterval,
	}
}

type SubmitReq struct {
	TaskID           string   `json:"task_id"`
	SubmissionText   string   `json:"submission_text"`
	SubmissionImages []string `json:"submission_images"`
}

func (h *SubmissionHandler) Submit(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var req SubmitReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}
	if req.SubmissionText == "" {
		return fail(c, fiber.StatusBadRequest, "Submission text is required")
	}

	sub, err := h.Review.Submit(taskID, uID, req.SubmissionText, req.SubmissionImages)
	if err != nil {
		return svcError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Submission received",
		"data":    sub,
	})
}

// ListMine returns the worker's own submissions, newest first.
func (h *SubmissionHandler) ListMine(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var subs []models.Submission
	if err := h.DB.Preload("Task").
		Where("worker_id = ?", uID).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list submissions")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    subs,
	})
}

// ListForTask returns a task's submissions to its owning buyer (or an admin).
func (h *SubmissionHandler) ListForTask(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return svcError(c, err)
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", taskID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}
	if !actor.CanDecideFor(task.BuyerID) {
		return fail(c, fiber.StatusForbidden, "You are not allowed to view these submissions")
	}

	var subs []models.Submission
	if err := h.DB.Preload("Worker").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&subs).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list submissions")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    subs,
	})
}

func (h *SubmissionHandler) Approve(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return svcError(c, err)
	}

	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid submission ID")
	}

	sub, err := h.Review.Approve(subID, actor)
	if err != nil {
		return svcError(c, err)
	}

	h.Notifier.Notify(sub.WorkerID,
		fmt.Sprintf("Your submission was approved. %d coins have been added to your balance.", sub.CoinsAwarded),
		"/worker/submissions")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Submission approved",
		"data":    sub,
	})
}

type RejectReq struct {
	Reason string `json:"reason"`
}

func (h *SubmissionHandler) Reject(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return svcError(c, err)
	}

	subID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid submission ID")
	}

	var req RejectReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}

	sub, err := h.Review.Reject(subID, actor, req.Reason)
	if err != nil {
		return svcError(c, err)
	}

	h.Notifier.Notify(sub.WorkerID,
		fmt.Sprintf("Your submission was rejected: %s", sub.RejectionReason),
		"/worker/submissions")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Submission rejected",
		"data":    sub,
	})
}

// StartAutoApprovalWorker runs the background sweep that approves
// submissions the buyer never reviewed.
func (h *SubmissionHandler) StartAutoApprovalWorker() {
	ticker := time.NewTicker(h.SweepInterval)
	go func() {
		for range ticker.C {
			log.Println("[AutoApprovalWorker] Scanning for stale pending submissions...")
			h.sweepPending()
		}
	}()
}

func (h *SubmissionHandler) sweepPending() {
	cutoff := time.Now().Add(-h.AutoApproveAfter)

	subs, err := h.Review.PendingOlderThan(cutoff)
	if err != nil {
		log.Printf("[AutoApprovalWorker] Error fetching pending submissions: %v", err)
		return
	}

	for _, sub := range subs {
		approved, err := h.Review.Approve(sub.ID, models.SystemActor())
		if err != nil {
			// TaskAlreadyFull here means other pending submissions won the
			// remaining slots; the scan query stops returning this row once
			// the task completes.
			log.Printf("[AutoApprovalWorker] Skipping submission %s: %v", sub.ID, err)
			continue
		}

		log.Printf("[AutoApprovalWorker] Auto-approved submission %s (task %s)", approved.ID, approved.TaskID)

		h.Notifier.Notify(approved.WorkerID,
			fmt.Sprintf("Your submission was auto-approved after the review window. %d coins have been added to your balance.", approved.CoinsAwarded),
			"/worker/submissions")
		if approved.Task != nil {
			h.Notifier.Notify(approved.Task.BuyerID,
				"A pending submission on your task was auto-approved after the review window.",
				"/buyer/tasks")
		}
	}
}
