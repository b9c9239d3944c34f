package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/services/tasklife"
)

type TaskHandler struct {
	DB       *gorm.DB
	Tasks    *tasklife.Service
	Notifier *Notifier
}

func NewTaskHandler(db *gorm.DB, taskSvc *tasklife.Service, notifier *Notifier) *TaskHandler {
	return &TaskHandler{DB: db, Tasks: taskSvc, Notifier: notifier}
}

type CreateTaskReq struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	CoinsPerWorker  int64  `json:"coins_per_worker"`
	RequiredWorkers int    `json:"required_workers"`
	Deadline        string `json:"deadline"` // ISO date, optional
}

// CreateTask escrows coins_per_worker x required_workers from the buyer and
// opens the task. The buyer sees the full budget leave their balance at once.
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	var req CreateTaskReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}

	if req.Title == "" {
		return fail(c, fiber.StatusBadRequest, "Title is required")
	}
	if req.CoinsPerWorker <= 0 {
		return fail(c, fiber.StatusBadRequest, "Coins per worker must be a positive integer")
	}
	if req.RequiredWorkers <= 0 {
		return fail(c, fiber.StatusBadRequest, "Required workers must be a positive integer")
	}

	in := tasklife.CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		CoinsPerWorker:  req.CoinsPerWorker,
		RequiredWorkers: req.RequiredWorkers,
	}
	if req.Deadline != "" {
		d, err := time.Parse("2006-01-02", req.Deadline)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid deadline format, expected YYYY-MM-DD")
		}
		in.Deadline = &d
	}

	task, err := h.Tasks.Create(uID, in)
	if err != nil {
		return svcError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Task created",
		"data":    task,
	})
}

// CancelTask refunds the unawarded escrow. Buyers may cancel their own
// tasks; admins may cancel any.
func (h *TaskHandler) CancelTask(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return svcError(c, err)
	}

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	task, err := h.Tasks.Cancel(taskID, actor)
	if err != nil {
		return svcError(c, err)
	}

	if actor.Role == models.RoleAdmin && actor.ID != task.BuyerID {
		h.Notifier.Notify(task.BuyerID,
			fmt.Sprintf("Your task %q was cancelled by an admin. Unused escrow has been refunded.", task.Title),
			"/buyer/tasks")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Task cancelled",
		"data":    task,
	})
}

// ListOpen is the public browse view for workers: tasks still accepting
// submissions, newest first.
func (h *TaskHandler) ListOpen(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	q := h.DB.Model(&models.Task{}).
		Where("status IN ?", []models.TaskStatus{models.TaskStatusOpen, models.TaskStatusInProgress})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list tasks")
	}

	var tasks []models.Task
	if err := q.Preload("Buyer").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&tasks).Error; err != nil {
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

func (h *TaskHandler) GetDetail(c *fiber.Ctx) error {
	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var task models.Task
	if err := h.DB.Preload("Buyer").First(&task, "id = ?", taskID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// ListMine returns the buyer's own tasks with their fill progress.
func (h *TaskHandler) ListMine(c *fiber.Ctx) error {
	uID, err := getAuth(c)
	if err != nil {
		return svcError(c, err)
	}

	status := c.Query("status")
	q := h.DB.Model(&models.Task{}).Where("buyer_id = ?", uID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var tasks []models.Task
	if err := q.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list tasks")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    tasks,
	})
}
