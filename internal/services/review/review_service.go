package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/services/ledger"
	"github.com/microearn/microearn/internal/services/tasklife"
)

var (
	// ErrTaskNotOpen is returned when submitting against a task that is no
	// longer accepting work (completed or cancelled).
	ErrTaskNotOpen = errors.New("task is not accepting submissions")
	// ErrDuplicateSubmission enforces one submission per (task, worker) pair.
	ErrDuplicateSubmission = errors.New("worker already submitted for this task")
	// ErrAlreadyReviewed marks approved/rejected as terminal states.
	ErrAlreadyReviewed = errors.New("submission has already been reviewed")
	ErrNotAuthorized   = errors.New("only the task's buyer may review this submission")
	ErrEmptyReason     = errors.New("rejection reason is required")
)

// Service owns Submission.Status and is the only caller of the ledger credit
// tied to task completion.
type Service struct {
	DB     *gorm.DB
	Ledger *ledger.Service
	Tasks  *tasklife.Service
}

func NewService(db *gorm.DB, ledgerSvc *ledger.Service, taskSvc *tasklife.Service) *Service {
	return &Service{DB: db, Ledger: ledgerSvc, Tasks: taskSvc}
}

// Submit creates a pending submission for the worker. A composite unique
// index on (task_id, worker_id) backs the duplicate check under races.
func (s *Service) Submit(taskID, workerID uuid.UUID, text string, images []string) (*models.Submission, error) {
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		return nil, err
	}
	if !task.Status.Accepting() {
		return nil, ErrTaskNotOpen
	}

	var existing int64
	if err := s.DB.Model(&models.Submission{}).
		Where("task_id = ? AND worker_id = ?", taskID, workerID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrDuplicateSubmission
	}

	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}

	sub := models.Submission{
		ID:               uuid.New(),
		TaskID:           taskID,
		WorkerID:         workerID,
		SubmissionText:   text,
		SubmissionImages: datatypes.JSON(imagesJSON),
		Status:           models.SubmissionStatusPending,
	}
	if err := s.DB.Create(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateSubmission
		}
		return nil, err
	}
	return &sub, nil
}

// Approve pays the worker and fills a task slot as one atomic unit: the
// submission status change, the fill-count increment and the ledger credit
// either all commit or the submission stays pending.
func (s *Service) Approve(submissionID uuid.UUID, actor models.Actor) (*models.Submission, error) {
	var sub models.Submission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sub, "id = ?", submissionID).Error; err != nil {
			return err
		}
		if sub.Status.Terminal() {
			return ErrAlreadyReviewed
		}

		var task models.Task
		if err := tx.First(&task, "id = ?", sub.TaskID).Error; err != nil {
			return err
		}
		if !actor.CanDecideFor(task.BuyerID) {
			return ErrNotAuthorized
		}

		// Pending submissions may outnumber remaining slots; approvals are
		// first-come-first-approved up to RequiredWorkers.
		updatedTask, err := s.Tasks.IncrementFill(tx, task.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		sub.Status = models.SubmissionStatusApproved
		sub.CoinsAwarded = task.CoinsPerWorker
		sub.ReviewedAt = &now
		if err := tx.Model(&models.Submission{}).Where("id = ?", sub.ID).Updates(map[string]interface{}{
			"status":        models.SubmissionStatusApproved,
			"coins_awarded": task.CoinsPerWorker,
			"reviewed_at":   now,
		}).Error; err != nil {
			return err
		}

		desc := fmt.Sprintf("Payout for approved work on task %q", task.Title)
		if err := s.Ledger.Credit(tx, sub.WorkerID, task.CoinsPerWorker, models.CoinTrxEarn, &sub.ID, desc); err != nil {
			return err
		}

		sub.Task = updatedTask
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Reject is terminal and moves no coins: the buyer's escrow for that slot
// stays available for another worker's submission.
func (s *Service) Reject(submissionID uuid.UUID, actor models.Actor, reason string) (*models.Submission, error) {
	if reason == "" {
		return nil, ErrEmptyReason
	}

	var sub models.Submission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sub, "id = ?", submissionID).Error; err != nil {
			return err
		}
		if sub.Status.Terminal() {
			return ErrAlreadyReviewed
		}

		var task models.Task
		if err := tx.First(&task, "id = ?", sub.TaskID).Error; err != nil {
			return err
		}
		if !actor.CanDecideFor(task.BuyerID) {
			return ErrNotAuthorized
		}

		now := time.Now()
		sub.Status = models.SubmissionStatusRejected
		sub.RejectionReason = reason
		sub.ReviewedAt = &now
		sub.Task = &task
		return tx.Model(&models.Submission{}).Where("id = ?", sub.ID).Updates(map[string]interface{}{
			"status":           models.SubmissionStatusRejected,
			"rejection_reason": reason,
			"reviewed_at":      now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// PendingOlderThan lists submissions awaiting review since before the cutoff
// whose task can still accept approvals. Used by the auto-approval sweep.
func (s *Service) PendingOlderThan(cutoff time.Time) ([]models.Submission, error) {
	var subs []models.Submission
	err := s.DB.
		Joins("JOIN tasks ON tasks.id = submissions.task_id").
		Where("submissions.status = ?", models.SubmissionStatusPending).
		Where("submissions.created_at <= ?", cutoff).
		Where("tasks.status IN ?", []models.TaskStatus{models.TaskStatusOpen, models.TaskStatusInProgress}).
		Find(&subs).Error
	return subs, err
}
