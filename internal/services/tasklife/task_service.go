package tasklife

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/microearn/microearn/internal/models"
	"github.com/microearn/microearn/internal/services/ledger"
)

var (
	// ErrInvalidTaskState is returned when acting on a task already in a
	// terminal state (completed or cancelled).
	ErrInvalidTaskState = errors.New("task is in a terminal state")
	// ErrTaskAlreadyFull guards the fill counter against concurrent approvals.
	ErrTaskAlreadyFull = errors.New("task already has the required number of workers")
	ErrNotAuthorized   = errors.New("not authorized for this task")
)

// Service owns Task.Status and Task.CurrentWorkers.
type Service struct {
	DB     *gorm.DB
	Ledger *ledger.Service
}

func NewService(db *gorm.DB, ledgerSvc *ledger.Service) *Service {
	return &Service{DB: db, Ledger: ledgerSvc}
}

type CreateInput struct {
	Title           string
	Description     string
	CoinsPerWorker  int64
	RequiredWorkers int
	Deadline        *time.Time
}

// Create debits the full escrow from the buyer and creates the task row as
// one atomic unit. The task is never persisted if the debit fails.
func (s *Service) Create(buyerID uuid.UUID, in CreateInput) (*models.Task, error) {
	if in.CoinsPerWorker <= 0 {
		return nil, errors.New("coins per worker must be a positive integer")
	}
	if in.RequiredWorkers <= 0 {
		return nil, errors.New("required workers must be a positive integer")
	}

	task := models.Task{
		ID:              uuid.New(),
		BuyerID:         buyerID,
		Title:           in.Title,
		Description:     in.Description,
		CoinsPerWorker:  in.CoinsPerWorker,
		RequiredWorkers: in.RequiredWorkers,
		Status:          models.TaskStatusOpen,
		Deadline:        in.Deadline,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		desc := fmt.Sprintf("Escrow for task %q (%d workers x %d coins)", in.Title, in.RequiredWorkers, in.CoinsPerWorker)
		if err := s.Ledger.Debit(tx, buyerID, task.TotalEscrow(), models.CoinTrxSpend, &task.ID, desc); err != nil {
			return err
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// IncrementFill bumps the approved-worker counter under a row lock. Invoked
// only by the submission review workflow, inside its approval transaction.
// open -> in_progress on the first fill, -> completed when the requirement
// is met.
func (s *Service) IncrementFill(tx *gorm.DB, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&task, "id = ?", taskID).Error; err != nil {
		return nil, err
	}

	// A cancelled task's unawarded escrow was already refunded to the buyer;
	// filling a slot on it would pay coins with no backing.
	if !task.Status.Accepting() {
		return nil, ErrInvalidTaskState
	}
	if task.CurrentWorkers >= task.RequiredWorkers {
		return nil, ErrTaskAlreadyFull
	}

	task.CurrentWorkers++
	if task.CurrentWorkers == task.RequiredWorkers {
		task.Status = models.TaskStatusCompleted
	} else if task.Status == models.TaskStatusOpen {
		task.Status = models.TaskStatusInProgress
	}

	if err := tx.Model(&models.Task{}).Where("id = ?", task.ID).Updates(map[string]interface{}{
		"current_workers": task.CurrentWorkers,
		"status":          task.Status,
	}).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Cancel refunds the unawarded escrow to the buyer and marks the task
// cancelled, atomically. Allowed only for the owning buyer or an admin while
// the task is open or in progress.
func (s *Service) Cancel(taskID uuid.UUID, actor models.Actor) (*models.Task, error) {
	var task models.Task
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&task, "id = ?", taskID).Error; err != nil {
			return err
		}

		if !actor.IsAdmin() && actor.ID != task.BuyerID {
			return ErrNotAuthorized
		}
		if !task.Status.Cancellable() {
			return ErrInvalidTaskState
		}

		if refund := task.RefundOnCancel(); refund > 0 {
			desc := fmt.Sprintf("Refund for cancelled task %q", task.Title)
			if err := s.Ledger.Credit(tx, task.BuyerID, refund, models.CoinTrxRefund, &task.ID, desc); err != nil {
				return err
			}
		}

		task.Status = models.TaskStatusCancelled
		return tx.Model(&models.Task{}).Where("id = ?", task.ID).
			Update("status", models.TaskStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}
