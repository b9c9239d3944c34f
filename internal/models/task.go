package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Accepting reports whether new submissions may be created against the task.
// Completed and cancelled tasks stop accepting immediately.
func (s TaskStatus) Accepting() bool {
	return s == TaskStatusOpen || s == TaskStatusInProgress
}

// Cancellable is true while the buyer's escrow has unawarded slots left.
func (s TaskStatus) Cancellable() bool {
	return s == TaskStatusOpen || s == TaskStatusInProgress
}

type Task struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BuyerID uuid.UUID `gorm:"type:uuid;index;not null" json:"buyer_id"`

	Title       string `gorm:"type:varchar(200);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	// Fixed at creation. Escrow = CoinsPerWorker * RequiredWorkers is debited
	// from the buyer when the task row is created.
	CoinsPerWorker  int64 `gorm:"not null" json:"coins_per_worker"`
	RequiredWorkers int   `gorm:"not null" json:"required_workers"`

	// Count of approved submissions. Never exceeds RequiredWorkers.
	CurrentWorkers int `gorm:"not null;default:0" json:"current_workers"`

	Status   TaskStatus `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Deadline *time.Time `json:"deadline,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Buyer       *User        `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Submissions []Submission `gorm:"foreignKey:TaskID" json:"submissions,omitempty"`
}

// TotalEscrow is the amount debited from the buyer at creation.
func (t *Task) TotalEscrow() int64 {
	return t.CoinsPerWorker * int64(t.RequiredWorkers)
}

// RefundOnCancel is the unawarded portion of the escrow.
func (t *Task) RefundOnCancel() int64 {
	return t.CoinsPerWorker * int64(t.RequiredWorkers-t.CurrentWorkers)
}
