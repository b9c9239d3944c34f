package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Terminal statuses permit no further review.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

type Submission struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaskID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_task_worker" json:"task_id"`
	WorkerID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_task_worker" json:"worker_id"`

	SubmissionText string `gorm:"type:text" json:"submission_text"`
	// Ordered list of proof image URLs.
	SubmissionImages datatypes.JSON `json:"submission_images"`

	Status SubmissionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// Set only on approval; equals the task's CoinsPerWorker.
	CoinsAwarded int64 `gorm:"not null;default:0" json:"coins_awarded"`
	// Set only on rejection.
	RejectionReason string `gorm:"type:text" json:"rejection_reason,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	Task   *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Worker *User `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
}
