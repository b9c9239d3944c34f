package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message shown on the user's dashboard and pushed
// over the websocket hub. Delivery to external channels is out of scope.
type Notification struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	Message     string `gorm:"type:text;not null" json:"message"`
	ActionRoute string `gorm:"type:varchar(200)" json:"action_route"`
	IsRead      bool   `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}
