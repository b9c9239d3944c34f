package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleWorker Role = "worker"
	RoleBuyer  Role = "buyer"
	RoleAdmin  Role = "admin"
)

// RoleNone is the state between registration and role selection.
const RoleNone Role = ""

func (r Role) Valid() bool {
	return r == RoleWorker || r == RoleBuyer || r == RoleAdmin
}

// Selectable reports whether a user may pick this role at role-selection.
// Admin is never self-assignable.
func (r Role) Selectable() bool {
	return r == RoleWorker || r == RoleBuyer
}

// Initial coin grant at role selection, one-time per account.
const (
	InitialCoinsWorker int64 = 10
	InitialCoinsBuyer  int64 = 50
)

// Actor identifies who is performing a state-changing operation.
// System is set only by the auto-approval sweep.
type Actor struct {
	ID     uuid.UUID
	Role   Role
	System bool
}

func SystemActor() Actor { return Actor{System: true} }

// CanDecideFor reports whether the actor may review work belonging to the
// given buyer. The system actor bypasses the ownership check.
func (a Actor) CanDecideFor(buyerID uuid.UUID) bool {
	return a.System || a.Role == RoleAdmin || a.ID == buyerID
}

func (a Actor) IsAdmin() bool {
	return a.System || a.Role == RoleAdmin
}

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	PhotoURL    string    `gorm:"type:text" json:"photo_url"`

	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);index" json:"role"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Coins is the spendable balance. Written only by the ledger service.
	Coins int64 `gorm:"not null;default:0" json:"coins"`

	// Monotonic audit counters, not part of the spendable balance.
	TotalEarned int64 `gorm:"not null;default:0" json:"total_earned"`
	TotalSpent  int64 `gorm:"not null;default:0" json:"total_spent"`

	InitialCoinsReceived bool `gorm:"default:false" json:"initial_coins_received"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
