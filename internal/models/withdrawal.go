package models

import (
	"time"

	"github.com/google/uuid"
)

type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
	WithdrawalStatusProcessed WithdrawalStatus = "processed"
)

type PaymentMethod string

const (
	PaymentMethodPaypal PaymentMethod = "paypal"
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodCrypto PaymentMethod = "crypto"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodPaypal || m == PaymentMethodBank || m == PaymentMethodCrypto
}

const (
	// MinWithdrawCoins is the smallest cash-out a worker may request.
	MinWithdrawCoins int64 = 200
	// CoinsPerUnit is the fixed exchange rate: 20 coins = 1 currency unit.
	CoinsPerUnit int64 = 20
)

// WithdrawalAmount converts coins to currency units at the fixed rate.
func WithdrawalAmount(coins int64) float64 {
	return float64(coins) / float64(CoinsPerUnit)
}

type Withdrawal struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkerID uuid.UUID `gorm:"type:uuid;not null;index" json:"worker_id"`

	// Coins are debited from the worker at request time and restored only
	// on rejection.
	Coins  int64   `gorm:"not null" json:"coins"`
	Amount float64 `gorm:"not null" json:"amount"`

	PaymentMethod  PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentDetails string        `gorm:"type:text" json:"payment_details"`

	Status          WithdrawalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RejectionReason string           `gorm:"type:text" json:"rejection_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	Worker *User `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
}
