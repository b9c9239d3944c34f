package models

import (
	"time"

	"github.com/google/uuid"
)

type CoinTrxType string

const (
	CoinTrxEarn     CoinTrxType = "earn"     // approved submission payout
	CoinTrxSpend    CoinTrxType = "spend"    // task escrow debit
	CoinTrxWithdraw CoinTrxType = "withdraw" // cash-out escrow debit
	CoinTrxRefund   CoinTrxType = "refund"   // cancellation / rejected withdrawal
	CoinTrxPurchase CoinTrxType = "purchase" // coins minted from a payment event
	CoinTrxBonus    CoinTrxType = "bonus"    // one-time role-selection grant
)

// CoinTransaction is the append-only audit row written for every balance
// movement. Amount is always positive; Type carries the direction.
type CoinTransaction struct {
	ID          uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID   `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount      int64       `gorm:"not null" json:"amount"`
	Type        CoinTrxType `gorm:"type:varchar(20);not null" json:"type"`
	Description string      `gorm:"type:text" json:"description"`
	// ID of the task, submission, withdrawal or payment this movement settles.
	ReferenceID *uuid.UUID `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}
