package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// CoinPacks maps purchasable coin amounts to their price in currency units.
var CoinPacks = map[int64]int64{
	10:   1,
	150:  10,
	500:  20,
	1000: 35,
}

// CoinPackPrice returns the price for a pack, or false for unknown packs.
func CoinPackPrice(coins int64) (int64, bool) {
	price, ok := CoinPacks[coins]
	return price, ok
}

// Payment is the audit row for the external payment collaborator. EventID is
// the processor's reference and doubles as the idempotency key: the unique
// index guarantees a succeeded event mints coins at most once.
type Payment struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BuyerID uuid.UUID `gorm:"type:uuid;index;not null" json:"buyer_id"`

	EventID string `gorm:"type:varchar(64);uniqueIndex;not null" json:"event_id"`

	Coins  int64 `gorm:"not null" json:"coins"`
	Amount int64 `gorm:"not null" json:"amount"`

	Method      string        `gorm:"type:varchar(50)" json:"method"`
	CheckoutURL string        `gorm:"type:text" json:"checkout_url,omitempty"`
	Status      PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Buyer *User `gorm:"foreignKey:BuyerID" json:"-"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
