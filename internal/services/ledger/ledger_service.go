package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/microearn/microearn/internal/models"
)

// ErrInsufficientBalance is returned when a debit would push a balance
// below zero. Balances are never clamped.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Service is the single writer of User.Coins. Every movement goes through
// Credit or Debit and leaves a CoinTransaction audit row.
type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Credit atomically increments the user's balance. Earn credits also bump
// the total_earned audit counter. Must be called within a DB transaction.
func (s *Service) Credit(tx *gorm.DB, userID uuid.UUID, amount int64, kind models.CoinTrxType, referenceID *uuid.UUID, description string) error {
	if amount <= 0 {
		return errors.New("amount to credit must be greater than zero")
	}

	updates := map[string]interface{}{
		"coins": gorm.Expr("coins + ?", amount),
	}
	if kind == models.CoinTrxEarn {
		updates["total_earned"] = gorm.Expr("total_earned + ?", amount)
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user not found for id %s", userID)
	}

	return s.record(tx, userID, amount, kind, referenceID, description)
}

// Debit atomically decrements the user's balance, failing with
// ErrInsufficientBalance when the balance cannot cover the amount. Spend
// debits also bump the total_spent audit counter. The balance check and the
// decrement are one conditional update, so two concurrent debits against the
// same user cannot both succeed past a shared balance.
func (s *Service) Debit(tx *gorm.DB, userID uuid.UUID, amount int64, kind models.CoinTrxType, referenceID *uuid.UUID, description string) error {
	if amount <= 0 {
		return errors.New("amount to debit must be greater than zero")
	}

	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", userID).Error; err != nil {
		return err
	}
	if user.Coins < amount {
		return ErrInsufficientBalance
	}

	updates := map[string]interface{}{
		"coins": gorm.Expr("coins - ?", amount),
	}
	if kind == models.CoinTrxSpend {
		updates["total_spent"] = gorm.Expr("total_spent + ?", amount)
	}

	result := tx.Model(&models.User{}).
		Where("id = ? AND coins >= ?", userID, amount).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientBalance
	}

	return s.record(tx, userID, amount, kind, referenceID, description)
}

func (s *Service) record(tx *gorm.DB, userID uuid.UUID, amount int64, kind models.CoinTrxType, referenceID *uuid.UUID, description string) error {
	entry := models.CoinTransaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount,
		Type:        kind,
		Description: description,
		ReferenceID: referenceID,
	}
	return tx.Create(&entry).Error
}
