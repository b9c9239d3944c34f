package payout

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
	// ErrBelowMinimum rejects requests under models.MinWithdrawCoins.
	ErrBelowMinimum = errors.New("withdrawal is below the minimum of 200 coins")
	// ErrInvalidState guards the pending -> approved -> processed chain.
	ErrInvalidState  = errors.New("withdrawal is not in a state that allows this action")
	ErrInvalidMethod = errors.New("unsupported payment method")
	ErrNotAuthorized = errors.New("only an admin may review withdrawals")
)

// Service owns Withdrawal.Status and the ledger debit/credit tied to
// cash-outs.
type Service struct {
	DB     *gorm.DB
	Ledger *ledger.Service
}

func NewService(db *gorm.DB, ledgerSvc *ledger.Service) *Service {
	return &Service{DB: db, Ledger: ledgerSvc}
}

// Request debits the coins from the worker immediately (escrow at request
// time, not at approval time) and creates the pending withdrawal in the same
// transaction, so the visible balance never includes funds already committed
// to a pending cash-out.
func (s *Service) Request(workerID uuid.UUID, coins int64, method models.PaymentMethod, details string) (*models.Withdrawal, error) {
	if coins < models.MinWithdrawCoins {
		return nil, ErrBelowMinimum
	}
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}

	wd := models.Withdrawal{
		ID:             uuid.New(),
		WorkerID:       workerID,
		Coins:          coins,
		Amount:         models.WithdrawalAmount(coins),
		PaymentMethod:  method,
		PaymentDetails: details,
		Status:         models.WithdrawalStatusPending,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		desc := fmt.Sprintf("Withdrawal request of %d coins via %s", coins, method)
		if err := s.Ledger.Debit(tx, workerID, coins, models.CoinTrxWithdraw, &wd.ID, desc); err != nil {
			return err
		}
		return tx.Create(&wd).Error
	})
	if err != nil {
		return nil, err
	}
	return &wd, nil
}

// Approve acknowledges a pending request. The coins already left the balance
// at request time, so no ledger movement happens here.
func (s *Service) Approve(withdrawalID uuid.UUID, actor models.Actor) (*models.Withdrawal, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	var wd models.Withdrawal
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&wd, "id = ?", withdrawalID).Error; err != nil {
			return err
		}
		if wd.Status != models.WithdrawalStatusPending {
			return ErrInvalidState
		}
		wd.Status = models.WithdrawalStatusApproved
		return tx.Model(&models.Withdrawal{}).Where("id = ?", wd.ID).
			Update("status", models.WithdrawalStatusApproved).Error
	})
	if err != nil {
		return nil, err
	}
	return &wd, nil
}

// Reject restores the escrowed coins to the worker. The compensating credit
// and the status change are one atomic unit.
func (s *Service) Reject(withdrawalID uuid.UUID, actor models.Actor, reason string) (*models.Withdrawal, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	var wd models.Withdrawal
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&wd, "id = ?", withdrawalID).Error; err != nil {
			return err
		}
		if wd.Status != models.WithdrawalStatusPending {
			return ErrInvalidState
		}

		desc := fmt.Sprintf("Refund for rejected withdrawal (%s)", reason)
		if err := s.Ledger.Credit(tx, wd.WorkerID, wd.Coins, models.CoinTrxRefund, &wd.ID, desc); err != nil {
			return err
		}

		wd.Status = models.WithdrawalStatusRejected
		wd.RejectionReason = reason
		return tx.Model(&models.Withdrawal{}).Where("id = ?", wd.ID).Updates(map[string]interface{}{
			"status":           models.WithdrawalStatusRejected,
			"rejection_reason": reason,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &wd, nil
}

// MarkProcessed records that the approved payout left the platform via an
// external rail. Terminal; no ledger effect.
func (s *Service) MarkProcessed(withdrawalID uuid.UUID, actor models.Actor) (*models.Withdrawal, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	var wd models.Withdrawal
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&wd, "id = ?", withdrawalID).Error; err != nil {
			return err
		}
		if wd.Status != models.WithdrawalStatusApproved {
			return ErrInvalidState
		}

		now := time.Now()
		wd.Status = models.WithdrawalStatusProcessed
		wd.ProcessedAt = &now
		return tx.Model(&models.Withdrawal{}).Where("id = ?", wd.ID).Updates(map[string]interface{}{
			"status":       models.WithdrawalStatusProcessed,
			"processed_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &wd, nil
}
