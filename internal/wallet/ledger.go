package wallet

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshkart/freshkart-backend/pkg/errors"
)

// clampRetries bounds the DebitUpTo read-then-debit loop under concurrent
// balance changes.
const clampRetries = 3

// Ledger moves wallet money with guarded single-statement updates. The
// balance can never go negative: debits are conditional on sufficient funds
// and fail closed when the guard does not match.
type Ledger interface {
	Balance(tx *gorm.DB, userID uuid.UUID) (decimal.Decimal, error)
	Credit(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error
	Debit(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error
	DebitUpTo(tx *gorm.DB, userID uuid.UUID, max decimal.Decimal) (decimal.Decimal, error)
}

type ledger struct{}

// NewLedger builds the wallet ledger.
func NewLedger() Ledger {
	return &ledger{}
}

// Balance returns the user's current wallet balance.
func (l *ledger) Balance(tx *gorm.DB, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	result := tx.Raw(`SELECT wallet_balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if result.Error != nil {
		return decimal.Zero, errors.Wrap(errors.CodeInternal, result.Error, "reading wallet balance")
	}
	if result.RowsAffected == 0 {
		return decimal.Zero, errors.New(errors.CodeNotFound, "user not found")
	}
	return balance, nil
}

// Credit adds amount to the user's wallet.
func (l *ledger) Credit(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New(errors.CodeValidation, "credit amount must not be negative")
	}
	if amount.IsZero() {
		return nil
	}

	result := tx.Exec(`
		UPDATE users
		SET wallet_balance = wallet_balance + ?
		WHERE id = ?`,
		amount, userID,
	)
	if result.Error != nil {
		return errors.Wrap(errors.CodeInternal, result.Error, "crediting wallet")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "user not found")
	}
	return nil
}

// Debit removes exactly amount from the wallet, failing with a conflict when
// funds are insufficient.
func (l *ledger) Debit(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.New(errors.CodeValidation, "debit amount must not be negative")
	}
	if amount.IsZero() {
		return nil
	}

	result := tx.Exec(`
		UPDATE users
		SET wallet_balance = wallet_balance - ?
		WHERE id = ? AND wallet_balance >= ?`,
		amount, userID, amount,
	)
	if result.Error != nil {
		return errors.Wrap(errors.CodeInternal, result.Error, "debiting wallet")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.CodeConflict, "insufficient wallet balance")
	}
	return nil
}

// DebitUpTo removes at most max from the wallet and returns the amount
// actually debited. When the balance has shrunk since the caller quoted the
// split, the debit clamps down to whatever remains instead of failing the
// whole checkout.
func (l *ledger) DebitUpTo(tx *gorm.DB, userID uuid.UUID, max decimal.Decimal) (decimal.Decimal, error) {
	if max.IsNegative() {
		return decimal.Zero, errors.New(errors.CodeValidation, "debit amount must not be negative")
	}
	if max.IsZero() {
		return decimal.Zero, nil
	}

	target := max
	for attempt := 0; attempt < clampRetries; attempt++ {
		if target.IsZero() {
			return decimal.Zero, nil
		}

		result := tx.Exec(`
			UPDATE users
			SET wallet_balance = wallet_balance - ?
			WHERE id = ? AND wallet_balance >= ?`,
			target, userID, target,
		)
		if result.Error != nil {
			return decimal.Zero, errors.Wrap(errors.CodeInternal, result.Error, "debiting wallet")
		}
		if result.RowsAffected == 1 {
			return target, nil
		}

		balance, err := l.Balance(tx, userID)
		if err != nil {
			return decimal.Zero, err
		}
		if balance.GreaterThan(max) {
			balance = max
		}
		target = balance
	}

	return decimal.Zero, errors.New(errors.CodeConflict, "wallet balance changed concurrently")
}
