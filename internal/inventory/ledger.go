package inventory

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshkart/freshkart-backend/pkg/errors"
)

// Ledger applies stock movements with guarded single-statement updates so
// concurrent checkouts can never oversell. Every method takes the caller's
// transaction handle; the ledger itself holds no connection.
type Ledger interface {
	Reserve(tx *gorm.DB, productID uuid.UUID, quantity int) error
	Restore(tx *gorm.DB, productID uuid.UUID, quantity int) error
}

type ledger struct{}

// NewLedger builds the inventory ledger.
func NewLedger() Ledger {
	return &ledger{}
}

// Reserve decrements stock and bumps the sold counter. The WHERE guard makes
// the decrement conditional on sufficient stock; zero rows affected means a
// concurrent order won the race.
func (l *ledger) Reserve(tx *gorm.DB, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return errors.New(errors.CodeValidation, "reserve quantity must be positive")
	}

	result := tx.Exec(`
		UPDATE products
		SET stock_quantity = stock_quantity - ?,
		    orders_count = orders_count + 1
		WHERE id = ? AND stock_quantity >= ?`,
		quantity, productID, quantity,
	)
	if result.Error != nil {
		return errors.Wrap(errors.CodeInternal, result.Error, "reserving stock")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.CodeConflict, "insufficient stock for product").
			WithDetails(map[string]any{"productId": productID.String()})
	}
	return nil
}

// Restore returns reserved stock after a cancellation. The sold counter is
// floored at zero with a CASE expression rather than relying on a dialect
// specific GREATEST.
func (l *ledger) Restore(tx *gorm.DB, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return errors.New(errors.CodeValidation, "restore quantity must be positive")
	}

	result := tx.Exec(`
		UPDATE products
		SET stock_quantity = stock_quantity + ?,
		    orders_count = CASE WHEN orders_count > 0 THEN orders_count - 1 ELSE 0 END
		WHERE id = ?`,
		quantity, productID,
	)
	if result.Error != nil {
		return errors.Wrap(errors.CodeInternal, result.Error, "restoring stock")
	}
	return nil
}
