package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshkart/freshkart-backend/pkg/errors"
)

// Service exposes read access to wallet balances outside a checkout or
// cancellation transaction. Mutations stay on the Ledger so money only moves
// inside transactions.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	conn   *gorm.DB
	ledger Ledger
}

// NewService wires the wallet read service.
func NewService(conn *gorm.DB, ledger Ledger) (Service, error) {
	if conn == nil {
		return nil, errors.New(errors.CodeInternal, "db connection required")
	}
	if ledger == nil {
		return nil, errors.New(errors.CodeInternal, "wallet ledger required")
	}
	return &service{conn: conn, ledger: ledger}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.ledger.Balance(s.conn.WithContext(ctx), userID)
}
