package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/errors"
)

// Line is a priced cart entry, re-derived from the live product row.
type Line struct {
	ProductID    uuid.UUID
	ProductName  string
	ProductImage string
	UnitPrice    decimal.Decimal
	Quantity     int
	LineTotal    decimal.Decimal
}

// Quote is the full price breakdown for a set of selected cart items.
type Quote struct {
	Lines          []Line
	Subtotal       decimal.Decimal
	DeliveryCharge decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal
}

// Engine prices selected cart items against live catalog state. It never
// persists anything; callers re-run it inside the checkout transaction so the
// stored order always reflects prices at commit time.
type Engine interface {
	Quote(items []models.CartItem) (*Quote, error)
}

type engine struct {
	freeDeliveryThreshold decimal.Decimal
	deliveryCharge        decimal.Decimal
}

// NewEngine builds a pricing engine with the configured delivery rules.
func NewEngine(freeDeliveryThreshold, deliveryCharge decimal.Decimal) Engine {
	return &engine{
		freeDeliveryThreshold: freeDeliveryThreshold,
		deliveryCharge:        deliveryCharge,
	}
}

func (e *engine) Quote(items []models.CartItem) (*Quote, error) {
	if len(items) == 0 {
		return nil, errors.New(errors.CodeValidation, "no items selected for checkout")
	}

	quote := &Quote{
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
	}

	for _, item := range items {
		if item.Product == nil {
			return nil, errors.New(errors.CodeInternal, "cart item loaded without product")
		}
		product := item.Product

		if !product.IsActive {
			return nil, errors.New(errors.CodeConflict, "product is no longer available").
				WithDetails(map[string]any{"product": product.Name})
		}
		if product.StockQuantity <= 0 {
			return nil, errors.New(errors.CodeConflict, "product is out of stock").
				WithDetails(map[string]any{"product": product.Name})
		}
		if item.Quantity > product.StockQuantity {
			return nil, errors.New(errors.CodeConflict, "insufficient stock for product").
				WithDetails(map[string]any{
					"product":   product.Name,
					"available": product.StockQuantity,
					"requested": item.Quantity,
				})
		}

		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		quote.Lines = append(quote.Lines, Line{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.ImageURL,
			UnitPrice:    product.Price,
			Quantity:     item.Quantity,
			LineTotal:    lineTotal,
		})
		quote.Subtotal = quote.Subtotal.Add(lineTotal)
	}

	if quote.Subtotal.GreaterThanOrEqual(e.freeDeliveryThreshold) {
		quote.DeliveryCharge = decimal.Zero
	} else {
		quote.DeliveryCharge = e.deliveryCharge
	}

	quote.Total = quote.Subtotal.Add(quote.DeliveryCharge).Sub(quote.Discount)
	return quote, nil
}
