package cart

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/errors"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

// ItemView is a cart line with its price re-derived from the live product.
type ItemView struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
	Selected     bool            `json:"selected"`
	InStock      bool            `json:"inStock"`
	Available    int             `json:"available"`
}

// Summary aggregates the selected, purchasable lines.
type Summary struct {
	SelectedCount  int             `json:"selectedCount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	Total          decimal.Decimal `json:"total"`
	FreeDelivery   bool            `json:"freeDelivery"`
}

// View is the full cart payload returned to clients.
type View struct {
	Items   []ItemView `json:"items"`
	Summary Summary    `json:"summary"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the mutable pre-checkout cart. Prices are never stored on
// cart rows; every read reprices against the catalog.
type Service interface {
	View(ctx context.Context, userID uuid.UUID) (*View, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	SetSelected(ctx context.Context, userID, productID uuid.UUID, selected bool) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Count(ctx context.Context, userID uuid.UUID) (int64, error)
	Merge(ctx context.Context, fromUserID, toUserID uuid.UUID) error
}

type service struct {
	repo *Repo
	tx   txRunner
	logg *logger.Logger

	freeDeliveryThreshold decimal.Decimal
	deliveryCharge        decimal.Decimal
}

// NewService wires the cart service.
func NewService(repo *Repo, tx txRunner, logg *logger.Logger, freeDeliveryThreshold, deliveryCharge decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "cart repo required")
	}
	if tx == nil {
		return nil, errors.New(errors.CodeInternal, "tx runner required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "logger required")
	}
	return &service{
		repo:                  repo,
		tx:                    tx,
		logg:                  logg,
		freeDeliveryThreshold: freeDeliveryThreshold,
		deliveryCharge:        deliveryCharge,
	}, nil
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*View, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "listing cart items")
	}
	return s.buildView(items), nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, errors.New(errors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadPurchasableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	// Add is a top-up: repeated clicks accumulate, and the quantity caps at
	// the available stock instead of failing the click that crossed the line.
	// Setting an exact amount over stock is an explicit choice, so
	// UpdateQuantity rejects it instead.
	existing, err := s.repo.Find(ctx, userID, productID)
	switch {
	case err == nil:
		newQuantity := existing.Quantity + quantity
		if newQuantity > product.StockQuantity {
			newQuantity = product.StockQuantity
		}
		existing.Quantity = newQuantity
		if err := s.repo.Save(ctx, existing); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "updating cart item")
		}
	case stdErrors.Is(err, gorm.ErrRecordNotFound):
		if quantity > product.StockQuantity {
			quantity = product.StockQuantity
		}
		item := &models.CartItem{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
			Selected:  true,
		}
		if err := s.repo.Create(ctx, item); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "creating cart item")
		}
	default:
		return nil, errors.Wrap(errors.CodeInternal, err, "finding cart item")
	}

	return s.View(ctx, userID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, errors.New(errors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadPurchasableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.StockQuantity {
		return nil, errors.New(errors.CodeConflict, "insufficient stock for product").
			WithDetails(map[string]any{
				"product":   product.Name,
				"available": product.StockQuantity,
				"requested": quantity,
			})
	}

	item, err := s.repo.Find(ctx, userID, productID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "cart item not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "finding cart item")
	}

	item.Quantity = quantity
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "updating cart item")
	}
	return s.View(ctx, userID)
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	affected, err := s.repo.Delete(ctx, userID, productID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "removing cart item")
	}
	if affected == 0 {
		return nil, errors.New(errors.CodeNotFound, "cart item not found")
	}
	return s.View(ctx, userID)
}

func (s *service) SetSelected(ctx context.Context, userID, productID uuid.UUID, selected bool) (*View, error) {
	affected, err := s.repo.SetSelected(ctx, userID, productID, selected)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "updating cart selection")
	}
	if affected == 0 {
		return nil, errors.New(errors.CodeNotFound, "cart item not found")
	}
	return s.View(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func (s *service) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.Count(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(errors.CodeInternal, err, "counting cart items")
	}
	return count, nil
}

// Merge folds a guest cart into the signed-in user's cart. Quantities add up
// for shared products; the destination row's selection flag wins.
func (s *service) Merge(ctx context.Context, fromUserID, toUserID uuid.UUID) error {
	if fromUserID == toUserID {
		return nil
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		sourceItems, err := txRepo.List(ctx, fromUserID)
		if err != nil {
			return err
		}

		for _, sourceItem := range sourceItems {
			target, err := txRepo.Find(ctx, toUserID, sourceItem.ProductID)
			switch {
			case err == nil:
				target.Quantity += sourceItem.Quantity
				if sourceItem.Product != nil && target.Quantity > sourceItem.Product.StockQuantity {
					target.Quantity = sourceItem.Product.StockQuantity
				}
				if err := txRepo.Save(ctx, target); err != nil {
					return err
				}
			case stdErrors.Is(err, gorm.ErrRecordNotFound):
				moved := &models.CartItem{
					UserID:    toUserID,
					ProductID: sourceItem.ProductID,
					Quantity:  sourceItem.Quantity,
					Selected:  sourceItem.Selected,
				}
				if err := txRepo.Create(ctx, moved); err != nil {
					return err
				}
			default:
				return err
			}
		}

		return txRepo.Clear(ctx, fromUserID)
	})
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "merging carts")
	}

	s.logg.Info(s.logg.WithUserID(ctx, toUserID.String()), "guest cart merged")
	return nil
}

func (s *service) loadPurchasableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "product not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading product")
	}
	if !product.IsActive {
		return nil, errors.New(errors.CodeConflict, "product is no longer available").
			WithDetails(map[string]any{"product": product.Name})
	}
	if product.StockQuantity <= 0 {
		return nil, errors.New(errors.CodeConflict, "product is out of stock").
			WithDetails(map[string]any{"product": product.Name})
	}
	return product, nil
}

func (s *service) buildView(items []models.CartItem) *View {
	view := &View{
		Items: make([]ItemView, 0, len(items)),
		Summary: Summary{
			Subtotal:       decimal.Zero,
			DeliveryCharge: decimal.Zero,
			Total:          decimal.Zero,
		},
	}

	for _, item := range items {
		if item.Product == nil {
			continue
		}
		product := item.Product

		line := ItemView{
			ID:           item.ID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.ImageURL,
			UnitPrice:    product.Price,
			Quantity:     item.Quantity,
			LineTotal:    product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			Selected:     item.Selected,
			InStock:      product.IsActive && product.StockQuantity >= item.Quantity,
			Available:    product.StockQuantity,
		}
		view.Items = append(view.Items, line)

		if line.Selected && line.InStock {
			view.Summary.SelectedCount++
			view.Summary.Subtotal = view.Summary.Subtotal.Add(line.LineTotal)
		}
	}

	if view.Summary.SelectedCount > 0 {
		if view.Summary.Subtotal.GreaterThanOrEqual(s.freeDeliveryThreshold) {
			view.Summary.FreeDelivery = true
		} else {
			view.Summary.DeliveryCharge = s.deliveryCharge
		}
	}
	view.Summary.Total = view.Summary.Subtotal.Add(view.Summary.DeliveryCharge)
	return view
}
