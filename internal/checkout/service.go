package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshkart/freshkart-backend/internal/cart"
	"github.com/freshkart/freshkart-backend/internal/inventory"
	"github.com/freshkart/freshkart-backend/internal/notifications"
	"github.com/freshkart/freshkart-backend/internal/orders"
	"github.com/freshkart/freshkart-backend/internal/pricing"
	"github.com/freshkart/freshkart-backend/internal/wallet"
	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/enums"
	"github.com/freshkart/freshkart-backend/pkg/errors"
	"github.com/freshkart/freshkart-backend/pkg/logger"
	"github.com/freshkart/freshkart-backend/pkg/metrics"
	"github.com/freshkart/freshkart-backend/pkg/razorpay"
)

// Address is the delivery snapshot captured onto the order at creation.
type Address struct {
	Name       string
	Phone      string
	Address    string
	City       string
	State      string
	PostalCode string
	Landmark   string
}

// Request describes one checkout attempt over the user's selected cart items.
type Request struct {
	UserID        uuid.UUID
	Delivery      Address
	PaymentMethod enums.PaymentMethod
	UseWallet     bool
	OrderNotes    string
}

// GatewayCheckout is what the client needs to open the Razorpay widget.
type GatewayCheckout struct {
	GatewayOrderID string `json:"gatewayOrderId"`
	KeyID          string `json:"keyId"`
	AmountPaise    int64  `json:"amountPaise"`
	Currency       string `json:"currency"`
}

// PaymentInstruction tells the client how the total was split and what, if
// anything, remains to be collected.
type PaymentInstruction struct {
	Method        enums.PaymentMethod `json:"method"`
	WalletApplied decimal.Decimal     `json:"walletApplied"`
	PayableAmount decimal.Decimal     `json:"payableAmount"`
	Gateway       *GatewayCheckout    `json:"gateway,omitempty"`
}

// Result is the checkout outcome: the created order plus payment instructions.
type Result struct {
	Order   *models.Order      `json:"order"`
	Payment PaymentInstruction `json:"payment"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderParams) (*razorpay.OrderResult, error)
	KeyID() string
}

// Service turns the mutable cart into an immutable order. Everything except
// the final gateway handshake happens inside one transaction: a failed
// gateway registration rolls back the order row with it. Wallet money moves
// at confirmation only, so an order that is never paid never debits anyone.
type Service interface {
	Checkout(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	tx        txRunner
	cartRepo  *cart.Repo
	orderRepo *orders.Repo
	pricer    pricing.Engine
	wallet    wallet.Ledger
	stock     inventory.Ledger
	gateway   gateway
	notifier  notifications.Notifier
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger

	minGatewayCharge decimal.Decimal
}

// NewService wires the checkout service.
func NewService(
	tx txRunner,
	cartRepo *cart.Repo,
	orderRepo *orders.Repo,
	pricer pricing.Engine,
	walletLedger wallet.Ledger,
	stock inventory.Ledger,
	gw gateway,
	notifier notifications.Notifier,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
	minGatewayCharge decimal.Decimal,
) (Service, error) {
	if tx == nil {
		return nil, errors.New(errors.CodeInternal, "tx runner required")
	}
	if cartRepo == nil {
		return nil, errors.New(errors.CodeInternal, "cart repo required")
	}
	if orderRepo == nil {
		return nil, errors.New(errors.CodeInternal, "order repo required")
	}
	if pricer == nil {
		return nil, errors.New(errors.CodeInternal, "pricing engine required")
	}
	if walletLedger == nil {
		return nil, errors.New(errors.CodeInternal, "wallet ledger required")
	}
	if stock == nil {
		return nil, errors.New(errors.CodeInternal, "inventory ledger required")
	}
	if gw == nil {
		return nil, errors.New(errors.CodeInternal, "payment gateway required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "logger required")
	}
	return &service{
		tx:               tx,
		cartRepo:         cartRepo,
		orderRepo:        orderRepo,
		pricer:           pricer,
		wallet:           walletLedger,
		stock:            stock,
		gateway:          gw,
		notifier:         notifier,
		metrics:          checkoutMetrics,
		logg:             logg,
		minGatewayCharge: minGatewayCharge,
	}, nil
}

func (s *service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, req.UserID.String())

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txCart := s.cartRepo.WithTx(tx)
		txOrders := s.orderRepo.WithTx(tx)

		items, err := txCart.ListSelected(ctx, req.UserID)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "loading selected cart items")
		}

		// Reprice inside the transaction so the snapshot reflects catalog
		// state at commit time, not at page load.
		quote, err := s.pricer.Quote(items)
		if err != nil {
			return err
		}

		walletAmount := decimal.Zero
		if req.UseWallet {
			balance, err := s.wallet.Balance(tx, req.UserID)
			if err != nil {
				return err
			}
			walletAmount = s.walletSplit(req.PaymentMethod, quote.Total, balance)
		}

		orderNumber, err := generateOrderNumber(ctx, func(ctx context.Context, candidate string) (bool, error) {
			count, err := txOrders.CountByNumber(ctx, candidate)
			return count > 0, err
		})
		if err != nil {
			return err
		}

		order := s.buildOrder(req, quote, orderNumber, walletAmount)

		switch req.PaymentMethod {
		case enums.PaymentMethodCOD:
			if err := s.confirmImmediately(ctx, tx, txCart, order, quote); err != nil {
				return err
			}
		case enums.PaymentMethodRazorpay:
			if err := txOrders.Create(ctx, order); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "creating order")
			}
		}

		payable := order.Total.Sub(order.WalletAmount)
		instruction := PaymentInstruction{
			Method:        req.PaymentMethod,
			WalletApplied: order.WalletAmount,
			PayableAmount: payable,
		}

		if req.PaymentMethod == enums.PaymentMethodRazorpay {
			gatewayOrder, err := s.registerWithGateway(ctx, order, quote, order.WalletAmount, payable)
			if err != nil {
				return err
			}
			if err := txOrders.SetGatewayOrderID(ctx, order.ID, gatewayOrder.OrderID); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "saving gateway order id")
			}
			order.RazorpayOrderID = &gatewayOrder.OrderID
			instruction.Gateway = &GatewayCheckout{
				GatewayOrderID: gatewayOrder.OrderID,
				KeyID:          gatewayOrder.KeyID,
				AmountPaise:    gatewayOrder.AmountPaise,
				Currency:       gatewayOrder.Currency,
			}
		}

		result = &Result{Order: order, Payment: instruction}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderCreated(result.Order.PaymentMethod.String())
	ctx = s.logg.WithOrderID(ctx, result.Order.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "order_number", result.Order.OrderNumber), "order created")

	if result.Order.Status == enums.OrderStatusConfirmed && s.notifier != nil {
		s.notifier.OrderConfirmed(ctx, result.Order)
	}
	return result, nil
}

// walletSplit decides how much of the total the wallet covers. Gateway
// payments keep the payable remainder at or above the minimum chargeable
// amount, because the gateway rejects zero-value orders. No money moves here:
// the debit happens at confirmation, clamped to the balance at that moment.
func (s *service) walletSplit(method enums.PaymentMethod, total, balance decimal.Decimal) decimal.Decimal {
	target := total
	if method == enums.PaymentMethodRazorpay {
		target = total.Sub(s.minGatewayCharge)
		if target.IsNegative() {
			target = decimal.Zero
		}
	}
	if balance.LessThan(target) {
		target = balance
	}
	return target
}

func (s *service) buildOrder(req Request, quote *pricing.Quote, orderNumber string, walletApplied decimal.Decimal) *models.Order {
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: orderNumber,
		UserID:      req.UserID,
		Status:      enums.OrderStatusPending,

		DeliveryName:       req.Delivery.Name,
		DeliveryPhone:      req.Delivery.Phone,
		DeliveryAddress:    req.Delivery.Address,
		DeliveryCity:       req.Delivery.City,
		DeliveryState:      req.Delivery.State,
		DeliveryPostalCode: req.Delivery.PostalCode,
		DeliveryLandmark:   req.Delivery.Landmark,

		Subtotal:       quote.Subtotal,
		DeliveryCharge: quote.DeliveryCharge,
		Discount:       quote.Discount,
		WalletAmount:   walletApplied,
		Total:          quote.Total,

		PaymentMethod: req.PaymentMethod,
		PaymentStatus: enums.PaymentStatusPending,
		OrderNotes:    req.OrderNotes,
	}

	for _, line := range quote.Lines {
		productID := line.ProductID
		order.Items = append(order.Items, models.OrderItem{
			ProductID:    &productID,
			ProductName:  line.ProductName,
			ProductImage: line.ProductImage,
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
			TotalPrice:   line.LineTotal,
		})
	}
	return order
}

// confirmImmediately applies the pay-on-delivery path: stock is reserved and
// the cart cleared right away, and a fully wallet-covered order is settled.
// COD confirmation and order creation are the same moment, so the wallet
// debit lands here, clamped to the live balance; any shortfall is collected
// on delivery.
func (s *service) confirmImmediately(ctx context.Context, tx *gorm.DB, txCart *cart.Repo, order *models.Order, quote *pricing.Quote) error {
	debited, err := s.wallet.DebitUpTo(tx, order.UserID, order.WalletAmount)
	if err != nil {
		return err
	}
	order.WalletAmount = debited
	order.CapturedAmount = debited

	order.Status = enums.OrderStatusConfirmed
	if order.Total.Sub(debited).IsZero() {
		now := time.Now().UTC()
		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaidAt = &now
	}

	if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "creating order")
	}

	for _, line := range quote.Lines {
		if err := s.stock.Reserve(tx, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}

	if err := txCart.DeleteSelected(ctx, order.UserID); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "clearing purchased cart items")
	}
	return nil
}

func (s *service) registerWithGateway(ctx context.Context, order *models.Order, quote *pricing.Quote, walletApplied, payable decimal.Decimal) (*razorpay.OrderResult, error) {
	amountPaise := payable.Mul(decimal.NewFromInt(100)).IntPart()
	return s.gateway.CreateOrder(ctx, razorpay.OrderParams{
		AmountPaise: amountPaise,
		Currency:    "INR",
		Receipt:     order.OrderNumber,
		Notes: map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"user_id":      order.UserID.String(),
			"subtotal":     quote.Subtotal.StringFixed(2),
			"delivery":     quote.DeliveryCharge.StringFixed(2),
			"wallet":       walletApplied.StringFixed(2),
			"payable":      payable.StringFixed(2),
		},
	})
}

func validateRequest(req Request) error {
	if req.UserID == uuid.Nil {
		return errors.New(errors.CodeValidation, "user id is required")
	}
	if !req.PaymentMethod.IsValid() {
		return errors.New(errors.CodeValidation, "unsupported payment method")
	}
	missing := []string{}
	for field, value := range map[string]string{
		"name":       req.Delivery.Name,
		"phone":      req.Delivery.Phone,
		"address":    req.Delivery.Address,
		"city":       req.Delivery.City,
		"state":      req.Delivery.State,
		"postalCode": req.Delivery.PostalCode,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.CodeValidation, "delivery address incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}
