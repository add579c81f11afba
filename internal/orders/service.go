package orders

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshkart/freshkart-backend/internal/cart"
	"github.com/freshkart/freshkart-backend/internal/inventory"
	"github.com/freshkart/freshkart-backend/internal/notifications"
	"github.com/freshkart/freshkart-backend/internal/wallet"
	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/enums"
	"github.com/freshkart/freshkart-backend/pkg/errors"
	"github.com/freshkart/freshkart-backend/pkg/logger"
	"github.com/freshkart/freshkart-backend/pkg/metrics"
)

// VerifyRequest carries the gateway callback parameters for reconciliation.
type VerifyRequest struct {
	UserID           uuid.UUID
	OrderID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// StatusUpdate is an admin-side order mutation.
type StatusUpdate struct {
	Status     *enums.OrderStatus
	AdminNotes *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type signatureVerifier interface {
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

// Service reconciles payments and drives the order lifecycle. Paid and
// cancelled transitions are guarded updates, so a retried gateway callback or
// a racing admin action settles each order exactly once.
type Service interface {
	VerifyPayment(ctx context.Context, req VerifyRequest) (*models.Order, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, int64, error)

	AdminGet(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AdminCancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, update StatusUpdate) (*models.Order, error)
	AdminUpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) (*models.Order, error)
}

type service struct {
	tx       txRunner
	repo     *Repo
	cartRepo *cart.Repo
	stock    inventory.Ledger
	wallet   wallet.Ledger
	verifier signatureVerifier
	notifier notifications.Notifier
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewService wires the order lifecycle service.
func NewService(
	tx txRunner,
	repo *Repo,
	cartRepo *cart.Repo,
	stock inventory.Ledger,
	walletLedger wallet.Ledger,
	verifier signatureVerifier,
	notifier notifications.Notifier,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, errors.New(errors.CodeInternal, "tx runner required")
	}
	if repo == nil {
		return nil, errors.New(errors.CodeInternal, "order repo required")
	}
	if cartRepo == nil {
		return nil, errors.New(errors.CodeInternal, "cart repo required")
	}
	if stock == nil {
		return nil, errors.New(errors.CodeInternal, "inventory ledger required")
	}
	if walletLedger == nil {
		return nil, errors.New(errors.CodeInternal, "wallet ledger required")
	}
	if verifier == nil {
		return nil, errors.New(errors.CodeInternal, "signature verifier required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "logger required")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		cartRepo: cartRepo,
		stock:    stock,
		wallet:   walletLedger,
		verifier: verifier,
		notifier: notifier,
		metrics:  checkoutMetrics,
		logg:     logg,
	}, nil
}

// VerifyPayment settles a gateway payment against its order. A valid
// signature promotes the order to PAID/CONFIRMED exactly once; retries of an
// already settled order succeed without re-applying side effects.
func (s *service) VerifyPayment(ctx context.Context, req VerifyRequest) (*models.Order, error) {
	ctx = s.logg.WithOrderID(s.logg.WithUserID(ctx, req.UserID.String()), req.OrderID.String())

	order, err := s.repo.GetForUser(ctx, req.OrderID, req.UserID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading order")
	}

	if order.PaymentMethod != enums.PaymentMethodRazorpay {
		return nil, errors.New(errors.CodeStateConflict, "order is not gateway-paid")
	}
	if order.RazorpayOrderID == nil || *order.RazorpayOrderID != req.GatewayOrderID {
		return nil, errors.New(errors.CodeValidation, "gateway order id does not match")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, errors.New(errors.CodeStateConflict, "order was cancelled before payment settled")
	}

	if !s.verifier.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		// Record the failure but never downgrade an already settled payment.
		if _, err := s.repo.MarkPaymentFailed(ctx, order.ID); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "recording failed payment")
		}
		s.metrics.IncPaymentVerified("failure")
		s.logg.Warn(ctx, "payment signature mismatch")
		return nil, errors.New(errors.CodeValidation, "payment signature verification failed")
	}

	settled := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		affected, err := txRepo.MarkPaid(ctx, order.ID, req.GatewayPaymentID, req.Signature, time.Now().UTC())
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "marking order paid")
		}
		if affected == 0 {
			current, err := txRepo.GetByID(ctx, order.ID)
			if err != nil {
				return errors.Wrap(errors.CodeInternal, err, "reloading order")
			}
			if current.PaymentStatus == enums.PaymentStatusPaid {
				// A concurrent or earlier verification already settled this
				// order; the retry is a no-op.
				return nil
			}
			return errors.New(errors.CodeStateConflict, "order can no longer be settled").
				WithDetails(map[string]any{"status": current.Status.String()})
		}
		settled = true

		debited, err := s.wallet.DebitUpTo(tx, order.UserID, order.WalletAmount)
		if err != nil {
			return err
		}
		// The gateway charged total minus the split quoted at checkout. If the
		// balance shrank during the gateway gap the wallet covers less, and
		// the captured total drops with it.
		captured := order.Total.Sub(order.WalletAmount).Add(debited)
		if err := txRepo.RecordCapture(ctx, order.ID, debited, captured); err != nil {
			return errors.Wrap(errors.CodeInternal, err, "recording capture")
		}

		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if err := s.stock.Reserve(tx, *item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		return s.cartRepo.WithTx(tx).DeleteSelected(ctx, order.UserID)
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.repo.GetForUser(ctx, req.OrderID, req.UserID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "reloading order")
	}

	if settled {
		s.metrics.IncPaymentVerified("success")
		s.logg.Info(ctx, "payment verified, order confirmed")
		if s.notifier != nil {
			s.notifier.PaymentReceived(ctx, reloaded)
			s.notifier.OrderConfirmed(ctx, reloaded)
		}
	} else {
		s.metrics.IncPaymentVerified("duplicate")
		s.logg.Info(ctx, "payment already settled, verification is a no-op")
	}
	return reloaded, nil
}

// Cancel lets the owning user cancel their own order.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return s.cancel(ctx, &userID, orderID)
}

// AdminCancel cancels any user's order.
func (s *service) AdminCancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.cancel(ctx, nil, orderID)
}

func (s *service) cancel(ctx context.Context, userID *uuid.UUID, orderID uuid.UUID) (*models.Order, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var cancelled *models.Order
	var refund decimal.Decimal

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		var order *models.Order
		var err error
		if userID != nil {
			order, err = txRepo.GetForUser(ctx, orderID, *userID)
		} else {
			order, err = txRepo.GetByID(ctx, orderID)
		}
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "order not found")
			}
			return errors.Wrap(errors.CodeInternal, err, "loading order")
		}

		if !order.Status.IsCancellable() {
			return errors.New(errors.CodeStateConflict, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		refund = refundAmount(order)
		toPayment := order.PaymentStatus
		if refund.IsPositive() {
			toPayment = enums.PaymentStatusRefunded
		}

		affected, err := txRepo.MarkCancelled(ctx, order.ID, order.Status, order.PaymentStatus, toPayment)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "cancelling order")
		}
		if affected == 0 {
			return errors.New(errors.CodeStateConflict, "order changed concurrently, retry")
		}

		// Stock is only held once the order left PENDING: COD reserves at
		// checkout, gateway orders reserve at verification.
		if order.Status != enums.OrderStatusPending {
			for _, item := range order.Items {
				if item.ProductID == nil {
					continue
				}
				if err := s.stock.Restore(tx, *item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		if refund.IsPositive() {
			if err := s.wallet.Credit(tx, order.UserID, refund); err != nil {
				return err
			}
		}

		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.repo.GetByID(ctx, cancelled.ID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "reloading order")
	}

	s.metrics.IncOrderCancelled()
	if refund.IsPositive() {
		s.metrics.IncRefundIssued()
	}
	s.logg.Info(s.logg.WithField(ctx, "refund", refund.StringFixed(2)), "order cancelled")
	if s.notifier != nil {
		s.notifier.OrderCancelled(ctx, reloaded, refund)
	}
	return reloaded, nil
}

// refundAmount is the wallet credit owed on cancellation: the money actually
// collected, never the quoted total. A paid order without a recorded capture
// was settled by hand through the admin surface, so the full total is owed.
func refundAmount(order *models.Order) decimal.Decimal {
	if order.PaymentStatus == enums.PaymentStatusPaid && !order.CapturedAmount.IsPositive() {
		return order.Total
	}
	return order.CapturedAmount
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetForUser(ctx, orderID, userID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// AdminGet loads any order regardless of owner.
func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Order, int64, error) {
	orders, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, errors.Wrap(errors.CodeInternal, err, "listing orders")
	}
	return orders, total, nil
}

// AdminUpdateStatus moves an order along the fulfillment lifecycle. Cancelled
// orders are immutable here; cancellation goes through AdminCancel so refunds
// and stock restoration are never skipped. The status write is guarded on the
// status read in the same transaction, so a user cancel landing in between
// surfaces as a conflict instead of being overwritten.
func (s *service) AdminUpdateStatus(ctx context.Context, orderID uuid.UUID, update StatusUpdate) (*models.Order, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	if update.Status != nil && !update.Status.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid order status")
	}

	statusChanged := false
	cancelRequested := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		order, err := txRepo.GetByID(ctx, orderID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "order not found")
			}
			return errors.Wrap(errors.CodeInternal, err, "loading order")
		}

		if update.Status != nil {
			newStatus := *update.Status
			switch {
			case order.Status == enums.OrderStatusCancelled:
				return errors.New(errors.CodeStateConflict, "cancelled orders cannot change status")
			case newStatus == enums.OrderStatusCancelled:
				cancelRequested = true
			default:
				var deliveredAt *time.Time
				if newStatus == enums.OrderStatusDelivered && order.DeliveredAt == nil {
					now := time.Now().UTC()
					deliveredAt = &now
				}
				affected, err := txRepo.UpdateStatus(ctx, orderID, order.Status, newStatus, deliveredAt)
				if err != nil {
					return errors.Wrap(errors.CodeInternal, err, "updating order status")
				}
				if affected == 0 {
					return errors.New(errors.CodeStateConflict, "order changed concurrently, retry")
				}
				statusChanged = newStatus != order.Status
			}
		}

		if update.AdminNotes != nil {
			if err := txRepo.SetAdminNotes(ctx, orderID, *update.AdminNotes); err != nil {
				return errors.Wrap(errors.CodeInternal, err, "updating admin notes")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cancelRequested {
		// AdminCancel runs its own guarded transaction; a racing cancel in
		// between loses there, not here.
		return s.AdminCancel(ctx, orderID)
	}

	reloaded, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "reloading order")
	}
	if statusChanged && s.notifier != nil {
		s.notifier.OrderStatusChanged(ctx, reloaded)
	}
	return reloaded, nil
}

// AdminUpdatePaymentStatus adjusts the settlement axis. Setting REFUNDED on a
// live order runs the full cancellation so money and stock stay consistent;
// on an already cancelled order it only flips the flag.
func (s *service) AdminUpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid payment status")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading order")
	}

	if order.Status == enums.OrderStatusCancelled {
		if status != enums.PaymentStatusRefunded {
			return nil, errors.New(errors.CodeStateConflict, "cancelled orders only accept a refunded payment status")
		}
		if err := s.repo.UpdatePaymentStatus(ctx, orderID, status); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "updating payment status")
		}
		return s.repo.GetByID(ctx, orderID)
	}

	if status == enums.PaymentStatusRefunded {
		return s.AdminCancel(ctx, orderID)
	}

	if err := s.repo.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "updating payment status")
	}
	return s.repo.GetByID(ctx, orderID)
}
