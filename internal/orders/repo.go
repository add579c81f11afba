package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/enums"
)

// ListParams filters and pages an order listing.
type ListParams struct {
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Page          int
	PageSize      int
}

// Repo owns orders and order_items persistence. State transitions on paid and
// cancelled orders go through guarded single-statement updates; the row count
// tells the caller whether it won the transition.
type Repo struct {
	conn *gorm.DB
}

func NewRepo(conn *gorm.DB) *Repo {
	return &Repo{conn: conn}
}

func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{conn: tx}
}

func (r *Repo) Create(ctx context.Context, order *models.Order) error {
	return r.conn.WithContext(ctx).Create(order).Error
}

func (r *Repo) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.conn.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repo) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.conn.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]models.Order, int64, error) {
	query := r.conn.WithContext(ctx).Model(&models.Order{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var orders []models.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	return orders, total, err
}

// MarkPaid promotes a pending payment to PAID exactly once. Only a PENDING
// order can settle: a cancelled order never comes back, and zero rows tells
// the caller it lost either to an earlier verification or to a cancellation.
func (r *Repo) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID, signature string, paidAt time.Time) (int64, error) {
	result := r.conn.WithContext(ctx).Exec(`
		UPDATE orders
		SET payment_status = ?,
		    status = ?,
		    razorpay_payment_id = ?,
		    razorpay_signature = ?,
		    paid_at = ?,
		    updated_at = ?
		WHERE id = ? AND status = ? AND payment_status <> ?`,
		enums.PaymentStatusPaid, enums.OrderStatusConfirmed,
		paymentID, signature, paidAt, paidAt,
		orderID, enums.OrderStatusPending, enums.PaymentStatusPaid,
	)
	return result.RowsAffected, result.Error
}

// MarkPaymentFailed records a failed verification on a live pending order. It
// never downgrades a settled payment and never touches a cancelled order.
func (r *Repo) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result := r.conn.WithContext(ctx).Exec(`
		UPDATE orders
		SET payment_status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND payment_status = ?`,
		enums.PaymentStatusFailed, time.Now().UTC(),
		orderID, enums.OrderStatusPending, enums.PaymentStatusPending,
	)
	return result.RowsAffected, result.Error
}

// MarkCancelled flips the order to CANCELLED only if it still has the exact
// status and payment status the caller observed.
func (r *Repo) MarkCancelled(ctx context.Context, orderID uuid.UUID, fromStatus enums.OrderStatus, fromPayment enums.PaymentStatus, toPayment enums.PaymentStatus) (int64, error) {
	result := r.conn.WithContext(ctx).Exec(`
		UPDATE orders
		SET status = ?, payment_status = ?, updated_at = ?
		WHERE id = ? AND status = ? AND payment_status = ?`,
		enums.OrderStatusCancelled, toPayment, time.Now().UTC(),
		orderID, fromStatus, fromPayment,
	)
	return result.RowsAffected, result.Error
}

// SetGatewayOrderID attaches the remote order reference after gateway registration.
func (r *Repo) SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error {
	return r.conn.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("razorpay_order_id", gatewayOrderID).Error
}

// RecordCapture stores the wallet money actually debited at settlement and
// the running total collected from the customer. The captured figure, not the
// quoted total, is what a later refund owes.
func (r *Repo) RecordCapture(ctx context.Context, orderID uuid.UUID, walletAmount, captured decimal.Decimal) error {
	return r.conn.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"wallet_amount":   walletAmount,
			"captured_amount": captured,
		}).Error
}

// UpdateStatus moves an order to a new fulfillment status, but only if it
// still has the status the caller observed.
func (r *Repo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, deliveredAt *time.Time) (int64, error) {
	updates := map[string]any{"status": to}
	if deliveredAt != nil {
		updates["delivered_at"] = *deliveredAt
	}
	result := r.conn.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *Repo) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error {
	return r.conn.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status).Error
}

func (r *Repo) SetAdminNotes(ctx context.Context, orderID uuid.UUID, notes string) error {
	return r.conn.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("admin_notes", notes).Error
}

func (r *Repo) Delete(ctx context.Context, orderID uuid.UUID) error {
	return r.conn.WithContext(ctx).Delete(&models.Order{}, "id = ?", orderID).Error
}

// CountByNumber reports whether an order number is already taken.
func (r *Repo) CountByNumber(ctx context.Context, orderNumber string) (int64, error) {
	var count int64
	err := r.conn.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	return count, err
}
