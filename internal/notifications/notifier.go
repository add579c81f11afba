package notifications

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

// Notifier announces order lifecycle events. Implementations must never block
// or fail the calling flow; a lost notification is acceptable, a lost order
// update is not.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order)
	PaymentReceived(ctx context.Context, order *models.Order)
	OrderCancelled(ctx context.Context, order *models.Order, refund decimal.Decimal)
	OrderStatusChanged(ctx context.Context, order *models.Order)
}

// Sender delivers a single rendered message.
type Sender interface {
	Send(ctx context.Context, event string, fields map[string]any) error
}

// Dispatcher fans events out to a sender on background goroutines.
type Dispatcher struct {
	sender Sender
	logg   *logger.Logger
	wg     sync.WaitGroup
}

// NewDispatcher builds the async notifier.
func NewDispatcher(sender Sender, logg *logger.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logg: logg}
}

func (d *Dispatcher) OrderConfirmed(ctx context.Context, order *models.Order) {
	d.dispatch(ctx, "order_confirmed", orderFields(order))
}

func (d *Dispatcher) PaymentReceived(ctx context.Context, order *models.Order) {
	d.dispatch(ctx, "payment_received", orderFields(order))
}

func (d *Dispatcher) OrderCancelled(ctx context.Context, order *models.Order, refund decimal.Decimal) {
	fields := orderFields(order)
	fields["refund"] = refund.StringFixed(2)
	d.dispatch(ctx, "order_cancelled", fields)
}

func (d *Dispatcher) OrderStatusChanged(ctx context.Context, order *models.Order) {
	d.dispatch(ctx, "order_status_changed", orderFields(order))
}

func (d *Dispatcher) dispatch(ctx context.Context, event string, fields map[string]any) {
	if d == nil || d.sender == nil {
		return
	}
	// Detach from the request context so in-flight sends survive the response.
	sendCtx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sender.Send(sendCtx, event, fields); err != nil && d.logg != nil {
			d.logg.Error(sendCtx, "notification send failed", err)
		}
	}()
}

// Wait blocks until in-flight notifications drain. Used on shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func orderFields(order *models.Order) map[string]any {
	if order == nil {
		return map[string]any{}
	}
	return map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"user_id":      order.UserID.String(),
		"status":       order.Status.String(),
		"total":        order.Total.StringFixed(2),
	}
}

// LogSender writes notification events to the structured log. It stands in
// for the transactional email provider in environments without one.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, event string, fields map[string]any) error {
	if s == nil || s.logg == nil {
		return nil
	}
	ctx = s.logg.WithFields(ctx, fields)
	ctx = s.logg.WithField(ctx, "event", event)
	s.logg.Info(ctx, "notification dispatched")
	return nil
}
