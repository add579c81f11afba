package orders

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/freshkart/freshkart-backend/internal/cart"
	"github.com/freshkart/freshkart-backend/internal/inventory"
	"github.com/freshkart/freshkart-backend/internal/wallet"
	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/enums"
	"github.com/freshkart/freshkart-backend/pkg/errors"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

type gormTxRunner struct {
	conn *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.conn.WithContext(ctx).Transaction(fn)
}

type stubVerifier struct {
	valid bool
}

func (v *stubVerifier) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return v.valid
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	verifier *stubVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{}, &models.Product{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "orders-test", Level: zerolog.ErrorLevel, Output: &bytes.Buffer{}})
	verifier := &stubVerifier{valid: true}

	svc, err := NewService(
		&gormTxRunner{conn: conn},
		NewRepo(conn),
		cart.NewRepo(conn),
		inventory.NewLedger(),
		wallet.NewLedger(),
		verifier,
		nil,
		nil,
		logg,
	)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return &fixture{svc: svc, conn: conn, verifier: verifier}
}

func (f *fixture) seedUser(t *testing.T, balance string) *models.User {
	t.Helper()
	user := &models.User{
		Email:         uuid.NewString() + "@example.com",
		Name:          "Test Shopper",
		WalletBalance: decimal.RequireFromString(balance),
		IsActive:      true,
	}
	if err := f.conn.Create(user).Error; err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func (f *fixture) seedProduct(t *testing.T, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          "Organic Apples 1kg",
		Slug:          "organic-apples-" + uuid.NewString(),
		Price:         decimal.NewFromInt(180),
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := f.conn.Create(product).Error; err != nil {
		t.Fatalf("seeding product: %v", err)
	}
	return product
}

type orderSeed struct {
	userID        uuid.UUID
	productID     uuid.UUID
	quantity      int
	status        enums.OrderStatus
	paymentStatus enums.PaymentStatus
	method        enums.PaymentMethod
	walletAmount  string
	total         string
	captured      string
	gatewayID     string
}

func (f *fixture) seedOrder(t *testing.T, seed orderSeed) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:        "ORD-2026-" + uuid.NewString()[:6],
		UserID:             seed.userID,
		Status:             seed.status,
		DeliveryName:       "Asha Nair",
		DeliveryPhone:      "+919812345678",
		DeliveryAddress:    "14 Lake View Road",
		DeliveryCity:       "Kochi",
		DeliveryState:      "Kerala",
		DeliveryPostalCode: "682001",
		Subtotal:           decimal.RequireFromString(seed.total),
		WalletAmount:       decimal.RequireFromString(seed.walletAmount),
		Total:              decimal.RequireFromString(seed.total),
		PaymentMethod:      seed.method,
		PaymentStatus:      seed.paymentStatus,
		Items: []models.OrderItem{{
			ProductID:   &seed.productID,
			ProductName: "Organic Apples 1kg",
			UnitPrice:   decimal.NewFromInt(180),
			Quantity:    seed.quantity,
			TotalPrice:  decimal.NewFromInt(180).Mul(decimal.NewFromInt(int64(seed.quantity))),
		}},
	}
	if seed.captured != "" {
		order.CapturedAmount = decimal.RequireFromString(seed.captured)
	}
	if seed.gatewayID != "" {
		order.RazorpayOrderID = &seed.gatewayID
	}
	if err := f.conn.Create(order).Error; err != nil {
		t.Fatalf("seeding order: %v", err)
	}
	return order
}

func (f *fixture) productStock(t *testing.T, productID uuid.UUID) (int, int) {
	t.Helper()
	var product models.Product
	if err := f.conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reloading product: %v", err)
	}
	return product.StockQuantity, product.OrdersCount
}

func (f *fixture) walletBalance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	var user models.User
	if err := f.conn.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	return user.WalletBalance
}

func TestVerifyPaymentSettlesOrderOnce(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusPending, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "0.00", total: "400.00", gatewayID: "order_rzp_abc",
	})

	req := VerifyRequest{
		UserID:           user.ID,
		OrderID:          order.ID,
		GatewayOrderID:   "order_rzp_abc",
		GatewayPaymentID: "pay_123",
		Signature:        "sig",
	}

	settled, err := f.svc.VerifyPayment(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settled.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want PAID", settled.PaymentStatus)
	}
	if settled.Status != enums.OrderStatusConfirmed {
		t.Fatalf("status = %s, want CONFIRMED", settled.Status)
	}
	if settled.PaidAt == nil {
		t.Fatal("paid_at not set")
	}
	if settled.RazorpayPaymentID == nil || *settled.RazorpayPaymentID != "pay_123" {
		t.Fatalf("payment id not stored: %v", settled.RazorpayPaymentID)
	}

	stock, sold := f.productStock(t, product.ID)
	if stock != 8 || sold != 1 {
		t.Fatalf("stock/sold = %d/%d, want 8/1", stock, sold)
	}

	// A retried callback must be a no-op, not a second decrement.
	if _, err := f.svc.VerifyPayment(context.Background(), req); err != nil {
		t.Fatalf("retry errored: %v", err)
	}
	stock, sold = f.productStock(t, product.ID)
	if stock != 8 || sold != 1 {
		t.Fatalf("retry re-applied effects: stock/sold = %d/%d", stock, sold)
	}
}

func TestVerifyPaymentSignatureMismatchMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.verifier.valid = false
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusPending, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "0.00", total: "400.00", gatewayID: "order_rzp_abc",
	})

	_, err := f.svc.VerifyPayment(context.Background(), VerifyRequest{
		UserID:           user.ID,
		OrderID:          order.ID,
		GatewayOrderID:   "order_rzp_abc",
		GatewayPaymentID: "pay_123",
		Signature:        "tampered",
	})
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	var reloaded models.Order
	f.conn.First(&reloaded, "id = ?", order.ID)
	if reloaded.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("payment status = %s, want FAILED", reloaded.PaymentStatus)
	}
	if reloaded.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want PENDING", reloaded.Status)
	}

	stock, _ := f.productStock(t, product.ID)
	if stock != 10 {
		t.Fatalf("stock reserved on failed verification: %d", stock)
	}
}

func TestVerifyPaymentRejectsMismatchedGatewayOrder(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 1,
		status: enums.OrderStatusPending, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "0.00", total: "180.00", gatewayID: "order_rzp_abc",
	})

	_, err := f.svc.VerifyPayment(context.Background(), VerifyRequest{
		UserID:           user.ID,
		OrderID:          order.ID,
		GatewayOrderID:   "order_rzp_other",
		GatewayPaymentID: "pay_123",
		Signature:        "sig",
	})
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerifyPaymentRejectsCODOrder(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 1,
		status: enums.OrderStatusConfirmed, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodCOD,
		walletAmount: "0.00", total: "180.00",
	})

	_, err := f.svc.VerifyPayment(context.Background(), VerifyRequest{
		UserID:  user.ID,
		OrderID: order.ID,
	})
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelConfirmedOrderRestoresStockAndRefundsWallet(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "10.00")
	product := f.seedProduct(t, 8)
	f.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("orders_count", 1)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusConfirmed, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodCOD,
		walletAmount: "50.00", total: "400.00", captured: "50.00",
	})

	cancelled, err := f.svc.Cancel(context.Background(), user.ID, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("payment status = %s, want REFUNDED", cancelled.PaymentStatus)
	}

	stock, sold := f.productStock(t, product.ID)
	if stock != 10 || sold != 0 {
		t.Fatalf("stock/sold = %d/%d, want 10/0", stock, sold)
	}
	if got, want := f.walletBalance(t, user.ID).StringFixed(2), "60.00"; got != want {
		t.Fatalf("wallet balance = %s, want %s", got, want)
	}
}

func TestCancelPaidOrderRefundsFullTotal(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 8)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusConfirmed, paymentStatus: enums.PaymentStatusPaid,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "100.00", total: "400.00", gatewayID: "order_rzp_abc",
	})

	_, err := f.svc.Cancel(context.Background(), user.ID, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := f.walletBalance(t, user.ID).StringFixed(2), "400.00"; got != want {
		t.Fatalf("wallet balance = %s, want %s", got, want)
	}
}

func TestCancelPendingGatewayOrderSkipsStockRestore(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusPending, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "75.00", total: "400.00", gatewayID: "order_rzp_abc",
	})

	_, err := f.svc.Cancel(context.Background(), user.ID, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Stock was never reserved for a pending gateway order.
	stock, _ := f.productStock(t, product.ID)
	if stock != 10 {
		t.Fatalf("stock = %d, want 10", stock)
	}
	// The wallet split is only captured at settlement, so there is nothing
	// to refund on an unpaid gateway order.
	if got, want := f.walletBalance(t, user.ID).StringFixed(2), "0.00"; got != want {
		t.Fatalf("wallet balance = %s, want %s", got, want)
	}
}

func TestVerifyPaymentCapturesWalletSplit(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "120.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusPending, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "120.00", total: "400.00", gatewayID: "order_rzp_abc",
	})

	_, err := f.svc.VerifyPayment(context.Background(), VerifyRequest{
		UserID:           user.ID,
		OrderID:          order.ID,
		GatewayOrderID:   "order_rzp_abc",
		GatewayPaymentID: "pay_123",
		Signature:        "sig",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := f.walletBalance(t, user.ID).StringFixed(2), "0.00"; got != want {
		t.Fatalf("wallet balance = %s, want %s", got, want)
	}
}

func TestVerifyPaymentClampsShrunkenWallet(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "50.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusPending, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "120.00", total: "400.00", gatewayID: "order_rzp_abc",
	})

	settled, err := f.svc.VerifyPayment(context.Background(), VerifyRequest{
		UserID:           user.ID,
		OrderID:          order.ID,
		GatewayOrderID:   "order_rzp_abc",
		GatewayPaymentID: "pay_123",
		Signature:        "sig",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := f.walletBalance(t, user.ID).StringFixed(2), "0.00"; got != want {
		t.Fatalf("wallet balance = %s, want %s", got, want)
	}
	// The order records what was actually captured, not the stale split.
	if got, want := settled.WalletAmount.StringFixed(2), "50.00"; got != want {
		t.Fatalf("wallet amount = %s, want %s", got, want)
	}
	// Gateway charged 280.00 against the quoted split, wallet covered 50.00.
	if got, want := settled.CapturedAmount.StringFixed(2), "330.00"; got != want {
		t.Fatalf("captured amount = %s, want %s", got, want)
	}
}

func TestVerifyPaymentAfterCancelIsRejected(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusPending, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "0.00", total: "400.00", gatewayID: "order_rzp_abc",
	})

	if _, err := f.svc.Cancel(context.Background(), user.ID, order.ID); err != nil {
		t.Fatalf("cancelling order: %v", err)
	}

	// A validly signed callback arriving after the cancel must not resurrect
	// the order.
	_, err := f.svc.VerifyPayment(context.Background(), VerifyRequest{
		UserID:           user.ID,
		OrderID:          order.ID,
		GatewayOrderID:   "order_rzp_abc",
		GatewayPaymentID: "pay_123",
		Signature:        "sig",
	})
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var reloaded models.Order
	f.conn.First(&reloaded, "id = ?", order.ID)
	if reloaded.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", reloaded.Status)
	}
	if reloaded.PaymentStatus == enums.PaymentStatusPaid {
		t.Fatal("cancelled order settled anyway")
	}
	stock, _ := f.productStock(t, product.ID)
	if stock != 10 {
		t.Fatalf("stock = %d, want 10", stock)
	}
	if got, want := f.walletBalance(t, user.ID).StringFixed(2), "0.00"; got != want {
		t.Fatalf("wallet balance = %s, want %s", got, want)
	}
}

func TestCancelAfterClampedCaptureRefundsCapturedMoney(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "40.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusPending, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "100.00", total: "360.00", gatewayID: "order_rzp_abc",
	})

	// The gateway charged 260.00 against the quoted split; the wallet only
	// had 40.00 left by the time the callback landed.
	settled, err := f.svc.VerifyPayment(context.Background(), VerifyRequest{
		UserID:           user.ID,
		OrderID:          order.ID,
		GatewayOrderID:   "order_rzp_abc",
		GatewayPaymentID: "pay_123",
		Signature:        "sig",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := settled.CapturedAmount.StringFixed(2), "300.00"; got != want {
		t.Fatalf("captured amount = %s, want %s", got, want)
	}

	if _, err := f.svc.Cancel(context.Background(), user.ID, order.ID); err != nil {
		t.Fatalf("cancelling order: %v", err)
	}

	// The refund is the 300.00 collected, not the 360.00 total.
	if got, want := f.walletBalance(t, user.ID).StringFixed(2), "300.00"; got != want {
		t.Fatalf("wallet balance = %s, want %s", got, want)
	}
	stock, _ := f.productStock(t, product.ID)
	if stock != 10 {
		t.Fatalf("stock = %d, want 10", stock)
	}
}

func TestCancelCancelledOrderIsNotRefundedTwice(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "400.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusCancelled, paymentStatus: enums.PaymentStatusRefunded,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "100.00", total: "400.00", captured: "400.00", gatewayID: "order_rzp_abc",
	})

	_, err := f.svc.Cancel(context.Background(), user.ID, order.ID)
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if got, want := f.walletBalance(t, user.ID).StringFixed(2), "400.00"; got != want {
		t.Fatalf("wallet balance = %s, want %s", got, want)
	}
	stock, _ := f.productStock(t, product.ID)
	if stock != 10 {
		t.Fatalf("stock = %d, want 10", stock)
	}
}

func TestCancelShippedOrderIsRejected(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 1,
		status: enums.OrderStatusShipped, paymentStatus: enums.PaymentStatusPaid,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "0.00", total: "180.00", gatewayID: "order_rzp_abc",
	})

	_, err := f.svc.Cancel(context.Background(), user.ID, order.ID)
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelOtherUsersOrderIsNotFound(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "0.00")
	other := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: owner.ID, productID: product.ID, quantity: 1,
		status: enums.OrderStatusConfirmed, paymentStatus: enums.PaymentStatusPending,
		method:       enums.PaymentMethodCOD,
		walletAmount: "0.00", total: "180.00",
	})

	_, err := f.svc.Cancel(context.Background(), other.ID, order.ID)
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdminUpdateStatusDeliveredStampsTimestamp(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 1,
		status: enums.OrderStatusShipped, paymentStatus: enums.PaymentStatusPaid,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "0.00", total: "180.00", gatewayID: "order_rzp_abc",
	})

	delivered := enums.OrderStatusDelivered
	updated, err := f.svc.AdminUpdateStatus(context.Background(), order.ID, StatusUpdate{Status: &delivered})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.OrderStatusDelivered {
		t.Fatalf("status = %s, want DELIVERED", updated.Status)
	}
	if updated.DeliveredAt == nil {
		t.Fatal("delivered_at not set")
	}
}

func TestAdminUpdateStatusCancelledOrderIsImmutable(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 10)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 1,
		status: enums.OrderStatusCancelled, paymentStatus: enums.PaymentStatusRefunded,
		method:       enums.PaymentMethodCOD,
		walletAmount: "0.00", total: "180.00",
	})

	shipped := enums.OrderStatusShipped
	_, err := f.svc.AdminUpdateStatus(context.Background(), order.ID, StatusUpdate{Status: &shipped})
	typed := errors.As(err)
	if typed == nil || typed.Code() != errors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAdminRefundOverrideCancelsLiveOrder(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "0.00")
	product := f.seedProduct(t, 8)
	f.conn.Model(&models.Product{}).Where("id = ?", product.ID).Update("orders_count", 1)
	order := f.seedOrder(t, orderSeed{
		userID: user.ID, productID: product.ID, quantity: 2,
		status: enums.OrderStatusConfirmed, paymentStatus: enums.PaymentStatusPaid,
		method:       enums.PaymentMethodRazorpay,
		walletAmount: "0.00", total: "400.00", gatewayID: "order_rzp_abc",
	})

	updated, err := f.svc.AdminUpdatePaymentStatus(context.Background(), order.ID, enums.PaymentStatusRefunded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", updated.Status)
	}
	if updated.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("payment status = %s, want REFUNDED", updated.PaymentStatus)
	}
	stock, _ := f.productStock(t, product.ID)
	if stock != 10 {
		t.Fatalf("stock = %d, want 10", stock)
	}
	if got, want := f.walletBalance(t, user.ID).StringFixed(2), "400.00"; got != want {
		t.Fatalf("wallet balance = %s, want %s", got, want)
	}
}
