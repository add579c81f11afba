package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/freshkart/freshkart-backend/api/middleware"
	checkoutsvc "github.com/freshkart/freshkart-backend/internal/checkout"
	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/enums"
	pkgerrors "github.com/freshkart/freshkart-backend/pkg/errors"
)

type stubCheckoutService struct {
	result  *checkoutsvc.Result
	err     error
	lastReq checkoutsvc.Request
}

func (s *stubCheckoutService) Checkout(ctx context.Context, req checkoutsvc.Request) (*checkoutsvc.Result, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func checkoutBody() map[string]any {
	return map[string]any{
		"delivery": map[string]any{
			"name":       "Asha Nair",
			"phone":      "+919812345678",
			"address":    "14 Lake View Road",
			"city":       "Kochi",
			"state":      "Kerala",
			"postalCode": "682001",
		},
		"paymentMethod": "COD",
	}
}

func doCheckout(t *testing.T, svc *stubCheckoutService, body map[string]any, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(raw))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	w := httptest.NewRecorder()
	Checkout(svc, nil)(w, req)
	return w
}

func TestCheckoutReturnsCreated(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{
		result: &checkoutsvc.Result{
			Order: &models.Order{
				ID:            uuid.New(),
				OrderNumber:   "ORD-2026-042137",
				UserID:        userID,
				Status:        enums.OrderStatusConfirmed,
				PaymentMethod: enums.PaymentMethodCOD,
				PaymentStatus: enums.PaymentStatusPending,
				Subtotal:      decimal.NewFromInt(91),
				Total:         decimal.NewFromInt(131),
			},
			Payment: checkoutsvc.PaymentInstruction{
				Method:        enums.PaymentMethodCOD,
				WalletApplied: decimal.Zero,
				PayableAmount: decimal.NewFromInt(131),
			},
		},
	}

	w := doCheckout(t, svc, checkoutBody(), userID)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if svc.lastReq.UserID != userID {
		t.Fatalf("user id not propagated: %s", svc.lastReq.UserID)
	}
	if svc.lastReq.PaymentMethod != enums.PaymentMethodCOD {
		t.Fatalf("payment method = %s, want COD", svc.lastReq.PaymentMethod)
	}

	var envelope struct {
		Data struct {
			Order struct {
				OrderNumber string `json:"orderNumber"`
			} `json:"order"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Data.Order.OrderNumber != "ORD-2026-042137" {
		t.Fatalf("order number = %s", envelope.Data.Order.OrderNumber)
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	body := checkoutBody()
	body["paymentMethod"] = "UPI"

	w := doCheckout(t, &stubCheckoutService{}, body, uuid.New())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestCheckoutRejectsMissingDeliveryFields(t *testing.T) {
	body := checkoutBody()
	delivery := body["delivery"].(map[string]any)
	delete(delivery, "city")

	w := doCheckout(t, &stubCheckoutService{}, body, uuid.New())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestCheckoutMapsConflictErrors(t *testing.T) {
	svc := &stubCheckoutService{
		err: pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product"),
	}

	w := doCheckout(t, svc, checkoutBody(), uuid.New())
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestCheckoutMapsDependencyErrors(t *testing.T) {
	svc := &stubCheckoutService{
		err: pkgerrors.New(pkgerrors.CodeDependency, "razorpay create order failed"),
	}

	w := doCheckout(t, svc, checkoutBody(), uuid.New())
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503: %s", w.Code, w.Body.String())
	}
}
