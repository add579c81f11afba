package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/freshkart/freshkart-backend/api/middleware"
	"github.com/freshkart/freshkart-backend/api/responses"
	"github.com/freshkart/freshkart-backend/api/validators"
	ordersvc "github.com/freshkart/freshkart-backend/internal/orders"
	"github.com/freshkart/freshkart-backend/pkg/db/models"
	"github.com/freshkart/freshkart-backend/pkg/enums"
	pkgerrors "github.com/freshkart/freshkart-backend/pkg/errors"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

type orderItemResponse struct {
	ProductID    *uuid.UUID `json:"productId,omitempty"`
	ProductName  string     `json:"productName"`
	ProductImage string     `json:"productImage,omitempty"`
	UnitPrice    string     `json:"unitPrice"`
	Quantity     int        `json:"quantity"`
	TotalPrice   string     `json:"totalPrice"`
}

type deliveryResponse struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Landmark   string `json:"landmark,omitempty"`
}

type orderResponse struct {
	OrderID         uuid.UUID           `json:"orderId"`
	OrderNumber     string              `json:"orderNumber"`
	Status          string              `json:"status"`
	PaymentMethod   string              `json:"paymentMethod"`
	PaymentStatus   string              `json:"paymentStatus"`
	Delivery        deliveryResponse    `json:"delivery"`
	Subtotal        string              `json:"subtotal"`
	DeliveryCharge  string              `json:"deliveryCharge"`
	Discount        string              `json:"discount"`
	WalletAmount    string              `json:"walletAmount"`
	Total           string              `json:"total"`
	Items           []orderItemResponse `json:"items"`
	RazorpayOrderID *string             `json:"razorpayOrderId,omitempty"`
	OrderNotes      string              `json:"orderNotes,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	PaidAt          *time.Time          `json:"paidAt,omitempty"`
	DeliveredAt     *time.Time          `json:"deliveredAt,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			UnitPrice:    item.UnitPrice.StringFixed(2),
			Quantity:     item.Quantity,
			TotalPrice:   item.TotalPrice.StringFixed(2),
		})
	}
	return orderResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status.String(),
		PaymentMethod: order.PaymentMethod.String(),
		PaymentStatus: order.PaymentStatus.String(),
		Delivery: deliveryResponse{
			Name:       order.DeliveryName,
			Phone:      order.DeliveryPhone,
			Address:    order.DeliveryAddress,
			City:       order.DeliveryCity,
			State:      order.DeliveryState,
			PostalCode: order.DeliveryPostalCode,
			Landmark:   order.DeliveryLandmark,
		},
		Subtotal:        order.Subtotal.StringFixed(2),
		DeliveryCharge:  order.DeliveryCharge.StringFixed(2),
		Discount:        order.Discount.StringFixed(2),
		WalletAmount:    order.WalletAmount.StringFixed(2),
		Total:           order.Total.StringFixed(2),
		Items:           items,
		RazorpayOrderID: order.RazorpayOrderID,
		OrderNotes:      order.OrderNotes,
		CreatedAt:       order.CreatedAt,
		PaidAt:          order.PaidAt,
		DeliveredAt:     order.DeliveredAt,
	}
}

type orderListResponse struct {
	Orders   []orderResponse `json:"orders"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func newOrderListResponse(orders []models.Order, total int64, page, pageSize int) orderListResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return orderListResponse{Orders: out, Total: total, Page: page, PageSize: pageSize}
}

// OrderList returns the caller's orders, newest first.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		page := validators.IntQuery(r, "page", 1)
		pageSize := validators.IntQuery(r, "pageSize", 20)

		params := ordersvc.ListParams{UserID: &userID, Page: page, PageSize: pageSize}
		if raw := validators.StringQuery(r, "status"); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		orders, total, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderListResponse(orders, total, page, pageSize))
	}
}

// OrderDetail returns one of the caller's orders.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderCancel cancels the caller's order and refunds captured money to the wallet.
func OrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.Cancel(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpayOrderId" validate:"required"`
	RazorpayPaymentID string `json:"razorpayPaymentId" validate:"required"`
	RazorpaySignature string `json:"razorpaySignature" validate:"required"`
}

// OrderVerifyPayment reconciles a gateway payment callback against the order.
func OrderVerifyPayment(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		order, err := svc.VerifyPayment(r.Context(), ordersvc.VerifyRequest{
			UserID:           userID,
			OrderID:          orderID,
			GatewayOrderID:   payload.RazorpayOrderID,
			GatewayPaymentID: payload.RazorpayPaymentID,
			Signature:        payload.RazorpaySignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
