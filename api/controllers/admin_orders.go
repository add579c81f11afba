package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/freshkart/freshkart-backend/api/responses"
	"github.com/freshkart/freshkart-backend/api/validators"
	ordersvc "github.com/freshkart/freshkart-backend/internal/orders"
	"github.com/freshkart/freshkart-backend/pkg/enums"
	pkgerrors "github.com/freshkart/freshkart-backend/pkg/errors"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

// AdminOrderList lists all orders with optional status and user filters.
func AdminOrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := validators.IntQuery(r, "page", 1)
		pageSize := validators.IntQuery(r, "pageSize", 20)

		params := ordersvc.ListParams{Page: page, PageSize: pageSize}
		if raw := validators.StringQuery(r, "status"); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}
		if raw := validators.StringQuery(r, "paymentStatus"); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter"))
				return
			}
			params.PaymentStatus = &status
		}
		if raw := validators.StringQuery(r, "userId"); raw != "" {
			userID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid userId filter"))
				return
			}
			params.UserID = &userID
		}

		orders, total, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderListResponse(orders, total, page, pageSize))
	}
}

type adminOrderUpdateRequest struct {
	Status     *string `json:"status,omitempty" validate:"omitempty,max=32"`
	AdminNotes *string `json:"adminNotes,omitempty" validate:"omitempty,max=1000"`
}

// AdminOrderUpdate moves an order along the fulfillment lifecycle and/or
// updates internal notes.
func AdminOrderUpdate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminOrderUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Status == nil && payload.AdminNotes == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}

		update := ordersvc.StatusUpdate{AdminNotes: payload.AdminNotes}
		if payload.Status != nil {
			status, err := enums.ParseOrderStatus(*payload.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
				return
			}
			update.Status = &status
		}

		order, err := svc.AdminUpdateStatus(r.Context(), orderID, update)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type adminPaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,max=32"`
}

// AdminOrderUpdatePaymentStatus adjusts the settlement axis of an order.
// Setting REFUNDED on a live order runs the full cancellation flow.
func AdminOrderUpdatePaymentStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminPaymentStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParsePaymentStatus(payload.PaymentStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
			return
		}

		order, err := svc.AdminUpdatePaymentStatus(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminOrderCancel cancels any order, restoring stock and refunding captured money.
func AdminOrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdminCancel(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminOrderDetail returns any order by id.
func AdminOrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdminGet(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}
