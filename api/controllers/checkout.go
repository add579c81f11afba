package controllers

import (
	"net/http"

	"github.com/freshkart/freshkart-backend/api/middleware"
	"github.com/freshkart/freshkart-backend/api/responses"
	"github.com/freshkart/freshkart-backend/api/validators"
	checkoutsvc "github.com/freshkart/freshkart-backend/internal/checkout"
	"github.com/freshkart/freshkart-backend/pkg/enums"
	pkgerrors "github.com/freshkart/freshkart-backend/pkg/errors"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

type checkoutDeliveryRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,max=20"`
	Address    string `json:"address" validate:"required,max=500"`
	City       string `json:"city" validate:"required,max=80"`
	State      string `json:"state" validate:"required,max=80"`
	PostalCode string `json:"postalCode" validate:"required,max=12"`
	Landmark   string `json:"landmark,omitempty" validate:"omitempty,max=200"`
}

type checkoutRequest struct {
	Delivery      checkoutDeliveryRequest `json:"delivery" validate:"required"`
	PaymentMethod string                  `json:"paymentMethod" validate:"required,oneof=RAZORPAY COD"`
	UseWallet     bool                    `json:"useWallet"`
	OrderNotes    string                  `json:"orderNotes,omitempty" validate:"omitempty,max=500"`
}

type checkoutResponse struct {
	Order   orderResponse                  `json:"order"`
	Payment checkoutsvc.PaymentInstruction `json:"payment"`
}

// Checkout converts the selected cart items into an order and returns the
// payment instructions for settling it.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		result, err := svc.Checkout(r.Context(), checkoutsvc.Request{
			UserID: userID,
			Delivery: checkoutsvc.Address{
				Name:       payload.Delivery.Name,
				Phone:      payload.Delivery.Phone,
				Address:    payload.Delivery.Address,
				City:       payload.Delivery.City,
				State:      payload.Delivery.State,
				PostalCode: payload.Delivery.PostalCode,
				Landmark:   payload.Delivery.Landmark,
			},
			PaymentMethod: method,
			UseWallet:     payload.UseWallet,
			OrderNotes:    payload.OrderNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:   newOrderResponse(result.Order),
			Payment: result.Payment,
		})
	}
}
