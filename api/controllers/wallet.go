package controllers

import (
	"net/http"

	"github.com/freshkart/freshkart-backend/api/middleware"
	"github.com/freshkart/freshkart-backend/api/responses"
	walletsvc "github.com/freshkart/freshkart-backend/internal/wallet"
	"github.com/freshkart/freshkart-backend/pkg/logger"
)

// WalletBalance returns the caller's current wallet balance.
func WalletBalance(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"balance": balance.StringFixed(2)})
	}
}
