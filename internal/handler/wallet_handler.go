package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"meeting-service/internal/domain"
	"meeting-service/internal/middleware"
	"meeting-service/internal/usecase/ledger"
	"meeting-service/internal/usecase/payment"
	"meeting-service/pkg/response"

	"github.com/go-chi/chi/v5"
)

// callerMaySee allows self-access plus the admin role.
func callerMaySee(r *http.Request, targetUserID string) bool {
	userID, _ := middleware.GetUserID(r.Context())
	if userID == targetUserID {
		return true
	}
	role, _ := middleware.GetRole(r.Context())
	return role == "admin"
}

func WalletSummaryHandler(uc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			response.Error(w, http.StatusBadRequest, "Missing user ID")
			return
		}
		if !callerMaySee(r, userID) {
			response.Error(w, http.StatusForbidden, "Forbidden")
			return
		}

		wallet, credits, err := uc.WalletSummary(r.Context(), userID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "Failed to load wallet summary")
			return
		}
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"wallet":            wallet,
			"credits":           credits,
			"available_credits": credits.Available(),
		})
	}
}

func WalletTransactionsHandler(uc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			response.Error(w, http.StatusBadRequest, "Missing user ID")
			return
		}
		if !callerMaySee(r, userID) {
			response.Error(w, http.StatusForbidden, "Forbidden")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		transactions, err := uc.ListTransactions(r.Context(), userID, limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "Failed to list transactions")
			return
		}
		response.JSON(w, http.StatusOK, map[string]interface{}{
			"transactions": transactions,
		})
	}
}

func AdjustWalletHandler(uc *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Missing user identity")
			return
		}

		var body struct {
			UserID      string  `json:"user_id"`
			Delta       *int64  `json:"delta"`
			Reason      string  `json:"reason"`
			ReferenceID *string `json:"reference_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if body.Delta == nil {
			response.Error(w, http.StatusBadRequest, "Missing delta")
			return
		}

		res, err := uc.AdjustWallet(r.Context(), domain.AdjustWalletCommand{
			AdminID:     adminID,
			UserID:      body.UserID,
			Delta:       *body.Delta,
			Reason:      body.Reason,
			ReferenceID: body.ReferenceID,
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}
		response.JSON(w, http.StatusOK, res)
	}
}
