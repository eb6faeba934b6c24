// internal/handler/webhook_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"meeting-service/internal/domain"
	"meeting-service/internal/usecase/payment"
	"meeting-service/pkg/response"

	"go.uber.org/zap"
)

type WebhookHandler struct {
	paymentUC *payment.Service
	logger    *zap.Logger
}

func NewWebhookHandler(paymentUC *payment.Service, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		paymentUC: paymentUC,
		logger:    logger,
	}
}

// HandlePaymentWebhook ingests payment-confirmation events from the
// provider. Deliveries are at-least-once; replays come back as
// already_processed with HTTP 200 so the provider stops retrying.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.logger.Info("received payment webhook",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()))

	var req struct {
		ReferenceID string `json:"reference_id"`
		Type        string `json:"type"`
		UserID      string `json:"user_id"`
		Amount      int64  `json:"amount"`
		Credits     int    `json:"credits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode payment webhook", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.logger.Info("payment event parsed",
		zap.String("reference_id", req.ReferenceID),
		zap.String("type", req.Type),
		zap.String("user_id", req.UserID),
		zap.Int64("amount", req.Amount),
		zap.Int("credits", req.Credits))

	res, err := h.paymentUC.IngestPaymentEvent(ctx, domain.PaymentEventCommand{
		ReferenceID: req.ReferenceID,
		EventType:   domain.TxType(req.Type),
		UserID:      req.UserID,
		Amount:      req.Amount,
		Credits:     req.Credits,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to ingest payment event",
			zap.String("reference_id", req.ReferenceID),
			zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Failed to process payment event")
		return
	}

	response.JSON(w, http.StatusOK, res)
}
