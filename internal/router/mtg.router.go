package router

import (
	"net/http"

	"meeting-service/internal/handler"
	"meeting-service/internal/middleware"
	"meeting-service/internal/usecase/booking"
	"meeting-service/internal/usecase/ledger"
	"meeting-service/internal/usecase/payment"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func New(
	bookingUC *booking.Service,
	ledgerUC *ledger.Service,
	paymentUC *payment.Service,
	auth *middleware.AuthMiddleware,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Payment provider callbacks authenticate with provider signatures,
	// not user sessions.
	webhook := handler.NewWebhookHandler(paymentUC, logger)
	r.Post("/webhooks/payment", webhook.HandlePaymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/api", func(r chi.Router) {
			r.Post("/meetings", handler.CreateMeetingHandler(bookingUC))
			r.Get("/meetings/{meetingID}", handler.GetMeetingHandler(bookingUC))
			r.Post("/meetings/{meetingID}/respond", handler.RespondToMeetingHandler(bookingUC))
			r.Get("/meetings/{meetingID}/cancellation-preview", handler.CancellationPreviewHandler(bookingUC))
			r.Post("/meetings/{meetingID}/cancel", handler.CancelMeetingHandler(bookingUC))

			r.Get("/wallet/{userID}", handler.WalletSummaryHandler(ledgerUC))
			r.Get("/wallet/transactions/{userID}", handler.WalletTransactionsHandler(ledgerUC))
			r.Get("/ws/wallet", handler.WalletWSHandler(ledgerUC, logger))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/admin/wallet/adjust", handler.AdjustWalletHandler(paymentUC))
				r.Post("/admin/meetings/{meetingID}/complete", handler.CompleteMeetingHandler(bookingUC))
				r.Post("/admin/meetings/{meetingID}/cancellation-fee", handler.SetCancellationFeeHandler(bookingUC))
			})
		})
	})

	return r
}
