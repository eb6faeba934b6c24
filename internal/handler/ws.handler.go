// internal/handler/ws.handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"meeting-service/internal/middleware"
	"meeting-service/internal/usecase/ledger"
	"meeting-service/pkg/response"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WalletWSHandler streams balance updates to the authenticated user. The
// stream is a convenience; the summary endpoint stays authoritative.
func WalletWSHandler(uc *ledger.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserID(r.Context())
		if !ok {
			response.Error(w, http.StatusUnauthorized, "Missing user identity")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "WebSocket upgrade failed")
			return
		}

		notifier := uc.BalanceNotifier()
		notifier.RegisterConnection(userID, conn)
		defer notifier.UnregisterConnection(userID, conn)

		// Push the current state on connect.
		if wallet, credits, err := uc.WalletSummary(r.Context(), userID); err == nil {
			payload, _ := json.Marshal(map[string]interface{}{
				"type": "initial_data",
				"data": map[string]interface{}{
					"wallet":            wallet,
					"credits":           credits,
					"available_credits": credits.Available(),
				},
			})
			_ = conn.WriteMessage(websocket.TextMessage, payload)
		} else {
			logger.Warn("initial wallet summary failed", zap.String("user_id", userID), zap.Error(err))
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Info("wallet ws client disconnected",
					zap.String("user_id", userID),
					zap.Error(err))
				break
			}
		}
	}
}
