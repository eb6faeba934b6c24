package ledger

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Notifier pushes balance updates to connected websocket clients. Losing
// a message is fine; the wallet summary endpoint is the source of truth.
type Notifier struct {
	clients map[string]map[*websocket.Conn]bool
	mu      sync.Mutex
	logger  *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		clients: make(map[string]map[*websocket.Conn]bool),
		logger:  logger,
	}
}

func (n *Notifier) RegisterConnection(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clients[userID] == nil {
		n.clients[userID] = make(map[*websocket.Conn]bool)
	}
	n.clients[userID][conn] = true
}

func (n *Notifier) UnregisterConnection(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if conns, ok := n.clients[userID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(n.clients, userID)
		}
	}
}

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (n *Notifier) NotifyBalance(userID string, balance int64, currency string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	payload, _ := json.Marshal(wsMessage{
		Type: "balance_update",
		Data: map[string]interface{}{
			"user_id":  userID,
			"balance":  balance,
			"currency": currency,
		},
	})

	for conn := range n.clients[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			n.logger.Warn("balance push failed, dropping connection",
				zap.String("user_id", userID),
				zap.Error(err))
			conn.Close()
			delete(n.clients[userID], conn)
		}
	}
}
