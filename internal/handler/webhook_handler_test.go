package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"meeting-service/internal/repository/repotest"
	"meeting-service/internal/usecase/ledger"
	"meeting-service/internal/usecase/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWebhookHandler() (*WebhookHandler, *repotest.FakeWalletRepo) {
	wallets := repotest.NewFakeWalletRepo()
	txs := repotest.NewFakeTransactionRepo()
	credits := repotest.NewFakeCreditRepo()
	ledgerSvc := ledger.New(wallets, txs, credits, nil, "USD", zap.NewNop())
	paymentSvc := payment.New(ledgerSvc, txs, zap.NewNop())
	return NewWebhookHandler(paymentSvc, zap.NewNop()), wallets
}

func postWebhook(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandlePaymentWebhook(rec, req)
	return rec
}

func TestHandlePaymentWebhookTopup(t *testing.T) {
	h, wallets := newWebhookHandler()

	body := `{"reference_id":"pay-001","type":"topup","user_id":"u1","amount":2500}`
	rec := postWebhook(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"applied":true`)
	assert.Equal(t, int64(2500), wallets.Balance("u1"))

	// A replayed delivery still answers 200 so the provider stops.
	rec = postWebhook(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"already_processed":true`)
	assert.Equal(t, int64(2500), wallets.Balance("u1"))
}

func TestHandlePaymentWebhookRejectsBadPayload(t *testing.T) {
	h, _ := newWebhookHandler()

	rec := postWebhook(t, h, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(t, h, `{"reference_id":"pay-002","type":"topup","user_id":"u1","amount":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(t, h, `{"reference_id":"pay-003","type":"cancellation_fee","user_id":"u1","amount":100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
