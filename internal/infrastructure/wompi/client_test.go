package wompi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:         srv.URL,
		PublicKey:       "pub_test_key",
		PrivateKey:      "prv_test_key",
		IntegritySecret: "integrity_secret",
		PollInterval:    time.Millisecond,
		PollMaxAttempts: 5,
	}, srv.Client())
}

func writeData(w http.ResponseWriter, data map[string]any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func TestTokenizeCard(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/tokens/cards", r.URL.Path)
		require.Equal(t, "Bearer pub_test_key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "4242424242424242", body["number"])
		require.Equal(t, "JANE DOE", body["card_holder"])

		writeData(w, map[string]any{"id": "tok_test_1"})
	})

	token, err := client.TokenizeCard(context.Background(), payment.CardDetails{
		Number: "4242424242424242", ExpMonth: "12", ExpYear: "29", CVC: "123", HolderName: "JANE DOE",
	})
	require.NoError(t, err)
	require.Equal(t, "tok_test_1", token)
}

func TestTokenizeCard_ProcessorError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid card"}`, http.StatusUnprocessableEntity)
	})

	_, err := client.TokenizeCard(context.Background(), payment.CardDetails{Number: "1"})
	require.ErrorIs(t, err, payment.ErrTokenizationFailed)
	require.Contains(t, err.Error(), "422")
}

func TestCreateTransaction(t *testing.T) {
	var got transactionRequest
	var idemKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions", r.URL.Path)
		require.Equal(t, "Bearer prv_test_key", r.Header.Get("Authorization"))
		idemKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeData(w, map[string]any{"id": "txn_1", "status": "PENDING"})
	})

	txnID, err := client.CreateTransaction(context.Background(), payment.Charge{
		Reference:       "order #42 (rush)",
		Amount:          decimal.RequireFromString("123500.00"),
		Currency:        "COP",
		CustomerEmail:   "jane@example.com",
		AcceptanceToken: "accept-tok",
		CardToken:       "tok_test_1",
	})
	require.NoError(t, err)
	require.Equal(t, "txn_1", txnID)
	require.NotEmpty(t, idemKey)

	require.Equal(t, "order42rush", got.Reference)
	require.Equal(t, int64(12350000), got.AmountInCents)
	require.Equal(t, "COP", got.Currency)
	require.Equal(t, "jane@example.com", got.CustomerEmail)
	require.Equal(t, "accept-tok", got.AcceptanceToken)
	require.Equal(t, "CARD", got.PaymentMethod.Type)
	require.Equal(t, "tok_test_1", got.PaymentMethod.Token)
	require.Equal(t, 1, got.PaymentMethod.Installments)

	sum := sha256.Sum256([]byte("order42rush" + "12350000" + "COP" + "integrity_secret"))
	require.Equal(t, hex.EncodeToString(sum[:]), got.Signature)
}

func TestCreateTransaction_ProcessorError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.CreateTransaction(context.Background(), payment.Charge{
		Reference: "order-1", Amount: decimal.NewFromInt(10), Currency: "COP",
	})
	require.ErrorIs(t, err, payment.ErrTransactionFailed)
}

func TestWaitForSettlement_Approved(t *testing.T) {
	var polls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/txn_1", r.URL.Path)
		require.Equal(t, "Bearer prv_test_key", r.Header.Get("Authorization"))
		polls++
		status := "PENDING"
		if polls >= 3 {
			status = "APPROVED"
		}
		writeData(w, map[string]any{"id": "txn_1", "status": status})
	})

	res, err := client.WaitForSettlement(context.Background(), "txn_1")
	require.NoError(t, err)
	require.Equal(t, payment.SettlementApproved, res.Status)
	require.Equal(t, "txn_1", res.TransactionID)
	require.True(t, res.Approved())
	require.Equal(t, 3, polls)
}

func TestWaitForSettlement_Declined(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"id": "txn_1", "status": "DECLINED", "status_message": "insufficient funds"})
	})

	res, err := client.WaitForSettlement(context.Background(), "txn_1")
	require.NoError(t, err)
	require.Equal(t, payment.SettlementDeclined, res.Status)
	require.Equal(t, "insufficient funds", res.Message)
	require.False(t, res.Approved())
}

func TestWaitForSettlement_Timeout(t *testing.T) {
	var polls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		polls++
		writeData(w, map[string]any{"id": "txn_1", "status": "PENDING"})
	})

	res, err := client.WaitForSettlement(context.Background(), "txn_1")
	require.NoError(t, err)
	require.Equal(t, payment.SettlementTimeout, res.Status)
	require.Equal(t, 5, polls)
}

func TestWaitForSettlement_RetriesTransientReadFailures(t *testing.T) {
	var polls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls == 1 {
			http.Error(w, "gateway hiccup", http.StatusBadGateway)
			return
		}
		writeData(w, map[string]any{"id": "txn_1", "status": "APPROVED"})
	})

	res, err := client.WaitForSettlement(context.Background(), "txn_1")
	require.NoError(t, err)
	require.Equal(t, payment.SettlementApproved, res.Status)
	require.Equal(t, 2, polls)
}

func TestWaitForSettlement_ContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{"id": "txn_1", "status": "PENDING"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.WaitForSettlement(ctx, "txn_1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeReference(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"order-1", "order-1"},
		{"order #42 (rush)", "order42rush"},
		{"ção/ref.2024", "oref2024"},
		{fmt.Sprintf("%039d7", 0), fmt.Sprintf("%032d", 0)},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, SanitizeReference(tc.in), "input %q", tc.in)
		require.LessOrEqual(t, len(SanitizeReference(tc.in)), 32)
	}
}
