package wompi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/payment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/pkg/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPollInterval    = 2 * time.Second
	defaultPollMaxAttempts = 30
	maxReferenceLength     = 32
)

// The processor only accepts alphanumeric and hyphen characters in the
// transaction reference.
var referenceSanitizer = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// Config carries the processor credentials, injected at construction.
type Config struct {
	BaseURL         string
	PublicKey       string
	PrivateKey      string
	IntegritySecret string
	PollInterval    time.Duration
	PollMaxAttempts int
}

// Client implements payment.Gateway against the processor's REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = defaultPollMaxAttempts
	}
	return &Client{cfg: cfg, http: httpClient}
}

type tokenRequest struct {
	Number     string `json:"number"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CVC        string `json:"cvc"`
	CardHolder string `json:"card_holder"`
}

type transactionRequest struct {
	AcceptanceToken string        `json:"acceptance_token"`
	AmountInCents   int64         `json:"amount_in_cents"`
	Currency        string        `json:"currency"`
	Signature       string        `json:"signature"`
	CustomerEmail   string        `json:"customer_email"`
	PaymentMethod   paymentMethod `json:"payment_method"`
	Reference       string        `json:"reference"`
}

type paymentMethod struct {
	Type         string `json:"type"`
	Token        string `json:"token"`
	Installments int    `json:"installments"`
}

type apiResponse struct {
	Data struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		StatusMessage string `json:"status_message"`
	} `json:"data"`
}

// TokenizeCard exchanges raw card fields for an opaque token. The card
// fields go on the wire and nowhere else; they are never logged.
func (c *Client) TokenizeCard(ctx context.Context, card payment.CardDetails) (string, error) {
	body := tokenRequest{
		Number:     card.Number,
		ExpMonth:   card.ExpMonth,
		ExpYear:    card.ExpYear,
		CVC:        card.CVC,
		CardHolder: card.HolderName,
	}

	var res apiResponse
	if err := c.post(ctx, "/tokens/cards", c.cfg.PublicKey, "", body, &res); err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrTokenizationFailed, err)
	}
	if res.Data.ID == "" {
		return "", fmt.Errorf("%w: empty token in response", payment.ErrTokenizationFailed)
	}
	return res.Data.ID, nil
}

// CreateTransaction submits a signed charge. A fresh idempotency key is
// attached so a retried network failure cannot produce a duplicate charge.
func (c *Client) CreateTransaction(ctx context.Context, charge payment.Charge) (string, error) {
	reference := SanitizeReference(charge.Reference)
	cents := payment.AmountInCents(charge.Amount)

	body := transactionRequest{
		AcceptanceToken: charge.AcceptanceToken,
		AmountInCents:   cents,
		Currency:        charge.Currency,
		Signature:       c.Signature(reference, cents, charge.Currency),
		CustomerEmail:   charge.CustomerEmail,
		PaymentMethod: paymentMethod{
			Type:         "CARD",
			Token:        charge.CardToken,
			Installments: 1,
		},
		Reference: reference,
	}

	var res apiResponse
	if err := c.post(ctx, "/transactions", c.cfg.PrivateKey, uuid.NewString(), body, &res); err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrTransactionFailed, err)
	}
	if res.Data.ID == "" {
		return "", fmt.Errorf("%w: empty transaction id in response", payment.ErrTransactionFailed)
	}

	logging.FromContext(ctx).Info("payment_transaction_created",
		zap.String("component", "payment_gateway"),
		zap.String("transaction_id", res.Data.ID),
		zap.String("reference", reference),
		zap.Int64("amount_in_cents", cents),
	)
	return res.Data.ID, nil
}

// WaitForSettlement polls the transaction at a fixed interval until it
// reaches a terminal state. Exhausting the attempt budget yields a TIMEOUT
// result rather than an error; transient read failures are retried since
// status reads are idempotent.
func (c *Client) WaitForSettlement(ctx context.Context, transactionID string) (payment.SettlementResult, error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "payment_gateway"),
		zap.String("transaction_id", transactionID),
	)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.cfg.PollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return payment.SettlementResult{}, ctx.Err()
		case <-ticker.C:
		}

		status, message, err := c.getTransaction(ctx, transactionID)
		if err != nil {
			logger.Warn("payment_poll_attempt_failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		logger.Debug("payment_poll_attempt",
			zap.Int("attempt", attempt),
			zap.String("status", status),
		)

		switch payment.SettlementStatus(status) {
		case payment.SettlementApproved, payment.SettlementDeclined, payment.SettlementError:
			return payment.SettlementResult{
				TransactionID: transactionID,
				Status:        payment.SettlementStatus(status),
				Message:       message,
			}, nil
		}
	}

	logger.Warn("payment_poll_timeout", zap.Int("attempts", c.cfg.PollMaxAttempts))
	return payment.SettlementResult{
		TransactionID: transactionID,
		Status:        payment.SettlementTimeout,
		Message:       "settlement did not reach a terminal state in time",
	}, nil
}

// Signature is the integrity hash the processor verifies:
// SHA-256 over reference, cents, currency and the shared secret.
func (c *Client) Signature(reference string, cents int64, currency string) string {
	sum := sha256.Sum256([]byte(reference + strconv.FormatInt(cents, 10) + currency + c.cfg.IntegritySecret))
	return hex.EncodeToString(sum[:])
}

// SanitizeReference strips everything but alphanumerics and hyphens and
// truncates to the processor's 32-character limit.
func SanitizeReference(reference string) string {
	clean := referenceSanitizer.ReplaceAllString(reference, "")
	if len(clean) > maxReferenceLength {
		clean = clean[:maxReferenceLength]
	}
	return clean
}

func (c *Client) getTransaction(ctx context.Context, id string) (status, message string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/transactions/"+id, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.PrivateKey)

	var res apiResponse
	if err := c.do(req, &res); err != nil {
		return "", "", err
	}
	return res.Data.Status, res.Data.StatusMessage, nil
}

func (c *Client) post(ctx context.Context, path, bearer, idempotencyKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("processor returned %d: %s", res.StatusCode, bytes.TrimSpace(detail))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
