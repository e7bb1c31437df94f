package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrTokenizationFailed = errors.New("payment: card tokenization failed")
	ErrTransactionFailed  = errors.New("payment: transaction failed")
)

// CardDetails is an ephemeral value object: it is only ever sent to the
// processor for tokenization and must never be persisted or logged.
type CardDetails struct {
	Number     string
	ExpMonth   string
	ExpYear    string
	CVC        string
	HolderName string
}

// Charge describes one transaction to create at the processor.
type Charge struct {
	Reference       string
	Amount          decimal.Decimal
	Currency        string
	CustomerEmail   string
	AcceptanceToken string
	CardToken       string
}

type SettlementStatus string

const (
	SettlementPending  SettlementStatus = "PENDING"
	SettlementApproved SettlementStatus = "APPROVED"
	SettlementDeclined SettlementStatus = "DECLINED"
	SettlementError    SettlementStatus = "ERROR"
	// SettlementTimeout is synthesized locally when the poll budget runs out
	// before the processor reaches a terminal state.
	SettlementTimeout SettlementStatus = "TIMEOUT"
)

// SettlementResult is the final disposition of a settlement wait. TIMEOUT is
// a result, not an error: the coordinator decides what to do with it.
type SettlementResult struct {
	TransactionID string
	Status        SettlementStatus
	Message       string
}

func (r SettlementResult) Approved() bool {
	return r.Status == SettlementApproved
}

// Gateway is the protocol adapter to the external card processor.
type Gateway interface {
	// TokenizeCard exchanges raw card fields for an opaque token.
	TokenizeCard(ctx context.Context, card CardDetails) (string, error)
	// CreateTransaction submits a signed charge and returns the transaction id
	// in PENDING state.
	CreateTransaction(ctx context.Context, charge Charge) (string, error)
	// WaitForSettlement polls the transaction until it reaches a terminal
	// state or the attempt budget is exhausted.
	WaitForSettlement(ctx context.Context, transactionID string) (SettlementResult, error)
}

// AmountInCents converts a 2-decimal amount to the integer cents the
// processor expects.
func AmountInCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
