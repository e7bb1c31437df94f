package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrAlreadyExists   = errors.New("order: already exists")
	ErrNoItems         = errors.New("order: at least one item is required")
	ErrInvalidQuantity = errors.New("order: item quantity must be greater than zero")
	ErrNotPending      = errors.New("order: status is not pending")
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// OrderItem is a line of an order. PriceAtOrder is a snapshot taken at
// creation time and is immune to later catalog price changes.
type OrderItem struct {
	ID           string
	ItemID       string
	Name         string
	Quantity     int
	PriceAtOrder decimal.Decimal
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.PriceAtOrder.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Order is the aggregate for one fulfillment attempt. PENDING is the only
// non-terminal status; transitions are one-directional.
type Order struct {
	ID          string
	Items       []OrderItem
	Status      Status
	TotalAmount decimal.Decimal
	PaymentRef  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New builds a PENDING order. The caller is responsible for totalAmount
// matching the sum of item subtotals; the entity does not recompute it.
func New(id string, items []OrderItem, totalAmount decimal.Decimal) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	now := time.Now().UTC()
	return &Order{
		ID:          id,
		Items:       append([]OrderItem(nil), items...),
		Status:      StatusPending,
		TotalAmount: totalAmount.Round(2),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MarkAsProcessed approves the order and records the gateway transaction id.
func (o *Order) MarkAsProcessed(paymentRef string) error {
	if o.Status != StatusPending {
		return ErrNotPending
	}
	o.Status = StatusApproved
	o.PaymentRef = paymentRef
	o.touch()
	return nil
}

// MarkAsRejected rejects a pending order. Calling it on a terminal order is
// a no-op: rejection may be retried after a race and must stay safe.
func (o *Order) MarkAsRejected() {
	if o.Status != StatusPending {
		return
	}
	o.Status = StatusRejected
	o.touch()
}

func (o *Order) Clone() *Order {
	clone := *o
	clone.Items = append([]OrderItem(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
