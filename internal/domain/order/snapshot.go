package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the primitive form of an order, used by persistence adapters.
// Money travels as fixed-point strings so a round trip never loses scale.
type Snapshot struct {
	ID          string
	Status      string
	TotalAmount string
	PaymentRef  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []ItemSnapshot
}

type ItemSnapshot struct {
	ID           string
	ItemID       string
	Name         string
	Quantity     int
	PriceAtOrder string
}

func (o *Order) Snapshot() Snapshot {
	items := make([]ItemSnapshot, len(o.Items))
	for i, it := range o.Items {
		items[i] = ItemSnapshot{
			ID:           it.ID,
			ItemID:       it.ItemID,
			Name:         it.Name,
			Quantity:     it.Quantity,
			PriceAtOrder: it.PriceAtOrder.StringFixed(2),
		}
	}
	return Snapshot{
		ID:          o.ID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		PaymentRef:  o.PaymentRef,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Items:       items,
	}
}

// FromSnapshot reconstructs an order without re-running creation validation;
// stored rows are trusted.
func FromSnapshot(s Snapshot) (*Order, error) {
	total, err := decimal.NewFromString(s.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("order: parse total amount: %w", err)
	}
	switch Status(s.Status) {
	case StatusPending, StatusApproved, StatusRejected:
	default:
		return nil, fmt.Errorf("order: unknown status %q", s.Status)
	}

	items := make([]OrderItem, len(s.Items))
	for i, it := range s.Items {
		price, err := decimal.NewFromString(it.PriceAtOrder)
		if err != nil {
			return nil, fmt.Errorf("order: parse item price: %w", err)
		}
		items[i] = OrderItem{
			ID:           it.ID,
			ItemID:       it.ItemID,
			Name:         it.Name,
			Quantity:     it.Quantity,
			PriceAtOrder: price,
		}
	}

	return &Order{
		ID:          s.ID,
		Items:       items,
		Status:      Status(s.Status),
		TotalAmount: total,
		PaymentRef:  s.PaymentRef,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}, nil
}
