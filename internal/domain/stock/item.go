package stock

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound      = errors.New("stock: item not found")
	ErrInvalidQuantity   = errors.New("stock: quantity must be greater than zero")
	ErrInvalidPrice      = errors.New("stock: price must be zero or greater")
	ErrInsufficientStock = errors.New("stock: insufficient stock")
)

// Item is a sellable catalog entry with its available quantity.
// Items are never deleted; the ledger only adjusts Quantity.
type Item struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	UpdatedAt time.Time
}

func NewItem(id, name string, price decimal.Decimal, quantity int) (*Item, error) {
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Item{
		ID:        id,
		Name:      name,
		Price:     price.Round(2),
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Deduct reserves quantity units, keeping the non-negative invariant.
func (i *Item) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > i.Quantity {
		return ErrInsufficientStock
	}
	i.Quantity -= quantity
	i.touch()
	return nil
}

// Restock returns quantity units to the counter. There is no upper bound;
// it is the compensating move for a prior Deduct.
func (i *Item) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	i.Quantity += quantity
	i.touch()
	return nil
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}
