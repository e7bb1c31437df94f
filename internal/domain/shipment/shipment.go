package shipment

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("shipment: not found")
	ErrAlreadyExists     = errors.New("shipment: shipping already exists for order")
	ErrOrderNotApproved  = errors.New("shipment: order is not approved")
	ErrInvalidTransition = errors.New("shipment: invalid status transition")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
)

// Item is the copy of an order line frozen into the shipment.
type Item struct {
	ItemID   string
	Name     string
	Quantity int
}

type Address struct {
	Line1      string
	Line2      string
	City       string
	Region     string
	Country    string
	PostalCode string
}

// Shipment is 1:1 with an order and only exists once the order is approved.
// Its lifecycle is strictly PENDING -> SHIPPED -> DELIVERED.
type Shipment struct {
	ID        string
	OrderID   string
	Items     []Item
	Address   Address
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, orderID string, items []Item, address Address) *Shipment {
	now := time.Now().UTC()
	return &Shipment{
		ID:        id,
		OrderID:   orderID,
		Items:     append([]Item(nil), items...),
		Address:   address,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Shipment) MarkAsShipped() error {
	if s.Status != StatusPending {
		return ErrInvalidTransition
	}
	s.Status = StatusShipped
	s.touch()
	return nil
}

func (s *Shipment) MarkAsDelivered() error {
	if s.Status != StatusShipped {
		return ErrInvalidTransition
	}
	s.Status = StatusDelivered
	s.touch()
	return nil
}

func (s *Shipment) Clone() *Shipment {
	clone := *s
	clone.Items = append([]Item(nil), s.Items...)
	return &clone
}

func (s *Shipment) touch() {
	s.UpdatedAt = time.Now().UTC()
}
