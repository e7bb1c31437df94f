package shipment

import "context"

type Repository interface {
	// Create persists a new shipment; a second shipment for the same order
	// fails with ErrAlreadyExists (orderID is unique).
	Create(ctx context.Context, s *Shipment) error
	FindByID(ctx context.Context, id string) (*Shipment, error)
	FindByOrderID(ctx context.Context, orderID string) (*Shipment, error)
	Update(ctx context.Context, s *Shipment) error
}
