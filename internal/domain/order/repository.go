package order

import "context"

type Repository interface {
	// Save persists a new order; a duplicate id fails with ErrAlreadyExists.
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order) error
}
