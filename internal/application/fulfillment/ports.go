package fulfillment

import (
	"context"

	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/shipment"
)

// TxManager supplies the per-step atomic boundary. Each saga step executes
// inside its own transaction; the saga never opens one transaction across
// steps.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type IDGenerator interface {
	NewID() string
}

// IdempotencyStore rejects duplicate submissions of the same key. Acquire
// returns false when the key was already taken.
type IdempotencyStore interface {
	Acquire(ctx context.Context, key string) (bool, error)
}

// ShipmentCreator is the narrow interface to the shipping collaborator.
type ShipmentCreator interface {
	Create(ctx context.Context, orderID string, address shipment.Address) (*shipment.Shipment, error)
}
