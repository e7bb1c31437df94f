package stock

import "context"

// Repository persists items. DecreaseStock must be an atomic conditional
// decrement: two concurrent reservations may not both pass the sufficiency
// check. The saga relies on this guarantee instead of locking itself.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Item, error)
	FindWithIDIn(ctx context.Context, ids []string) ([]*Item, error)
	Update(ctx context.Context, item *Item) error

	// DecreaseStock fails with ErrInsufficientStock when quantity exceeds the
	// current counter, ErrItemNotFound when the item does not exist.
	DecreaseStock(ctx context.Context, itemID string, quantity int) error
	// IncreaseStock always succeeds for an existing item.
	IncreaseStock(ctx context.Context, itemID string, quantity int) error
}
