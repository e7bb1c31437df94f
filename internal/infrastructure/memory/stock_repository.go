package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/anthonycursewl/wheek-fulfillment/internal/domain/stock"
)

// StockRepository is an in-memory stock store for tests and dev mode. The
// mutex makes DecreaseStock an atomic conditional decrement, matching the
// guarantee the MySQL adapter provides with a conditional UPDATE.
type StockRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewStockRepository() *StockRepository {
	return &StockRepository{
		items: make(map[string]*domain.Item),
	}
}

// Seed installs an item, replacing any existing row. Intended for tests and
// dev bootstrapping.
func (r *StockRepository) Seed(item *domain.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = cloneItem(item)
}

func (r *StockRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return cloneItem(item), nil
}

func (r *StockRepository) FindWithIDIn(ctx context.Context, ids []string) ([]*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make([]*domain.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			found = append(found, cloneItem(item))
		}
	}
	return found, nil
}

func (r *StockRepository) Update(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil || item.ID == "" {
		return fmt.Errorf("stock repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return domain.ErrItemNotFound
	}
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *StockRepository) DecreaseStock(ctx context.Context, itemID string, quantity int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	return item.Deduct(quantity)
}

func (r *StockRepository) IncreaseStock(ctx context.Context, itemID string, quantity int) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return domain.ErrItemNotFound
	}
	return item.Restock(quantity)
}

func cloneItem(item *domain.Item) *domain.Item {
	if item == nil {
		return nil
	}
	clone := *item
	return &clone
}
