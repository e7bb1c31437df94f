package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/anthonycursewl/wheek-fulfillment/internal/domain/shipment"
)

type ShipmentRepository struct {
	mu        sync.RWMutex
	shipments map[string]*domain.Shipment
	byOrder   map[string]string
}

func NewShipmentRepository() *ShipmentRepository {
	return &ShipmentRepository{
		shipments: make(map[string]*domain.Shipment),
		byOrder:   make(map[string]string),
	}
}

func (r *ShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	_ = ctx
	if s == nil || s.ID == "" {
		return fmt.Errorf("shipment repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOrder[s.OrderID]; exists {
		return domain.ErrAlreadyExists
	}
	r.shipments[s.ID] = s.Clone()
	r.byOrder[s.OrderID] = s.ID
	return nil
}

func (r *ShipmentRepository) FindByID(ctx context.Context, id string) (*domain.Shipment, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shipments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *ShipmentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Shipment, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.shipments[id].Clone(), nil
}

func (r *ShipmentRepository) Update(ctx context.Context, s *domain.Shipment) error {
	_ = ctx
	if s == nil || s.ID == "" {
		return fmt.Errorf("shipment repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shipments[s.ID]; !exists {
		return domain.ErrNotFound
	}
	r.shipments[s.ID] = s.Clone()
	return nil
}
