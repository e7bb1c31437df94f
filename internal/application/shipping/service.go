package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/order"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/shipment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/pkg/logging"
	"go.uber.org/zap"
)

type IDGenerator interface {
	NewID() string
}

// Service creates shipments for approved orders and advances their
// lifecycle.
type Service struct {
	orderRepo    order.Repository
	shipmentRepo shipment.Repository
	ids          IDGenerator
}

func NewService(orderRepo order.Repository, shipmentRepo shipment.Repository, ids IDGenerator) *Service {
	return &Service{
		orderRepo:    orderRepo,
		shipmentRepo: shipmentRepo,
		ids:          ids,
	}
}

// Create persists a PENDING shipment for an approved order, copying the
// order's item snapshot. At most one shipment may exist per order.
func (s *Service) Create(ctx context.Context, orderID string, address shipment.Address) (*shipment.Shipment, error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "shipping_service"),
		zap.String("order_id", orderID),
	)

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, order.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if o.Status != order.StatusApproved {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, o.Status, shipment.ErrOrderNotApproved)
	}

	if _, err := s.shipmentRepo.FindByOrderID(ctx, orderID); err == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, shipment.ErrAlreadyExists)
	} else if !errors.Is(err, shipment.ErrNotFound) {
		return nil, fmt.Errorf("check existing shipment: %w", err)
	}

	items := make([]shipment.Item, len(o.Items))
	for i, it := range o.Items {
		items[i] = shipment.Item{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Quantity: it.Quantity,
		}
	}

	sh := shipment.New(s.ids.NewID(), orderID, items, address)
	if err := s.shipmentRepo.Create(ctx, sh); err != nil {
		return nil, fmt.Errorf("persist shipment: %w", err)
	}

	logger.Info("shipment_created", zap.String("shipment_id", sh.ID))
	return sh, nil
}

// MarkShipped advances a PENDING shipment to SHIPPED.
func (s *Service) MarkShipped(ctx context.Context, shipmentID string) (*shipment.Shipment, error) {
	return s.transition(ctx, shipmentID, (*shipment.Shipment).MarkAsShipped)
}

// MarkDelivered advances a SHIPPED shipment to DELIVERED.
func (s *Service) MarkDelivered(ctx context.Context, shipmentID string) (*shipment.Shipment, error) {
	return s.transition(ctx, shipmentID, (*shipment.Shipment).MarkAsDelivered)
}

func (s *Service) FindByOrderID(ctx context.Context, orderID string) (*shipment.Shipment, error) {
	return s.shipmentRepo.FindByOrderID(ctx, orderID)
}

func (s *Service) transition(ctx context.Context, shipmentID string, move func(*shipment.Shipment) error) (*shipment.Shipment, error) {
	sh, err := s.shipmentRepo.FindByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if err := move(sh); err != nil {
		return nil, fmt.Errorf("shipment %s in %s: %w", shipmentID, sh.Status, err)
	}
	if err := s.shipmentRepo.Update(ctx, sh); err != nil {
		return nil, fmt.Errorf("persist shipment: %w", err)
	}
	logging.FromContext(ctx).Info("shipment_status_changed",
		zap.String("component", "shipping_service"),
		zap.String("shipment_id", sh.ID),
		zap.String("status", string(sh.Status)),
	)
	return sh, nil
}
