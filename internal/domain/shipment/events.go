package shipment

import "time"

// ShipmentCreatedEvent is emitted once a shipment is persisted for an
// approved order.
type ShipmentCreatedEvent struct {
	ShipmentID string
	OrderID    string
	OccurredAt time.Time
}

func (ShipmentCreatedEvent) EventName() string { return "shipment.created" }

func NewShipmentCreatedEvent(s *Shipment) ShipmentCreatedEvent {
	return ShipmentCreatedEvent{
		ShipmentID: s.ID,
		OrderID:    s.OrderID,
		OccurredAt: time.Now().UTC(),
	}
}
