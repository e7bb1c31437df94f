package order

import "time"

// OrderApprovedEvent is emitted when payment settles and the order is approved.
type OrderApprovedEvent struct {
	OrderID    string
	PaymentRef string
	OccurredAt time.Time
}

func (OrderApprovedEvent) EventName() string { return "order.approved" }

func NewOrderApprovedEvent(o *Order) OrderApprovedEvent {
	return OrderApprovedEvent{
		OrderID:    o.ID,
		PaymentRef: o.PaymentRef,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderRejectedEvent is emitted when a fulfillment attempt ends in rejection.
type OrderRejectedEvent struct {
	OrderID    string
	Reason     string
	OccurredAt time.Time
}

func (OrderRejectedEvent) EventName() string { return "order.rejected" }

func NewOrderRejectedEvent(orderID, reason string) OrderRejectedEvent {
	return OrderRejectedEvent{
		OrderID:    orderID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
