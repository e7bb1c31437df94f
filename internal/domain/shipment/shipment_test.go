package shipment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestShipment() *Shipment {
	return New("ship-1", "order-1",
		[]Item{{ItemID: "item-a", Name: "Coffee", Quantity: 3}},
		Address{Line1: "Cra 7 # 11-22", City: "Bogotá", Country: "CO"},
	)
}

func TestNew(t *testing.T) {
	s := newTestShipment()
	require.Equal(t, StatusPending, s.Status)
	require.Equal(t, "order-1", s.OrderID)
	require.Len(t, s.Items, 1)
}

func TestLifecycle(t *testing.T) {
	s := newTestShipment()

	// no skipping ahead
	require.ErrorIs(t, s.MarkAsDelivered(), ErrInvalidTransition)

	require.NoError(t, s.MarkAsShipped())
	require.Equal(t, StatusShipped, s.Status)

	// no repeats, no reversal
	require.ErrorIs(t, s.MarkAsShipped(), ErrInvalidTransition)

	require.NoError(t, s.MarkAsDelivered())
	require.Equal(t, StatusDelivered, s.Status)

	require.ErrorIs(t, s.MarkAsShipped(), ErrInvalidTransition)
	require.ErrorIs(t, s.MarkAsDelivered(), ErrInvalidTransition)
}
