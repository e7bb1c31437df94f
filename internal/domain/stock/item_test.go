package stock

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	item, err := NewItem("item-a", "Coffee", decimal.RequireFromString("35000.005"), 5)
	require.NoError(t, err)
	require.Equal(t, "35000.01", item.Price.StringFixed(2))

	_, err = NewItem("item-a", "Coffee", decimal.RequireFromString("-1"), 5)
	require.ErrorIs(t, err, ErrInvalidPrice)

	_, err = NewItem("item-a", "Coffee", decimal.Zero, -1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDeduct(t *testing.T) {
	item, err := NewItem("item-a", "Coffee", decimal.Zero, 5)
	require.NoError(t, err)

	require.NoError(t, item.Deduct(3))
	require.Equal(t, 2, item.Quantity)

	require.ErrorIs(t, item.Deduct(3), ErrInsufficientStock)
	require.Equal(t, 2, item.Quantity)

	require.ErrorIs(t, item.Deduct(0), ErrInvalidQuantity)
}

func TestRestock(t *testing.T) {
	item, err := NewItem("item-a", "Coffee", decimal.Zero, 0)
	require.NoError(t, err)

	require.NoError(t, item.Restock(7))
	require.Equal(t, 7, item.Quantity)

	require.ErrorIs(t, item.Restock(-1), ErrInvalidQuantity)
}
