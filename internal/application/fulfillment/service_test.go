package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/anthonycursewl/wheek-fulfillment/internal/application/shipping"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/order"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/payment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/shipment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/stock"
	"github.com/anthonycursewl/wheek-fulfillment/internal/infrastructure/id"
	"github.com/anthonycursewl/wheek-fulfillment/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	tokenizeErr error
	createErr   error
	waitErr     error
	settlement  payment.SettlementStatus
	message     string

	charges []payment.Charge
}

func approvingGateway() *fakeGateway {
	return &fakeGateway{settlement: payment.SettlementApproved}
}

func (g *fakeGateway) TokenizeCard(_ context.Context, _ payment.CardDetails) (string, error) {
	if g.tokenizeErr != nil {
		return "", g.tokenizeErr
	}
	return "tok-123", nil
}

func (g *fakeGateway) CreateTransaction(_ context.Context, charge payment.Charge) (string, error) {
	if g.createErr != nil {
		return "", g.createErr
	}
	g.charges = append(g.charges, charge)
	return fmt.Sprintf("txn-%d", len(g.charges)), nil
}

func (g *fakeGateway) WaitForSettlement(_ context.Context, transactionID string) (payment.SettlementResult, error) {
	if g.waitErr != nil {
		return payment.SettlementResult{}, g.waitErr
	}
	return payment.SettlementResult{
		TransactionID: transactionID,
		Status:        g.settlement,
		Message:       g.message,
	}, nil
}

type fakeIdemStore struct {
	acquired map[string]bool
	err      error
}

func (s *fakeIdemStore) Acquire(_ context.Context, key string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.acquired == nil {
		s.acquired = make(map[string]bool)
	}
	if s.acquired[key] {
		return false, nil
	}
	s.acquired[key] = true
	return true, nil
}

type fixture struct {
	svc       *Service
	stockRepo *memory.StockRepository
	orderRepo *memory.OrderRepository
	shipRepo  *memory.ShipmentRepository
}

func newFixture(t *testing.T, gw payment.Gateway, opts ...Option) *fixture {
	t.Helper()

	stockRepo := memory.NewStockRepository()
	orderRepo := memory.NewOrderRepository()
	shipRepo := memory.NewShipmentRepository()
	ids := id.NewUUIDGenerator()

	seed := func(itemID, name, price string, qty int) {
		item, err := stock.NewItem(itemID, name, decimal.RequireFromString(price), qty)
		require.NoError(t, err)
		stockRepo.Seed(item)
	}
	seed("item-a", "Coffee", "100.00", 5)
	seed("item-b", "Mug", "50.00", 5)

	shippingSvc := shipping.NewService(orderRepo, shipRepo, ids)
	svc := NewService(stockRepo, orderRepo, gw, shippingSvc, memory.NewTxManager(), ids, "COP", opts...)

	return &fixture{svc: svc, stockRepo: stockRepo, orderRepo: orderRepo, shipRepo: shipRepo}
}

func (f *fixture) quantity(t *testing.T, itemID string) int {
	t.Helper()
	item, err := f.stockRepo.FindByID(context.Background(), itemID)
	require.NoError(t, err)
	return item.Quantity
}

func validInput(orderID string, items ...LineItem) FulfillOrderInput {
	if len(items) == 0 {
		items = []LineItem{{ItemID: "item-a", Quantity: 3}}
	}
	return FulfillOrderInput{
		OrderID:         orderID,
		Items:           items,
		Card:            payment.CardDetails{Number: "4242424242424242", ExpMonth: "12", ExpYear: "29", CVC: "123", HolderName: "JANE DOE"},
		CustomerEmail:   "jane@example.com",
		AcceptanceToken: "accept-tok",
		ShippingAddress: shipment.Address{Line1: "Cra 7 # 11-22", City: "Bogotá", Country: "CO"},
	}
}

func TestFulfillOrder_Success(t *testing.T) {
	gw := approvingGateway()
	f := newFixture(t, gw)

	orderID, err := f.svc.FulfillOrder(context.Background(), validInput("order-1"))
	require.NoError(t, err)
	require.Equal(t, "order-1", orderID)

	require.Equal(t, 2, f.quantity(t, "item-a"))

	o, err := f.orderRepo.FindByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, order.StatusApproved, o.Status)
	require.Equal(t, "txn-1", o.PaymentRef)
	require.True(t, o.TotalAmount.Equal(decimal.RequireFromString("300.00")), o.TotalAmount.String())

	sh, err := f.shipRepo.FindByOrderID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, shipment.StatusPending, sh.Status)
	require.Len(t, sh.Items, 1)
	require.Equal(t, "item-a", sh.Items[0].ItemID)

	require.Len(t, gw.charges, 1)
	require.Equal(t, "order-1", gw.charges[0].Reference)
	require.Equal(t, "COP", gw.charges[0].Currency)
	require.Equal(t, "tok-123", gw.charges[0].CardToken)
	require.Equal(t, int64(30000), payment.AmountInCents(gw.charges[0].Amount))
}

func TestFulfillOrder_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	f := newFixture(t, approvingGateway())

	_, err := f.svc.FulfillOrder(context.Background(), validInput("order-1"))
	require.NoError(t, err)

	// later catalog price changes do not touch the stored snapshot
	item, err := f.stockRepo.FindByID(context.Background(), "item-a")
	require.NoError(t, err)
	item.Price = decimal.RequireFromString("999.00")
	require.NoError(t, f.stockRepo.Update(context.Background(), item))

	o, err := f.orderRepo.FindByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.True(t, o.Items[0].PriceAtOrder.Equal(decimal.RequireFromString("100.00")))
	require.True(t, o.TotalAmount.Equal(decimal.RequireFromString("300.00")))
}

func TestFulfillOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t, approvingGateway())

	_, err := f.svc.FulfillOrder(context.Background(), validInput("order-1", LineItem{ItemID: "item-a", Quantity: 10}))
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	require.Equal(t, 5, f.quantity(t, "item-a"))

	_, err = f.orderRepo.FindByID(context.Background(), "order-1")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestFulfillOrder_InsufficientStock_AllOrNothing(t *testing.T) {
	f := newFixture(t, approvingGateway())

	_, err := f.svc.FulfillOrder(context.Background(), validInput("order-1",
		LineItem{ItemID: "item-a", Quantity: 2},
		LineItem{ItemID: "item-b", Quantity: 10},
	))
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	// the successful decrement of item-a must not survive
	require.Equal(t, 5, f.quantity(t, "item-a"))
	require.Equal(t, 5, f.quantity(t, "item-b"))

	_, err = f.orderRepo.FindByID(context.Background(), "order-1")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestFulfillOrder_ItemNotFound(t *testing.T) {
	f := newFixture(t, approvingGateway())

	_, err := f.svc.FulfillOrder(context.Background(), validInput("order-1", LineItem{ItemID: "item-ghost", Quantity: 1}))
	require.ErrorIs(t, err, stock.ErrItemNotFound)
	require.Equal(t, 5, f.quantity(t, "item-a"))
}

func TestFulfillOrder_SettlementDeclined(t *testing.T) {
	gw := &fakeGateway{settlement: payment.SettlementDeclined, message: "insufficient funds"}
	f := newFixture(t, gw)

	_, err := f.svc.FulfillOrder(context.Background(), validInput("order-1"))
	require.ErrorIs(t, err, payment.ErrTransactionFailed)
	require.Contains(t, err.Error(), "insufficient funds")

	o, err := f.orderRepo.FindByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, order.StatusRejected, o.Status)

	// reserved stock restored to its pre-saga value
	require.Equal(t, 5, f.quantity(t, "item-a"))

	_, err = f.shipRepo.FindByOrderID(context.Background(), "order-1")
	require.ErrorIs(t, err, shipment.ErrNotFound)
}

func TestFulfillOrder_SettlementTimeout(t *testing.T) {
	gw := &fakeGateway{settlement: payment.SettlementTimeout}
	f := newFixture(t, gw)

	_, err := f.svc.FulfillOrder(context.Background(), validInput("order-1"))
	require.ErrorIs(t, err, payment.ErrTransactionFailed)

	o, err := f.orderRepo.FindByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, order.StatusRejected, o.Status)
	require.Equal(t, 5, f.quantity(t, "item-a"))
}

func TestFulfillOrder_TokenizationFailure(t *testing.T) {
	gw := &fakeGateway{tokenizeErr: fmt.Errorf("%w: processor unreachable", payment.ErrTokenizationFailed)}
	f := newFixture(t, gw)

	_, err := f.svc.FulfillOrder(context.Background(), validInput("order-1"))
	require.ErrorIs(t, err, payment.ErrTokenizationFailed)

	// compensation rejects the pending order and restores stock
	o, err := f.orderRepo.FindByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, order.StatusRejected, o.Status)
	require.Equal(t, 5, f.quantity(t, "item-a"))
}

func TestFulfillOrder_DuplicateOrderID(t *testing.T) {
	f := newFixture(t, approvingGateway())

	input := validInput("order-1", LineItem{ItemID: "item-a", Quantity: 2})
	_, err := f.svc.FulfillOrder(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 3, f.quantity(t, "item-a"))

	_, err = f.svc.FulfillOrder(context.Background(), input)
	require.ErrorIs(t, err, order.ErrAlreadyExists)

	// the second attempt's reservation was compensated
	require.Equal(t, 3, f.quantity(t, "item-a"))

	o, err := f.orderRepo.FindByID(context.Background(), "order-1")
	require.NoError(t, err)
	require.Equal(t, order.StatusApproved, o.Status)
}

func TestFulfillOrder_IdempotencyStoreRejectsResubmission(t *testing.T) {
	f := newFixture(t, approvingGateway(), WithIdempotencyStore(&fakeIdemStore{}))

	_, err := f.svc.FulfillOrder(context.Background(), validInput("order-1"))
	require.NoError(t, err)

	_, err = f.svc.FulfillOrder(context.Background(), validInput("order-1"))
	require.ErrorIs(t, err, order.ErrAlreadyExists)
	// rejected before any stock mutation
	require.Equal(t, 2, f.quantity(t, "item-a"))
}

func TestFulfillOrder_IdempotencyStoreOutageDegrades(t *testing.T) {
	f := newFixture(t, approvingGateway(), WithIdempotencyStore(&fakeIdemStore{err: errors.New("redis down")}))

	// the store being unavailable must not block fulfillment
	_, err := f.svc.FulfillOrder(context.Background(), validInput("order-1"))
	require.NoError(t, err)
}

func TestFulfillOrder_GeneratesIDWhenMissing(t *testing.T) {
	f := newFixture(t, approvingGateway())

	orderID, err := f.svc.FulfillOrder(context.Background(), validInput(""))
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	o, err := f.orderRepo.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	require.Equal(t, order.StatusApproved, o.Status)
}

func TestFulfillOrder_InputValidation(t *testing.T) {
	f := newFixture(t, approvingGateway())

	_, err := f.svc.FulfillOrder(context.Background(), FulfillOrderInput{})
	require.ErrorIs(t, err, ErrNoLineItems)

	in := validInput("order-1")
	in.Items[0].Quantity = 0
	_, err = f.svc.FulfillOrder(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidLineItem)

	in = validInput("order-1")
	in.CustomerEmail = ""
	_, err = f.svc.FulfillOrder(context.Background(), in)
	require.ErrorIs(t, err, ErrMissingCustomerEmail)

	in = validInput("order-1")
	in.AcceptanceToken = ""
	_, err = f.svc.FulfillOrder(context.Background(), in)
	require.ErrorIs(t, err, ErrMissingAcceptanceToken)

	// nothing touched the stores
	require.Equal(t, 5, f.quantity(t, "item-a"))
}
