package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/order"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/payment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/shipment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/stock"
	"github.com/anthonycursewl/wheek-fulfillment/internal/pkg/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// sagaState carries data produced by earlier steps to later ones within a
// single fulfillment attempt.
type sagaState struct {
	orderID    string
	input      FulfillOrderInput
	items      map[string]*stock.Item
	order      *order.Order
	shipment   *shipment.Shipment
	settlement payment.SettlementResult
}

// reserveStockStep decrements every line item. A failure mid-way undoes the
// decrements already applied so the step stays all-or-nothing even on
// stores without a transactional boundary; on MySQL the surrounding
// transaction rolls the whole step back anyway.
func (s *Service) reserveStockStep(st *sagaState) step {
	return step{
		name: "reserve_stock",
		execute: func(ctx context.Context) error {
			ids := make([]string, len(st.input.Items))
			for i, li := range st.input.Items {
				ids[i] = li.ItemID
			}

			items, err := s.stockRepo.FindWithIDIn(ctx, ids)
			if err != nil {
				return fmt.Errorf("load items: %w", err)
			}
			st.items = make(map[string]*stock.Item, len(items))
			for _, it := range items {
				st.items[it.ID] = it
			}
			for _, id := range ids {
				if _, ok := st.items[id]; !ok {
					return fmt.Errorf("item %s: %w", id, stock.ErrItemNotFound)
				}
			}

			for i, li := range st.input.Items {
				if err := s.stockRepo.DecreaseStock(ctx, li.ItemID, li.Quantity); err != nil {
					logger := logging.FromContext(ctx)
					for j := i - 1; j >= 0; j-- {
						undo := st.input.Items[j]
						if restoreErr := s.stockRepo.IncreaseStock(ctx, undo.ItemID, undo.Quantity); restoreErr != nil {
							logger.Error("stock_partial_restore_failed",
								zap.String("item_id", undo.ItemID),
								zap.Error(restoreErr),
							)
						}
					}
					return fmt.Errorf("item %s: %w", li.ItemID, err)
				}
			}
			return nil
		},
		compensate: func(ctx context.Context) error {
			var errs error
			for _, li := range st.input.Items {
				if err := s.stockRepo.IncreaseStock(ctx, li.ItemID, li.Quantity); err != nil {
					errs = errors.Join(errs, fmt.Errorf("restore item %s: %w", li.ItemID, err))
				}
			}
			return errs
		},
	}
}

// createOrderStep snapshots each item's current price into the order and
// persists it as PENDING. Its compensation rejects the order if it is still
// pending; rejection of a terminal order is a no-op.
func (s *Service) createOrderStep(st *sagaState) step {
	return step{
		name: "create_order",
		execute: func(ctx context.Context) error {
			items := make([]order.OrderItem, len(st.input.Items))
			total := decimal.Zero
			for i, li := range st.input.Items {
				it := st.items[li.ItemID]
				items[i] = order.OrderItem{
					ID:           s.ids.NewID(),
					ItemID:       it.ID,
					Name:         it.Name,
					Quantity:     li.Quantity,
					PriceAtOrder: it.Price,
				}
				total = total.Add(items[i].Subtotal())
			}

			o, err := order.New(st.orderID, items, total)
			if err != nil {
				return err
			}
			if err := s.orderRepo.Save(ctx, o); err != nil {
				return fmt.Errorf("save order: %w", err)
			}
			st.order = o
			return nil
		},
		compensate: func(ctx context.Context) error {
			o, err := s.orderRepo.FindByID(ctx, st.orderID)
			if errors.Is(err, order.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("load order for rejection: %w", err)
			}
			if o.Status != order.StatusPending {
				return nil
			}
			o.MarkAsRejected()
			st.order = o
			return s.orderRepo.Update(ctx, o)
		},
	}
}

// capturePaymentStep runs the three remote operations against the processor.
// On a terminal failure or timeout it rejects and persists the order before
// surfacing the error, so the rollback only has stock left to restore. It is
// the saga's barrier: once settlement is APPROVED nothing gets compensated.
func (s *Service) capturePaymentStep(st *sagaState) step {
	return step{
		name:    "capture_payment",
		barrier: true,
		execute: func(ctx context.Context) error {
			token, err := s.gateway.TokenizeCard(ctx, st.input.Card)
			if err != nil {
				return fmt.Errorf("tokenize card: %w", err)
			}

			txnID, err := s.gateway.CreateTransaction(ctx, payment.Charge{
				Reference:       st.orderID,
				Amount:          st.order.TotalAmount,
				Currency:        s.currency,
				CustomerEmail:   st.input.CustomerEmail,
				AcceptanceToken: st.input.AcceptanceToken,
				CardToken:       token,
			})
			if err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}

			res, err := s.gateway.WaitForSettlement(ctx, txnID)
			if err != nil {
				return fmt.Errorf("wait for settlement: %w", err)
			}
			st.settlement = res

			if res.Approved() {
				if err := st.order.MarkAsProcessed(txnID); err != nil {
					return err
				}
				return s.orderRepo.Update(ctx, st.order)
			}

			st.order.MarkAsRejected()
			if err := s.orderRepo.Update(ctx, st.order); err != nil {
				return errors.Join(
					fmt.Errorf("settlement %s: %w", res.Status, payment.ErrTransactionFailed),
					fmt.Errorf("persist rejection: %w", err),
				)
			}
			if res.Message != "" {
				return fmt.Errorf("settlement %s (%s): %w", res.Status, res.Message, payment.ErrTransactionFailed)
			}
			return fmt.Errorf("settlement %s: %w", res.Status, payment.ErrTransactionFailed)
		},
	}
}

// createShipmentStep binds a shipment to the now-approved order. It sits
// behind the payment barrier: a failure here leaves payment captured and
// stock consumed, which is logged as an inconsistency window for operators
// rather than compensated.
func (s *Service) createShipmentStep(st *sagaState) step {
	return step{
		name: "create_shipment",
		execute: func(ctx context.Context) error {
			sh, err := s.shipping.Create(ctx, st.orderID, st.input.ShippingAddress)
			if err != nil {
				logging.FromContext(ctx).Error("saga_inconsistency_window",
					zap.String("order_id", st.orderID),
					zap.String("reason", "shipment creation failed after payment capture"),
					zap.Error(err),
				)
				return fmt.Errorf("create shipment: %w", err)
			}
			st.shipment = sh
			return nil
		},
	}
}
