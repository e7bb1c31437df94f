package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/event"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/order"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/payment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/shipment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/domain/stock"
	"github.com/anthonycursewl/wheek-fulfillment/internal/pkg/logging"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

var (
	ErrMissingCustomerEmail   = errors.New("fulfillment: customer email is required")
	ErrMissingAcceptanceToken = errors.New("fulfillment: acceptance token is required")
	ErrNoLineItems            = errors.New("fulfillment: at least one line item is required")
	ErrInvalidLineItem        = errors.New("fulfillment: line item quantity must be at least 1")
)

type LineItem struct {
	ItemID   string
	Quantity int
}

// FulfillOrderInput is the caller-facing command. The caller supplies the
// order id; resubmission after a failure requires a fresh one.
type FulfillOrderInput struct {
	OrderID         string
	Items           []LineItem
	Card            payment.CardDetails
	CustomerEmail   string
	AcceptanceToken string
	ShippingAddress shipment.Address
}

// Service coordinates the fulfillment saga: reserve stock, create the
// order, capture payment, create the shipment — compensating committed
// steps when a later one fails.
type Service struct {
	stockRepo stock.Repository
	orderRepo order.Repository
	gateway   payment.Gateway
	shipping  ShipmentCreator
	txm       TxManager
	ids       IDGenerator
	currency  string

	idem      IdempotencyStore // optional
	publisher event.Publisher  // optional
	tracer    trace.Tracer
	metrics   *Metrics // optional
}

type Option func(*Service)

func WithIdempotencyStore(store IdempotencyStore) Option {
	return func(s *Service) { s.idem = store }
}

func WithPublisher(p event.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(
	stockRepo stock.Repository,
	orderRepo order.Repository,
	gateway payment.Gateway,
	shipping ShipmentCreator,
	txm TxManager,
	ids IDGenerator,
	currency string,
	opts ...Option,
) *Service {
	s := &Service{
		stockRepo: stockRepo,
		orderRepo: orderRepo,
		gateway:   gateway,
		shipping:  shipping,
		txm:       txm,
		ids:       ids,
		currency:  currency,
		tracer:    noop.NewTracerProvider().Tracer("fulfillment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FulfillOrder runs the saga and returns the order id on full success.
// There is no saga-level retry: after any failure the caller must resubmit
// with a new order id.
func (s *Service) FulfillOrder(ctx context.Context, input FulfillOrderInput) (string, error) {
	if err := validateInput(input); err != nil {
		return "", err
	}

	orderID := input.OrderID
	if orderID == "" {
		orderID = s.ids.NewID()
	}

	ctx, logger := logging.With(ctx,
		zap.String("component", "fulfillment_service"),
		zap.String("order_id", orderID),
	)
	logger.Info("fulfill_order_start", zap.Int("line_items", len(input.Items)))

	if s.idem != nil {
		ok, err := s.idem.Acquire(ctx, "fulfillment:"+orderID)
		if err != nil {
			// The store is an accelerator; the order table's unique id stays
			// authoritative when it is unavailable.
			logger.Warn("idempotency_check_unavailable", zap.Error(err))
		} else if !ok {
			logger.Warn("fulfill_order_duplicate")
			return "", fmt.Errorf("order %s: %w", orderID, order.ErrAlreadyExists)
		}
	}

	st := &sagaState{orderID: orderID, input: input}
	steps := []step{
		s.reserveStockStep(st),
		s.createOrderStep(st),
		s.capturePaymentStep(st),
		s.createShipmentStep(st),
	}

	if err := s.run(ctx, steps); err != nil {
		s.metrics.countRun("failure")
		s.publishFailure(ctx, st, err)
		logger.Warn("fulfill_order_failed", zap.Error(err))
		return "", err
	}

	s.metrics.countRun("success")
	s.publishSuccess(ctx, st)
	logger.Info("fulfill_order_success",
		zap.String("payment_ref", st.order.PaymentRef),
		zap.String("shipment_id", st.shipment.ID),
	)
	return orderID, nil
}

func (s *Service) publishSuccess(ctx context.Context, st *sagaState) {
	if s.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.publish(ctx, order.NewOrderApprovedEvent(st.order))
	s.publish(ctx, shipment.NewShipmentCreatedEvent(st.shipment))
}

func (s *Service) publishFailure(ctx context.Context, st *sagaState, cause error) {
	if s.publisher == nil || st.order == nil || st.order.Status != order.StatusRejected {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.publish(ctx, order.NewOrderRejectedEvent(st.orderID, cause.Error()))
}

// publish is best-effort: event delivery never changes the saga outcome.
func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
	}
}

func validateInput(input FulfillOrderInput) error {
	if len(input.Items) == 0 {
		return ErrNoLineItems
	}
	for _, li := range input.Items {
		if li.ItemID == "" || li.Quantity < 1 {
			return ErrInvalidLineItem
		}
	}
	if input.CustomerEmail == "" {
		return ErrMissingCustomerEmail
	}
	if input.AcceptanceToken == "" {
		return ErrMissingAcceptanceToken
	}
	return nil
}
