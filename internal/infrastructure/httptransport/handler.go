package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/anthonycursewl/wheek-fulfillment/internal/application/fulfillment"
	"github.com/anthonycursewl/wheek-fulfillment/internal/application/shipping"
	domainOrder "github.com/anthonycursewl/wheek-fulfillment/internal/domain/order"
	domainPayment "github.com/anthonycursewl/wheek-fulfillment/internal/domain/payment"
	domainShipment "github.com/anthonycursewl/wheek-fulfillment/internal/domain/shipment"
	domainStock "github.com/anthonycursewl/wheek-fulfillment/internal/domain/stock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Handler struct {
	fulfillmentService *fulfillment.Service
	shippingService    *shipping.Service
	orderRepo          domainOrder.Repository
}

func NewHandler(
	fulfillmentSvc *fulfillment.Service,
	shippingSvc *shipping.Service,
	orderRepo domainOrder.Repository,
) *Handler {
	return &Handler{
		fulfillmentService: fulfillmentSvc,
		shippingService:    shippingSvc,
		orderRepo:          orderRepo,
	}
}

// Router wires the fulfillment routes with the observability middleware.
func (h *Handler) Router(logger *zap.Logger, requests *prometheus.CounterVec, durations *prometheus.HistogramVec) http.Handler {
	r := chi.NewRouter()
	r.Use(Observability(logger, requests, durations))
	r.Use(middleware.Recoverer)

	r.Post("/fulfillments", h.handleFulfillOrder)
	r.Get("/orders/{id}", h.handleGetOrder)
	r.Get("/orders/{id}/shipment", h.handleGetOrderShipment)
	r.Post("/shipments/{id}/ship", h.handleMarkShipped)
	r.Post("/shipments/{id}/deliver", h.handleMarkDelivered)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

type lineItemRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type cardRequest struct {
	Number     string `json:"number"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CVC        string `json:"cvc"`
	CardHolder string `json:"card_holder"`
}

type addressRequest struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	Region     string `json:"region"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type fulfillOrderRequest struct {
	OrderID         string            `json:"order_id"`
	Items           []lineItemRequest `json:"items"`
	Card            cardRequest       `json:"card"`
	CustomerEmail   string            `json:"customer_email"`
	AcceptanceToken string            `json:"acceptance_token"`
	ShippingAddress addressRequest    `json:"shipping_address"`
}

type fulfillOrderResponse struct {
	OrderID string `json:"order_id"`
}

func (h *Handler) handleFulfillOrder(w http.ResponseWriter, r *http.Request) {
	var req fulfillOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := make([]fulfillment.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = fulfillment.LineItem{ItemID: it.ItemID, Quantity: it.Quantity}
	}

	orderID, err := h.fulfillmentService.FulfillOrder(r.Context(), fulfillment.FulfillOrderInput{
		OrderID: req.OrderID,
		Items:   items,
		Card: domainPayment.CardDetails{
			Number:     req.Card.Number,
			ExpMonth:   req.Card.ExpMonth,
			ExpYear:    req.Card.ExpYear,
			CVC:        req.Card.CVC,
			HolderName: req.Card.CardHolder,
		},
		CustomerEmail:   req.CustomerEmail,
		AcceptanceToken: req.AcceptanceToken,
		ShippingAddress: domainShipment.Address{
			Line1:      req.ShippingAddress.Line1,
			Line2:      req.ShippingAddress.Line2,
			City:       req.ShippingAddress.City,
			Region:     req.ShippingAddress.Region,
			Country:    req.ShippingAddress.Country,
			PostalCode: req.ShippingAddress.PostalCode,
		},
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, fulfillOrderResponse{OrderID: orderID})
}

type orderItemResponse struct {
	ItemID       string `json:"item_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	PriceAtOrder string `json:"price_at_order"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`
	TotalAmount string              `json:"total_amount"`
	PaymentRef  string              `json:"payment_ref,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []orderItemResponse `json:"items"`
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderRepo.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ItemID:       it.ItemID,
			Name:         it.Name,
			Quantity:     it.Quantity,
			PriceAtOrder: it.PriceAtOrder.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, orderResponse{
		ID:          o.ID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.StringFixed(2),
		PaymentRef:  o.PaymentRef,
		CreatedAt:   o.CreatedAt,
		Items:       items,
	})
}

type shipmentItemResponse struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type shipmentResponse struct {
	ID        string                 `json:"id"`
	OrderID   string                 `json:"order_id"`
	Status    string                 `json:"status"`
	Address   addressRequest         `json:"address"`
	Items     []shipmentItemResponse `json:"items"`
	CreatedAt time.Time              `json:"created_at"`
}

func (h *Handler) handleGetOrderShipment(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shippingService.FindByOrderID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapShipment(sh))
}

func (h *Handler) handleMarkShipped(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shippingService.MarkShipped(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapShipment(sh))
}

func (h *Handler) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	sh, err := h.shippingService.MarkDelivered(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapShipment(sh))
}

func mapShipment(sh *domainShipment.Shipment) shipmentResponse {
	items := make([]shipmentItemResponse, len(sh.Items))
	for i, it := range sh.Items {
		items[i] = shipmentItemResponse{ItemID: it.ItemID, Name: it.Name, Quantity: it.Quantity}
	}
	return shipmentResponse{
		ID:      sh.ID,
		OrderID: sh.OrderID,
		Status:  string(sh.Status),
		Address: addressRequest{
			Line1:      sh.Address.Line1,
			Line2:      sh.Address.Line2,
			City:       sh.Address.City,
			Region:     sh.Address.Region,
			Country:    sh.Address.Country,
			PostalCode: sh.Address.PostalCode,
		},
		Items:     items,
		CreatedAt: sh.CreatedAt,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, domainStock.ErrItemNotFound),
		errors.Is(err, domainShipment.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainOrder.ErrAlreadyExists),
		errors.Is(err, domainShipment.ErrAlreadyExists),
		errors.Is(err, domainShipment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domainStock.ErrInsufficientStock),
		errors.Is(err, domainShipment.ErrOrderNotApproved),
		errors.Is(err, domainPayment.ErrTokenizationFailed),
		errors.Is(err, domainPayment.ErrTransactionFailed):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, fulfillment.ErrNoLineItems),
		errors.Is(err, fulfillment.ErrInvalidLineItem),
		errors.Is(err, fulfillment.ErrMissingCustomerEmail),
		errors.Is(err, fulfillment.ErrMissingAcceptanceToken),
		errors.Is(err, domainOrder.ErrNoItems),
		errors.Is(err, domainOrder.ErrInvalidQuantity),
		errors.Is(err, domainStock.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
