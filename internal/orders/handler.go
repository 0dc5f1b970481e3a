package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mlucero/catering-orders/internal/domain"
	"github.com/mlucero/catering-orders/internal/messaging"
)

type orderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.OrderSummary, error)
	Update(ctx context.Context, order *domain.Order) (bool, error)
	UpdatePayment(ctx context.Context, id int64, update domain.PaymentUpdate) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type Handler struct {
	store    orderStore
	producer *messaging.Producer
	logger   *slog.Logger
}

// NewHandler builds the order handler. producer may be nil; order events are
// then simply not published.
func NewHandler(store orderStore, producer *messaging.Producer, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		producer: producer,
		logger:   logger,
	}
}

// orderRequest is the payload for create and full update. Required fields
// are pointers so an absent field is distinguishable from a zero value:
// the payload is a required-field contract, not an optional one.
type orderRequest struct {
	ClientID        *int64          `json:"client_id"`
	EventDate       *string         `json:"event_date"`
	DeliveryDate    *string         `json:"delivery_date"`
	DeliveryTime    *string         `json:"delivery_time"`
	DeliveryEnabled bool            `json:"is_delivery_enabled"`
	DeliveryAddress string          `json:"delivery_address"`
	Observations    json.RawMessage `json:"observations"`
	Items           json.RawMessage `json:"products_json"`
	Subtotal        *float64        `json:"subtotal"`
	Shipping        *float64        `json:"shipping"`
	TotalNet        *float64        `json:"total_net"`
	Deposit         *float64        `json:"deposit"`
	Balance         *float64        `json:"balance"`
	DepositPaid     domain.Flag     `json:"anticipo_pagado"`
	BalancePaid     domain.Flag     `json:"pendiente_pagado"`
}

func (req *orderRequest) validate() error {
	missing := ""
	switch {
	case req.ClientID == nil:
		missing = "client_id"
	case req.EventDate == nil:
		missing = "event_date"
	case req.DeliveryDate == nil:
		missing = "delivery_date"
	case req.DeliveryTime == nil:
		missing = "delivery_time"
	case req.Subtotal == nil:
		missing = "subtotal"
	case req.Shipping == nil:
		missing = "shipping"
	case req.TotalNet == nil:
		missing = "total_net"
	case req.Deposit == nil:
		missing = "deposit"
	case req.Balance == nil:
		missing = "balance"
	}
	if missing != "" {
		return errors.New("missing required field: " + missing)
	}
	return nil
}

func (req *orderRequest) toOrder() *domain.Order {
	return &domain.Order{
		ClientID:        *req.ClientID,
		EventDate:       *req.EventDate,
		DeliveryDate:    *req.DeliveryDate,
		DeliveryTime:    *req.DeliveryTime,
		DeliveryEnabled: req.DeliveryEnabled,
		DeliveryAddress: req.DeliveryAddress,
		Observations:    req.Observations,
		Items:           req.Items,
		Subtotal:        *req.Subtotal,
		Shipping:        *req.Shipping,
		TotalNet:        *req.TotalNet,
		Deposit:         *req.Deposit,
		Balance:         *req.Balance,
		DepositPaid:     req.DepositPaid,
		BalancePaid:     req.BalancePaid,
	}
}

type createOrderResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order := req.toOrder()
	if err := h.store.Create(r.Context(), order); err != nil {
		h.logger.Error("failed to create order", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.publishEvent(r.Context(), order, domain.OrderActionCreated)

	h.logger.Info("order created", "order_id", order.ID, "client_id", order.ClientID)
	h.writeJSON(w, http.StatusCreated, createOrderResponse{
		ID:      order.ID,
		Message: "Order added successfully",
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, summaries)
}

// HandleUpdate replaces every mutable field of the order. The payment flags
// and creation timestamp are out of this operation's reach, so a stale edit
// can never revert payment state.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order := req.toOrder()
	order.ID = id

	updated, err := h.store.Update(r.Context(), order)
	if err != nil {
		if isUniqueViolation(err) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to update order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !updated {
		h.writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	h.publishEvent(r.Context(), order, domain.OrderActionUpdated)

	h.logger.Info("order updated", "order_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Order updated successfully"})
}

type paymentUpdateRequest struct {
	DepositPaid *domain.Flag `json:"anticipo_pagado"`
	BalancePaid *domain.Flag `json:"pendiente_pagado"`
}

// HandleUpdatePayment toggles one or both payment flags without touching the
// rest of the order, so marking a deposit paid never requires re-submitting
// the order body.
func (h *Handler) HandleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req paymentUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := domain.PaymentUpdate{
		DepositPaid: req.DepositPaid,
		BalancePaid: req.BalancePaid,
	}
	if update.Empty() {
		h.writeError(w, http.StatusBadRequest, "No payment status provided")
		return
	}

	updated, err := h.store.UpdatePayment(r.Context(), id, update)
	if err != nil {
		h.logger.Error("failed to update payment status", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !updated {
		h.writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	if order, err := h.store.GetByID(r.Context(), id); err == nil && order != nil {
		h.publishEvent(r.Context(), order, domain.OrderActionPaymentUpdated)
	}

	h.logger.Info("order payment status updated", "order_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Order payment status updated successfully"})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "Order not found")
		return
	}

	h.publishEvent(r.Context(), &domain.Order{ID: id}, domain.OrderActionDeleted)

	h.logger.Info("order deleted", "order_id", id)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Order deleted successfully"})
}

// publishEvent emits an order event when a producer is configured. Publish
// failures are logged and swallowed: the mutation already committed and the
// API response must not depend on the broker.
func (h *Handler) publishEvent(ctx context.Context, order *domain.Order, action domain.OrderAction) {
	if h.producer == nil {
		return
	}

	event := domain.OrderEvent{
		EventID:     uuid.New().String(),
		OrderID:     order.ID,
		Action:      action,
		DepositPaid: order.DepositPaid,
		BalancePaid: order.BalancePaid,
		Timestamp:   time.Now().UTC(),
	}
	if err := h.producer.Publish(ctx, strconv.FormatInt(order.ID, 10), event); err != nil {
		h.logger.Error("failed to publish order event", "error", err, "order_id", order.ID, "action", action)
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
