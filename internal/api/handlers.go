package api

import (
	"net/http"
	"strings"

	"github.com/example/ec-orders/internal/api/middleware"
	"github.com/example/ec-orders/internal/command"
	"github.com/example/ec-orders/internal/domain/order"
	"github.com/example/ec-orders/internal/query"
	"github.com/go-chi/chi/v5"
)

// IdempotencyKeyHeader lets clients retry order creation safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
	}
}

// Order Handlers

type createOrderRequest struct {
	Items []order.Item `json:"items"`
}

type updateOrderRequest struct {
	Items  []order.Item `json:"items"`
	Status string       `json:"status"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	cmd := command.CreateOrder{
		Items:          req.Items,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)),
	}
	created, replayed, err := h.cmdHandler.CreateOrder(r.Context(), middleware.GetActor(r.Context()), cmd)
	if err != nil {
		respondError(w, err)
		return
	}

	if replayed {
		respondJSON(w, http.StatusOK, "Order already created", created)
		return
	}
	respondJSON(w, http.StatusCreated, "Order created successfully", created)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrders(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrder(r.Context(), middleware.GetActor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", o)
}

func (h *Handlers) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrdersForUser(r.Context(), middleware.GetActor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", orders)
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	cmd := command.UpdateOrder{
		OrderID: chi.URLParam(r, "id"),
		Items:   req.Items,
		Status:  req.Status,
	}
	updated, err := h.cmdHandler.UpdateOrder(r.Context(), middleware.GetActor(r.Context()), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Order updated successfully", updated)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteOrder{OrderID: chi.URLParam(r, "id")}
	deleted, err := h.cmdHandler.DeleteOrder(r.Context(), middleware.GetActor(r.Context()), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Order deleted successfully", deleted)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	cmd := command.CancelOrder{OrderID: chi.URLParam(r, "id")}
	cancelled, err := h.cmdHandler.CancelOrder(r.Context(), middleware.GetActor(r.Context()), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Order cancelled successfully", cancelled)
}

func (h *Handlers) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	cmd := command.ConfirmOrder{OrderID: chi.URLParam(r, "id")}
	confirmed, err := h.cmdHandler.ConfirmOrder(r.Context(), middleware.GetActor(r.Context()), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Order confirmed successfully", confirmed)
}
