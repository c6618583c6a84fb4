package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/worldlineout/accessories-api/internal/orders"
	"github.com/worldlineout/accessories-api/internal/redisx"
)

type OrdersHandler struct {
	Repo  *orders.Repo
	Redis *redis.Client
	Log   *zap.Logger
}

type createOrderReq struct {
	Items       []orders.OrderItem `json:"items"`
	TotalAmount int64              `json:"totalAmount"`
	Customer    orders.Customer    `json:"customer"`
}

func (h *OrdersHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Post("/api/orders", h.create)
	r.Get("/api/orders/{id}", h.get)
	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Get("/api/orders", h.list)
		g.Put("/api/orders/{id}/status", h.updateStatus)
	})
}

// create places a WhatsApp hand-off order: no gateway involvement, the
// conversation continues in chat, so it is recorded as already notified.
func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Items) == 0 {
		writeFail(w, http.StatusBadRequest, "Order must have at least one item")
		return
	}
	if !req.Customer.Valid() {
		writeFail(w, http.StatusBadRequest, "Customer name, phone and address are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o := &orders.Order{
		Items:        req.Items,
		TotalAmount:  req.TotalAmount,
		Customer:     req.Customer,
		WhatsAppSent: true,
		ClientIP:     r.RemoteAddr,
	}
	if err := h.Repo.Create(ctx, o); err != nil {
		h.Log.Error("create order", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not place order")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true, "data": o, "message": "Order placed successfully!",
	})
}

// get serves the confirmation page: status only, cached briefly.
func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if cached, err := h.Redis.Get(ctx, key).Result(); err == nil && cached != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(cached))
		return
	}

	o, err := h.Repo.FindByID(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		h.Log.Error("get order", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not load order")
		return
	}

	body, _ := json.Marshal(map[string]any{
		"success": true,
		"data": map[string]any{
			"id":            o.ID,
			"orderNumber":   o.OrderNumber,
			"status":        o.Status,
			"paymentStatus": o.PaymentStatus,
			"totalAmount":   o.TotalAmount,
		},
	})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, total, err := h.Repo.List(ctx, orders.Status(q.Get("status")),
		atoiDefault(q.Get("page"), 1), atoiDefault(q.Get("limit"), 20))
	if err != nil {
		h.Log.Error("list orders", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not list orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": list, "total": total})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status orders.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	o, err := h.Repo.UpdateStatus(ctx, id, req.Status)
	if errors.Is(err, orders.ErrNotFound) {
		writeFail(w, http.StatusNotFound, "Order not found")
		return
	}
	if errors.Is(err, orders.ErrInvalidTransition) {
		writeFail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.Log.Error("update order status", zap.Error(err))
		writeFail(w, http.StatusInternalServerError, "could not update order")
		return
	}

	// drop the stale confirmation-page cache
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, id)).Err()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": o, "message": "Order status updated"})
}
