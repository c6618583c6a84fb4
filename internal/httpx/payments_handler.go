package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/worldlineout/accessories-api/internal/orders"
	"github.com/worldlineout/accessories-api/internal/payments"
)

type PaymentsHandler struct {
	Service *payments.Service
	Log     *zap.Logger
}

type initiateReq struct {
	Items    []payments.CartItem `json:"items"`
	Customer orders.Customer     `json:"customer"`
}

// Register mounts the payment surface; refunds sit behind the admin guard.
func (h *PaymentsHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Post("/api/payments/initiate", h.initiate)
	r.Post("/api/payments/verify", h.verify)
	r.Post("/api/payments/webhook", h.webhook)
	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Post("/api/payments/refund/{id}", h.refund)
	})
}

func (h *PaymentsHandler) initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	intent, err := h.Service.Initiate(ctx, req.Items, req.Customer, r.RemoteAddr)
	if err != nil {
		writeFail(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"orderId":   intent.RazorpayOrderID,
		"amount":    intent.AmountPaise,
		"currency":  intent.Currency,
		"dbOrderId": intent.DBOrderID,
	})
}

func (h *PaymentsHandler) verify(w http.ResponseWriter, r *http.Request) {
	var cb payments.Callback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Service.ConfirmCallback(ctx, cb)
	if errors.Is(err, payments.ErrInvalidSignature) {
		writeFail(w, http.StatusBadRequest, "Invalid signature. Payment failed.")
		return
	}
	if err != nil {
		writeFail(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment verified successfully",
		"orderId": o.OrderNumber,
	})
}

func (h *PaymentsHandler) webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "unreadable body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	err = h.Service.HandleWebhook(ctx, body, r.Header.Get("X-Razorpay-Signature"))
	if errors.Is(err, payments.ErrInvalidSignature) {
		writeFail(w, http.StatusBadRequest, "Invalid signature")
		return
	}
	if err != nil {
		h.Log.Error("webhook", zap.Error(err))
		writeFail(w, http.StatusBadRequest, "could not process event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentsHandler) refund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	// body is optional
	_ = json.NewDecoder(r.Body).Decode(&req)

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	refund, err := h.Service.Refund(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeFail(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    refund,
		"message": "Refund processed successfully",
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, payments.ErrEmptyCart),
		errors.Is(err, payments.ErrMissingCustomer),
		errors.Is(err, payments.ErrInvalidQuantity),
		errors.Is(err, payments.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, payments.ErrProductNotFound),
		errors.Is(err, payments.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, payments.ErrInsufficientStock),
		errors.Is(err, payments.ErrNotRefundable):
		return http.StatusConflict
	case errors.Is(err, payments.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
