package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/worldlineout/accessories-api/internal/catalog"
	kafkax "github.com/worldlineout/accessories-api/internal/kafka"
	"github.com/worldlineout/accessories-api/internal/orders"
)

// ProductStore is the catalog slice the payment flow needs: authoritative
// price/stock reads and the per-product decrement.
type ProductStore interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) error
}

type OrderStore interface {
	Create(ctx context.Context, o *orders.Order) error
	FindByID(ctx context.Context, id string) (*orders.Order, error)
	FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*orders.Order, error)
	MarkPaid(ctx context.Context, razorpayOrderID, paymentID, signature string) (bool, error)
	MarkFailed(ctx context.Context, id string) error
	MarkRefunded(ctx context.Context, id string) (bool, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Config struct {
	KeySecret            string
	WebhookSecret        string
	FraudThresholdRupees int64
	ServiceName          string
}

// Service owns the payment lifecycle: cart validation, intent creation,
// reconciliation of callback/webhook completions, refunds.
type Service struct {
	Products ProductStore
	Orders   OrderStore
	Gateway  Gateway
	Producer Publisher // optional; nil disables order.paid events
	Cfg      Config
	Log      *zap.Logger
}

// CartItem is client input. Name and price are accepted for shape
// compatibility and discarded; totals come from the catalog.
type CartItem struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"quantity"`
	Name      string `json:"name,omitempty"`
	Price     int64  `json:"price,omitempty"`
}

type Intent struct {
	RazorpayOrderID string `json:"orderId"`
	AmountPaise     int64  `json:"amount"`
	Currency        string `json:"currency"`
	DBOrderID       string `json:"dbOrderId"`
}

type Callback struct {
	RazorpayOrderID   string `json:"externalOrderId"`
	RazorpayPaymentID string `json:"externalPaymentId"`
	Signature         string `json:"signature"`
	DBOrderID         string `json:"dbOrderId"`
}

// ValidateCart recomputes the total from current product records and checks
// availability. Read-only; no side effects.
func (s *Service) ValidateCart(ctx context.Context, items []CartItem) ([]orders.OrderItem, int64, error) {
	var total int64
	snap := make([]orders.OrderItem, 0, len(items))
	for _, it := range items {
		if it.Qty <= 0 {
			return nil, 0, fmt.Errorf("%w: product %s", ErrInvalidQuantity, it.ProductID)
		}
		p, err := s.Products.Get(ctx, it.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		if err != nil {
			return nil, 0, err
		}
		if it.Qty > p.Stock {
			return nil, 0, fmt.Errorf("%w for %s", ErrInsufficientStock, p.Name)
		}
		total += p.Price * int64(it.Qty)
		snap = append(snap, orders.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Qty:       it.Qty,
			Image:     p.Image,
		})
	}
	return snap, total, nil
}

// Initiate validates the cart, creates the gateway order and persists the
// local pending order. If gateway creation fails nothing is persisted; if
// persistence fails the gateway order is abandoned unpaid.
func (s *Service) Initiate(ctx context.Context, items []CartItem, customer orders.Customer, clientIP string) (*Intent, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if !customer.Valid() {
		return nil, ErrMissingCustomer
	}

	snap, total, err := s.ValidateCart(ctx, items)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("rcpt_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	amountPaise := total * 100
	rzpOrderID, err := s.Gateway.CreateOrder(ctx, amountPaise, "INR", receipt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	o := &orders.Order{
		Items:           snap,
		TotalAmount:     total,
		Customer:        customer,
		Status:          orders.StatusPending,
		PaymentStatus:   orders.PaymentPending,
		RazorpayOrderID: rzpOrderID,
		IsFlagged:       total > s.Cfg.FraudThresholdRupees,
		ClientIP:        clientIP,
	}
	if err := s.Orders.Create(ctx, o); err != nil {
		return nil, err
	}

	s.Log.Info("payment intent created",
		zap.String("order_id", o.ID),
		zap.String("razorpay_order_id", rzpOrderID),
		zap.Int64("amount_paise", amountPaise),
		zap.Bool("flagged", o.IsFlagged))

	return &Intent{
		RazorpayOrderID: rzpOrderID,
		AmountPaise:     amountPaise,
		Currency:        "INR",
		DBOrderID:       o.ID,
	}, nil
}

// ConfirmCallback handles the client-side completion callback. The decision
// keys off the signed gateway ids; the client-supplied local id is only used
// to flag the order when the signature does not check out.
func (s *Service) ConfirmCallback(ctx context.Context, cb Callback) (*orders.Order, error) {
	if !VerifyPaymentSignature(cb.RazorpayOrderID, cb.RazorpayPaymentID, cb.Signature, s.Cfg.KeySecret) {
		if cb.DBOrderID != "" {
			if err := s.Orders.MarkFailed(ctx, cb.DBOrderID); err != nil {
				s.Log.Error("mark failed", zap.String("order_id", cb.DBOrderID), zap.Error(err))
			}
		}
		recordOutcome("signature_rejected")
		s.Log.Warn("payment signature rejected",
			zap.String("razorpay_order_id", cb.RazorpayOrderID),
			zap.String("db_order_id", cb.DBOrderID))
		return nil, ErrInvalidSignature
	}
	return s.reconcile(ctx, cb.RazorpayOrderID, cb.RazorpayPaymentID, cb.Signature)
}

// HandleWebhook verifies the delivery against the webhook secret and feeds
// payment.captured events into reconciliation. Signature failures cause no
// state change; unrecognized events are accepted and ignored.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !VerifyWebhookSignature(body, signature, s.Cfg.WebhookSecret) {
		return ErrInvalidSignature
	}

	ev, err := decodeWebhook(body)
	if err != nil {
		return fmt.Errorf("decode webhook: %w", err)
	}
	if ev.Event != eventPaymentCaptured || ev.Payload.Payment == nil {
		return nil
	}

	p := ev.Payload.Payment.Entity
	_, err = s.reconcile(ctx, p.OrderID, p.ID, "")
	if errors.Is(err, ErrOrderNotFound) {
		// The gateway may notify about orders this store never issued.
		s.Log.Warn("webhook for unknown order", zap.String("razorpay_order_id", p.OrderID))
		return nil
	}
	return err
}

// reconcile applies a verified payment completion exactly once. The MarkPaid
// conditional update is the idempotence guard: of any number of racing
// callback/webhook deliveries only one observes applied=true and performs
// the stock deduction and event publication.
func (s *Service) reconcile(ctx context.Context, razorpayOrderID, paymentID, signature string) (*orders.Order, error) {
	o, err := s.Orders.FindByRazorpayOrderID(ctx, razorpayOrderID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	applied, err := s.Orders.MarkPaid(ctx, razorpayOrderID, paymentID, signature)
	if err != nil {
		return nil, err
	}
	if !applied {
		recordOutcome("duplicate")
		s.Log.Info("reconciliation no-op, already settled",
			zap.String("order_id", o.ID),
			zap.String("payment_status", string(o.PaymentStatus)))
		return o, nil
	}

	o.PaymentStatus = orders.PaymentPaid
	o.Status = orders.StatusConfirmed
	o.RazorpayPaymentID = paymentID

	// Best effort per item; the order is already committed to paid, so a
	// missing product is logged rather than rolled back.
	for _, it := range o.Items {
		if err := s.Products.DecrementStock(ctx, it.ProductID, it.Qty); err != nil {
			s.Log.Error("stock deduction",
				zap.String("order_id", o.ID),
				zap.String("product_id", it.ProductID),
				zap.Int("qty", it.Qty),
				zap.Error(err))
		}
	}

	s.publishPaid(o)
	recordOutcome("paid")
	s.Log.Info("payment reconciled",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("razorpay_payment_id", paymentID))
	return o, nil
}

// Refund reverses a paid order in full through the gateway. Inventory is not
// restocked.
func (s *Service) Refund(ctx context.Context, orderID, reason string) (map[string]any, error) {
	o, err := s.Orders.FindByID(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus != orders.PaymentPaid {
		return nil, ErrNotRefundable
	}

	if reason == "" {
		reason = "Customer request"
	}
	refund, err := s.Gateway.Refund(ctx, o.RazorpayPaymentID, o.TotalAmount*100, map[string]string{"reason": reason})
	if err != nil {
		// Order stays paid; the caller may retry.
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if _, err := s.Orders.MarkRefunded(ctx, o.ID); err != nil {
		return nil, err
	}
	recordOutcome("refunded")
	s.Log.Info("order refunded",
		zap.String("order_id", o.ID),
		zap.String("razorpay_payment_id", o.RazorpayPaymentID),
		zap.String("reason", reason))
	return refund, nil
}

func (s *Service) publishPaid(o *orders.Order) {
	if s.Producer == nil {
		return
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPaid,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Cfg.ServiceName,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderPaidPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			Items:       o.Items,
			TotalAmount: o.TotalAmount,
			Customer:    o.Customer,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPaid)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
