package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap/zaptest"

	"github.com/worldlineout/accessories-api/internal/catalog"
	"github.com/worldlineout/accessories-api/internal/orders"
)

type fakeProducts struct {
	byID map[string]*catalog.Product
}

func (f *fakeProducts) Get(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) DecrementStock(_ context.Context, id string, qty int) error {
	p, ok := f.byID[id]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Stock -= qty
	if p.Stock < 0 {
		p.Stock = 0
	}
	return nil
}

type fakeOrders struct {
	byID map[string]*orders.Order
	seq  int
}

func (f *fakeOrders) Create(_ context.Context, o *orders.Order) error {
	f.seq++
	o.ID = fmt.Sprintf("local-%d", f.seq)
	o.OrderNumber = fmt.Sprintf("WLO-%04d", f.seq)
	f.byID[o.ID] = o
	return nil
}

func (f *fakeOrders) FindByID(_ context.Context, id string) (*orders.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) FindByRazorpayOrderID(_ context.Context, rzpID string) (*orders.Order, error) {
	for _, o := range f.byID {
		if o.RazorpayOrderID == rzpID && rzpID != "" {
			cp := *o
			return &cp, nil
		}
	}
	return nil, orders.ErrNotFound
}

func (f *fakeOrders) MarkPaid(_ context.Context, rzpID, paymentID, signature string) (bool, error) {
	for _, o := range f.byID {
		if o.RazorpayOrderID != rzpID || rzpID == "" {
			continue
		}
		if o.PaymentStatus != orders.PaymentPending {
			return false, nil
		}
		o.PaymentStatus = orders.PaymentPaid
		o.Status = orders.StatusConfirmed
		o.RazorpayPaymentID = paymentID
		if signature != "" {
			o.RazorpaySignature = signature
		}
		return true, nil
	}
	return false, nil
}

func (f *fakeOrders) MarkFailed(_ context.Context, id string) error {
	if o, ok := f.byID[id]; ok && o.PaymentStatus == orders.PaymentPending {
		o.PaymentStatus = orders.PaymentFailed
		o.IsFlagged = true
	}
	return nil
}

func (f *fakeOrders) MarkRefunded(_ context.Context, id string) (bool, error) {
	o, ok := f.byID[id]
	if !ok || o.PaymentStatus != orders.PaymentPaid {
		return false, nil
	}
	o.PaymentStatus = orders.PaymentRefunded
	o.Status = orders.StatusCancelled
	return true, nil
}

type fakeGateway struct {
	createCalls int
	refundCalls int
	failCreate  bool
	failRefund  bool
}

func (g *fakeGateway) CreateOrder(_ context.Context, _ int64, _, _ string) (string, error) {
	g.createCalls++
	if g.failCreate {
		return "", errors.New("gateway down")
	}
	return fmt.Sprintf("order_rzp%d", g.createCalls), nil
}

func (g *fakeGateway) Refund(_ context.Context, paymentID string, amountPaise int64, _ map[string]string) (map[string]any, error) {
	g.refundCalls++
	if g.failRefund {
		return nil, errors.New("gateway down")
	}
	return map[string]any{"id": "rfnd_1", "payment_id": paymentID, "amount": amountPaise}, nil
}

type fakePublisher struct{ published [][]byte }

func (p *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	p.published = append(p.published, value)
}

const (
	keySecret     = "key_secret"
	webhookSecret = "webhook_secret"
)

func newTestService(t *testing.T) (*Service, *fakeProducts, *fakeOrders, *fakeGateway, *fakePublisher) {
	t.Helper()
	products := &fakeProducts{byID: map[string]*catalog.Product{
		"p1": {ID: "p1", Name: "Tempered Glass", Price: 500, Stock: 10, IsActive: true},
		"p2": {ID: "p2", Name: "Braided Cable", Price: 299, Stock: 3, IsActive: true},
	}}
	ords := &fakeOrders{byID: map[string]*orders.Order{}}
	gw := &fakeGateway{}
	pub := &fakePublisher{}
	svc := &Service{
		Products: products,
		Orders:   ords,
		Gateway:  gw,
		Producer: pub,
		Cfg: Config{
			KeySecret:            keySecret,
			WebhookSecret:        webhookSecret,
			FraudThresholdRupees: 50000,
			ServiceName:          "accessories-api-test",
		},
		Log: zaptest.NewLogger(t),
	}
	return svc, products, ords, gw, pub
}

func customer() orders.Customer {
	return orders.Customer{Name: "Asha", Phone: "9876543210", Address: "12 MG Road, Chennai"}
}

func TestValidateCartIgnoresClientPrice(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	// forged name and price must be discarded
	snap, total, err := svc.ValidateCart(context.Background(), []CartItem{
		{ProductID: "p1", Qty: 2, Name: "Free Glass", Price: 1},
	})
	if err != nil {
		t.Fatalf("ValidateCart: %v", err)
	}
	if total != 1000 {
		t.Fatalf("total = %d, want 1000 (server price only)", total)
	}
	if snap[0].Name != "Tempered Glass" || snap[0].UnitPrice != 500 {
		t.Fatalf("snapshot not taken from catalog: %+v", snap[0])
	}
}

func TestValidateCartErrors(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.ValidateCart(ctx, []CartItem{{ProductID: "ghost", Qty: 1}}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("unknown product: got %v, want ErrProductNotFound", err)
	}
	if _, _, err := svc.ValidateCart(ctx, []CartItem{{ProductID: "p2", Qty: 4}}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("over stock: got %v, want ErrInsufficientStock", err)
	}
	if _, _, err := svc.ValidateCart(ctx, []CartItem{{ProductID: "p1", Qty: 0}}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero qty: got %v, want ErrInvalidQuantity", err)
	}
}

func TestInitiate(t *testing.T) {
	svc, _, ords, gw, _ := newTestService(t)

	intent, err := svc.Initiate(context.Background(),
		[]CartItem{{ProductID: "p1", Qty: 2}}, customer(), "203.0.113.9")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if intent.AmountPaise != 100000 {
		t.Fatalf("amount = %d paise, want 100000", intent.AmountPaise)
	}
	if intent.Currency != "INR" {
		t.Fatalf("currency = %s", intent.Currency)
	}
	if gw.createCalls != 1 {
		t.Fatalf("gateway calls = %d, want 1", gw.createCalls)
	}

	o, err := ords.FindByID(context.Background(), intent.DBOrderID)
	if err != nil {
		t.Fatalf("pending order not persisted: %v", err)
	}
	if o.Status != orders.StatusPending || o.PaymentStatus != orders.PaymentPending {
		t.Fatalf("order not pending: %s/%s", o.Status, o.PaymentStatus)
	}
	if o.RazorpayOrderID != intent.RazorpayOrderID {
		t.Fatalf("gateway correlation missing")
	}
	if o.IsFlagged {
		t.Fatalf("low-value order flagged")
	}
	if o.ClientIP != "203.0.113.9" {
		t.Fatalf("client ip not captured")
	}
}

func TestInitiateEmptyCartAndCustomer(t *testing.T) {
	svc, _, ords, gw, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Initiate(ctx, nil, customer(), ""); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("empty cart: got %v", err)
	}
	if _, err := svc.Initiate(ctx, []CartItem{{ProductID: "p1", Qty: 1}}, orders.Customer{Name: "x"}, ""); !errors.Is(err, ErrMissingCustomer) {
		t.Fatalf("missing customer: got %v", err)
	}
	if gw.createCalls != 0 || len(ords.byID) != 0 {
		t.Fatalf("side effects on validation failure: calls=%d orders=%d", gw.createCalls, len(ords.byID))
	}
}

func TestInitiateStockGateHasNoSideEffects(t *testing.T) {
	svc, _, ords, gw, _ := newTestService(t)

	_, err := svc.Initiate(context.Background(), []CartItem{{ProductID: "p2", Qty: 99}}, customer(), "")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("got %v, want ErrInsufficientStock", err)
	}
	if gw.createCalls != 0 {
		t.Fatalf("gateway order created despite stock gate")
	}
	if len(ords.byID) != 0 {
		t.Fatalf("local order created despite stock gate")
	}
}

func TestInitiateGatewayFailureLeavesNoOrder(t *testing.T) {
	svc, _, ords, gw, _ := newTestService(t)
	gw.failCreate = true

	_, err := svc.Initiate(context.Background(), []CartItem{{ProductID: "p1", Qty: 1}}, customer(), "")
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("got %v, want ErrGateway", err)
	}
	if len(ords.byID) != 0 {
		t.Fatalf("orphaned local order after gateway failure")
	}
}

func TestInitiateFlagsHighValueOrders(t *testing.T) {
	svc, products, ords, _, _ := newTestService(t)
	products.byID["lux"] = &catalog.Product{ID: "lux", Name: "Gold Case", Price: 60000, Stock: 5, IsActive: true}

	intent, err := svc.Initiate(context.Background(), []CartItem{{ProductID: "lux", Qty: 1}}, customer(), "")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	o, _ := ords.FindByID(context.Background(), intent.DBOrderID)
	if !o.IsFlagged {
		t.Fatalf("order above threshold not flagged")
	}
}

func TestConfirmCallbackHappyPathAndIdempotence(t *testing.T) {
	svc, products, _, _, pub := newTestService(t)
	ctx := context.Background()

	intent, err := svc.Initiate(ctx, []CartItem{{ProductID: "p1", Qty: 2}}, customer(), "")
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	cb := Callback{
		RazorpayOrderID:   intent.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		Signature:         signHex([]byte(intent.RazorpayOrderID+"|pay_1"), keySecret),
		DBOrderID:         intent.DBOrderID,
	}

	o, err := svc.ConfirmCallback(ctx, cb)
	if err != nil {
		t.Fatalf("ConfirmCallback: %v", err)
	}
	if o.PaymentStatus != orders.PaymentPaid || o.Status != orders.StatusConfirmed {
		t.Fatalf("order not settled: %s/%s", o.Status, o.PaymentStatus)
	}
	if got := products.byID["p1"].Stock; got != 8 {
		t.Fatalf("stock = %d, want 8", got)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.published))
	}

	// redundant delivery is a no-op: stock deducted exactly once
	if _, err := svc.ConfirmCallback(ctx, cb); err != nil {
		t.Fatalf("duplicate ConfirmCallback: %v", err)
	}
	if got := products.byID["p1"].Stock; got != 8 {
		t.Fatalf("stock after duplicate = %d, want 8", got)
	}
	if len(pub.published) != 1 {
		t.Fatalf("duplicate delivery published another event")
	}
}

func TestConfirmCallbackInvalidSignatureMarksFailed(t *testing.T) {
	svc, products, ords, _, _ := newTestService(t)
	ctx := context.Background()

	intent, _ := svc.Initiate(ctx, []CartItem{{ProductID: "p1", Qty: 1}}, customer(), "")

	cb := Callback{
		RazorpayOrderID:   intent.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		Signature:         signHex([]byte("something|else"), keySecret),
		DBOrderID:         intent.DBOrderID,
	}
	if _, err := svc.ConfirmCallback(ctx, cb); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}

	o, _ := ords.FindByID(ctx, intent.DBOrderID)
	if o.PaymentStatus != orders.PaymentFailed {
		t.Fatalf("payment status = %s, want failed", o.PaymentStatus)
	}
	if !o.IsFlagged {
		t.Fatalf("tampered order not flagged")
	}
	if got := products.byID["p1"].Stock; got != 10 {
		t.Fatalf("stock touched on signature failure: %d", got)
	}
}

func TestWebhookReconciles(t *testing.T) {
	svc, products, ords, _, _ := newTestService(t)
	ctx := context.Background()

	intent, _ := svc.Initiate(ctx, []CartItem{{ProductID: "p1", Qty: 2}}, customer(), "")

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_wh","order_id":"%s"}}}}`,
		intent.RazorpayOrderID))
	if err := svc.HandleWebhook(ctx, body, signHex(body, webhookSecret)); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	o, _ := ords.FindByID(ctx, intent.DBOrderID)
	if o.PaymentStatus != orders.PaymentPaid || o.RazorpayPaymentID != "pay_wh" {
		t.Fatalf("webhook did not settle order: %+v", o)
	}
	if got := products.byID["p1"].Stock; got != 8 {
		t.Fatalf("stock = %d, want 8", got)
	}

	// the racing client callback then observes paid and no-ops
	cb := Callback{
		RazorpayOrderID:   intent.RazorpayOrderID,
		RazorpayPaymentID: "pay_wh",
		Signature:         signHex([]byte(intent.RazorpayOrderID+"|pay_wh"), keySecret),
		DBOrderID:         intent.DBOrderID,
	}
	if _, err := svc.ConfirmCallback(ctx, cb); err != nil {
		t.Fatalf("callback after webhook: %v", err)
	}
	if got := products.byID["p1"].Stock; got != 8 {
		t.Fatalf("double deduction: stock = %d, want 8", got)
	}
}

func TestWebhookBadSignatureMutatesNothing(t *testing.T) {
	svc, products, ords, _, _ := newTestService(t)
	ctx := context.Background()

	intent, _ := svc.Initiate(ctx, []CartItem{{ProductID: "p1", Qty: 1}}, customer(), "")

	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_wh","order_id":"%s"}}}}`,
		intent.RazorpayOrderID))
	err := svc.HandleWebhook(ctx, body, signHex(body, "not_the_webhook_secret"))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}

	o, _ := ords.FindByID(ctx, intent.DBOrderID)
	if o.PaymentStatus != orders.PaymentPending {
		t.Fatalf("webhook signature failure mutated state: %s", o.PaymentStatus)
	}
	if products.byID["p1"].Stock != 10 {
		t.Fatalf("stock touched")
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	body := []byte(`{"event":"payment.authorized","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_x"}}}}`)
	if err := svc.HandleWebhook(context.Background(), body, signHex(body, webhookSecret)); err != nil {
		t.Fatalf("unrecognized event should be accepted and ignored: %v", err)
	}
}

func TestWebhookUnknownOrderIsAccepted(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_ghost"}}}}`)
	if err := svc.HandleWebhook(context.Background(), body, signHex(body, webhookSecret)); err != nil {
		t.Fatalf("unknown order should not error the webhook: %v", err)
	}
}

func TestRefund(t *testing.T) {
	svc, _, ords, gw, _ := newTestService(t)
	ctx := context.Background()

	intent, _ := svc.Initiate(ctx, []CartItem{{ProductID: "p1", Qty: 2}}, customer(), "")

	// precondition: pending order is not refundable and no gateway call happens
	if _, err := svc.Refund(ctx, intent.DBOrderID, ""); !errors.Is(err, ErrNotRefundable) {
		t.Fatalf("got %v, want ErrNotRefundable", err)
	}
	if gw.refundCalls != 0 {
		t.Fatalf("gateway refund issued for non-paid order")
	}

	cb := Callback{
		RazorpayOrderID:   intent.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		Signature:         signHex([]byte(intent.RazorpayOrderID+"|pay_1"), keySecret),
		DBOrderID:         intent.DBOrderID,
	}
	if _, err := svc.ConfirmCallback(ctx, cb); err != nil {
		t.Fatalf("ConfirmCallback: %v", err)
	}

	refund, err := svc.Refund(ctx, intent.DBOrderID, "damaged item")
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if refund["amount"] != int64(100000) {
		t.Fatalf("refund amount = %v, want 100000 paise", refund["amount"])
	}

	o, _ := ords.FindByID(ctx, intent.DBOrderID)
	if o.PaymentStatus != orders.PaymentRefunded || o.Status != orders.StatusCancelled {
		t.Fatalf("order not cancelled after refund: %s/%s", o.Status, o.PaymentStatus)
	}
}

func TestRefundUnknownOrder(t *testing.T) {
	svc, _, _, gw, _ := newTestService(t)

	if _, err := svc.Refund(context.Background(), "ghost", ""); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("got %v, want ErrOrderNotFound", err)
	}
	if gw.refundCalls != 0 {
		t.Fatalf("gateway called for unknown order")
	}
}

func TestRefundGatewayFailureKeepsOrderPaid(t *testing.T) {
	svc, _, ords, gw, _ := newTestService(t)
	ctx := context.Background()

	intent, _ := svc.Initiate(ctx, []CartItem{{ProductID: "p1", Qty: 1}}, customer(), "")
	cb := Callback{
		RazorpayOrderID:   intent.RazorpayOrderID,
		RazorpayPaymentID: "pay_1",
		Signature:         signHex([]byte(intent.RazorpayOrderID+"|pay_1"), keySecret),
		DBOrderID:         intent.DBOrderID,
	}
	if _, err := svc.ConfirmCallback(ctx, cb); err != nil {
		t.Fatalf("ConfirmCallback: %v", err)
	}

	gw.failRefund = true
	if _, err := svc.Refund(ctx, intent.DBOrderID, ""); !errors.Is(err, ErrGateway) {
		t.Fatalf("got %v, want ErrGateway", err)
	}
	o, _ := ords.FindByID(ctx, intent.DBOrderID)
	if o.PaymentStatus != orders.PaymentPaid {
		t.Fatalf("order left %s after failed refund, want paid (retryable)", o.PaymentStatus)
	}
}
