package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPaid     = "OrderPaid"
	EventOrderRefunded = "OrderRefunded"
)

const (
	TopicOrderPaid = "order.paid"
)

// Partition key = order id so events for one order keep their ordering.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPaidPayload struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	Items       []OrderItem `json:"items"`
	TotalAmount int64       `json:"total_amount"`
	Customer    Customer    `json:"customer"`
}
