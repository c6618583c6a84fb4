package payments

import "encoding/json"

// Gateway event names this service reacts to. Anything else is accepted and
// ignored so the gateway stops retrying.
const eventPaymentCaptured = "payment.captured"

// webhookEvent is the decoded gateway envelope. Only the payment entity is
// modeled; unrecognized events leave Payload.Payment nil.
type webhookEvent struct {
	Event   string         `json:"event"`
	Payload webhookPayload `json:"payload"`
}

type webhookPayload struct {
	Payment *paymentWrapper `json:"payment"`
}

type paymentWrapper struct {
	Entity paymentEntity `json:"entity"`
}

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
}

func decodeWebhook(body []byte) (webhookEvent, error) {
	var ev webhookEvent
	err := json.Unmarshal(body, &ev)
	return ev, err
}
