package orders

import "time"

// OrderItem is a snapshot of the product at order time; later catalog edits
// do not rewrite history.
type OrderItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"price"` // whole rupees
	Qty       int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
}

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (c Customer) Valid() bool {
	return c.Name != "" && c.Phone != "" && c.Address != ""
}

type Order struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Items       []OrderItem `json:"items"`
	TotalAmount int64       `json:"totalAmount"` // whole rupees
	Customer    Customer    `json:"customer"`

	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`

	RazorpayOrderID   string `json:"razorpayOrderId,omitempty"`
	RazorpayPaymentID string `json:"razorpayPaymentId,omitempty"`
	RazorpaySignature string `json:"-"`

	IsFlagged    bool   `json:"isFlagged"`
	ClientIP     string `json:"-"`
	WhatsAppSent bool   `json:"whatsappSent"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
