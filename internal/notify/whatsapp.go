package notify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/worldlineout/accessories-api/internal/orders"
)

// Message renders the order hand-off text sent to the shop's WhatsApp
// number: one line per item, the total, then the customer block.
func Message(items []orders.OrderItem, total int64, c orders.Customer) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("%s - %d - ₹%s", it.Name, it.Qty, FormatINR(it.UnitPrice*int64(it.Qty))))
	}
	return fmt.Sprintf("Hello, I want to order:\n\n%s\n\nTotal: ₹%s\n\nName: %s\nPhone: %s\nAddress: %s",
		strings.Join(lines, "\n"), FormatINR(total), c.Name, c.Phone, c.Address)
}

// DeepLink builds the wa.me URL that opens a chat pre-filled with message.
func DeepLink(number, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", number, url.QueryEscape(message))
}

// FormatINR groups digits the Indian way: last three, then pairs
// (1234567 -> 12,34,567).
func FormatINR(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		head, tail := s[:len(s)-3], s[len(s)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		s = strings.Join(append(groups, tail), ",")
	}
	if neg {
		return "-" + s
	}
	return s
}
