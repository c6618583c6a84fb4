package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// signHex returns the lowercase hex HMAC-SHA256 of msg, Razorpay's signature
// scheme for both callbacks and webhooks.
func signHex(msg []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHex(msg []byte, signature, secret string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hmac.Equal(mac.Sum(nil), got)
}

// VerifyPaymentSignature checks a client-side completion callback. The
// signed message is "<razorpayOrderID>|<razorpayPaymentID>" keyed by the
// key secret. hmac.Equal keeps the comparison constant-time.
func VerifyPaymentSignature(razorpayOrderID, razorpayPaymentID, signature, keySecret string) bool {
	return verifyHex([]byte(razorpayOrderID+"|"+razorpayPaymentID), signature, keySecret)
}

// VerifyWebhookSignature checks a webhook delivery; the signed message is
// the raw body, keyed by the webhook secret.
func VerifyWebhookSignature(body []byte, signature, webhookSecret string) bool {
	return verifyHex(body, signature, webhookSecret)
}
