package handlers

import (
	"log"
	"net/http"

	"checkout-module-api/middleware"
	"checkout-module-api/services/upstream"
)

type PaymentHandler struct {
	client *upstream.Client
	payURL string
}

func NewPaymentHandler(client *upstream.Client, paymentBaseURL string) *PaymentHandler {
	return &PaymentHandler{
		client: client,
		payURL: paymentBaseURL + "/module/api/payment/pay",
	}
}

// Pay relays one payment submission. The relay attaches nothing of its own:
// the credential and identity are the caller's headers, passed through as-is,
// and the upstream decides whether they are any good.
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	log.Printf("Payment submission from caller %s", middleware.GetCallerIdentity(r.Context()))
	forward(w, r, h.client, http.MethodPost, h.payURL, "Payment failed")
}
