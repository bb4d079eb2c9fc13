package handlers

import (
	"log"
	"net/http"

	"checkout-module-api/middleware"
	"checkout-module-api/services/upstream"
)

type CardHandler struct {
	client       *upstream.Client
	recommendURL string
	myCardsURL   string
}

func NewCardHandler(client *upstream.Client, cardBaseURL string) *CardHandler {
	return &CardHandler{
		client:       client,
		recommendURL: cardBaseURL + "/module/api/card/recommend",
		myCardsURL:   cardBaseURL + "/service/api/card/my",
	}
}

// Recommend relays the ranked-offer fetch for the current purchase.
func (h *CardHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	log.Printf("Card recommendation request from caller %s", middleware.GetCallerIdentity(r.Context()))
	forward(w, r, h.client, http.MethodPost, h.recommendURL, "Failed to fetch card recommendations")
}

// MyCards relays the shopper's full enrolled-card listing.
func (h *CardHandler) MyCards(w http.ResponseWriter, r *http.Request) {
	log.Printf("Enrolled cards request from caller %s", middleware.GetCallerIdentity(r.Context()))
	forward(w, r, h.client, http.MethodGet, h.myCardsURL, "Failed to fetch card list")
}
