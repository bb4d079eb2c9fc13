package card

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"checkout-module-api/models"
	"checkout-module-api/services/auth"
	"checkout-module-api/services/upstream"
)

var (
	ErrUnauthenticated     = errors.New("no session credential present")
	ErrUpstreamUnavailable = errors.New("card service unavailable")
)

// Engine fetches ranked card offers and the shopper's enrolled cards through
// the relay. It never calls out without a live credential.
type Engine struct {
	client       *upstream.Client
	recommendURL string
	myCardsURL   string
	store        *auth.TokenStore
}

func NewEngine(client *upstream.Client, relayBaseURL string, store *auth.TokenStore) *Engine {
	return &Engine{
		client:       client,
		recommendURL: relayBaseURL + "/api/module/card/recommend",
		myCardsURL:   relayBaseURL + "/api/service/card/my",
		store:        store,
	}
}

func (e *Engine) authHeader() (http.Header, error) {
	cred, ok := e.store.Get()
	if !ok {
		return nil, ErrUnauthenticated
	}
	header := http.Header{}
	header.Set("X-User-Name", e.store.Identity())
	header.Set("Authorization", "Bearer "+cred.AccessToken)
	return header, nil
}

// Recommend returns the ranked offers for this purchase, in upstream order.
// An empty list is a successful result; callers render it as "no eligible
// cards", not as an error.
func (e *Engine) Recommend(ctx context.Context, shopperID, merchantID, amount int64) ([]models.CardOffer, error) {
	header, err := e.authHeader()
	if err != nil {
		return nil, err
	}

	res, err := e.client.PostJSON(ctx, e.recommendURL, header, models.RecommendRequest{
		UserID:     shopperID,
		MerchantID: merchantID,
		Amount:     amount,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, res.StatusCode)
	}

	var envelope models.CommonResponse
	if err := json.Unmarshal(res.Body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstreamUnavailable, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, envelope.Message)
	}

	var offers []models.CardOffer
	if len(envelope.Response) > 0 {
		if err := json.Unmarshal(envelope.Response, &offers); err != nil {
			return nil, fmt.Errorf("%w: decoding offers: %v", ErrUpstreamUnavailable, err)
		}
	}

	log.Printf("Fetched %d card offers for shopper %d", len(offers), shopperID)
	return offers, nil
}

// ListEnrolled returns every card the shopper owns, independent of the
// recommendation context. Called only when the shopper expands the full list.
func (e *Engine) ListEnrolled(ctx context.Context, shopperID int64) ([]models.EnrolledCard, error) {
	header, err := e.authHeader()
	if err != nil {
		return nil, err
	}

	res, err := e.client.Do(ctx, http.MethodGet, e.myCardsURL, header, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, res.StatusCode)
	}

	var envelope models.CommonResponse
	if err := json.Unmarshal(res.Body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUpstreamUnavailable, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, envelope.Message)
	}

	var cards []models.EnrolledCard
	if len(envelope.Response) > 0 {
		if err := json.Unmarshal(envelope.Response, &cards); err != nil {
			return nil, fmt.Errorf("%w: decoding cards: %v", ErrUpstreamUnavailable, err)
		}
	}

	log.Printf("Fetched %d enrolled cards for shopper %d", len(cards), shopperID)
	return cards, nil
}

// BestOffer picks the default selection: the offer with the highest discount,
// first-listed winning ties. Returns -1 for an empty list.
func BestOffer(offers []models.CardOffer) int {
	if len(offers) == 0 {
		return -1
	}
	best := 0
	for i, offer := range offers {
		if offer.DiscountAmount > offers[best].DiscountAmount {
			best = i
		}
	}
	return best
}

// FilterEnrolled suppresses enrolled cards already shown as offers. A card is
// a duplicate only when display name AND masked number both match; ids live
// in disjoint spaces and are never compared.
func FilterEnrolled(offers []models.CardOffer, enrolled []models.EnrolledCard) []models.EnrolledCard {
	shown := make(map[string]bool, len(offers))
	for _, o := range offers {
		shown[o.DisplayName+"\x00"+o.MaskedNumber] = true
	}

	filtered := make([]models.EnrolledCard, 0, len(enrolled))
	for _, c := range enrolled {
		if shown[c.DisplayName+"\x00"+c.MaskedNumber] {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}
