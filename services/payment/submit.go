package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"checkout-module-api/models"
	"checkout-module-api/services/auth"
	"checkout-module-api/services/upstream"
)

var ErrUnauthenticated = errors.New("no session credential present")

// PinMismatchMarker is the substring the payment upstream puts in its message
// when the entered PIN is wrong. Classification matches on it, never on the
// HTTP status code alone.
const PinMismatchMarker = "password mismatch"

// Submitter sends a payment through the relay and classifies the result into
// exactly one of success, PIN mismatch, or failure.
type Submitter struct {
	client *upstream.Client
	payURL string
	store  *auth.TokenStore
}

func NewSubmitter(client *upstream.Client, relayBaseURL string, store *auth.TokenStore) *Submitter {
	return &Submitter{
		client: client,
		payURL: relayBaseURL + "/api/module/payment/pay",
		store:  store,
	}
}

type payReceipt struct {
	ReceiptID string `json:"receiptId"`
}

// Submit requires a live credential and never touches the network without
// one. Transport failures are folded into a failure outcome rather than an
// error: to the state machine every non-success is either a wrong PIN or a
// generic failure, and nothing here is retried.
func (s *Submitter) Submit(ctx context.Context, req models.PaymentRequest) (models.PaymentOutcome, error) {
	cred, ok := s.store.Get()
	if !ok {
		return models.PaymentOutcome{}, ErrUnauthenticated
	}

	header := http.Header{}
	header.Set("X-User-Name", s.store.Identity())
	header.Set("Authorization", "Bearer "+cred.AccessToken)

	log.Printf("Submitting payment for shopper %d, card %d, amount %d", req.ShopperID, req.CardID, req.Amount)

	res, err := s.client.PostJSON(ctx, s.payURL, header, req)
	if err != nil {
		log.Printf("Payment submission transport failure: %v", err)
		return models.PaymentOutcome{
			Status:  models.OutcomeFailure,
			Message: fmt.Sprintf("payment service unreachable: %v", err),
		}, nil
	}

	return s.classify(res), nil
}

func (s *Submitter) classify(res *upstream.Result) models.PaymentOutcome {
	var envelope models.CommonResponse
	if err := json.Unmarshal(res.Body, &envelope); err != nil {
		return models.PaymentOutcome{
			Status:  models.OutcomeFailure,
			Message: fmt.Sprintf("unreadable payment response (status %d)", res.StatusCode),
		}
	}

	if isPinMismatch(envelope.Message) {
		return models.PaymentOutcome{
			Status:  models.OutcomePinMismatch,
			Message: envelope.Message,
		}
	}

	if res.OK() && envelope.Success {
		outcome := models.PaymentOutcome{
			Status:  models.OutcomeSuccess,
			Message: envelope.Message,
		}
		if len(envelope.Response) > 0 {
			var receipt payReceipt
			if err := json.Unmarshal(envelope.Response, &receipt); err == nil {
				outcome.ReceiptID = receipt.ReceiptID
			}
		}
		return outcome
	}

	message := envelope.Message
	if message == "" {
		message = fmt.Sprintf("payment failed with status %d", res.StatusCode)
	}
	return models.PaymentOutcome{
		Status:  models.OutcomeFailure,
		Message: message,
	}
}

func isPinMismatch(message string) bool {
	return strings.Contains(strings.ToLower(message), PinMismatchMarker)
}
