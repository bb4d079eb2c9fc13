package checkout

import (
	"context"
	"errors"
	"log"
	"sync"

	"checkout-module-api/models"
	"checkout-module-api/services/card"
	"checkout-module-api/utils"
)

// Step is the checkout flow position. The flow is
// SelectCard -> EnterPin -> Processing -> Complete | Error, with EnterPin and
// Error returning to SelectCard only on an explicit user action.
type Step string

const (
	StepSelectCard Step = "select-card"
	StepEnterPin   Step = "enter-pin"
	StepProcessing Step = "processing"
	StepComplete   Step = "complete"
	StepError      Step = "error"
)

// PinLength is the fixed PIN size; reaching it triggers submission.
const PinLength = 6

// The only two messages ever shown to the shopper on failure.
const (
	MsgPinMismatch   = "The payment PIN you entered does not match. Please try again."
	MsgPaymentFailed = "An error occurred while processing your payment. Please try again."
)

var ErrAlreadyMounted = errors.New("checkout already mounted")

// CardService is the slice of the recommendation engine the controller needs.
type CardService interface {
	Recommend(ctx context.Context, shopperID, merchantID, amount int64) ([]models.CardOffer, error)
	ListEnrolled(ctx context.Context, shopperID int64) ([]models.EnrolledCard, error)
}

// PaymentService submits one payment and classifies the result.
type PaymentService interface {
	Submit(ctx context.Context, req models.PaymentRequest) (models.PaymentOutcome, error)
}

// Notifier receives the terminal success exactly once.
type Notifier interface {
	PaymentComplete(order models.OrderContext, selection models.Selection, finalAmount, discount int64, receiptID string)
}

// CredentialStore is the slice of the token store the controller tears down.
type CredentialStore interface {
	Clear()
}

// Session is a read-only view of the checkout for renderers.
type Session struct {
	Step       Step
	Offers     []models.CardOffer
	Selection  *models.Selection
	PinEntered int
	LastError  string
}

// Controller owns one checkout session and drives it through the flow. All
// methods are safe for the single widget instance that owns it; shared state
// never leaves this struct.
type Controller struct {
	order    models.OrderContext
	cards    CardService
	payments PaymentService
	notifier Notifier
	store    CredentialStore

	mu        sync.Mutex
	step      Step
	offers    []models.CardOffer
	selection *models.Selection
	pin       []byte
	pinFired  bool
	epoch     uint64
	lastError string
	mounted   bool
	notified  bool
	outcome   models.PaymentOutcome

	inflight sync.WaitGroup
}

func NewController(order models.OrderContext, cards CardService, payments PaymentService, notifier Notifier, store CredentialStore) *Controller {
	return &Controller{
		order:    order,
		cards:    cards,
		payments: payments,
		notifier: notifier,
		store:    store,
		step:     StepSelectCard,
	}
}

// Mount fetches card offers exactly once for the lifetime of the controller
// and auto-selects the best one. State transitions never re-fetch offers.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.mounted = true
	c.mu.Unlock()

	offers, err := c.cards.Recommend(ctx, c.order.ShopperID, c.order.MerchantID, c.order.TotalAmount)
	if err != nil {
		c.mu.Lock()
		c.mounted = false
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.offers = offers
	if best := card.BestOffer(offers); best >= 0 {
		sel := models.SelectOffer(offers[best])
		c.selection = &sel
	}
	return nil
}

// NoEligibleCards reports the explicit empty-offer state: the fetch succeeded
// but returned nothing. It is not an error; the proceed action stays disabled.
func (c *Controller) NoEligibleCards() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted && len(c.offers) == 0
}

// ExpandEnrolledCards lazily fetches the shopper's full card list, with cards
// already shown as offers suppressed. Independent of the offer fetch; neither
// blocks the other.
func (c *Controller) ExpandEnrolledCards(ctx context.Context) ([]models.EnrolledCard, error) {
	enrolled, err := c.cards.ListEnrolled(ctx, c.order.ShopperID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	offers := c.offers
	c.mu.Unlock()

	return card.FilterEnrolled(offers, enrolled), nil
}

// Select replaces the current selection. Only meaningful while picking a card.
func (c *Controller) Select(sel models.Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepSelectCard {
		return
	}
	c.selection = &sel
}

// Proceed moves to PIN entry. Guarded: without a selection it is a no-op.
func (c *Controller) Proceed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepSelectCard || c.selection == nil {
		return
	}
	c.step = StepEnterPin
}

// EnterDigit appends one digit to the PIN buffer. Digits beyond the sixth are
// rejected. Completing the buffer fires the submission exactly once per
// completion; the transition is edge-triggered and cannot re-fire while the
// buffer sits at full length.
func (c *Controller) EnterDigit(d int) {
	c.mu.Lock()

	if c.step != StepEnterPin || d < 0 || d > 9 {
		c.mu.Unlock()
		return
	}
	if len(c.pin) >= PinLength {
		c.mu.Unlock()
		return
	}

	c.pin = append(c.pin, byte('0'+d))
	if len(c.pin) < PinLength || c.pinFired {
		c.mu.Unlock()
		return
	}

	c.pinFired = true
	c.step = StepProcessing
	c.epoch++

	req := models.PaymentRequest{
		ShopperID:   c.order.ShopperID,
		CardID:      c.selection.CardID,
		Amount:      c.finalAmountLocked(),
		MerchantID:  c.order.MerchantID,
		ProductName: c.order.ProductName,
		PinCode:     string(c.pin),
	}
	epoch := c.epoch
	c.mu.Unlock()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		outcome, err := c.payments.Submit(context.Background(), req)
		if err != nil {
			outcome = models.PaymentOutcome{Status: models.OutcomeFailure, Message: err.Error()}
		}
		c.applyOutcome(epoch, outcome)
	}()
}

// DeleteDigit removes the last digit. No-op on an empty buffer and while a
// submission is processing.
func (c *Controller) DeleteDigit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepEnterPin || len(c.pin) == 0 {
		return
	}
	c.pin = c.pin[:len(c.pin)-1]
}

// Cancel backs out of PIN entry: the buffer is cleared, the selection stays.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepEnterPin {
		return
	}
	c.resetPinLocked()
	c.step = StepSelectCard
}

// Retry leaves the error state on an explicit user action. The PIN buffer and
// the last error are cleared; a retry is a fresh submission cycle, never a
// resumption of the failed one.
func (c *Controller) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepError {
		return
	}
	c.resetPinLocked()
	c.lastError = ""
	c.step = StepSelectCard
}

// Teardown clears the session credential unconditionally. An in-flight
// submission that resolves afterwards is discarded by the stale guard.
func (c *Controller) Teardown() {
	c.store.Clear()
}

// Wait blocks until any in-flight submission has settled. Teardown callers
// and tests use it; the flow itself never does.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// applyOutcome lands a submission result. The epoch and step guard discards
// anything stale: a result arriving after cancel or teardown must not move
// the machine.
func (c *Controller) applyOutcome(epoch uint64, outcome models.PaymentOutcome) {
	c.mu.Lock()

	if c.step != StepProcessing || epoch != c.epoch {
		step := c.step
		c.mu.Unlock()
		log.Printf("Discarding stale payment outcome (epoch %d, step %s)", epoch, step)
		return
	}

	switch outcome.Status {
	case models.OutcomeSuccess:
		c.outcome = outcome
		c.step = StepComplete
		c.resetPinLocked()

		fire := !c.notified
		c.notified = true
		order := c.order
		sel := *c.selection
		final := c.finalAmountLocked()
		discount := c.discountLocked()
		c.mu.Unlock()

		if fire {
			c.notifier.PaymentComplete(order, sel, final, discount, outcome.ReceiptID)
		}
		return

	case models.OutcomePinMismatch:
		log.Printf("Payment declined: PIN mismatch")
		c.lastError = MsgPinMismatch
	default:
		log.Printf("Payment failed: %s", outcome.Message)
		c.lastError = MsgPaymentFailed
	}

	c.outcome = outcome
	c.step = StepError
	c.resetPinLocked()
	c.mu.Unlock()
}

func (c *Controller) resetPinLocked() {
	c.pin = c.pin[:0]
	c.pinFired = false
}

// Discount is the absolute discount of the current selection.
func (c *Controller) Discount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discountLocked()
}

// FinalAmount is the order total less the selected card's discount.
func (c *Controller) FinalAmount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalAmountLocked()
}

func (c *Controller) discountLocked() int64 {
	if c.selection == nil {
		return 0
	}
	return c.selection.DiscountAmount
}

func (c *Controller) finalAmountLocked() int64 {
	return utils.FinalAmount(c.order.TotalAmount, c.discountLocked())
}

// Snapshot returns a copy of the session for rendering.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Session{
		Step:       c.step,
		Offers:     append([]models.CardOffer(nil), c.offers...),
		PinEntered: len(c.pin),
		LastError:  c.lastError,
	}
	if c.selection != nil {
		sel := *c.selection
		s.Selection = &sel
	}
	return s
}
