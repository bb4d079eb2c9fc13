package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-module-api/models"
)

var testOrder = models.OrderContext{
	MerchantName: "TechMall",
	ProductName:  "wireless keyboard",
	Quantity:     1,
	UnitPrice:    10000,
	TotalAmount:  10000,
	OrderID:      "ORDER-1700000000",
	MerchantID:   7,
	ShopperID:    1,
}

var testOffers = []models.CardOffer{
	{ID: 1, DisplayName: "Every Discount", MaskedNumber: "(1234)", DiscountAmount: 100},
	{ID: 2, DisplayName: "MX Black", MaskedNumber: "(5678)", DiscountAmount: 300},
	{ID: 3, DisplayName: "Tap Tap O", MaskedNumber: "(9012)", DiscountAmount: 300},
	{ID: 4, DisplayName: "Oha Check", MaskedNumber: "(3456)", DiscountAmount: 50},
}

type stubCards struct {
	mu             sync.Mutex
	offers         []models.CardOffer
	enrolled       []models.EnrolledCard
	recommendCalls int
	enrolledCalls  int
}

func (s *stubCards) Recommend(ctx context.Context, shopperID, merchantID, amount int64) ([]models.CardOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommendCalls++
	return s.offers, nil
}

func (s *stubCards) ListEnrolled(ctx context.Context, shopperID int64) ([]models.EnrolledCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrolledCalls++
	return s.enrolled, nil
}

func (s *stubCards) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recommendCalls
}

type stubPayments struct {
	mu      sync.Mutex
	calls   int
	lastReq models.PaymentRequest
	outcome models.PaymentOutcome
	release chan struct{} // when set, Submit blocks until closed
}

func (s *stubPayments) Submit(ctx context.Context, req models.PaymentRequest) (models.PaymentOutcome, error) {
	s.mu.Lock()
	s.calls++
	s.lastReq = req
	release := s.release
	outcome := s.outcome
	s.mu.Unlock()

	if release != nil {
		<-release
	}
	return outcome, nil
}

func (s *stubPayments) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type notifierCall struct {
	order       models.OrderContext
	selection   models.Selection
	finalAmount int64
	discount    int64
	receiptID   string
}

type stubNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (s *stubNotifier) PaymentComplete(order models.OrderContext, selection models.Selection, finalAmount, discount int64, receiptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, notifierCall{order, selection, finalAmount, discount, receiptID})
}

func (s *stubNotifier) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubStore struct {
	mu      sync.Mutex
	cleared int
}

func (s *stubStore) Clear() {
	s.mu.Lock()
	s.cleared++
	s.mu.Unlock()
}

func newTestController(offers []models.CardOffer, outcome models.PaymentOutcome) (*Controller, *stubCards, *stubPayments, *stubNotifier, *stubStore) {
	cards := &stubCards{offers: offers}
	payments := &stubPayments{outcome: outcome}
	notifier := &stubNotifier{}
	store := &stubStore{}
	c := NewController(testOrder, cards, payments, notifier, store)
	return c, cards, payments, notifier, store
}

func enterPin(c *Controller, pin string) {
	for _, d := range pin {
		c.EnterDigit(int(d - '0'))
	}
}

func TestMountAutoSelectsBestDiscountFirstListedWins(t *testing.T) {
	c, cards, _, _, _ := newTestController(testOffers, models.PaymentOutcome{})

	require.NoError(t, c.Mount(context.Background()))

	s := c.Snapshot()
	require.NotNil(t, s.Selection)
	// Discounts 100, 300, 300, 50: index 1 wins the tie, not index 2.
	assert.Equal(t, int64(2), s.Selection.CardID)
	assert.Equal(t, 1, cards.calls())
}

func TestMountTwiceRejected(t *testing.T) {
	c, cards, _, _, _ := newTestController(testOffers, models.PaymentOutcome{})

	require.NoError(t, c.Mount(context.Background()))
	assert.ErrorIs(t, c.Mount(context.Background()), ErrAlreadyMounted)
	assert.Equal(t, 1, cards.calls())
}

func TestNoEligibleCardsDisablesProceed(t *testing.T) {
	c, _, _, _, _ := newTestController([]models.CardOffer{}, models.PaymentOutcome{})

	require.NoError(t, c.Mount(context.Background()))

	assert.True(t, c.NoEligibleCards())
	s := c.Snapshot()
	assert.Nil(t, s.Selection)

	c.Proceed()
	assert.Equal(t, StepSelectCard, c.Snapshot().Step)
}

func TestSelectReplacesPreviousSelection(t *testing.T) {
	c, _, _, _, _ := newTestController(testOffers, models.PaymentOutcome{})
	require.NoError(t, c.Mount(context.Background()))

	c.Select(models.SelectOffer(testOffers[0]))
	c.Select(models.SelectOffer(testOffers[3]))

	s := c.Snapshot()
	require.NotNil(t, s.Selection)
	assert.Equal(t, int64(4), s.Selection.CardID)
}

func TestPinCompletionFiresSubmissionExactlyOnce(t *testing.T) {
	outcome := models.PaymentOutcome{Status: models.OutcomeSuccess, ReceiptID: "R-1"}
	c, _, payments, notifier, _ := newTestController(testOffers, outcome)
	release := make(chan struct{})
	payments.release = release

	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "123456")

	assert.Equal(t, StepProcessing, c.Snapshot().Step)

	// The buffer sits at full length; more input must not re-fire or mutate.
	c.EnterDigit(7)
	c.DeleteDigit()
	assert.Equal(t, PinLength, c.Snapshot().PinEntered)

	close(release)
	c.Wait()

	assert.Equal(t, 1, payments.callCount())
	assert.Equal(t, StepComplete, c.Snapshot().Step)
	assert.Equal(t, 1, notifier.callCount())
}

func TestSubmittedRequestCarriesDiscountedAmountAndPin(t *testing.T) {
	outcome := models.PaymentOutcome{Status: models.OutcomeSuccess}
	c, _, payments, _, _ := newTestController(testOffers, outcome)

	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "987654")
	c.Wait()

	payments.mu.Lock()
	req := payments.lastReq
	payments.mu.Unlock()

	assert.Equal(t, "987654", req.PinCode)
	assert.Equal(t, int64(2), req.CardID)
	assert.Equal(t, int64(9700), req.Amount) // 10000 - 300
	assert.Equal(t, testOrder.MerchantID, req.MerchantID)
	assert.Equal(t, testOrder.ProductName, req.ProductName)
}

func TestSeventhDigitRejected(t *testing.T) {
	c, _, payments, _, _ := newTestController(testOffers, models.PaymentOutcome{Status: models.OutcomeSuccess})
	release := make(chan struct{})
	payments.release = release

	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "1234567")

	assert.Equal(t, PinLength, c.Snapshot().PinEntered)

	close(release)
	c.Wait()

	// The sixth digit started exactly one submission; the seventh started none.
	assert.Equal(t, 1, payments.callCount())
}

func TestDeleteDigitOnEmptyBufferIsNoOp(t *testing.T) {
	c, _, _, _, _ := newTestController(testOffers, models.PaymentOutcome{})
	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()

	c.DeleteDigit()
	assert.Equal(t, 0, c.Snapshot().PinEntered)

	enterPin(c, "12")
	c.DeleteDigit()
	assert.Equal(t, 1, c.Snapshot().PinEntered)
}

func TestNonDigitInputRejected(t *testing.T) {
	c, _, _, _, _ := newTestController(testOffers, models.PaymentOutcome{})
	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()

	c.EnterDigit(-1)
	c.EnterDigit(10)

	assert.Equal(t, 0, c.Snapshot().PinEntered)
}

func TestCancelClearsPinKeepsSelection(t *testing.T) {
	c, cards, _, _, _ := newTestController(testOffers, models.PaymentOutcome{})
	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "123")

	c.Cancel()

	s := c.Snapshot()
	assert.Equal(t, StepSelectCard, s.Step)
	assert.Equal(t, 0, s.PinEntered)
	require.NotNil(t, s.Selection)
	assert.Equal(t, int64(2), s.Selection.CardID)
	// Going back does not re-fetch offers.
	assert.Equal(t, 1, cards.calls())
}

func TestPinMismatchGetsPinSpecificMessage(t *testing.T) {
	outcome := models.PaymentOutcome{Status: models.OutcomePinMismatch, Message: "password mismatch"}
	c, _, _, notifier, _ := newTestController(testOffers, outcome)

	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "111111")
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, StepError, s.Step)
	assert.Equal(t, MsgPinMismatch, s.LastError)
	assert.Equal(t, 0, s.PinEntered)
	assert.Equal(t, 0, notifier.callCount())
}

func TestGenericFailureGetsGenericMessage(t *testing.T) {
	outcome := models.PaymentOutcome{Status: models.OutcomeFailure, Message: "upstream exploded"}
	c, _, _, _, _ := newTestController(testOffers, outcome)

	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "111111")
	c.Wait()

	s := c.Snapshot()
	assert.Equal(t, StepError, s.Step)
	// The raw upstream text never reaches the shopper.
	assert.Equal(t, MsgPaymentFailed, s.LastError)
}

func TestRetryStartsFreshSubmissionCycle(t *testing.T) {
	outcome := models.PaymentOutcome{Status: models.OutcomePinMismatch, Message: "password mismatch"}
	c, cards, payments, notifier, _ := newTestController(testOffers, outcome)

	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "111111")
	c.Wait()
	require.Equal(t, StepError, c.Snapshot().Step)

	c.Retry()

	s := c.Snapshot()
	assert.Equal(t, StepSelectCard, s.Step)
	assert.Empty(t, s.LastError)
	assert.Equal(t, 0, s.PinEntered)
	require.NotNil(t, s.Selection)

	// A second, user-initiated cycle runs end to end.
	payments.mu.Lock()
	payments.outcome = models.PaymentOutcome{Status: models.OutcomeSuccess, ReceiptID: "R-2"}
	payments.mu.Unlock()

	c.Proceed()
	enterPin(c, "222222")
	c.Wait()

	assert.Equal(t, StepComplete, c.Snapshot().Step)
	assert.Equal(t, 2, payments.callCount())
	assert.Equal(t, 1, notifier.callCount())
	assert.Equal(t, 1, cards.calls())
}

func TestRetryOutsideErrorIsNoOp(t *testing.T) {
	c, _, _, _, _ := newTestController(testOffers, models.PaymentOutcome{})
	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()

	c.Retry()
	assert.Equal(t, StepEnterPin, c.Snapshot().Step)
}

func TestNotifierReceivesFinalAmountAndDiscount(t *testing.T) {
	outcome := models.PaymentOutcome{Status: models.OutcomeSuccess, ReceiptID: "R-9"}
	c, _, _, notifier, _ := newTestController(testOffers, outcome)

	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "123456")
	c.Wait()

	require.Equal(t, 1, notifier.callCount())
	call := notifier.calls[0]
	assert.Equal(t, testOrder.OrderID, call.order.OrderID)
	assert.Equal(t, int64(300), call.discount)
	assert.Equal(t, int64(9700), call.finalAmount)
	assert.Equal(t, "R-9", call.receiptID)
	assert.Equal(t, int64(2), call.selection.CardID)
}

func TestStaleEpochOutcomeDiscarded(t *testing.T) {
	c, _, payments, notifier, _ := newTestController(testOffers, models.PaymentOutcome{Status: models.OutcomeSuccess})
	release := make(chan struct{})
	payments.release = release

	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "123456")
	require.Equal(t, StepProcessing, c.Snapshot().Step)

	// A result from a previous submission generation must not move the machine.
	c.applyOutcome(c.epoch-1, models.PaymentOutcome{Status: models.OutcomeFailure, Message: "late"})
	assert.Equal(t, StepProcessing, c.Snapshot().Step)

	close(release)
	c.Wait()
	assert.Equal(t, StepComplete, c.Snapshot().Step)
	assert.Equal(t, 1, notifier.callCount())
}

func TestOutcomeAfterTerminalStateDiscarded(t *testing.T) {
	c, _, _, notifier, _ := newTestController(testOffers, models.PaymentOutcome{Status: models.OutcomeSuccess})

	require.NoError(t, c.Mount(context.Background()))
	c.Proceed()
	enterPin(c, "123456")
	c.Wait()
	require.Equal(t, StepComplete, c.Snapshot().Step)

	c.applyOutcome(c.epoch, models.PaymentOutcome{Status: models.OutcomeFailure, Message: "late duplicate"})

	assert.Equal(t, StepComplete, c.Snapshot().Step)
	assert.Equal(t, 1, notifier.callCount())
}

func TestTeardownClearsCredential(t *testing.T) {
	c, _, _, _, store := newTestController(testOffers, models.PaymentOutcome{})
	require.NoError(t, c.Mount(context.Background()))

	c.Teardown()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.cleared)
}

func TestExpandEnrolledCardsFiltersShownOffers(t *testing.T) {
	cards := &stubCards{
		offers: testOffers,
		enrolled: []models.EnrolledCard{
			{ID: 101, DisplayName: "Every Discount", MaskedNumber: "(1234)"}, // duplicate of offer 1
			{ID: 102, DisplayName: "My Check Card", MaskedNumber: "(7777)"},
		},
	}
	c := NewController(testOrder, cards, &stubPayments{}, &stubNotifier{}, &stubStore{})
	require.NoError(t, c.Mount(context.Background()))

	got, err := c.ExpandEnrolledCards(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(102), got[0].ID)
	assert.Equal(t, 1, cards.enrolledCalls)
}
