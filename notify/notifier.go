package notify

import (
	"log"
	"sync"
	"time"

	"checkout-module-api/models"
	"checkout-module-api/utils"
)

// MessageType is the discriminator carried on every cross-boundary message.
const MessageTypePaymentComplete = "PAYMENT_COMPLETE"

// AnyOrigin opts into delivering to any host origin. Permissive targeting is
// a deliberate choice the embedder has to spell out.
const AnyOrigin = "*"

// CompleteData is the payload handed to the hosting page on terminal success.
type CompleteData struct {
	OrderID   string           `json:"orderId"`
	Amount    int64            `json:"amount"`
	Discount  int64            `json:"discount"`
	CardInfo  models.Selection `json:"cardInfo"`
	ReceiptID string           `json:"receiptId,omitempty"`
	Timestamp string           `json:"timestamp"`
}

type CompleteMessage struct {
	Type string       `json:"type"`
	Data CompleteData `json:"data"`
}

// Poster is the embedding boundary: it carries one message from the module
// frame to a host origin. Implementations must not block on acknowledgment;
// none is ever awaited.
type Poster interface {
	Post(origin string, msg CompleteMessage) error
}

// CredentialStore is cleared once the outcome has been handed over; a
// checkout's credential never survives past its single checkout.
type CredentialStore interface {
	Clear()
}

// Notifier delivers the completion message exactly once, fire-and-forget, to
// every allow-listed origin, then clears the session credential.
type Notifier struct {
	poster  Poster
	origins []string
	store   CredentialStore
	clock   func() time.Time

	mu    sync.Mutex
	fired bool
}

// New builds a notifier. Target origins are explicit: an empty allow-list
// delivers nowhere, and AnyOrigin must be passed deliberately.
func New(poster Poster, origins []string, store CredentialStore) *Notifier {
	return &Notifier{
		poster:  poster,
		origins: origins,
		store:   store,
		clock:   time.Now,
	}
}

// PaymentComplete serializes the outcome and posts it across the boundary.
// Delivery failures are logged and never retried; the credential is cleared
// regardless.
func (n *Notifier) PaymentComplete(order models.OrderContext, selection models.Selection, finalAmount, discount int64, receiptID string) {
	n.mu.Lock()
	if n.fired {
		n.mu.Unlock()
		return
	}
	n.fired = true
	n.mu.Unlock()

	msg := CompleteMessage{
		Type: MessageTypePaymentComplete,
		Data: CompleteData{
			OrderID:   order.OrderID,
			Amount:    finalAmount,
			Discount:  discount,
			CardInfo:  selection,
			ReceiptID: receiptID,
			Timestamp: n.clock().UTC().Format(time.RFC3339),
		},
	}

	log.Printf("Payment complete for order %s: charged %s, discount %s",
		order.OrderID, utils.FormatAmount(finalAmount), utils.FormatAmount(discount))
	if len(n.origins) == 0 {
		log.Printf("No notify origins configured for order %s, delivering nowhere", order.OrderID)
	}
	for _, origin := range n.origins {
		if err := n.poster.Post(origin, msg); err != nil {
			log.Printf("Completion delivery to %s failed (not retried): %v", origin, err)
		}
	}

	n.store.Clear()
}

// ChannelPoster delivers messages to an in-process host over a channel. It is
// the boundary implementation used by embedding Go hosts and by tests.
type ChannelPoster struct {
	C chan CompleteMessage
}

func NewChannelPoster(buffer int) *ChannelPoster {
	return &ChannelPoster{C: make(chan CompleteMessage, buffer)}
}

// Post never blocks: when the host is not draining, the message is dropped,
// matching fire-and-forget delivery.
func (p *ChannelPoster) Post(origin string, msg CompleteMessage) error {
	select {
	case p.C <- msg:
	default:
		log.Printf("Host not consuming completion messages, dropping one for origin %s", origin)
	}
	return nil
}
