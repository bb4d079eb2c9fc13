package models

type PaymentRequest struct {
	ShopperID   int64  `json:"shopperId"`
	CardID      int64  `json:"cardId"`
	Amount      int64  `json:"amount"`
	MerchantID  int64  `json:"merchantId"`
	ProductName string `json:"productName"`
	PinCode     string `json:"pinCode"`
}

type OutcomeStatus string

const (
	OutcomeSuccess     OutcomeStatus = "success"
	OutcomePinMismatch OutcomeStatus = "pin_mismatch"
	OutcomeFailure     OutcomeStatus = "failure"
)

// PaymentOutcome is the submitter's three-way classification of an upstream
// response. PinMismatch is the only recoverable-by-new-PIN case; everything
// that is not a success and not a PIN mismatch lands in Failure with a reason.
type PaymentOutcome struct {
	Status    OutcomeStatus `json:"status"`
	ReceiptID string        `json:"receiptId,omitempty"`
	Message   string        `json:"message,omitempty"`
}
