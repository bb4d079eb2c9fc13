package models

// CardOffer is a ranked recommendation for the current purchase. DiscountAmount
// is an absolute currency amount, not a percentage. Offers keep the order the
// upstream returned them in.
type CardOffer struct {
	ID             int64  `json:"id"`
	DisplayName    string `json:"cardName"`
	MaskedNumber   string `json:"cardNumber"`
	ImageRef       string `json:"imageUrl"`
	DiscountAmount int64  `json:"discountAmount"`
	IsDefault      bool   `json:"isDefaultCard"`
}

// EnrolledCard is a card the shopper owns independent of any recommendation.
// Its id space is disjoint from CardOffer ids.
type EnrolledCard struct {
	ID           int64  `json:"id"`
	DisplayName  string `json:"cardName"`
	MaskedNumber string `json:"cardNumber"`
	ImageRef     string `json:"imageUrl"`
	IsDefault    bool   `json:"isDefaultCard"`
}

type SelectionOrigin string

const (
	SelectionFromOffer    SelectionOrigin = "offer"
	SelectionFromEnrolled SelectionOrigin = "enrolled"
)

// Selection is the single currently chosen card. Selecting a new card always
// replaces the previous one.
type Selection struct {
	Origin         SelectionOrigin `json:"origin"`
	CardID         int64           `json:"cardId"`
	DisplayName    string          `json:"cardName"`
	MaskedNumber   string          `json:"cardNumber"`
	DiscountAmount int64           `json:"discountAmount"`
}

// SelectOffer builds a Selection from a recommended offer.
func SelectOffer(o CardOffer) Selection {
	return Selection{
		Origin:         SelectionFromOffer,
		CardID:         o.ID,
		DisplayName:    o.DisplayName,
		MaskedNumber:   o.MaskedNumber,
		DiscountAmount: o.DiscountAmount,
	}
}

// SelectEnrolled builds a Selection from an enrolled card. Enrolled cards
// carry no discount.
func SelectEnrolled(c EnrolledCard) Selection {
	return Selection{
		Origin:       SelectionFromEnrolled,
		CardID:       c.ID,
		DisplayName:  c.DisplayName,
		MaskedNumber: c.MaskedNumber,
	}
}

type RecommendRequest struct {
	UserID     int64 `json:"userId"`
	MerchantID int64 `json:"merchantId"`
	Amount     int64 `json:"amount"`
}
