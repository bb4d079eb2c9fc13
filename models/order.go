package models

// OrderContext describes the pending purchase. The host page builds it before
// the module mounts and the core never mutates it.
type OrderContext struct {
	MerchantName string `json:"merchantName"`
	ProductName  string `json:"productName"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"price"`
	TotalAmount  int64  `json:"totalAmount"`
	OrderID      string `json:"orderId"`
	MerchantID   int64  `json:"merchantId"`
	ShopperID    int64  `json:"shopperId"`
}
