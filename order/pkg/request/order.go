package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateOrder struct {
	Items           []OrderItem `validate:"required,gt=0,dive"          json:"items"`
	ShippingAddress string      `validate:"required"                    json:"shippingAddress"`
	ContactNumber   string      `validate:"required,len=10,numeric"     json:"contactNumber"`
	PaymentMethod   string      `validate:"required,oneof=cod qr card"  json:"paymentMethod"`
}

type OrderItem struct {
	ProductId uuid.UUID       `validate:"required"       json:"product"`
	Name      string          `validate:"required"       json:"name"`
	Quantity  int             `validate:"required,gte=1" json:"qty"`
	Price     decimal.Decimal `validate:"required"       json:"price"`
	Image     string          `                          json:"image"`
}

type CancelOrder struct {
	Reason string `validate:"required" json:"reason"`
}

// CancelReasons are the preset choices offered before the free-text "Other"
// option. "Other" itself is never sent; the typed reason replaces it.
var CancelReasons = []string{
	"Ordered by mistake",
	"Found cheaper elsewhere",
	"Product is no longer needed",
	"Expected delivery time is too long",
	"Other",
}
