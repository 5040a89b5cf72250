package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InitiatePayment struct {
	OrderId uuid.UUID       `validate:"required"                   json:"orderId"`
	Amount  decimal.Decimal `validate:"required"                   json:"amount"`
	Method  string          `validate:"required,oneof=cod qr card" json:"method"`
	Card    *CardDetails    `                                      json:"cardDetails,omitempty"`
}

// CardDetails is validated locally before it is ever serialized; Number may
// still contain the display grouping spaces when it reaches the validator.
type CardDetails struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	Cvv    string `json:"cvv"`
}
