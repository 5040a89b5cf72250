package response

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart mirrors the server's cart exactly as returned. TotalPrice is never
// recomputed from the items on this side; server-side discounts and rounding
// rules make the returned value the only correct one.
type Cart struct {
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type CartItem struct {
	ProductId uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"qty"`
}

// Subtotal is the display amount for a single line, server price times
// quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
