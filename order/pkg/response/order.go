package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MethodCod  = "cod"
	MethodQr   = "qr"
	MethodCard = "card"
)

// Delivery stages as reported by the backend. The client never advances a
// stage on its own; it only renders what the server said last.
const (
	StagePlaced         = 1
	StagePacked         = 2
	StageOutForDelivery = 3
	StageDelivered      = 4
)

func StageLabel(stage int) string {
	switch stage {
	case StagePlaced:
		return "Order Placed"
	case StagePacked:
		return "Packed"
	case StageOutForDelivery:
		return "Out for Delivery"
	case StageDelivered:
		return "Delivered"
	default:
		return "Unknown"
	}
}

// Order is the immutable snapshot created at checkout plus the lifecycle
// fields the backend keeps updating. Items are copies of the cart lines as
// of creation time; later catalog edits cannot alter a placed order.
type Order struct {
	ID                   uuid.UUID       `json:"id"`
	Items                []OrderItem     `json:"items"`
	TotalPrice           decimal.Decimal `json:"totalPrice"`
	ShippingAddress      string          `json:"shippingAddress"`
	ContactNumber        string          `json:"contactNumber"`
	PaymentMethod        string          `json:"paymentMethod"`
	IsPaid               bool            `json:"isPaid"`
	IsDelivered          bool            `json:"isDelivered"`
	IsCanceled           bool            `json:"isCanceled"`
	DeliveryStage        int             `json:"deliveryStage"`
	ExpectedDeliveryDate time.Time       `json:"expectedDeliveryDate"`
	DeliveredAt          *time.Time      `json:"deliveredAt,omitempty"`
	CanceledAt           *time.Time      `json:"canceledAt,omitempty"`
	CancelReason         string          `json:"cancelReason,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
}

type OrderItem struct {
	ProductId uuid.UUID       `json:"product"`
	Name      string          `json:"name"`
	Quantity  int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
}

// Terminal reports whether no further lifecycle transitions can occur.
func (o Order) Terminal() bool {
	return o.IsDelivered || o.IsCanceled
}

// StageKnown reports whether the backend has reported a delivery stage yet.
// An order can be tracked before the warehouse assigns one.
func (o Order) StageKnown() bool {
	return o.DeliveryStage >= StagePlaced
}
