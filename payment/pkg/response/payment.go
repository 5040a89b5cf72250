package response

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusFailed  = "failed"
)

type PaymentSession struct {
	PaymentId string `json:"paymentId"`
	Method    string `json:"method"`
	Status    string `json:"status"`
	QrCodeUrl string `json:"qrCodeUrl,omitempty"`
}
