package log

const (
	KeyAppName       = "app"
	KeyTag           = "tag"
	KeyProcess       = "process"
	KeyConfig        = "config"
	KeyRequestID     = "requestId"
	KeyRequestMethod = "requestMethod"
	KeyRequestURL    = "requestURL"
	KeyStatusCode    = "statusCode"
	KeyAttempt       = "attempt"
	KeySequence      = "sequence"
	KeyProductID     = "productId"
	KeyQuantity      = "quantity"
	KeyCartItems     = "cartItems"
	KeyTotalPrice    = "totalPrice"
	KeyOrderID       = "orderId"
	KeyPaymentID     = "paymentId"
	KeyPaymentMethod = "paymentMethod"
	KeyPaymentStatus = "paymentStatus"
	KeyDeliveryStage = "deliveryStage"
	KeyCancelReason  = "cancelReason"
	KeyPollKey       = "pollKey"
)
