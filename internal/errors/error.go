package errors

import (
	"errors"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrUnauthorized        = errors.New("missing or expired authorization")
	ErrCartEmpty           = errors.New("cart is empty")
	ErrOrderDelivered      = errors.New("order is already delivered")
	ErrOrderCanceled       = errors.New("order is already canceled")
	ErrEmptyCancelReason   = errors.New("cancel reason is required")
	ErrPaymentNotInitiated = errors.New("payment has not been initiated")
	ErrPaymentFailed       = errors.New("payment failed")
)

func HandleError(err error, span trace.Span) {
	if err == nil {
		return
	}
	span.AddEvent(err.Error())
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
}
