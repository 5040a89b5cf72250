package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/pkg/store"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/poll"
	orderClient "github.com/Alturino/storefront/order/pkg/client"
	orderResponse "github.com/Alturino/storefront/order/pkg/response"
	"github.com/Alturino/storefront/payment/internal/card"
	"github.com/Alturino/storefront/payment/pkg/client"
	"github.com/Alturino/storefront/payment/internal/otel"
	"github.com/Alturino/storefront/payment/pkg/request"
	"github.com/Alturino/storefront/payment/pkg/response"
)

type State string

const (
	StateIdle         State = "idle"
	StateInitiating   State = "initiating"
	StateAwaitingScan State = "awaiting_scan"
	StateConfirming   State = "confirming"
	StatePaid         State = "paid"
	StateFailed       State = "failed"
)

// PaymentReconciler drives payment for a single order to a settled state.
// QR payments are settled either by the background verify poll noticing the
// backend flipped to paid, or by the user pressing "I have paid", whichever
// lands first. Card payments are validated locally, then initiated and
// confirmed in one pass. COD goes through the direct pay endpoint, which is
// idempotent, so a retried tap cannot double-settle. Whatever the path, the
// cart is cleared exactly once.
type PaymentReconciler struct {
	mu        sync.Mutex
	state     State
	paymentId string
	qrCodeUrl string
	settled   bool

	orderId  uuid.UUID
	amount   decimal.Decimal
	payments client.PaymentClient
	orders   orderClient.OrderClient
	cart     *store.CartStore
	poller   *poll.Poller
}

func NewPaymentReconciler(
	orderId uuid.UUID,
	amount decimal.Decimal,
	payments client.PaymentClient,
	orders orderClient.OrderClient,
	cart *store.CartStore,
	poller *poll.Poller,
) *PaymentReconciler {
	return &PaymentReconciler{
		state:    StateIdle,
		orderId:  orderId,
		amount:   amount,
		payments: payments,
		orders:   orders,
		cart:     cart,
		poller:   poller,
	}
}

func (r *PaymentReconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// QrCodeUrl returns the code to render once a QR payment is initiated.
func (r *PaymentReconciler) QrCodeUrl() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.qrCodeUrl
}

func (r *PaymentReconciler) pollKey() string {
	return "payment:" + r.orderId.String()
}

func (r *PaymentReconciler) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// isSettled reports whether the payment already reached paid. Paid is
// terminal; no later action may move the state machine out of it.
func (r *PaymentReconciler) isSettled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settled
}

// settle flips the reconciler to paid and clears the cart. Only the first
// caller does anything; the verify poll and a manual confirmation can both
// reach it for the same payment.
func (r *PaymentReconciler) settle(c context.Context) {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		return
	}
	r.settled = true
	r.state = StatePaid
	r.mu.Unlock()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PaymentReconciler settle").
		Str(log.KeyOrderID, r.orderId.String()).
		Logger()

	logger.Info().Msg("payment settled, clearing cart")
	c = logger.WithContext(c)
	if err := r.cart.Clear(c); err != nil {
		err = fmt.Errorf("failed clearing cart after payment with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("cleared cart after payment")
}

// InitiateQr asks the backend for a QR session and starts the verify poll.
// The returned url is what the user scans.
func (r *PaymentReconciler) InitiateQr(c context.Context) (string, error) {
	c, span := otel.Tracer.Start(c, "PaymentReconciler InitiateQr")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PaymentReconciler InitiateQr").
		Str(log.KeyOrderID, r.orderId.String()).
		Str(log.KeyProcess, "initiating qr payment").
		Logger()

	r.setState(StateInitiating)
	logger.Info().Msg("initiating qr payment")
	c = logger.WithContext(c)
	session, err := r.payments.Initiate(c, request.InitiatePayment{
		OrderId: r.orderId,
		Amount:  r.amount,
		Method:  orderResponse.MethodQr,
	})
	if err != nil {
		r.setState(StateFailed)
		err = fmt.Errorf("failed initiating qr payment with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}

	r.mu.Lock()
	r.paymentId = session.PaymentId
	r.qrCodeUrl = session.QrCodeUrl
	r.state = StateAwaitingScan
	r.mu.Unlock()
	logger.Info().
		Str(log.KeyPaymentID, session.PaymentId).
		Msg("initiated qr payment, awaiting scan")

	r.startVerifyPolling(c)
	return session.QrCodeUrl, nil
}

// startVerifyPolling watches the backend until it reports the payment paid.
// Transient verify errors keep the poll alive.
func (r *PaymentReconciler) startVerifyPolling(c context.Context) {
	r.poller.Start(c, r.pollKey(), func(c context.Context) (bool, error) {
		session, err := r.payments.Verify(c, r.orderId)
		if err != nil {
			return false, err
		}
		if session.Status != response.StatusPaid {
			return false, nil
		}
		r.settle(c)
		return true, nil
	})
}

// ConfirmPaid is the manual "I have paid" path for QR. It requires an
// initiated payment; confirming settles immediately without waiting for the
// next verify tick.
func (r *PaymentReconciler) ConfirmPaid(c context.Context) error {
	c, span := otel.Tracer.Start(c, "PaymentReconciler ConfirmPaid")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PaymentReconciler ConfirmPaid").
		Str(log.KeyOrderID, r.orderId.String()).
		Str(log.KeyProcess, "confirming payment").
		Logger()

	if r.isSettled() {
		logger.Info().Msg("payment already settled, nothing to confirm")
		return nil
	}

	r.mu.Lock()
	initiated := r.paymentId != ""
	r.mu.Unlock()
	if !initiated {
		err := inErrors.ErrPaymentNotInitiated
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	r.setState(StateConfirming)
	logger.Info().Msg("confirming payment")
	c = logger.WithContext(c)
	if _, err := r.payments.Confirm(c, r.orderId); err != nil {
		r.setState(StateAwaitingScan)
		err = fmt.Errorf("failed confirming payment with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	r.poller.Stop(r.pollKey())
	r.settle(c)
	logger.Info().Msg("confirmed payment")
	return nil
}

// PayWithCard validates the card locally first and issues no request when
// validation fails; the field errors are returned for rendering. On valid
// input it initiates and confirms in one pass.
func (r *PaymentReconciler) PayWithCard(
	c context.Context,
	details request.CardDetails,
) (map[string]string, error) {
	c, span := otel.Tracer.Start(c, "PaymentReconciler PayWithCard")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PaymentReconciler PayWithCard").
		Str(log.KeyOrderID, r.orderId.String()).
		Str(log.KeyProcess, "validating card").
		Logger()

	if r.isSettled() {
		logger.Info().Msg("payment already settled, ignoring card submission")
		return nil, nil
	}

	logger.Info().Msg("validating card")
	if fieldErrors := card.Validate(details, time.Now()); len(fieldErrors) > 0 {
		logger.Info().Msgf("card validation failed on %d fields", len(fieldErrors))
		return fieldErrors, nil
	}
	logger.Info().Msg("validated card")

	logger = logger.With().Str(log.KeyProcess, "initiating card payment").Logger()
	r.setState(StateInitiating)
	logger.Info().Msg("initiating card payment")
	c = logger.WithContext(c)
	session, err := r.payments.Initiate(c, request.InitiatePayment{
		OrderId: r.orderId,
		Amount:  r.amount,
		Method:  orderResponse.MethodCard,
		Card:    &details,
	})
	if err != nil {
		r.setState(StateFailed)
		err = fmt.Errorf("failed initiating card payment with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	r.mu.Lock()
	r.paymentId = session.PaymentId
	r.mu.Unlock()
	logger.Info().Str(log.KeyPaymentID, session.PaymentId).Msg("initiated card payment")

	logger = logger.With().Str(log.KeyProcess, "confirming card payment").Logger()
	r.setState(StateConfirming)
	logger.Info().Msg("confirming card payment")
	if _, err := r.payments.Confirm(c, r.orderId); err != nil {
		r.setState(StateFailed)
		err = fmt.Errorf("failed confirming card payment with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	r.settle(c)
	logger.Info().Msg("card payment confirmed")
	return nil, nil
}

// PayCod settles a cash on delivery order through the direct pay endpoint.
func (r *PaymentReconciler) PayCod(c context.Context) error {
	c, span := otel.Tracer.Start(c, "PaymentReconciler PayCod")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PaymentReconciler PayCod").
		Str(log.KeyOrderID, r.orderId.String()).
		Str(log.KeyProcess, "paying cod order").
		Logger()

	if r.isSettled() {
		logger.Info().Msg("payment already settled, nothing to pay")
		return nil
	}

	r.setState(StateConfirming)
	logger.Info().Msg("paying cod order")
	c = logger.WithContext(c)
	if _, err := r.orders.PayOrder(c, r.orderId); err != nil {
		r.setState(StateFailed)
		err = fmt.Errorf("failed paying cod orderId=%s with error=%w", r.orderId.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	r.settle(c)
	logger.Info().Msg("paid cod order")
	return nil
}

// Stop cancels the verify poll, if any. Leaving the payment screen calls
// this; the payment itself is left wherever the backend has it.
func (r *PaymentReconciler) Stop() {
	r.poller.Stop(r.pollKey())
}
