package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartClient "github.com/Alturino/storefront/cart/pkg/client"
	"github.com/Alturino/storefront/cart/pkg/store"
	cartResponse "github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/poll"
	"github.com/Alturino/storefront/internal/rest"
	"github.com/Alturino/storefront/internal/session"
	orderClient "github.com/Alturino/storefront/order/pkg/client"
	orderResponse "github.com/Alturino/storefront/order/pkg/response"
	"github.com/Alturino/storefront/payment/pkg/client"
	"github.com/Alturino/storefront/payment/pkg/request"
	"github.com/Alturino/storefront/payment/pkg/response"
)

type fakePaymentBackend struct {
	mu           sync.Mutex
	pendingTicks int
	initiates    int
	verifies     int
	confirms     int
	directPays   int
	cartClears   int
	lastInitiate request.InitiatePayment
	server       *httptest.Server
}

// pendingTicks is how many verify calls report pending before the backend
// flips to paid.
func newFakePaymentBackend(t *testing.T, pendingTicks int) *fakePaymentBackend {
	t.Helper()
	b := &fakePaymentBackend{pendingTicks: pendingTicks}

	router := mux.NewRouter()
	router.HandleFunc("/payment/initiate", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&b.lastInitiate); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.initiates++
		json.NewEncoder(w).Encode(response.PaymentSession{
			PaymentId: "pay_" + b.lastInitiate.OrderId.String(),
			Method:    b.lastInitiate.Method,
			Status:    response.StatusPending,
			QrCodeUrl: "https://pay.example/qr/" + b.lastInitiate.OrderId.String(),
		})
	}).Methods(http.MethodPost)
	router.HandleFunc("/payment/verify/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.verifies++
		status := response.StatusPending
		if b.verifies > b.pendingTicks {
			status = response.StatusPaid
		}
		json.NewEncoder(w).Encode(response.PaymentSession{Status: status})
	}).Methods(http.MethodPost)
	router.HandleFunc("/payment/confirm/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.confirms++
		json.NewEncoder(w).Encode(response.PaymentSession{Status: response.StatusPaid})
	}).Methods(http.MethodPost)
	router.HandleFunc("/orders/{orderId}/pay", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.directPays++
		orderId, _ := uuid.Parse(mux.Vars(r)["orderId"])
		json.NewEncoder(w).Encode(orderResponse.Order{ID: orderId, IsPaid: true})
	}).Methods(http.MethodPut)
	router.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.Method == http.MethodDelete {
			b.cartClears++
		}
		json.NewEncoder(w).Encode(cartResponse.Cart{TotalPrice: decimal.Zero})
	}).Methods(http.MethodGet, http.MethodDelete)

	b.server = httptest.NewServer(router)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakePaymentBackend) counts() (initiates, verifies, confirms, directPays, cartClears int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initiates, b.verifies, b.confirms, b.directPays, b.cartClears
}

func newTestReconciler(
	t *testing.T,
	b *fakePaymentBackend,
	orderId uuid.UUID,
) *PaymentReconciler {
	t.Helper()
	sess := session.New()
	sess.SetToken("opaque-test-token")
	restClient := rest.NewClient(config.Backend{BaseUrl: b.server.URL}, sess)
	cart := store.NewCartStore(cartClient.NewCartClient(restClient), sess)
	poller := poll.New(20*time.Millisecond, 200)
	t.Cleanup(poller.StopAll)
	return NewPaymentReconciler(
		orderId,
		decimal.NewFromInt(200),
		client.NewPaymentClient(restClient),
		orderClient.NewOrderClient(restClient),
		cart,
		poller,
	)
}

func TestReconcilerQrVerifyPolling(t *testing.T) {
	c := context.Background()
	orderId := uuid.New()
	backend := newFakePaymentBackend(t, 2)
	reconciler := newTestReconciler(t, backend, orderId)

	qrCodeUrl, err := reconciler.InitiateQr(c)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/qr/"+orderId.String(), qrCodeUrl)
	assert.Equal(t, StateAwaitingScan, reconciler.State())

	assert.Eventually(t, func() bool {
		return reconciler.State() == StatePaid
	}, 3*time.Second, 10*time.Millisecond, "verify poll should settle the payment")

	initiates, verifies, _, _, cartClears := backend.counts()
	assert.Equal(t, 1, initiates)
	assert.GreaterOrEqual(t, verifies, 3, "two pending ticks must be polled through")
	assert.Equal(t, 1, cartClears, "cart is cleared exactly once")
	assert.Eventually(t, func() bool {
		return !reconciler.poller.Active(reconciler.pollKey())
	}, time.Second, 10*time.Millisecond)
}

func TestReconcilerConfirmWithoutInitiate(t *testing.T) {
	c := context.Background()
	backend := newFakePaymentBackend(t, 0)
	reconciler := newTestReconciler(t, backend, uuid.New())

	err := reconciler.ConfirmPaid(c)

	assert.ErrorIs(t, err, inErrors.ErrPaymentNotInitiated)
	_, _, confirms, _, _ := backend.counts()
	assert.Zero(t, confirms)
}

func TestReconcilerManualConfirm(t *testing.T) {
	c := context.Background()
	orderId := uuid.New()
	// Backend never flips to paid on its own; only the manual path settles.
	backend := newFakePaymentBackend(t, 1_000_000)
	reconciler := newTestReconciler(t, backend, orderId)

	_, err := reconciler.InitiateQr(c)
	require.NoError(t, err)

	require.NoError(t, reconciler.ConfirmPaid(c))

	assert.Equal(t, StatePaid, reconciler.State())
	_, _, confirms, _, cartClears := backend.counts()
	assert.Equal(t, 1, confirms)
	assert.Equal(t, 1, cartClears)
	assert.False(t, reconciler.poller.Active(reconciler.pollKey()))
}

func TestReconcilerSettlesOnlyOnce(t *testing.T) {
	c := context.Background()
	backend := newFakePaymentBackend(t, 0)
	reconciler := newTestReconciler(t, backend, uuid.New())

	_, err := reconciler.InitiateQr(c)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return reconciler.State() == StatePaid
	}, 3*time.Second, 10*time.Millisecond)

	// A manual confirmation after the poll already settled must not issue a
	// redundant confirm, clear the cart again, or move the state machine
	// out of paid.
	require.NoError(t, reconciler.ConfirmPaid(c))
	assert.Equal(t, StatePaid, reconciler.State(), "paid is terminal")

	assert.Eventually(t, func() bool {
		_, _, _, _, cartClears := backend.counts()
		return cartClears == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	_, _, confirms, _, cartClears := backend.counts()
	assert.Zero(t, confirms, "settled payment must not confirm again")
	assert.Equal(t, 1, cartClears)
	assert.Equal(t, StatePaid, reconciler.State())
}

func TestReconcilerLateActionsAfterSettlement(t *testing.T) {
	c := context.Background()
	backend := newFakePaymentBackend(t, 0)
	reconciler := newTestReconciler(t, backend, uuid.New())

	_, err := reconciler.InitiateQr(c)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return reconciler.State() == StatePaid
	}, 3*time.Second, 10*time.Millisecond)

	fieldErrors, err := reconciler.PayWithCard(c, request.CardDetails{
		Number: "4539 1488 0343 6467",
		Expiry: "12/30",
		Cvv:    "123",
	})
	require.NoError(t, err)
	assert.Empty(t, fieldErrors)
	assert.Equal(t, StatePaid, reconciler.State())

	require.NoError(t, reconciler.PayCod(c))
	assert.Equal(t, StatePaid, reconciler.State())

	initiates, _, confirms, directPays, cartClears := backend.counts()
	assert.Equal(t, 1, initiates, "only the original qr initiation may reach the backend")
	assert.Zero(t, confirms)
	assert.Zero(t, directPays)
	assert.Equal(t, 1, cartClears)
}

func TestReconcilerCardInvalidDetails(t *testing.T) {
	c := context.Background()
	backend := newFakePaymentBackend(t, 0)
	reconciler := newTestReconciler(t, backend, uuid.New())

	fieldErrors, err := reconciler.PayWithCard(c, request.CardDetails{
		Number: "4539148803436468",
		Expiry: "13/25",
		Cvv:    "12",
	})

	require.NoError(t, err)
	assert.Len(t, fieldErrors, 3)
	initiates, _, confirms, _, _ := backend.counts()
	assert.Zero(t, initiates, "invalid card details must not reach the network")
	assert.Zero(t, confirms)
	assert.Equal(t, StateIdle, reconciler.State())
}

func TestReconcilerCardPayment(t *testing.T) {
	c := context.Background()
	orderId := uuid.New()
	backend := newFakePaymentBackend(t, 0)
	reconciler := newTestReconciler(t, backend, orderId)

	fieldErrors, err := reconciler.PayWithCard(c, request.CardDetails{
		Number: "4539 1488 0343 6467",
		Expiry: "12/30",
		Cvv:    "123",
	})

	require.NoError(t, err)
	assert.Empty(t, fieldErrors)
	assert.Equal(t, StatePaid, reconciler.State())

	initiates, _, confirms, _, cartClears := backend.counts()
	assert.Equal(t, 1, initiates)
	assert.Equal(t, 1, confirms)
	assert.Equal(t, 1, cartClears)
	assert.Equal(t, orderResponse.MethodCard, backend.lastInitiate.Method)
	require.NotNil(t, backend.lastInitiate.Card)
	assert.Equal(t, "123", backend.lastInitiate.Card.Cvv)
}

func TestReconcilerCod(t *testing.T) {
	c := context.Background()
	backend := newFakePaymentBackend(t, 0)
	reconciler := newTestReconciler(t, backend, uuid.New())

	require.NoError(t, reconciler.PayCod(c))

	assert.Equal(t, StatePaid, reconciler.State())
	initiates, _, _, directPays, cartClears := backend.counts()
	assert.Zero(t, initiates, "cod never opens a payment session")
	assert.Equal(t, 1, directPays)
	assert.Equal(t, 1, cartClears)
}
