package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/pkg/client"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/rest"
	"github.com/Alturino/storefront/internal/session"
)

type fakeBackend struct {
	mu       sync.Mutex
	cart     response.Cart
	requests []string
	server   *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{cart: response.Cart{TotalPrice: decimal.Zero}}

	router := mux.NewRouter()
	router.HandleFunc("/cart", b.handleCart).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
	router.HandleFunc("/cart/{productId}", b.handleCartItem).Methods(http.MethodPut, http.MethodDelete)

	b.server = httptest.NewServer(router)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
}

func (b *fakeBackend) recalc() {
	total := decimal.Zero
	for _, item := range b.cart.Items {
		total = total.Add(item.Subtotal())
	}
	b.cart.TotalPrice = total
}

func (b *fakeBackend) handleCart(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		body := struct {
			ProductId uuid.UUID `json:"productId"`
			Quantity  int       `json:"qty"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		merged := false
		for i, item := range b.cart.Items {
			if item.ProductId == body.ProductId {
				b.cart.Items[i].Quantity += body.Quantity
				merged = true
			}
		}
		if !merged {
			b.cart.Items = append(b.cart.Items, response.CartItem{
				ProductId: body.ProductId,
				Name:      "widget",
				Price:     decimal.NewFromInt(100),
				Quantity:  body.Quantity,
			})
		}
		b.recalc()
	case http.MethodDelete:
		b.cart.Items = nil
		b.recalc()
	}
	json.NewEncoder(w).Encode(b.cart)
}

func (b *fakeBackend) handleCartItem(w http.ResponseWriter, r *http.Request) {
	b.record(r)
	b.mu.Lock()
	defer b.mu.Unlock()

	productId, err := uuid.Parse(mux.Vars(r)["productId"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodPut:
		body := struct {
			Quantity int `json:"qty"`
		}{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for i, item := range b.cart.Items {
			if item.ProductId == productId {
				b.cart.Items[i].Quantity = body.Quantity
			}
		}
	case http.MethodDelete:
		kept := b.cart.Items[:0]
		for _, item := range b.cart.Items {
			if item.ProductId != productId {
				kept = append(kept, item)
			}
		}
		b.cart.Items = kept
	}
	b.recalc()
	json.NewEncoder(w).Encode(b.cart)
}

func newTestStore(t *testing.T, baseUrl string) (*CartStore, *session.Session) {
	t.Helper()
	sess := session.New()
	sess.SetToken("opaque-test-token")
	restClient := rest.NewClient(config.Backend{BaseUrl: baseUrl}, sess)
	return NewCartStore(client.NewCartClient(restClient), sess), sess
}

func TestCartStoreAddThenUpdate(t *testing.T) {
	c := context.Background()
	backend := newFakeBackend(t)
	store, _ := newTestStore(t, backend.server.URL)
	productId := uuid.New()

	require.NoError(t, store.Add(c, productId, 1))
	require.NoError(t, store.UpdateQuantity(c, productId, 2))

	state := store.Snapshot()
	require.Len(t, state.Items, 1)
	assert.Equal(t, 2, state.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(200).Equal(state.TotalPrice),
		"expected total 200 got %s", state.TotalPrice.String())
	assert.False(t, state.Loading)
	assert.Empty(t, state.Err)
}

func TestCartStoreUpdateQuantityZeroRemoves(t *testing.T) {
	c := context.Background()
	backend := newFakeBackend(t)
	store, _ := newTestStore(t, backend.server.URL)
	productId := uuid.New()

	require.NoError(t, store.Add(c, productId, 3))
	require.NoError(t, store.UpdateQuantity(c, productId, 0))

	state := store.Snapshot()
	assert.Empty(t, state.Items)
	assert.True(t, decimal.Zero.Equal(state.TotalPrice))
	assert.Contains(t, backend.requests, http.MethodDelete+" /cart/"+productId.String())
}

func TestCartStoreNegativeQuantityRemoves(t *testing.T) {
	c := context.Background()
	backend := newFakeBackend(t)
	store, _ := newTestStore(t, backend.server.URL)
	productId := uuid.New()

	require.NoError(t, store.Add(c, productId, 1))
	require.NoError(t, store.UpdateQuantity(c, productId, -2))

	assert.Empty(t, store.Snapshot().Items)
	assert.Contains(t, backend.requests, http.MethodDelete+" /cart/"+productId.String())
}

func TestCartStoreClearIdempotent(t *testing.T) {
	c := context.Background()
	backend := newFakeBackend(t)
	store, _ := newTestStore(t, backend.server.URL)

	require.NoError(t, store.Add(c, uuid.New(), 2))
	require.NoError(t, store.Clear(c))
	require.NoError(t, store.Clear(c))

	state := store.Snapshot()
	assert.Empty(t, state.Items)
	assert.True(t, decimal.Zero.Equal(state.TotalPrice))
}

func TestCartStoreUnauthorizedClearsState(t *testing.T) {
	c := context.Background()
	router := mux.NewRouter()
	router.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	store, sess := newTestStore(t, server.URL)
	store.apply(c, action{kind: actionSuccess, cart: response.Cart{
		Items:      []response.CartItem{{ProductId: uuid.New(), Quantity: 1}},
		TotalPrice: decimal.NewFromInt(100),
	}})
	require.Len(t, store.Snapshot().Items, 1)

	// A 401 is not surfaced as a failure; the viewer simply has no cart.
	assert.NoError(t, store.Fetch(c))

	state := store.Snapshot()
	assert.Empty(t, state.Items)
	assert.True(t, decimal.Zero.Equal(state.TotalPrice))
	assert.Empty(t, state.Err)
	_, ok := sess.CurrentToken()
	assert.False(t, ok, "token should be cleared after 401")
}

func TestCartStoreFailureKeepsItems(t *testing.T) {
	c := context.Background()
	calls := 0
	router := mux.NewRouter()
	router.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			json.NewEncoder(w).Encode(response.Cart{
				Items: []response.CartItem{{
					ProductId: uuid.New(),
					Name:      "widget",
					Price:     decimal.NewFromInt(50),
					Quantity:  1,
				}},
				TotalPrice: decimal.NewFromInt(50),
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "cart service unavailable"})
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	store, _ := newTestStore(t, server.URL)
	require.NoError(t, store.Fetch(c))
	require.Error(t, store.Fetch(c))

	state := store.Snapshot()
	assert.Len(t, state.Items, 1, "failed refresh should keep the last good view")
	assert.Equal(t, "cart service unavailable", state.Err)
	assert.False(t, state.Loading)
}

func TestCartStoreStaleResponseDiscarded(t *testing.T) {
	c := context.Background()
	store := &CartStore{}

	first := store.beginRequest(c)
	second := store.beginRequest(c)

	newer := response.Cart{
		Items:      []response.CartItem{{ProductId: uuid.New(), Name: "kept", Quantity: 1}},
		TotalPrice: decimal.NewFromInt(10),
	}
	stale := response.Cart{
		Items:      []response.CartItem{{ProductId: uuid.New(), Name: "stale", Quantity: 9}},
		TotalPrice: decimal.NewFromInt(90),
	}

	store.apply(c, action{kind: actionSuccess, seq: second, cart: newer})
	store.apply(c, action{kind: actionSuccess, seq: first, cart: stale})

	state := store.Snapshot()
	require.Len(t, state.Items, 1)
	assert.Equal(t, "kept", state.Items[0].Name, "older response must not overwrite newer state")
	assert.True(t, decimal.NewFromInt(10).Equal(state.TotalPrice))

	store.apply(c, action{kind: actionFailure, seq: first, err: "slow failure"})
	assert.Empty(t, store.Snapshot().Err, "stale failure must not surface an error")
}
