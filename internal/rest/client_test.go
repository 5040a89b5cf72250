package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Session) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	sess := session.New()
	sess.SetToken("opaque-test-token")
	return NewClient(config.Backend{BaseUrl: server.URL}, sess), sess
}

func TestDoAttachesHeaders(t *testing.T) {
	var (
		gotAuth      string
		gotRequestId string
		gotType      string
	)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestId = r.Header.Get(log.KeyRequestID)
		gotType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
	}))

	out := map[string]string{}
	err := client.Do(context.Background(), http.MethodGet, "/ping", nil, &out)

	require.NoError(t, err)
	assert.Equal(t, "Bearer opaque-test-token", gotAuth)
	assert.NotEmpty(t, gotRequestId)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "true", out["ok"])
}

func TestDoAnonymousRequestOmitsAuthorization(t *testing.T) {
	var gotAuth string
	client, sess := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("{}"))
	}))
	sess.Clear()

	require.NoError(t, client.Do(context.Background(), http.MethodGet, "/ping", nil, nil))
	assert.Empty(t, gotAuth)
}

func TestDoUnauthorized(t *testing.T) {
	client, sess := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))

	hookFired := false
	sess.OnUnauthorized(func(c context.Context) { hookFired = true })

	err := client.Do(context.Background(), http.MethodGet, "/cart", nil, nil)

	assert.ErrorIs(t, err, inErrors.ErrUnauthorized)
	assert.True(t, hookFired)
	_, ok := sess.CurrentToken()
	assert.False(t, ok)
}

func TestDoBusinessError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "product out of stock"})
	}))

	err := client.Do(context.Background(), http.MethodPost, "/cart", map[string]int{"qty": 1}, nil)

	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "product out of stock", apiErr.Message)
}

func TestDoErrorWithoutMessageFallsBackToStatusText(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := client.Do(context.Background(), http.MethodGet, "/cart", nil, nil)

	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestDoRetriesIdempotentRequests(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			// Kill the connection so the client sees a transport error.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte("{}"))
	}))
	t.Cleanup(server.Close)

	sess := session.New()
	client := NewClient(config.Backend{BaseUrl: server.URL, MaxRetries: 3}, sess)

	err := client.Do(context.Background(), http.MethodGet, "/cart", nil, nil)

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestDoDoesNotRetryMutations(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	t.Cleanup(server.Close)

	sess := session.New()
	client := NewClient(config.Backend{BaseUrl: server.URL, MaxRetries: 3}, sess)

	err := client.Do(context.Background(), http.MethodPost, "/orders", map[string]int{}, nil)

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
