package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Alturino/storefront/cart/pkg/client"
	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/pkg/response"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/rest"
	"github.com/Alturino/storefront/internal/session"
)

// State is the client's view of the cart, derived strictly from server
// responses. Err carries the last network or business failure message and is
// cleared by the next request of any kind.
type State struct {
	Items      []response.CartItem
	TotalPrice decimal.Decimal
	Loading    bool
	Err        string
}

type actionKind int

const (
	actionRequest actionKind = iota
	actionSuccess
	actionFailure
	actionClear
)

type action struct {
	kind actionKind
	seq  uint64
	cart response.Cart
	err  string
}

// CartStore is the single authoritative mirror of the server cart. All
// mutation goes through dispatched actions applied under one mutex, and
// every request carries a monotonic sequence number: a response belonging to
// an older request than the newest dispatched one is discarded, so a slow
// "+1" reply can never overwrite the state a faster "-1" reply already
// produced.
type CartStore struct {
	mu      sync.Mutex
	state   State
	lastSeq uint64
	client  client.CartClient
}

func NewCartStore(cartClient client.CartClient, sess *session.Session) *CartStore {
	s := &CartStore{client: cartClient}
	sess.OnUnauthorized(func(c context.Context) {
		s.apply(c, action{kind: actionClear})
	})
	return s
}

// Snapshot returns a copy of the current state.
func (s *CartStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Items = append([]response.CartItem(nil), s.state.Items...)
	return state
}

func (s *CartStore) Fetch(c context.Context) error {
	c, span := otel.Tracer.Start(c, "CartStore Fetch")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Fetch").
		Logger()

	seq := s.beginRequest(c)
	c = logger.WithContext(c)
	cart, err := s.client.FetchCart(c)
	if err != nil {
		if err = s.finishRequest(c, seq, err, "failed fetching cart"); err != nil {
			inErrors.HandleError(err, span)
		}
		return err
	}
	s.apply(c, action{kind: actionSuccess, seq: seq, cart: cart})
	return nil
}

// Add issues an add-or-merge for the product and then refetches the cart,
// adopting the server's view rather than merging locally.
func (s *CartStore) Add(c context.Context, productId uuid.UUID, quantity int) error {
	c, span := otel.Tracer.Start(c, "CartStore Add")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Add").
		Str(log.KeyProductID, productId.String()).
		Int(log.KeyQuantity, quantity).
		Logger()

	seq := s.beginRequest(c)
	c = logger.WithContext(c)
	cart, err := s.client.AddItem(c, productId, quantity)
	if err != nil {
		if err = s.finishRequest(c, seq, err, "failed adding item to cart"); err != nil {
			inErrors.HandleError(err, span)
		}
		return err
	}
	s.apply(c, action{kind: actionSuccess, seq: seq, cart: cart})
	return nil
}

// UpdateQuantity with quantity <= 0 is defined as removal, not an error.
func (s *CartStore) UpdateQuantity(c context.Context, productId uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return s.Remove(c, productId)
	}

	c, span := otel.Tracer.Start(c, "CartStore UpdateQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore UpdateQuantity").
		Str(log.KeyProductID, productId.String()).
		Int(log.KeyQuantity, quantity).
		Logger()

	seq := s.beginRequest(c)
	c = logger.WithContext(c)
	cart, err := s.client.UpdateQuantity(c, productId, quantity)
	if err != nil {
		if err = s.finishRequest(c, seq, err, "failed updating quantity"); err != nil {
			inErrors.HandleError(err, span)
		}
		return err
	}
	s.apply(c, action{kind: actionSuccess, seq: seq, cart: cart})
	return nil
}

func (s *CartStore) Remove(c context.Context, productId uuid.UUID) error {
	c, span := otel.Tracer.Start(c, "CartStore Remove")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Remove").
		Str(log.KeyProductID, productId.String()).
		Logger()

	seq := s.beginRequest(c)
	c = logger.WithContext(c)
	cart, err := s.client.RemoveItem(c, productId)
	if err != nil {
		if err = s.finishRequest(c, seq, err, "failed removing item"); err != nil {
			inErrors.HandleError(err, span)
		}
		return err
	}
	s.apply(c, action{kind: actionSuccess, seq: seq, cart: cart})
	return nil
}

// Clear empties the cart on the server and locally. Clearing an already
// empty cart succeeds.
func (s *CartStore) Clear(c context.Context) error {
	c, span := otel.Tracer.Start(c, "CartStore Clear")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore Clear").
		Logger()

	seq := s.beginRequest(c)
	c = logger.WithContext(c)
	err := s.client.ClearCart(c)
	if err != nil {
		if errors.Is(err, inErrors.ErrUnauthorized) {
			return nil
		}
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		s.apply(c, action{kind: actionFailure, seq: seq, err: userMessage(err)})
		return err
	}
	s.apply(c, action{kind: actionClear})
	return nil
}

// beginRequest dispatches the REQUEST action and hands back the sequence
// number identifying this request.
func (s *CartStore) beginRequest(c context.Context) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeq++
	seq := s.lastSeq
	s.applyLocked(c, action{kind: actionRequest, seq: seq})
	return seq
}

// finishRequest routes a failed operation to the right transition. A 401 is
// not a failure: an unauthenticated viewer has an empty cart.
func (s *CartStore) finishRequest(c context.Context, seq uint64, err error, msg string) error {
	logger := zerolog.Ctx(c)
	if errors.Is(err, inErrors.ErrUnauthorized) {
		// Session hook already dispatched CLEAR.
		logger.Info().Msg("unauthenticated, cart cleared")
		return nil
	}
	err = fmt.Errorf("%s with error=%w", msg, err)
	logger.Error().Err(err).Msg(err.Error())
	s.apply(c, action{kind: actionFailure, seq: seq, err: userMessage(err)})
	return err
}

func (s *CartStore) apply(c context.Context, a action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(c, a)
}

// applyLocked is the transition table. It is the only place state changes.
func (s *CartStore) applyLocked(c context.Context, a action) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartStore applyLocked").
		Uint64(log.KeySequence, a.seq).
		Logger()

	switch a.kind {
	case actionRequest:
		s.state.Loading = true
		s.state.Err = ""
	case actionSuccess:
		if a.seq < s.lastSeq {
			logger.Info().Msg("discarding stale success response")
			return
		}
		s.state.Loading = false
		s.state.Items = a.cart.Items
		s.state.TotalPrice = a.cart.TotalPrice
		s.state.Err = ""
	case actionFailure:
		if a.seq < s.lastSeq {
			logger.Info().Msg("discarding stale failure response")
			return
		}
		s.state.Loading = false
		s.state.Err = a.err
	case actionClear:
		s.state = State{TotalPrice: decimal.Zero}
	}
}

// userMessage prefers the backend's own message for business failures.
func userMessage(err error) string {
	apiErr := &rest.APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
