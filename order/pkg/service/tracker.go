package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/poll"
	"github.com/Alturino/storefront/order/pkg/client"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/order/pkg/response"
)

// OrderLifecycleTracker mirrors the lifecycle of orders the user is
// watching. The backend owns every transition; the tracker only refreshes,
// caches, and enforces two rendering rules on top of what it receives: the
// delivery stage never moves backwards while the order is live, and it is
// frozen at its last value once the order is canceled.
type OrderLifecycleTracker struct {
	mu     sync.Mutex
	orders map[uuid.UUID]response.Order
	client client.OrderClient
	poller *poll.Poller
}

func NewOrderLifecycleTracker(
	orderClient client.OrderClient,
	poller *poll.Poller,
) *OrderLifecycleTracker {
	return &OrderLifecycleTracker{
		orders: map[uuid.UUID]response.Order{},
		client: orderClient,
		poller: poller,
	}
}

// Current returns the last cached view of the order, if any.
func (t *OrderLifecycleTracker) Current(orderId uuid.UUID) (response.Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	order, ok := t.orders[orderId]
	return order, ok
}

// Refresh fetches the order and merges it into the cache under the
// monotonic stage rule.
func (t *OrderLifecycleTracker) Refresh(
	c context.Context,
	orderId uuid.UUID,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderLifecycleTracker Refresh")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderLifecycleTracker Refresh").
		Str(log.KeyOrderID, orderId.String()).
		Str(log.KeyProcess, "refreshing order").
		Logger()

	logger.Info().Msg("refreshing order")
	c = logger.WithContext(c)
	fetched, err := t.client.FindOrderById(c, orderId)
	if err != nil {
		err = fmt.Errorf("failed refreshing orderId=%s with error=%w", orderId.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	merged := t.merge(orderId, fetched)
	logger.Info().
		Int(log.KeyDeliveryStage, merged.DeliveryStage).
		Msgf("refreshed order stage=%s", response.StageLabel(merged.DeliveryStage))

	return merged, nil
}

// merge reconciles a fresh server view with the cached one. A lower stage
// than previously shown is treated as stale and ignored; once a cached view
// is canceled its stage is pinned regardless of what later responses say.
func (t *OrderLifecycleTracker) merge(
	orderId uuid.UUID,
	fetched response.Order,
) response.Order {
	t.mu.Lock()
	defer t.mu.Unlock()

	cached, ok := t.orders[orderId]
	if ok {
		if cached.IsCanceled {
			fetched.IsCanceled = true
			fetched.DeliveryStage = cached.DeliveryStage
		} else if cached.DeliveryStage > fetched.DeliveryStage {
			fetched.DeliveryStage = cached.DeliveryStage
		}
	}
	t.orders[orderId] = fetched
	return fetched
}

// Cancel cancels the order with the given reason. Delivered and already
// canceled orders are rejected locally, as is a blank reason, so no request
// leaves the client in those cases.
func (t *OrderLifecycleTracker) Cancel(
	c context.Context,
	orderId uuid.UUID,
	reason string,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderLifecycleTracker Cancel")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderLifecycleTracker Cancel").
		Str(log.KeyOrderID, orderId.String()).
		Str(log.KeyCancelReason, reason).
		Logger()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		err := inErrors.ErrEmptyCancelReason
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "checking order state").Logger()
	current, ok := t.Current(orderId)
	if !ok {
		logger.Info().Msg("order not cached, refreshing before cancel")
		c = logger.WithContext(c)
		var err error
		current, err = t.Refresh(c, orderId)
		if err != nil {
			err = fmt.Errorf(
				"failed refreshing orderId=%s before cancel with error=%w",
				orderId.String(),
				err,
			)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Order{}, err
		}
	}
	if current.IsDelivered {
		err := inErrors.ErrOrderDelivered
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return current, err
	}
	if current.IsCanceled {
		err := inErrors.ErrOrderCanceled
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return current, err
	}

	logger = logger.With().Str(log.KeyProcess, "canceling order").Logger()
	logger.Info().Msg("canceling order")
	c = logger.WithContext(c)
	canceled, err := t.client.CancelOrder(c, orderId, request.CancelOrder{Reason: reason})
	if err != nil {
		err = fmt.Errorf("failed canceling orderId=%s with error=%w", orderId.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	merged := t.merge(orderId, canceled)
	t.poller.Stop(orderId.String())
	logger.Info().Msg("canceled order")

	return merged, nil
}

// StartPolling refreshes the order on the tracker's interval until it
// reaches a terminal state. onUpdate, when non-nil, receives every merged
// view. Starting again for the same order replaces the previous poller.
func (t *OrderLifecycleTracker) StartPolling(
	c context.Context,
	orderId uuid.UUID,
	onUpdate func(response.Order),
) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderLifecycleTracker StartPolling").
		Str(log.KeyOrderID, orderId.String()).
		Logger()

	if order, ok := t.Current(orderId); ok && order.Terminal() {
		logger.Info().Msg("order already terminal, not polling")
		return
	}

	logger.Info().Msg("starting order polling")
	c = logger.WithContext(c)
	t.poller.Start(c, orderId.String(), func(c context.Context) (bool, error) {
		order, err := t.Refresh(c, orderId)
		if err != nil {
			return false, err
		}
		if onUpdate != nil {
			onUpdate(order)
		}
		return order.Terminal(), nil
	})
}

// StopPolling cancels the refresh loop for the order, if one is running.
func (t *OrderLifecycleTracker) StopPolling(orderId uuid.UUID) {
	t.poller.Stop(orderId.String())
}
