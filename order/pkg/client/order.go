package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/rest"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/order/pkg/response"
)

type OrderClient struct {
	rest *rest.Client
}

func NewOrderClient(rest *rest.Client) OrderClient {
	return OrderClient{rest: rest}
}

func (s OrderClient) CreateOrder(
	c context.Context,
	param request.CreateOrder,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderClient CreateOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderClient CreateOrder").
		Str(log.KeyPaymentMethod, param.PaymentMethod).
		Int(log.KeyCartItems, len(param.Items)).
		Str(log.KeyProcess, "creating order").
		Logger()

	logger.Info().Msg("creating order")
	order := response.Order{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodPost, "/orders", param, &order)
	if err != nil {
		err = fmt.Errorf("failed creating order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger = logger.With().Str(log.KeyOrderID, order.ID.String()).Logger()
	logger.Info().Msgf("created orderId=%s", order.ID.String())

	return order, nil
}

func (s OrderClient) FindMyOrders(c context.Context) ([]response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderClient FindMyOrders")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderClient FindMyOrders").
		Str(log.KeyProcess, "finding orders").
		Logger()

	logger.Info().Msg("finding orders")
	orders := []response.Order{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodGet, "/orders/my", nil, &orders)
	if err != nil {
		err = fmt.Errorf("failed finding orders with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msgf("found %d orders", len(orders))

	return orders, nil
}

func (s OrderClient) FindOrderById(
	c context.Context,
	orderId uuid.UUID,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderClient FindOrderById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderClient FindOrderById").
		Str(log.KeyOrderID, orderId.String()).
		Str(log.KeyProcess, "finding order by id").
		Logger()

	logger.Info().Msg("finding order by id")
	order := response.Order{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodGet, "/orders/"+orderId.String(), nil, &order)
	if err != nil {
		err = fmt.Errorf("failed finding orderId=%s with error=%w", orderId.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("found order by id")

	return order, nil
}

// PayOrder marks the order paid through the direct path used by COD and
// card rails. The call is idempotent on the backend.
func (s OrderClient) PayOrder(c context.Context, orderId uuid.UUID) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderClient PayOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderClient PayOrder").
		Str(log.KeyOrderID, orderId.String()).
		Str(log.KeyProcess, "marking order paid").
		Logger()

	logger.Info().Msg("marking order paid")
	order := response.Order{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodPut, "/orders/"+orderId.String()+"/pay", nil, &order)
	if err != nil {
		err = fmt.Errorf("failed marking orderId=%s paid with error=%w", orderId.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("marked order paid")

	return order, nil
}

func (s OrderClient) CancelOrder(
	c context.Context,
	orderId uuid.UUID,
	param request.CancelOrder,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderClient CancelOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderClient CancelOrder").
		Str(log.KeyOrderID, orderId.String()).
		Str(log.KeyCancelReason, param.Reason).
		Str(log.KeyProcess, "canceling order").
		Logger()

	logger.Info().Msg("canceling order")
	order := response.Order{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodPost, "/orders/"+orderId.String()+"/cancel", param, &order)
	if err != nil {
		err = fmt.Errorf("failed canceling orderId=%s with error=%w", orderId.String(), err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("canceled order")

	return order, nil
}
