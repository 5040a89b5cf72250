package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/store"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/order/pkg/client"
	"github.com/Alturino/storefront/order/internal/otel"
	"github.com/Alturino/storefront/order/pkg/request"
	"github.com/Alturino/storefront/order/pkg/response"
)

// OrderSubmitter turns the current cart into an order. Item snapshots embed
// id, name, quantity, price and image as of submission so later catalog
// edits cannot alter a placed order.
type OrderSubmitter struct {
	orders client.OrderClient
	cart   *store.CartStore
}

func NewOrderSubmitter(orders client.OrderClient, cart *store.CartStore) OrderSubmitter {
	return OrderSubmitter{orders: orders, cart: cart}
}

// Submit validates locally first and issues no request on invalid input.
// For COD the cart is cleared as soon as the order exists; for QR and card
// the cart stays intact until payment is confirmed so an abandoned payment
// leaves it recoverable.
func (s OrderSubmitter) Submit(
	c context.Context,
	shippingAddress, contactNumber, paymentMethod string,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "OrderSubmitter Submit")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "OrderSubmitter Submit").
		Str(log.KeyPaymentMethod, paymentMethod).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "snapshotting cart").Logger()
	logger.Info().Msg("snapshotting cart")
	state := s.cart.Snapshot()
	if len(state.Items) == 0 {
		err := inErrors.ErrCartEmpty
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	items := make([]request.OrderItem, len(state.Items))
	for i, item := range state.Items {
		items[i] = request.OrderItem{
			ProductId: item.ProductId,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Image:     item.Image,
		}
	}
	logger = logger.With().Int(log.KeyCartItems, len(items)).Logger()
	logger.Info().Msg("snapshotted cart")

	reqBody := request.CreateOrder{
		Items:           items,
		ShippingAddress: strings.TrimSpace(shippingAddress),
		ContactNumber:   strings.TrimSpace(contactNumber),
		PaymentMethod:   paymentMethod,
	}

	logger = logger.With().Str(log.KeyProcess, "validating order").Logger()
	logger.Info().Msg("validating order")
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("validated order")

	logger = logger.With().Str(log.KeyProcess, "creating order").Logger()
	logger.Info().Msg("creating order")
	c = logger.WithContext(c)
	order, err := s.orders.CreateOrder(c, reqBody)
	if err != nil {
		err = fmt.Errorf("failed creating order with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger = logger.With().Str(log.KeyOrderID, order.ID.String()).Logger()
	logger.Info().Msg("created order")

	if paymentMethod == response.MethodCod {
		// COD orders are confirmed at placement; payment happens at the
		// door.
		logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
		logger.Info().Msg("clearing cart after cod order")
		c = logger.WithContext(c)
		if err := s.cart.Clear(c); err != nil {
			err = fmt.Errorf("failed clearing cart after cod order with error=%w", err)
			inErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return order, err
		}
		logger.Info().Msg("cleared cart after cod order")
	}

	return order, nil
}
