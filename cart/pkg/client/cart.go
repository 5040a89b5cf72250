package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/pkg/response"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/rest"
)

// CartClient wraps the backend's cart endpoints. It holds no cart state of
// its own; every call returns the server's view and the store adopts it
// verbatim.
type CartClient struct {
	rest *rest.Client
}

func NewCartClient(rest *rest.Client) CartClient {
	return CartClient{rest: rest}
}

func (s CartClient) FetchCart(c context.Context) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartClient FetchCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartClient FetchCart").
		Str(log.KeyProcess, "fetching cart").
		Logger()

	logger.Info().Msg("fetching cart")
	cart := response.Cart{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodGet, "/cart", nil, &cart)
	if err != nil {
		err = fmt.Errorf("failed fetching cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().
		Int(log.KeyCartItems, len(cart.Items)).
		Str(log.KeyTotalPrice, cart.TotalPrice.String()).
		Msg("fetched cart")

	return cart, nil
}

// AddItem is add-or-merge: a product already in the cart gets its quantity
// incremented server side, never overwritten.
func (s CartClient) AddItem(
	c context.Context,
	productId uuid.UUID,
	quantity int,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartClient AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartClient AddItem").
		Str(log.KeyProductID, productId.String()).
		Int(log.KeyQuantity, quantity).
		Logger()

	if quantity < 1 {
		err := fmt.Errorf("quantity=%d must be a positive integer", quantity)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "adding item to cart").Logger()
	logger.Info().Msg("adding item to cart")
	body := map[string]any{"productId": productId, "qty": quantity}
	cart := response.Cart{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodPost, "/cart", body, &cart)
	if err != nil {
		err = fmt.Errorf(
			"failed adding productId=%s to cart with error=%w",
			productId.String(),
			err,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("added item to cart")

	return cart, nil
}

func (s CartClient) UpdateQuantity(
	c context.Context,
	productId uuid.UUID,
	quantity int,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartClient UpdateQuantity")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartClient UpdateQuantity").
		Str(log.KeyProductID, productId.String()).
		Int(log.KeyQuantity, quantity).
		Str(log.KeyProcess, "updating quantity").
		Logger()

	logger.Info().Msg("updating quantity")
	body := map[string]any{"qty": quantity}
	cart := response.Cart{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodPut, "/cart/"+productId.String(), body, &cart)
	if err != nil {
		err = fmt.Errorf(
			"failed updating quantity of productId=%s with error=%w",
			productId.String(),
			err,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("updated quantity")

	return cart, nil
}

func (s CartClient) RemoveItem(
	c context.Context,
	productId uuid.UUID,
) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartClient RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartClient RemoveItem").
		Str(log.KeyProductID, productId.String()).
		Str(log.KeyProcess, "removing item").
		Logger()

	logger.Info().Msg("removing item")
	cart := response.Cart{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodDelete, "/cart/"+productId.String(), nil, &cart)
	if err != nil {
		err = fmt.Errorf(
			"failed removing productId=%s from cart with error=%w",
			productId.String(),
			err,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("removed item")

	return cart, nil
}

func (s CartClient) ClearCart(c context.Context) error {
	c, span := otel.Tracer.Start(c, "CartClient ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartClient ClearCart").
		Str(log.KeyProcess, "clearing cart").
		Logger()

	logger.Info().Msg("clearing cart")
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodDelete, "/cart", nil, nil)
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("cleared cart")

	return nil
}
