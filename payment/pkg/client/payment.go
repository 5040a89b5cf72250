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
	"github.com/Alturino/storefront/payment/internal/otel"
	"github.com/Alturino/storefront/payment/pkg/request"
	"github.com/Alturino/storefront/payment/pkg/response"
)

type PaymentClient struct {
	rest *rest.Client
}

func NewPaymentClient(rest *rest.Client) PaymentClient {
	return PaymentClient{rest: rest}
}

func (s PaymentClient) Initiate(
	c context.Context,
	param request.InitiatePayment,
) (response.PaymentSession, error) {
	c, span := otel.Tracer.Start(c, "PaymentClient Initiate")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PaymentClient Initiate").
		Str(log.KeyOrderID, param.OrderId.String()).
		Str(log.KeyPaymentMethod, param.Method).
		Str(log.KeyProcess, "initiating payment").
		Logger()

	logger.Info().Msg("initiating payment")
	session := response.PaymentSession{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodPost, "/payment/initiate", param, &session)
	if err != nil {
		err = fmt.Errorf(
			"failed initiating payment for orderId=%s with error=%w",
			param.OrderId.String(),
			err,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}
	logger = logger.With().Str(log.KeyPaymentID, session.PaymentId).Logger()
	logger.Info().Msgf("initiated paymentId=%s", session.PaymentId)

	return session, nil
}

func (s PaymentClient) Verify(
	c context.Context,
	orderId uuid.UUID,
) (response.PaymentSession, error) {
	c, span := otel.Tracer.Start(c, "PaymentClient Verify")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PaymentClient Verify").
		Str(log.KeyOrderID, orderId.String()).
		Str(log.KeyProcess, "verifying payment").
		Logger()

	logger.Info().Msg("verifying payment")
	session := response.PaymentSession{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodPost, "/payment/verify/"+orderId.String(), nil, &session)
	if err != nil {
		err = fmt.Errorf(
			"failed verifying payment for orderId=%s with error=%w",
			orderId.String(),
			err,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}
	logger.Info().
		Str(log.KeyPaymentStatus, session.Status).
		Msgf("verified payment status=%s", session.Status)

	return session, nil
}

func (s PaymentClient) Confirm(
	c context.Context,
	orderId uuid.UUID,
) (response.PaymentSession, error) {
	c, span := otel.Tracer.Start(c, "PaymentClient Confirm")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PaymentClient Confirm").
		Str(log.KeyOrderID, orderId.String()).
		Str(log.KeyProcess, "confirming payment").
		Logger()

	logger.Info().Msg("confirming payment")
	session := response.PaymentSession{}
	c = logger.WithContext(c)
	err := s.rest.Do(c, http.MethodPost, "/payment/confirm/"+orderId.String(), nil, &session)
	if err != nil {
		err = fmt.Errorf(
			"failed confirming payment for orderId=%s with error=%w",
			orderId.String(),
			err,
		)
		inErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.PaymentSession{}, err
	}
	logger.Info().
		Str(log.KeyPaymentStatus, session.Status).
		Msgf("confirmed payment status=%s", session.Status)

	return session, nil
}
