package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	cartClient "github.com/Alturino/storefront/cart/pkg/client"
	"github.com/Alturino/storefront/cart/pkg/store"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/poll"
	"github.com/Alturino/storefront/internal/rest"
	"github.com/Alturino/storefront/internal/session"
	orderClient "github.com/Alturino/storefront/order/pkg/client"
	orderService "github.com/Alturino/storefront/order/pkg/service"
	paymentClient "github.com/Alturino/storefront/payment/pkg/client"
)

// app wires the shared client stack once per command invocation. Both
// pollers share the lifetime of the command context; shutdown flushes otel.
type app struct {
	cfg           *config.Config
	session       *session.Session
	cart          *store.CartStore
	orders        orderClient.OrderClient
	payments      paymentClient.PaymentClient
	submitter     orderService.OrderSubmitter
	tracker       *orderService.OrderLifecycleTracker
	paymentPoller *poll.Poller
	trackerPoller *poll.Poller
	shutdownFuncs []otel.ShutdownFunc
}

func newApp(c context.Context, token string) *app {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "main newApp").
		Logger()

	logger.Info().Str(log.KeyProcess, "InitConfig").Msg("initializing config")
	c = logger.WithContext(c)
	cfg := config.InitConfig(c, "application")
	logger.Info().Str(log.KeyProcess, "InitConfig").Msg("initialized config")

	logger.Info().Str(log.KeyProcess, "InitOtelSdk").Msg("initializing otel sdk")
	shutdownFuncs, err := otel.InitOtelSdk(c, cfg.Otel)
	if err != nil {
		logger.Error().
			Err(err).
			Str(log.KeyProcess, "InitOtelSdk").
			Msgf("failed initializing otel sdk with error=%s", err.Error())
	}
	logger.Info().Str(log.KeyProcess, "InitOtelSdk").Msg("initialized otel sdk")

	sess := session.New()
	if token == "" {
		token = os.Getenv("STOREFRONT_TOKEN")
	}
	if token != "" {
		sess.SetToken(token)
	}

	restClient := rest.NewClient(cfg.Backend, sess)
	cart := store.NewCartStore(cartClient.NewCartClient(restClient), sess)
	orders := orderClient.NewOrderClient(restClient)
	payments := paymentClient.NewPaymentClient(restClient)

	paymentPoller := poll.New(cfg.Payment.PollInterval, cfg.Payment.MaxPollAttempts)
	trackerPoller := poll.New(cfg.Tracker.RefreshInterval, cfg.Tracker.MaxRefreshAttempts)

	return &app{
		cfg:           cfg,
		session:       sess,
		cart:          cart,
		orders:        orders,
		payments:      payments,
		submitter:     orderService.NewOrderSubmitter(orders, cart),
		tracker:       orderService.NewOrderLifecycleTracker(orders, trackerPoller),
		paymentPoller: paymentPoller,
		trackerPoller: trackerPoller,
		shutdownFuncs: shutdownFuncs,
	}
}

func (a *app) close(c context.Context) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "main close").
		Logger()

	a.paymentPoller.StopAll()
	a.trackerPoller.StopAll()

	logger.Info().Str(log.KeyProcess, "ShutdownOtel").Msg("shutting down otel")
	if err := otel.ShutdownOtel(c, a.shutdownFuncs); err != nil {
		logger.Error().
			Err(err).
			Str(log.KeyProcess, "ShutdownOtel").
			Msgf("failed shutting down otel with error=%s", err.Error())
		return
	}
	logger.Info().Str(log.KeyProcess, "ShutdownOtel").Msg("shut down otel")
}
