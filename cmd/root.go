package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/internal/log"
)

func Start() {
	logger := log.InitLogger("/var/log/storefront.log").
		With().
		Str(log.KeyAppName, "storefront").
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	var token string
	rootCmd := &cobra.Command{Use: "storefront"}
	rootCmd.PersistentFlags().
		StringVar(&token, "token", "", "bearer token, defaults to STOREFRONT_TOKEN")

	rootCmd.AddCommand(
		cartCommand(&token),
		checkoutCommand(&token),
		payCommand(&token),
		ordersCommand(&token),
		trackCommand(&token),
		cancelCommand(&token),
	)
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
