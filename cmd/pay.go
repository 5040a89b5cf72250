package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	inErrors "github.com/Alturino/storefront/internal/errors"
	orderResponse "github.com/Alturino/storefront/order/pkg/response"
	"github.com/Alturino/storefront/payment/pkg/service"
	"github.com/Alturino/storefront/payment/pkg/request"
)

func payCommand(token *string) *cobra.Command {
	var (
		method     string
		confirm    bool
		cardNumber string
		cardExpiry string
		cardCvv    string
	)
	payCmd := &cobra.Command{
		Use:   "pay <orderId>",
		Short: "Pay for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			orderId, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid orderId=%s with error=%w", args[0], err)
			}
			a := newApp(c, *token)
			defer a.close(c)

			order, err := a.orders.FindOrderById(c, orderId)
			if err != nil {
				return err
			}
			if order.IsPaid {
				fmt.Println("order is already paid")
				return nil
			}

			reconciler := service.NewPaymentReconciler(
				orderId,
				order.TotalPrice,
				a.payments,
				a.orders,
				a.cart,
				a.paymentPoller,
			)
			defer reconciler.Stop()

			switch method {
			case orderResponse.MethodCod:
				if err := reconciler.PayCod(c); err != nil {
					return err
				}
				fmt.Println("cod order settled")
				return nil
			case orderResponse.MethodCard:
				fieldErrors, err := reconciler.PayWithCard(c, request.CardDetails{
					Number: cardNumber,
					Expiry: cardExpiry,
					Cvv:    cardCvv,
				})
				if err != nil {
					return err
				}
				if len(fieldErrors) > 0 {
					for field, msg := range fieldErrors {
						fmt.Printf("%s: %s\n", field, msg)
					}
					return fmt.Errorf("card validation failed")
				}
				fmt.Println("card payment confirmed")
				return nil
			case orderResponse.MethodQr:
				qrCodeUrl, err := reconciler.InitiateQr(c)
				if err != nil {
					return err
				}
				fmt.Printf("scan to pay: %s\n", qrCodeUrl)
				if confirm {
					if err := reconciler.ConfirmPaid(c); err != nil {
						return err
					}
					fmt.Println("payment confirmed")
					return nil
				}
				fmt.Println("waiting for payment to be verified, ctrl-c to stop")
				for {
					select {
					case <-c.Done():
						return c.Err()
					case <-time.After(time.Second):
					}
					switch reconciler.State() {
					case service.StatePaid:
						fmt.Println("payment verified")
						return nil
					case service.StateFailed:
						return inErrors.ErrPaymentFailed
					}
				}
			default:
				return fmt.Errorf("unknown payment method=%s", method)
			}
		},
	}
	payCmd.Flags().StringVar(&method, "method", orderResponse.MethodQr, "payment method: cod, qr or card")
	payCmd.Flags().BoolVar(&confirm, "confirm", false, "confirm a qr payment immediately (I have paid)")
	payCmd.Flags().StringVar(&cardNumber, "card-number", "", "card number")
	payCmd.Flags().StringVar(&cardExpiry, "card-expiry", "", "card expiry MM/YY")
	payCmd.Flags().StringVar(&cardCvv, "card-cvv", "", "card cvv")
	return payCmd
}
