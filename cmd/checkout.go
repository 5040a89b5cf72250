package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/order/pkg/response"
)

func checkoutCommand(token *string) *cobra.Command {
	var (
		address string
		phone   string
		method  string
	)
	checkoutCmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order from the current cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			a := newApp(c, *token)
			defer a.close(c)

			if err := a.cart.Fetch(c); err != nil {
				return err
			}
			order, err := a.submitter.Submit(c, address, phone, method)
			if err != nil {
				return err
			}
			fmt.Printf("order placed: %s\n", order.ID.String())
			fmt.Printf("total: %s  method: %s\n", order.TotalPrice.StringFixed(2), order.PaymentMethod)
			if order.PaymentMethod == response.MethodCod {
				fmt.Println("pay on delivery, cart cleared")
				return nil
			}
			fmt.Printf("complete payment with: storefront pay %s --method %s\n",
				order.ID.String(), order.PaymentMethod)
			return nil
		},
	}
	checkoutCmd.Flags().StringVar(&address, "address", "", "shipping address")
	checkoutCmd.Flags().StringVar(&phone, "phone", "", "10 digit contact number")
	checkoutCmd.Flags().StringVar(&method, "method", response.MethodCod, "payment method: cod, qr or card")
	return checkoutCmd
}
