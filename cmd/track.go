package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/order/pkg/response"
)

func ordersCommand(token *string) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List my orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			a := newApp(c, *token)
			defer a.close(c)

			orders, err := a.orders.FindMyOrders(c)
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Println("no orders")
				return nil
			}
			for _, order := range orders {
				fmt.Printf(
					"%s  %s  %s  paid=%t\n",
					order.ID.String(),
					order.TotalPrice.StringFixed(2),
					orderStatus(order),
					order.IsPaid,
				)
			}
			return nil
		},
	}
}

func trackCommand(token *string) *cobra.Command {
	var watch bool
	trackCmd := &cobra.Command{
		Use:   "track <orderId>",
		Short: "Track an order until it is delivered or canceled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			orderId, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid orderId=%s with error=%w", args[0], err)
			}
			a := newApp(c, *token)
			defer a.close(c)

			order, err := a.tracker.Refresh(c, orderId)
			if err != nil {
				return err
			}
			printOrder(order)
			if !watch || order.Terminal() {
				return nil
			}

			a.tracker.StartPolling(c, orderId, func(order response.Order) {
				printOrder(order)
			})
			for a.trackerPoller.Active(orderId.String()) {
				select {
				case <-c.Done():
					return c.Err()
				case <-time.After(time.Second):
				}
			}
			return nil
		},
	}
	trackCmd.Flags().BoolVar(&watch, "watch", false, "keep refreshing until terminal")
	return trackCmd
}

func cancelCommand(token *string) *cobra.Command {
	var reason string
	cancelCmd := &cobra.Command{
		Use:   "cancel <orderId>",
		Short: "Cancel an order with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cmd.Context()
			orderId, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid orderId=%s with error=%w", args[0], err)
			}
			a := newApp(c, *token)
			defer a.close(c)

			order, err := a.tracker.Cancel(c, orderId, reason)
			if err != nil {
				return err
			}
			fmt.Printf("order canceled: %s\n", order.CancelReason)
			return nil
		},
	}
	cancelCmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cancelCmd
}

func orderStatus(order response.Order) string {
	switch {
	case order.IsCanceled:
		return "Canceled"
	case order.IsDelivered:
		return "Delivered"
	case !order.StageKnown():
		return "Processing"
	default:
		return response.StageLabel(order.DeliveryStage)
	}
}

func printOrder(order response.Order) {
	fmt.Printf("order %s\n", order.ID.String())
	fmt.Printf("  status: %s\n", orderStatus(order))
	fmt.Printf("  paid: %t  delivered: %t  canceled: %t\n",
		order.IsPaid, order.IsDelivered, order.IsCanceled)
	if order.IsCanceled {
		fmt.Printf("  reason: %s\n", order.CancelReason)
		return
	}
	if !order.ExpectedDeliveryDate.IsZero() {
		fmt.Printf("  expected delivery: %s\n", order.ExpectedDeliveryDate.Format("2006-01-02"))
	}
}
