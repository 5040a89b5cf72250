package cmd

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/cart/pkg/store"
)

func cartCommand(token *string) *cobra.Command {
	cartCmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect and mutate the server cart",
	}
	cartCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Fetch and print the cart",
			RunE: func(cmd *cobra.Command, args []string) error {
				c := cmd.Context()
				a := newApp(c, *token)
				defer a.close(c)
				if err := a.cart.Fetch(c); err != nil {
					return err
				}
				printCart(a.cart.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <productId> <qty>",
			Short: "Add a product to the cart",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := cmd.Context()
				productId, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid productId=%s with error=%w", args[0], err)
				}
				quantity, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity=%s with error=%w", args[1], err)
				}
				a := newApp(c, *token)
				defer a.close(c)
				if err := a.cart.Add(c, productId, quantity); err != nil {
					return err
				}
				printCart(a.cart.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <productId> <qty>",
			Short: "Set a cart line quantity, zero removes the line",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := cmd.Context()
				productId, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid productId=%s with error=%w", args[0], err)
				}
				quantity, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid quantity=%s with error=%w", args[1], err)
				}
				a := newApp(c, *token)
				defer a.close(c)
				if err := a.cart.UpdateQuantity(c, productId, quantity); err != nil {
					return err
				}
				printCart(a.cart.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <productId>",
			Short: "Remove a product from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c := cmd.Context()
				productId, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid productId=%s with error=%w", args[0], err)
				}
				a := newApp(c, *token)
				defer a.close(c)
				if err := a.cart.Remove(c, productId); err != nil {
					return err
				}
				printCart(a.cart.Snapshot())
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Empty the cart",
			RunE: func(cmd *cobra.Command, args []string) error {
				c := cmd.Context()
				a := newApp(c, *token)
				defer a.close(c)
				if err := a.cart.Clear(c); err != nil {
					return err
				}
				fmt.Println("cart cleared")
				return nil
			},
		},
	)
	return cartCmd
}

func printCart(state store.State) {
	if len(state.Items) == 0 {
		fmt.Println("cart is empty")
		return
	}
	for _, item := range state.Items {
		fmt.Printf(
			"%s  %s x%d  %s\n",
			item.ProductId.String(),
			item.Name,
			item.Quantity,
			item.Subtotal().StringFixed(2),
		)
	}
	fmt.Printf("total: %s\n", state.TotalPrice.StringFixed(2))
}
