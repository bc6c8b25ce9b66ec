package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Watch the live BTC-USD price relayed by the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Live Bitcoin (BTC-USD) price, Ctrl+C to stop")
		return c.WatchPrices(cmd.Context(), func(price string) {
			fmt.Fprintf(out, "$%s\n", price)
		})
	},
}
