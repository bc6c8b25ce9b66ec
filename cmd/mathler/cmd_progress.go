package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"mathler-backend/internal/models"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show your saved results",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		p, err := c.Progress(cmd.Context())
		if err != nil {
			return err
		}
		renderProgress(cmd.OutOrStdout(), p)
		return nil
	},
}

var progressResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear your saved results",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.ResetProgress(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Progress cleared.")
		return nil
	},
}

var (
	mintWallet string
	mintUser   string
)

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Request the first win NFT for a wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		resp, err := c.MintFirstWin(cmd.Context(), mintWallet, mintUser)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\ntoken %s, tx %s\n", resp.Message, resp.TokenID, resp.TransactionHash)
		return nil
	},
}

func init() {
	progressCmd.AddCommand(progressResetCmd)

	mintCmd.Flags().StringVar(&mintWallet, "wallet", "", "recipient wallet address")
	mintCmd.Flags().StringVar(&mintUser, "user", "", "user id")
	_ = mintCmd.MarkFlagRequired("wallet")
	_ = mintCmd.MarkFlagRequired("user")
}

func renderProgress(w io.Writer, p *models.Progress) {
	fmt.Fprintf(w, "Total wins: %d\n", p.TotalWins)
	if nft := p.FirstWinNFT; nft != nil {
		switch {
		case nft.TokenID != "" || nft.TransactionHash != "":
			fmt.Fprintf(w, "First win NFT: token %s (tx %s)\n", nft.TokenID, nft.TransactionHash)
		case nft.Error != "":
			fmt.Fprintf(w, "First win NFT failed: %s\n", nft.Error)
		}
	}

	dates := make([]string, 0, len(p.MathlerHistory))
	for d := range p.MathlerHistory {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, d := range dates {
		e := p.MathlerHistory[d]
		line := fmt.Sprintf("%s  %-4s %d guesses", d, e.Status, len(e.Guesses))
		if e.Solution != "" {
			line += "  " + e.Solution
		}
		fmt.Fprintln(w, line)
	}
}
