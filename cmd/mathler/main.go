// Command mathler is a terminal client for the Mathler server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mathler-backend/internal/client"
	"mathler-backend/internal/logging"
)

var (
	// Global flags
	serverURL string
	token     string
	verbose   bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mathler",
	Short: "Play Mathler from the terminal",
	Long: `mathler talks to a Mathler server.

Find the equation that equals the target number. Every guess is scored per
character: [x] right place, (x) in the equation elsewhere, plain x not used.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			logger = zap.NewNop()
			return nil
		}
		var err error
		logger, err = logging.New("development", true)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("MATHLER_SERVER", "http://localhost:8080"), "Mathler server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("MATHLER_TOKEN"), "session token for progress tracking")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(playCmd, priceCmd, progressCmd, mintCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	return client.New(serverURL, client.WithToken(token), client.WithLogger(logger))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
