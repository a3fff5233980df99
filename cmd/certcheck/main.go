// Command certcheck uploads a residue test certificate to the verification
// API and walks through the follow-up dialogs on the terminal.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kiimleo/pesticide-monitor-sub000/internal/adapters/apiclient"
	"github.com/kiimleo/pesticide-monitor-sub000/internal/logging"
)

var (
	apiURL  string
	timeout time.Duration
	verbose bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "certcheck",
	Short:         "Verify pesticide residue test certificates",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level, "development")
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <certificate.pdf>",
	Short: "Upload a certificate and resolve any follow-up questions",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

var foodsCmd = &cobra.Command{
	Use:   "foods <query>",
	Short: "Search reference food names",
	Args:  cobra.ExactArgs(1),
	RunE:  runFoods,
}

func init() {
	def := os.Getenv("CERTCHECK_API")
	if def == "" {
		def = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", def, "verification API base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(verifyCmd, foodsCmd)
}

func newClient() (*apiclient.Client, error) {
	return apiclient.New(apiURL, timeout)
}

func runFoods(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	foods, err := client.SearchFoods(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(foods) == 0 {
		fmt.Fprintln(out, "검색 결과가 없습니다.")
		return nil
	}
	for _, f := range foods {
		fmt.Fprintln(out, f)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
