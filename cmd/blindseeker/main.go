package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"blindseeker/internal/config"
	"blindseeker/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd runs an extraction against the configured target.
var rootCmd = &cobra.Command{
	Use:   "blindseeker",
	Short: "Concurrent boolean-based blind SQL injection extractor",
	Long: `blindseeker recovers a hidden string, by default the current database
name, from an application that only reveals whether an injected condition
held. The length is probed sequentially, then every character position is
binary-searched over printable ASCII, with positions searched concurrently.

Only use it against systems you are authorized to test.

Example:
  blindseeker -u "http://127.0.0.1/vulnerabilities/sqli_blind/" \
    -c "PHPSESSID=abc; security=low" -t 20`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, loaded); err != nil {
			return err
		}
		cfg = loaded

		logger, err = logging.New(logging.Options{
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
			Verbose: verbose,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	registerFlags(rootCmd)

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(simulateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	interrupted := ctx.Err() != nil
	stop()

	os.Exit(exitCode(err, interrupted))
}

// exitCode reports err and maps it to the process status.
func exitCode(err error, interrupted bool) int {
	switch {
	case err == nil:
		return 0
	case interrupted && errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "\n[!] Extraction interrupted by user")
		return 130
	default:
		fmt.Fprintln(os.Stderr, "[-] Error:", err)
		return 1
	}
}
