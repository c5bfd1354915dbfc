package main

import (
	"time"

	"blindseeker/internal/payload"

	"github.com/spf13/cobra"
)

var simulateDelay time.Duration

// simulateCmd runs the engine against an in-memory oracle.
var simulateCmd = &cobra.Command{
	Use:   "simulate [secret]",
	Short: "Extract a known secret from an in-memory oracle",
	Long: `Runs the full extraction pipeline against a simulated target that
answers conditions about the given secret. No network traffic is sent.
Useful for checking concurrency and throughput settings.

Example:
  blindseeker simulate super_secret -t 4 --delay 20ms`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().DurationVar(&simulateDelay, "delay", 0, "Simulated latency per ask")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	b, err := buildBuilder(cfg)
	if err != nil {
		return err
	}
	sim := payload.NewSimulator(b, args[0], simulateDelay)
	return execute(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), "simulator", sim, b)
}
