package main

import (
	"fmt"

	"blindseeker/internal/oracle"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// probeCmd asks the oracle a single condition.
var probeCmd = &cobra.Command{
	Use:   "probe [condition]",
	Short: "Ask the truth oracle one condition and print the answer",
	Long: `Sends a single injected condition and prints true or false. Use it to
calibrate the success indicator before a full run.

Example:
  blindseeker probe "1' AND 1=1 #" -u http://127.0.0.1/vuln -c "security=low"
  blindseeker probe "1' AND 1=2 #" -u http://127.0.0.1/vuln -c "security=low"`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	base, closeSession, err := buildOracle(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSession()

	audit, err := openAudit()
	if err != nil {
		return err
	}
	defer audit.Close()
	o := decorate(base, audit)

	cond := oracle.Condition(args[0])
	ok, err := o.Ask(cmd.Context(), cond)
	if err != nil {
		return err
	}
	logger.Debug("Probe answered", zap.String("condition", args[0]), zap.Bool("answer", ok))
	fmt.Fprintln(cmd.OutOrStdout(), ok)
	return nil
}
