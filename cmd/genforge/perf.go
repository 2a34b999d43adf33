package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genforge-dev/genforge/perf"
)

func newPerfCmd() *cobra.Command {
	var (
		cfg        perf.Config
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "perf",
		Short: "Run the queue performance harness",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := perf.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal report: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Println(report)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.MessageCount, "messages", perf.DefaultMessageCount, "number of work items to drive")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", perf.DefaultConcurrency, "number of consumer workers")
	cmd.Flags().IntVar(&cfg.PayloadSize, "payload-size", perf.DefaultPayloadSize, "synthetic payload size in bytes")
	cmd.Flags().IntVar(&cfg.MaxAttempts, "max-attempts", 0, "retry budget (0 uses the queue default)")
	cmd.Flags().Float64Var(&cfg.FailureInjectionRate, "failure-rate", 0, "per-delivery failure injection probability [0,1)")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 1, "seed for failure injection")
	cmd.Flags().Float64Var(&cfg.RatePerSecond, "rate", 0, "producer pacing in items per second (0 = unpaced)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the report as JSON")

	return cmd
}
