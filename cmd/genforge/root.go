package main

import (
	"github.com/spf13/cobra"

	"github.com/genforge-dev/genforge/pkg/config"
)

var cfgPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "genforge",
		Short:         "Multi-agent code generation orchestration core",
		Long:          "genforge drives registered agents over a durable work queue,\nwith checksummed queue backups and a seeded performance harness.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newPerfCmd())
	root.AddCommand(newBackupCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.Load(cfgPath)
}
