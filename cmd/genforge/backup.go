package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genforge-dev/genforge"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage queue backup artifacts",
	}
	cmd.AddCommand(newBackupCreateCmd(), newBackupRestoreCmd(), newBackupListCmd())
	return cmd
}

func withSystem(fn func(cmd *cobra.Command, sys *genforge.System, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sys, err := genforge.New(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = sys.Close() }()
		return fn(cmd, sys, args)
	}
}

func newBackupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [handle]",
		Short: "Snapshot the queue into the backup store",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSystem(func(cmd *cobra.Command, sys *genforge.System, args []string) error {
			handle := ""
			if len(args) > 0 {
				handle = args[0]
			}
			rec, err := sys.Snapshot(cmd.Context(), handle)
			if err != nil {
				return err
			}
			fmt.Printf("created backup %s (checksum %s)\n", rec.Handle, rec.Checksum)
			return nil
		}),
	}
}

func newBackupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <handle>",
		Short: "Restore the queue from a backup artifact",
		Args:  cobra.ExactArgs(1),
		RunE: withSystem(func(cmd *cobra.Command, sys *genforge.System, args []string) error {
			if err := sys.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			stats := sys.Queue.Stats()
			fmt.Printf("restored %s: %d pending, %d done, %d failed\n",
				args[0], stats.Pending, stats.Done, stats.Failed)
			return nil
		}),
	}
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backup artifacts, newest first",
		RunE: withSystem(func(cmd *cobra.Command, sys *genforge.System, args []string) error {
			records, err := sys.Store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no backups found")
				return nil
			}
			for _, rec := range records {
				fmt.Printf("%s\t%s\t%s\n", rec.Handle, rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Checksum[:12])
			}
			return nil
		}),
	}
}
