package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/genforge-dev/genforge"
	"github.com/genforge-dev/genforge/agent"
	"github.com/genforge-dev/genforge/internal/observability"
	obsserver "github.com/genforge-dev/genforge/pkg/observability"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the dispatcher until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cfg.Observability.Tracing {
				if err := observability.InitFromEnv(); err != nil {
					return fmt.Errorf("init tracing: %w", err)
				}
				defer func() {
					if err := observability.Shutdown(context.Background()); err != nil {
						log.Printf("tracing shutdown: %v", err)
					}
				}()
			}

			sys, err := genforge.New(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := sys.Close(); err != nil {
					log.Printf("close: %v", err)
				}
			}()

			registerBuiltinAgents(sys.Registry)

			checker := obsserver.NewHealthChecker()
			checker.RegisterCheck(obsserver.PingCheck())
			checker.RegisterCheck(obsserver.QueueDepthCheck(sys.Queue.Len, cfg.Queue.Capacity))
			server := obsserver.NewServer(cfg.Observability.MetricsPort, checker)
			go func() {
				if err := server.Start(); err != nil {
					log.Printf("observability server: %v", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Printf("dispatcher starting (metrics on :%d)", cfg.Observability.MetricsPort)
			return sys.Run(ctx)
		},
	}
}

// registerBuiltinAgents installs the stock pipeline stages. Library users
// register their own implementations instead.
func registerBuiltinAgents(r *agent.Registry) {
	stages := []string{"search", "matcher", "ui-selector", "codegen", "packager"}
	for _, name := range stages {
		_ = r.Register(&agent.Func{
			AgentName: name,
			Fn: func(ctx context.Context, input *agent.Message) (*agent.Message, error) {
				return input.Clone().WithMetadata("stage", name), nil
			},
		})
	}
}
