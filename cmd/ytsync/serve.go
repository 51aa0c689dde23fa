package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/DrRago/YTSync-Plugin/internal/config"
	"github.com/DrRago/YTSync-Plugin/internal/coordinator"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctl := &coordinator.Controller{
				Watches:   coordinator.NewManager(),
				Registry:  coordinator.NewRegistry(),
				Reactions: coordinator.NewRateLimiter(cfg.ReactionLimit, cfg.ReactionWindow),
				ReadLimit: cfg.ReadLimit,
			}

			r := coordinator.SetupRouter(ctx, cfg, ctl)
			addr := fmt.Sprintf(":%d", cfg.Port)

			srv := &http.Server{
				Addr:    addr,
				Handler: r,
			}

			go func() {
				log.Info().Str("addr", addr).Msg("coordinator started")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("server error")
				}
			}()

			<-ctx.Done()
			log.Info().Msg("Shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Server forced to shutdown")
			}
			log.Info().Msg("Server exited gracefully")
			return nil
		},
	}
}
