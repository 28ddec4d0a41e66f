package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opencarbon/carbonfocus/internal/seed"
	"github.com/opencarbon/carbonfocus/internal/server"
)

const shutdownGrace = 10 * time.Second

// defaultAdminPassword matches the original platform bootstrap; override it
// via auth.bootstrap_admin_password before exposing the server.
const defaultAdminPassword = "admin1234"

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the platform API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Seed {
				n, warnings, err := seed.Apply(ctx, st)
				if err != nil {
					return err
				}
				for _, w := range warnings {
					logger.Warn().Str("warning", w).Msg("seed row skipped")
				}
				logger.Info().Int("factors", n).Msg("seed applied")
			}

			adminPassword := cfg.Auth.BootstrapAdminPassword
			if adminPassword == "" {
				adminPassword = defaultAdminPassword
			}
			if err := server.BootstrapAdmin(ctx, st, adminPassword); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           server.New(st, logger).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error {
				logger.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			group.Go(func() error {
				<-groupCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			return group.Wait()
		},
	}
	return cmd
}
