package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"contract-plan-manager/internal/infra/api"
	"contract-plan-manager/internal/infra/db/migrations"
	"contract-plan-manager/internal/infra/metrics"
	red "contract-plan-manager/internal/infra/redis"
	"contract-plan-manager/internal/infra/scheduler"
	"contract-plan-manager/internal/usecase"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if migrate {
				if err := migrations.Up(cfg.Database.URL); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				logger.Info().Msg("migrations applied")
			}

			in, err := openInfra(ctx)
			if err != nil {
				return err
			}
			defer in.Close()

			metrics.MustRegister()
			metrics.SetBuildInfo(version, commit)

			planUC := usecase.NewPaymentPlanUseCase(in.plans, in.tm, logger)
			contractUC := usecase.NewContractUseCase(in.contracts, in.plans, in.tm, logger)
			requestUC := usecase.NewPlanChangeRequestUseCase(in.requests, in.contracts, in.plans, in.tm, logger)

			opts := api.Options{
				AllowedOrigins: cfg.HTTP.AllowedOrigins,
				TrustProxy:     cfg.HTTP.TrustProxy,
				RequestTimeout: cfg.HTTP.WriteTimeout,
				Checks: []api.ReadinessCheck{
					{Name: "postgres", Ping: in.pool.Ping},
				},
			}
			if cfg.Metrics.Enabled {
				opts.MetricsPath = cfg.Metrics.Path
			}
			if cfg.Auth.Enabled {
				opts.Auth = api.NewAuthManager(cfg.Auth.HMACSecret, cfg.Auth.AdminPassword, cfg.Auth.SecureCookie, cfg.Auth.SessionTTL)
			}
			if in.redis != nil {
				opts.Checks = append(opts.Checks, api.ReadinessCheck{Name: "redis", Ping: in.redis.Ping})
				if cfg.RateLimit.Enabled {
					opts.Limiter = red.NewRateLimiter(in.redis)
					opts.RateLimit = cfg.RateLimit.Limit
					opts.RateWindow = cfg.RateLimit.Window
				}
			}

			srv := api.NewServer(planUC, contractUC, requestUC, opts, logger)
			httpServer := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
				Handler:      srv.Router(),
				ReadTimeout:  cfg.HTTP.ReadTimeout,
				WriteTimeout: cfg.HTTP.WriteTimeout + cfg.HTTP.ReadTimeout,
			}
			sampler := scheduler.NewScheduler(cfg.Scheduler.SampleInterval,
				scheduler.NewWorkflowSampler(in.contracts, in.requests, in.pool), logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info().Str("addr", httpServer.Addr).Msg("http server listening")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				if err := sampler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Info().Msg("shutdown requested")
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}
