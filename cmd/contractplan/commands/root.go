package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"contract-plan-manager/internal/config"
	"contract-plan-manager/internal/infra/logging"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

var (
	cfgPath string
	devMode bool

	cfg    *config.Config
	logger *zerolog.Logger
)

func Execute() error {
	// prices go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	root := &cobra.Command{
		Use:           "contractplan",
		Short:         "Service contracts, payment plans and plan change approvals",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadConfig(cfgPath, devMode)
			if err != nil {
				return err
			}
			cfg = c
			logger = logging.New(cfg.Log, cfg.Runtime.Dev)
			if cfg.Runtime.Dev {
				logger.Info().Msg("[DEV MODE] enabled")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	root.PersistentFlags().BoolVar(&devMode, "dev", false, "console logging and verbose output")

	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error().Err(err).Msg("command failed")
		} else {
			root.PrintErrln("Error:", err)
		}
		return err
	}
	return nil
}

