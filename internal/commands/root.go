package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vendorpay/vendorpay/internal/app"
	"github.com/vendorpay/vendorpay/internal/config"
	"github.com/vendorpay/vendorpay/internal/logging"
)

// runtime is how commands obtain configuration and the wired application.
type runtime struct {
	loadConfig func() (config.Config, error)
	build      func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app.App, error)
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(runtime{loadConfig: config.Load, build: app.Build})
}

func newRootCommand(rt runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vendorpay",
		Short: "Vendor payments against two funding accounts",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(rt),
		newSweepCommand(rt),
		newRetryCommand(rt),
		newVendorsCommand(rt),
		newAccountsCommand(rt),
		newHashSecretCommand(),
	)

	return rootCmd
}

// open loads config and builds the app. The caller must Close it.
func (rt runtime) open(ctx context.Context) (*app.App, error) {
	cfg, err := rt.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	return rt.build(ctx, cfg, logger)
}
