package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vendorpay/vendorpay/internal/scheduler"
	"github.com/vendorpay/vendorpay/internal/server"
)

func newServeCommand(rt runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the daily sweep and the spreadsheet mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), rt)
		},
	}
}

func runServe(ctx context.Context, rt runtime) error {
	a, err := rt.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.Logger

	srv, err := server.New(a, logger)
	if err != nil {
		return err
	}

	bg, stop := context.WithCancel(ctx)
	defer stop()
	go a.Mirror.Run(bg)
	a.Mirror.Notify()
	go scheduler.New(a.Payments, a.Config.SweepInterval, logger, a.Mirror.Notify).Run(bg)

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
		return err
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	// last write so the workbook reflects the final state
	if err := a.Mirror.Sync(shutdownCtx); err != nil {
		logger.Warn("final mirror sync", "error", err)
	}
	logger.Info("server exited cleanly")
	return nil
}
