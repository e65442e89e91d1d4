package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCommand(rt runtime) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Pay every scheduled vendor that is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := rt.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, sweepErr := a.Payments.ProcessScheduledPayments(ctx, force)
			_ = a.Mirror.Sync(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "processed: %d\nskipped: %d\npending: %d\n", res.Processed, res.Skipped, res.Pending)
			return sweepErr
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "ignore the processing day and next payment dates")
	return cmd
}

func newRetryCommand(rt runtime) *cobra.Command {
	var vendorID string

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Retry pending payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := rt.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			out := cmd.OutOrStdout()

			if vendorID != "" {
				ok, err := a.Payments.RetryPaymentForVendor(ctx, vendorID)
				if err != nil {
					return err
				}
				_ = a.Mirror.Sync(ctx)
				if ok {
					fmt.Fprintf(out, "payment for vendor %s completed\n", vendorID)
				} else {
					fmt.Fprintf(out, "no payment completed for vendor %s\n", vendorID)
				}
				return nil
			}

			res, err := a.Payments.RetryAllPending(ctx)
			_ = a.Mirror.Sync(ctx)
			fmt.Fprintf(out, "completed: %d\nremaining: %d\n", res.Completed, res.Remaining)
			return err
		},
	}

	cmd.Flags().StringVar(&vendorID, "vendor", "", "retry only the oldest pending payment of this vendor")
	return cmd
}
