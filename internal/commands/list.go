package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newVendorsCommand(rt runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "vendors",
		Short: "List vendors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tACCOUNT\tAMOUNT\tNEXT\tPENDING")
			for _, v := range a.Vendors.List() {
				next := "N/A"
				if v.NextPaymentDate != nil {
					next = v.NextPaymentDate.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
					v.ID, v.Name, v.PaymentType, v.Account, v.BaseAmount.StringFixed(2), next, v.PendingPayment)
			}
			return w.Flush()
		},
	}
}

func newAccountsCommand(rt runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Show account balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tBALANCE")
			for _, acct := range a.Ledger.Accounts() {
				fmt.Fprintf(w, "%s\t%s\n", acct.Name, acct.Balance.StringFixed(2))
			}
			return w.Flush()
		},
	}
}
