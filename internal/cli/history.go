package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/crave-grocer/api/internal/ledger"
	"github.com/crave-grocer/api/internal/service"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("all", false, "Dump the whole ledger as JSON")
}

// ─── history ────────────────────────────────────────────────────────────────

var historyCmd = &cobra.Command{
	Use:   "history [CUSTOMER]",
	Short: "Show a customer's orders from the ledger",
	Long: `Print one customer's order history, matched case-insensitively, or
the whole ledger document with --all.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		return fmt.Errorf("customer name required: grocer history NAME, or grocer history --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	store, err := ledger.Open(ctx, ledger.Options{
		Backend:     cfg.Ledger.Backend,
		Path:        cfg.Ledger.Path,
		DatabaseURL: cfg.Ledger.DatabaseURL,
	})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	if all {
		return ledger.Export(ctx, store, out)
	}

	entry, ok, err := store.Read(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "No orders for %s\n", ledger.DisplayName(args[0]))
		return nil
	}

	fmt.Fprintf(out, "%s: %d orders, %s spent\n\n", entry.Customer, len(entry.Orders), service.FormatMoney(entry.TotalSpent()))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tDATE\tITEMS\tTOTAL")
	for _, o := range entry.Orders {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", o.OrderID, o.Timestamp.Format("2006-01-02 15:04"), len(o.Items), service.FormatMoney(o.Total))
	}
	return tw.Flush()
}
