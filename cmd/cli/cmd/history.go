// Package cmd - calculation history
package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"embroidery-pricing/adapters/storage"
	"embroidery-pricing/internal/config"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded calculations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded calculations, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded calculation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyLatestCmd = &cobra.Command{
	Use:   "latest <tenant> <kind>",
	Short: "Show the newest calculation of one kind for a tenant",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryLatest,
}

var historyCompareCmd = &cobra.Command{
	Use:   "compare <old-id> <new-id>",
	Short: "Compare the totals of two calculations",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryCompare,
}

var (
	historyTenant string
	historyKind   string
	historySince  time.Duration
	historyLimit  int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyLatestCmd)
	historyCmd.AddCommand(historyCompareCmd)

	historyListCmd.Flags().StringVarP(&historyTenant, "tenant", "t", "", "only this tenant")
	historyListCmd.Flags().StringVarP(&historyKind, "kind", "k", "", "only this kind (shipping, rates, pricing, digitizing)")
	historyListCmd.Flags().DurationVar(&historySince, "since", 0, "only calculations newer than this, e.g. 24h")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of calculations")
}

func openStore() (storage.Store, error) {
	cfg := config.Get().Storage
	store, err := storage.StoreFactory(storage.Backend(cfg.Backend), cfg.Path)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("calculation history is disabled (storage.backend = none)")
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	filter := &storage.ListFilter{
		TenantID: historyTenant,
		Kind:     historyKind,
		Limit:    historyLimit,
	}
	if historySince > 0 {
		filter.Since = time.Now().Add(-historySince)
	}

	records, err := store.List(cmd.Context(), filter)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), records, func(w io.Writer) { renderRecords(w, records) })
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return renderRecord(cmd, rec)
}

func runHistoryLatest(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Latest(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return renderRecord(cmd, rec)
}

func renderRecord(cmd *cobra.Command, rec *storage.Record) error {
	return render(cmd.OutOrStdout(), rec, func(w io.Writer) {
		renderRecords(w, []*storage.Record{rec})
		fmt.Fprintf(w, "\nRequest:\t%s\n", rec.Request)
		fmt.Fprintf(w, "Result:\t%s\n", rec.Result)
	})
}

func runHistoryCompare(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cmp, err := store.Compare(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), cmp, func(w io.Writer) {
		fmt.Fprintf(w, "Old total:\t%s\n", cmp.OldTotal)
		fmt.Fprintf(w, "New total:\t%s\n", cmp.NewTotal)
		fmt.Fprintf(w, "Delta:\t%s (%s%%)\n", cmp.Delta, cmp.DeltaPercent)
		fmt.Fprintf(w, "Same request:\t%t\n", cmp.SameRequest)
	})
}
