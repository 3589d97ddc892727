package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"shieldswap/internal/config"
	"shieldswap/internal/model"
	"shieldswap/internal/storage"
)

// runStatus only reads the journal, so it needs neither the node nor a store.
func runStatus(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Journal == "" {
		return fmt.Errorf("journal path is required")
	}

	history, err := storage.OperationHistory(cfg.Journal, args[0])
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("operation %s not found in %s", args[0], cfg.Journal)
	}
	return printHistory(cmd.OutOrStdout(), history)
}

func printHistory(w io.Writer, history []model.OperationRecord) error {
	last := history[len(history)-1]
	fmt.Fprintf(w, "operation %s: %s (%s)\n", last.OperationID, last.State, last.Kind)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tKIND\tSTATE\tTX\tERROR")
	for _, rec := range history {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", rec.RecordedAt, rec.Kind, rec.State, rec.TxHash, rec.Error)
	}
	return tw.Flush()
}
