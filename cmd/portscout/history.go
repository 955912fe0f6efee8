package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/velemoonkon/portscout/pkg/config"
	"github.com/velemoonkon/portscout/pkg/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [target]",
	Short: "List recorded scans",
	Long: `List scans recorded with --history, newest first.

The database lives in $XDG_DATA_HOME/portscout/portscout.db.`,
	Args:          cobra.MaximumNArgs(1),
	RunE:          runHistory,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	closeLog, err := initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	var target string
	if len(args) == 1 {
		target = args[0]
	}

	store, err := history.Open(config.XDGDataDir())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := store.Recent(ctx, target, historyLimit)
	if err != nil {
		return err
	}
	return renderHistory(os.Stdout, entries)
}

func renderHistory(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No recorded scans.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCANNED\tTARGET\tADDRESS\tTYPE\tOPEN\tPORTS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID,
			e.ScannedAt.Local().Format("2006-01-02 15:04:05"),
			e.Target,
			e.Address,
			e.ScanType,
			len(e.OpenPorts),
			joinPorts(e.OpenPorts),
		)
	}
	return tw.Flush()
}

func joinPorts(ports []int) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
