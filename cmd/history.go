package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the most recent tool calls from the invocation journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		journal, err := rt.factory.OpenJournal(cmd.Context())
		if err != nil {
			return err
		}
		if journal == nil {
			return errors.New("invocation journal is disabled (set journal.url)")
		}
		defer journal.Close()

		records, err := journal.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), records)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of calls to show")
	rootCmd.AddCommand(historyCmd)
}

func printHistory(w io.Writer, records []ports.InvocationRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTOOL\tSTATUS\tDURATION\tID\tERROR")
	for _, rec := range records {
		status := "ok"
		if rec.IsError {
			status = "error"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.StartedAt.Format(time.RFC3339), rec.Tool, status,
			rec.Duration.Round(time.Millisecond), rec.ID, firstLine(rec.Error))
	}
	return tw.Flush()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
