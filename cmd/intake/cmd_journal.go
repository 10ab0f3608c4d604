package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"virtualcare/internal/journal"

	"github.com/spf13/cobra"
)

var journalLimit int

// journalCmd lists journaled submission attempts
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent submission attempts",
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "Number of attempts to show")
}

func runJournal(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if cfg.Journal.Path == "" {
		fmt.Fprintln(out, "Journal is disabled (journal.path is empty).")
		return nil
	}
	if _, err := os.Stat(cfg.Journal.Path); os.IsNotExist(err) {
		fmt.Fprintln(out, "No submissions recorded yet.")
		return nil
	}

	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), journalLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No submissions recorded yet.")
		return nil
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %-11s %-28s files=%d uploaded=%d",
			e.At.Local().Format("2006-01-02 15:04:05"), e.Outcome, e.Email, e.FileCount, e.Uploaded)
		if e.Error != "" {
			line += "  " + e.Error
		}
		fmt.Fprintln(out, line)
	}

	counts, err := store.Counts(cmd.Context())
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	fmt.Fprintf(out, "\nTotals: %s\n", strings.Join(parts, " "))
	return nil
}
