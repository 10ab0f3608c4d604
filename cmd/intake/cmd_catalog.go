package main

import (
	"fmt"
	"io"
	"strings"

	"virtualcare/internal/catalog"

	"github.com/spf13/cobra"
)

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

var lintWatch bool

// catalogCmd groups the catalog tools
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate question catalogs",
}

// catalogShowCmd prints the active catalog
var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the questions the wizard will ask",
	RunE:  runCatalogShow,
}

// catalogLintCmd validates a catalog file
var catalogLintCmd = &cobra.Command{
	Use:   "lint [path]",
	Short: "Validate a catalog file",
	Long: `Validates a catalog YAML file. Without a path the configured catalog
is checked. With --watch the file is re-checked every time it is saved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalogLint,
}

func init() {
	catalogLintCmd.Flags().BoolVarP(&lintWatch, "watch", "w", false, "Re-lint on every change")

	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogLintCmd)
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(cfg.Wizard.Catalog)
	if err != nil {
		return err
	}
	printCatalog(cmd.OutOrStdout(), cat)
	return nil
}

func printCatalog(w io.Writer, cat *catalog.Catalog) {
	email := cat.EmailQuestion()
	for _, q := range cat.Questions() {
		tag := string(q.Kind)
		if q.Validation == catalog.ValidationNumeric {
			tag += ", numeric"
		}
		if q.ID == email {
			tag += ", email"
		}
		fmt.Fprintf(w, "%d. %s [%s]\n", q.ID+1, q.Prompt, tag)
		for _, c := range q.Choices {
			fmt.Fprintf(w, "   - %s\n", c.Label)
		}
		if q.HelpText != "" {
			fmt.Fprintf(w, "   %s\n", q.HelpText)
		}
		if aux := q.AuxiliaryMarkdown(); aux != "" {
			for _, line := range strings.Split(aux, "\n") {
				fmt.Fprintf(w, "   | %s\n", line)
			}
		}
	}
}

func runCatalogLint(cmd *cobra.Command, args []string) error {
	path := cfg.Wizard.Catalog
	if len(args) == 1 {
		path = args[0]
	}
	out := cmd.OutOrStdout()

	cat, err := catalog.Load(path)
	report(out, path, cat, err)
	if !lintWatch {
		return err
	}
	if path == "" {
		return fmt.Errorf("--watch needs a catalog file")
	}

	w, err := catalog.NewWatcher(path)
	if err != nil {
		return err
	}
	if err := w.Start(cmd.Context()); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintln(out, "Watching for changes, Ctrl+C to stop.")
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case res, ok := <-w.Results():
			if !ok {
				return nil
			}
			report(out, res.Path, res.Catalog, res.Err)
		}
	}
}

func report(w io.Writer, path string, cat *catalog.Catalog, err error) {
	name := path
	if name == "" {
		name = "(embedded)"
	}
	if err != nil {
		fmt.Fprintf(w, "✗ %s: %v\n", name, err)
		return
	}
	fmt.Fprintf(w, "✓ %s: %d questions\n", name, cat.Len())
}
