// Package cli implements the bibsync subcommands.
package cli

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mrlokans/bibsync/internal/config"
	"github.com/mrlokans/bibsync/internal/entrypoint"
	"github.com/mrlokans/bibsync/internal/importers"
	"github.com/mrlokans/bibsync/internal/logging"
	"github.com/mrlokans/bibsync/internal/midos"
)

// outputTimeLayout names converted files, e.g. midos_to_ris_20240501_153000.ris
const outputTimeLayout = "20060102_150405"

func openSession(cfg *config.Config, run string, verbose bool) *logging.Session {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	session := logging.Open(logging.Config{
		Level:   level,
		Format:  cfg.Logging.Format,
		Dir:     cfg.Logging.Dir,
		NoColor: os.Getenv("NO_COLOR") != "",
	}, run)
	if path := session.Path(); path != "" {
		fmt.Printf("Log file: %s\n", path)
	}
	return session
}

// newApp wires the shared components; every finished batch flushes the log file.
func newApp(cfg *config.Config, session *logging.Session, opts entrypoint.AppOptions) (*entrypoint.App, error) {
	opts.Checkpoint = func(int) { session.Flush() }
	return entrypoint.NewApp(cfg, session.Logger, opts)
}

func outputFileName(now time.Time) string {
	return fmt.Sprintf("midos_to_ris_%s.ris", now.Format(outputTimeLayout))
}

func printConvertSummary(result *importers.ConvertResult, outputPath string) {
	if result == nil {
		return
	}
	fmt.Println("\n=== Conversion Summary ===")
	fmt.Printf("Records converted: %d\n", result.Records)

	types := make([]midos.DocType, 0, len(result.Types))
	for t := range result.Types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		fmt.Printf("  %-5s %d\n", t, result.Types[t])
	}
	if outputPath != "" {
		fmt.Printf("Output: %s\n", outputPath)
	}
}

func printImportSummary(result *importers.ImportResult, dryRun bool) {
	if result == nil {
		return
	}
	fmt.Println("\n=== Summary ===")
	fmt.Printf("Candidates:  %d\n", result.Candidates)
	fmt.Printf("Duplicates:  %d\n", len(result.Duplicates))

	if dryRun {
		fmt.Printf("Would upload: %d\n", len(result.Unique))
	}
	if up := result.Upload; up != nil {
		fmt.Printf("Uploaded:    %d (unchanged %d)\n", up.Uploaded, up.Unchanged)
		fmt.Printf("Failed:      %d\n", up.Failed)
		if up.NotAttempted > 0 {
			fmt.Printf("Not attempted: %d\n", up.NotAttempted)
		}
		if up.Refreshes > 0 {
			fmt.Printf("Version refreshes: %d\n", up.Refreshes)
		}
		if up.Version != "" {
			fmt.Printf("Library version: %s\n", up.Version)
		}
	}
	if result.ReportPath != "" {
		fmt.Printf("Report: %s\n", result.ReportPath)
	}
}

func printClearSummary(result *importers.ClearResult) {
	if result == nil || result.Clear == nil {
		return
	}
	c := result.Clear
	fmt.Println("\n=== Summary ===")
	fmt.Printf("Items found:   %d\n", c.Found)
	fmt.Printf("Items deleted: %d\n", c.Deleted)
	if len(c.Remaining) > 0 {
		fmt.Printf("Items remaining: %d\n", len(c.Remaining))
	}
	if result.ReportPath != "" {
		fmt.Printf("Report: %s\n", result.ReportPath)
	}
}

// uploadFailed reports whether an upload ended with items that did not make it.
func uploadFailed(result *importers.ImportResult) bool {
	return result != nil && result.Upload != nil && (result.Upload.Failed > 0 || result.Upload.NotAttempted > 0)
}
