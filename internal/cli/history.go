package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mrlokans/bibsync/internal/config"
	"github.com/mrlokans/bibsync/internal/database"
	"github.com/mrlokans/bibsync/internal/database/runs"
	"github.com/mrlokans/bibsync/internal/entities"
)

// HistoryCommand lists recent runs from the run-history database.
type HistoryCommand struct {
	DatabasePath string
	Limit        int
	Command      string
	PruneDays    int

	cfg *config.Config
}

func NewHistoryCommand() *HistoryCommand {
	return &HistoryCommand{}
}

func (cmd *HistoryCommand) ParseFlags(args []string) error {
	cmd.cfg = config.NewConfig()

	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the run-history database")
	fs.IntVar(&cmd.Limit, "limit", 20, "Number of runs to show")
	fs.StringVar(&cmd.Command, "command", "", "Only show runs of this command (convert, import, clear)")
	fs.IntVar(&cmd.PruneDays, "prune-days", 0, "Delete runs older than this many days before listing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s history [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Show recent runs. Requires DATABASE_PATH or -db.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.DatabasePath == "" {
		return fmt.Errorf("run history is disabled: set DATABASE_PATH or pass -db")
	}
	if cmd.Limit <= 0 {
		return fmt.Errorf("-limit must be positive")
	}
	return nil
}

func (cmd *HistoryCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := runs.NewRepository(db.DB)

	if cmd.PruneDays > 0 {
		removed, err := repo.DeleteOlderThan(time.Now().AddDate(0, 0, -cmd.PruneDays))
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		fmt.Printf("Pruned %d runs older than %d days\n", removed, cmd.PruneDays)
	}

	var list []entities.SyncRun
	if cmd.Command != "" {
		list, err = repo.RecentByCommand(entities.SyncCommand(cmd.Command), cmd.Limit)
	} else {
		list, err = repo.Recent(cmd.Limit)
	}
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	printRuns(os.Stdout, list)

	totals, err := repo.Totals()
	if err != nil {
		return fmt.Errorf("failed to load totals: %w", err)
	}
	fmt.Println("\n=== Totals ===")
	fmt.Printf("Runs: %d  Uploaded: %d  Failed: %d  Deleted: %d\n", totals.Runs, totals.Uploaded, totals.Failed, totals.Deleted)
	return nil
}

func printRuns(out io.Writer, list []entities.SyncRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tCOMMAND\tSTATUS\tRECORDS\tDUPES\tUPLOADED\tFAILED\tDELETED\tSOURCE")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Command, r.Status,
			max(r.Records, r.Candidates), r.Duplicates, r.Uploaded, r.Failed, r.Deleted,
			r.SourceFile)
	}
	w.Flush()
}
