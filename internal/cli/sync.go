package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/bibsync/internal/config"
	"github.com/mrlokans/bibsync/internal/entrypoint"
	"github.com/mrlokans/bibsync/internal/textfile"
)

// SyncCommand converts an archival export and imports it in one run.
type SyncCommand struct {
	FilePath    string
	BatchSize   int
	DryRun      bool
	SkipDedupe  bool
	WithinBatch bool
	Verbose     bool

	cfg *config.Config
}

func NewSyncCommand() *SyncCommand {
	return &SyncCommand{}
}

func (cmd *SyncCommand) ParseFlags(args []string) error {
	cmd.cfg = config.NewConfig()

	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	registerImportFlags(fs, &cmd.FilePath, &cmd.BatchSize, &cmd.DryRun, &cmd.SkipDedupe, &cmd.WithinBatch, &cmd.Verbose, cmd.cfg)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Convert an archival export and upload the result to the group library.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *SyncCommand) Run() error {
	fmt.Println("Archival Export Sync")
	fmt.Println("====================")
	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
	}

	session := openSession(cmd.cfg, "sync", cmd.Verbose)
	defer session.Close()

	content, enc, err := textfile.ReadFile(cmd.FilePath)
	if err != nil {
		return err
	}
	fmt.Printf("File: %s (%s)\n", cmd.FilePath, enc)

	app, err := newApp(cmd.cfg, session, entrypoint.AppOptions{
		Remote:            true,
		DryRun:            cmd.DryRun,
		SkipDedupe:        cmd.SkipDedupe,
		UploadBatchSize:   cmd.BatchSize,
		DedupeWithinBatch: cmd.WithinBatch,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	converted, imported, err := app.Pipeline.Sync(ctx, content, cmd.FilePath)
	session.Flush()

	printConvertSummary(converted, "")
	printImportSummary(imported, cmd.DryRun)
	if err != nil {
		return err
	}
	if uploadFailed(imported) {
		return fmt.Errorf("%d items failed to upload", imported.Upload.Failed+imported.Upload.NotAttempted)
	}
	return nil
}
