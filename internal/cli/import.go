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

// ImportCommand uploads an exchange-format file to the group library.
type ImportCommand struct {
	FilePath    string
	BatchSize   int
	DryRun      bool
	SkipDedupe  bool
	WithinBatch bool
	Verbose     bool

	cfg *config.Config
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	cmd.cfg = config.NewConfig()

	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	registerImportFlags(fs, &cmd.FilePath, &cmd.BatchSize, &cmd.DryRun, &cmd.SkipDedupe, &cmd.WithinBatch, &cmd.Verbose, cmd.cfg)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Upload an exchange-format file to the group library. Items already in\n")
		fmt.Fprintf(os.Stderr, "the library are detected and skipped.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Preview without uploading:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file export.ris -dry-run\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func registerImportFlags(fs *flag.FlagSet, file *string, batch *int, dryRun, skipDedupe, withinBatch, verbose *bool, cfg *config.Config) {
	fs.StringVar(file, "file", "", "Path to the input file (required)")
	fs.IntVar(batch, "batch-size", cfg.Upload.BatchSize, "Items per upload request")
	fs.BoolVar(dryRun, "dry-run", false, "Detect duplicates but do not upload")
	fs.BoolVar(skipDedupe, "skip-dedupe", false, "Upload without checking the library for duplicates")
	fs.BoolVar(withinBatch, "dedupe-within-batch", cfg.Upload.DedupeWithinBatch, "Also skip duplicates inside the input file")
	fs.BoolVar(verbose, "verbose", false, "Enable debug logging")
}

func (cmd *ImportCommand) Run() error {
	fmt.Println("Library Import")
	fmt.Println("==============")
	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
	}

	session := openSession(cmd.cfg, "import", cmd.Verbose)
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
	fmt.Printf("Group: %s\n", cmd.cfg.Zotero.GroupID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := app.Pipeline.Import(ctx, content, cmd.FilePath)
	session.Flush()
	printImportSummary(result, cmd.DryRun)
	if err != nil {
		return err
	}
	if uploadFailed(result) {
		return fmt.Errorf("%d items failed to upload", result.Upload.Failed+result.Upload.NotAttempted)
	}
	return nil
}
