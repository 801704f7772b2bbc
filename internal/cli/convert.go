package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/bibsync/internal/config"
	"github.com/mrlokans/bibsync/internal/entrypoint"
	"github.com/mrlokans/bibsync/internal/textfile"
)

// ConvertCommand converts an archival export into an exchange-format file.
type ConvertCommand struct {
	FilePath      string
	OutputDir     string
	ObjectBaseURL string
	Verbose       bool

	cfg *config.Config
	now func() time.Time
}

func NewConvertCommand() *ConvertCommand {
	return &ConvertCommand{now: time.Now}
}

func (cmd *ConvertCommand) ParseFlags(args []string) error {
	cmd.cfg = config.NewConfig()

	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.StringVar(&cmd.FilePath, "file", "", "Path to the archival export file (required)")
	fs.StringVar(&cmd.OutputDir, "output", cmd.cfg.Conversion.OutputDir, "Directory for the converted file")
	fs.StringVar(&cmd.ObjectBaseURL, "object-url", cmd.cfg.Conversion.ObjectBaseURL, "Base URL for full-text object links")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s convert -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Convert an archival export into an exchange-format file named\n")
		fmt.Fprintf(os.Stderr, "midos_to_ris_YYYYMMDD_HHMMSS.ris in the output directory.\n\n")
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

func (cmd *ConvertCommand) Run() error {
	fmt.Println("Archival Export Conversion")
	fmt.Println("==========================")

	cfg := cmd.cfg
	cfg.Conversion.ObjectBaseURL = cmd.ObjectBaseURL

	session := openSession(cfg, "convert", cmd.Verbose)
	defer session.Close()

	content, enc, err := textfile.ReadFile(cmd.FilePath)
	if err != nil {
		return err
	}
	fmt.Printf("File: %s (%s)\n", cmd.FilePath, enc)

	app, err := newApp(cfg, session, entrypoint.AppOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	result := app.Pipeline.Convert(content, cmd.FilePath)
	if result.Records == 0 {
		return fmt.Errorf("no records found in %s", cmd.FilePath)
	}

	outputPath := filepath.Join(cmd.OutputDir, outputFileName(cmd.now()))
	if err := textfile.WriteFile(outputPath, result.Output); err != nil {
		return err
	}
	session.Flush()

	printConvertSummary(result, outputPath)
	return nil
}
