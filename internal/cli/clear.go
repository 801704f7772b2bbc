package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mrlokans/bibsync/internal/config"
	"github.com/mrlokans/bibsync/internal/entrypoint"
)

// ClearCommand deletes every item of the group library.
type ClearCommand struct {
	Yes     bool
	Verbose bool

	cfg *config.Config
	in  io.Reader
}

func NewClearCommand() *ClearCommand {
	return &ClearCommand{in: os.Stdin}
}

func (cmd *ClearCommand) ParseFlags(args []string) error {
	cmd.cfg = config.NewConfig()

	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.BoolVar(&cmd.Yes, "yes", false, "Do not ask for confirmation")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s clear [-yes]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Delete every item in the group library. This cannot be undone.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ClearCommand) Run() error {
	fmt.Println("Clear Group Library")
	fmt.Println("===================")

	if err := cmd.cfg.Validate(); err != nil {
		return err
	}
	if !cmd.Yes && !confirm(cmd.in, fmt.Sprintf("Delete ALL items in group %s? Type 'yes' to continue: ", cmd.cfg.Zotero.GroupID)) {
		fmt.Println("Aborted.")
		return nil
	}

	session := openSession(cmd.cfg, "clear", cmd.Verbose)
	defer session.Close()

	app, err := newApp(cmd.cfg, session, entrypoint.AppOptions{Remote: true})
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := app.Pipeline.Clear(ctx)
	session.Flush()
	printClearSummary(result)
	return err
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}
