package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/bibsync/internal/cli"
	"github.com/mrlokans/bibsync/internal/config"
	"github.com/mrlokans/bibsync/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every subcommand in internal/cli.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "serve":
		if err := entrypoint.Run(config.NewConfig(), Version); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	case "convert":
		cmd = cli.NewConvertCommand()
	case "import":
		cmd = cli.NewImportCommand()
	case "sync":
		cmd = cli.NewSyncCommand()
	case "clear":
		cmd = cli.NewClearCommand()
	case "schedule":
		cmd = cli.NewScheduleCommand()
	case "history":
		cmd = cli.NewHistoryCommand()
	case "version":
		fmt.Printf("bibsync %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  convert    Convert an archival export into an exchange-format file\n")
	fmt.Fprintf(os.Stderr, "  import     Upload an exchange-format file to the group library\n")
	fmt.Fprintf(os.Stderr, "  sync       Convert and upload in one run\n")
	fmt.Fprintf(os.Stderr, "  clear      Delete every item in the group library\n")
	fmt.Fprintf(os.Stderr, "  schedule   Import a file on a cron schedule\n")
	fmt.Fprintf(os.Stderr, "  serve      Start the HTTP API\n")
	fmt.Fprintf(os.Stderr, "  history    Show recent runs\n")
	fmt.Fprintf(os.Stderr, "  version    Print version information\n")
	fmt.Fprintf(os.Stderr, "\nConfiguration is read from the environment and an optional .env file.\n")
	fmt.Fprintf(os.Stderr, "Run '%s <command> -h' for command options.\n", os.Args[0])
}
