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
	"github.com/mrlokans/bibsync/internal/scheduler"
)

// ScheduleCommand runs a recurring import until interrupted.
type ScheduleCommand struct {
	FilePath string
	Cron     string
	RunNow   bool
	Verbose  bool

	cfg *config.Config
}

func NewScheduleCommand() *ScheduleCommand {
	return &ScheduleCommand{}
}

func (cmd *ScheduleCommand) ParseFlags(args []string) error {
	cmd.cfg = config.NewConfig()

	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	fs.StringVar(&cmd.FilePath, "file", cmd.cfg.Schedule.File, "Archival export (.wrk/.txt) or exchange file (.ris) to import")
	fs.StringVar(&cmd.Cron, "cron", cmd.cfg.Schedule.Cron, "Five-field cron schedule")
	fs.BoolVar(&cmd.RunNow, "now", false, "Run once immediately after starting")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s schedule -file <path> [-cron \"0 3 * * *\"]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Re-read the file and import it on a schedule. Items already in the\n")
		fmt.Fprintf(os.Stderr, "library are skipped, so repeated runs only upload new records.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	if err := scheduler.ValidateSchedule(cmd.Cron); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", cmd.Cron, err)
	}
	return nil
}

func (cmd *ScheduleCommand) Run() error {
	fmt.Println("Scheduled Import")
	fmt.Println("================")

	session := openSession(cmd.cfg, "schedule", cmd.Verbose)
	defer session.Close()

	app, err := newApp(cmd.cfg, session, entrypoint.AppOptions{Remote: true})
	if err != nil {
		return err
	}
	defer app.Close()

	job := scheduler.FileJob(app.Pipeline, cmd.FilePath, session.Logger)
	flushing := func(ctx context.Context) error {
		defer session.Flush()
		return job(ctx)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewSyncScheduler(cmd.Cron, flushing, session.Logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("File: %s\n", cmd.FilePath)
	fmt.Printf("Schedule: %s (%s)\n", cmd.Cron, scheduler.Describe(cmd.Cron))
	if next := sched.NextRunTime(); next != nil {
		fmt.Printf("Next run: %s\n", next.Format("2006-01-02 15:04"))
	}
	fmt.Println("Press Ctrl+C to stop.")

	if cmd.RunNow {
		_ = sched.RunNow()
	}

	<-ctx.Done()
	sched.Stop()
	fmt.Println("\nScheduler stopped.")
	return nil
}
