// Package logging opens the per-run structured log.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const fileTimestamp = "20060102_150405"

// Session is the logging context of one run. Logger writes to the console
// and, when a log directory is configured, to a run-specific file.
type Session struct {
	Logger zerolog.Logger

	mu      sync.Mutex
	file    *os.File
	console io.Closer
	path    string
}

// Open starts a session named after the run. A log file that cannot be
// created degrades the session to console output with a warning.
func Open(cfg Config, run string) *Session {
	return open(cfg, run, time.Now())
}

func open(cfg Config, run string, now time.Time) *Session {
	s := &Session{}
	console, closer := consoleWriter(cfg)
	s.console = closer

	writers := []io.Writer{console}
	var fileErr error
	if cfg.Dir != "" {
		s.file, fileErr = createLogFile(cfg.Dir, run, now)
		if fileErr == nil {
			s.path = s.file.Name()
			writers = append(writers, s.file)
		}
	}

	level := ParseLevel(cfg.Level)
	s.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("run", run).
		Logger()

	if fileErr != nil {
		s.Logger.Warn().Err(fileErr).Str("dir", cfg.Dir).Msg("log file unavailable, logging to console only")
	} else if s.path != "" {
		s.Logger.Debug().Str("path", s.path).Msg("log file opened")
	}
	return s
}

func createLogFile(dir, run string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := fmt.Sprintf("bibsync_%s_%s.log", run, now.Format(fileTimestamp))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Path is the run's log file, or empty when logging to the console only.
func (s *Session) Path() string {
	return s.path
}

// Flush syncs the log file to disk.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		_ = s.file.Sync()
	}
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.file != nil {
		_ = s.file.Sync()
		err = s.file.Close()
		s.file = nil
	}
	if s.console != nil {
		_ = s.console.Close()
		s.console = nil
	}
	return err
}
