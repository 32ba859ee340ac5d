package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"Auditorium/internal/domain"
	"Auditorium/internal/ports"
)

// AppendLine adds one line to the log text. Trailing newlines of the prior
// content are dropped, so repeated appends never leave blank lines.
func AppendLine(current, line string) string {
	prior := strings.TrimRight(current, "\r\n")
	if prior == "" {
		return line + "\n"
	}
	return prior + "\n" + line + "\n"
}

// LogbookConfig locates the log file and bounds each write.
type LogbookConfig struct {
	Path    string
	Branch  string
	Timeout time.Duration
	// Retries is the number of extra attempts after a version conflict. Zero means fail and drop.
	Retries int
}

// Logbook appends prediction records to a versioned file.
type Logbook struct {
	store ports.VersionedStore
	cfg   LogbookConfig
	log   *slog.Logger
}

// NewLogbook wires a store. A nil logger disables logging.
func NewLogbook(store ports.VersionedStore, cfg LogbookConfig, log *slog.Logger) *Logbook {
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Logbook{store: store, cfg: cfg, log: log}
}

// Commit writes newText. An empty priorVersion creates the file; otherwise
// the write only succeeds if the file is still at priorVersion.
func (l *Logbook) Commit(ctx context.Context, message, newText, priorVersion string) error {
	var err error
	if priorVersion == "" {
		err = l.store.Create(ctx, l.cfg.Path, l.cfg.Branch, message, newText)
	} else {
		err = l.store.Update(ctx, l.cfg.Path, l.cfg.Branch, message, newText, priorVersion)
	}
	if err != nil {
		return fmt.Errorf("commit %s: %w", l.cfg.Path, err)
	}
	return nil
}

// Record appends one entry: read, append, conditional commit.
func (l *Logbook) Record(ctx context.Context, entry domain.LogEntry) error {
	if l == nil || l.store == nil {
		return errors.New("logbook not configured")
	}

	message := "App Input: " + string(entry.Class)
	line := entry.Line()

	var err error
	for attempt := 0; attempt <= l.cfg.Retries; attempt++ {
		err = l.attempt(ctx, message, line)
		if err == nil {
			l.debug("log entry recorded", "path", l.cfg.Path, "class", entry.Class, "attempt", attempt+1)
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) || ctx.Err() != nil {
			break
		}
		l.debug("log write lost a race, re-reading", "path", l.cfg.Path, "attempt", attempt+1)
	}
	return err
}

func (l *Logbook) attempt(ctx context.Context, message, line string) error {
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	current, version, err := l.store.Read(ctx, l.cfg.Path, l.cfg.Branch)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		current, version = "", ""
	case err != nil:
		return fmt.Errorf("read %s: %w", l.cfg.Path, err)
	}

	return l.Commit(ctx, message, AppendLine(current, line), version)
}

func (l *Logbook) debug(msg string, args ...interface{}) {
	if l.log == nil {
		return
	}
	l.log.Debug(msg, args...)
}
