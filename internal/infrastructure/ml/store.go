package ml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Auditorium/internal/domain"
	"Auditorium/internal/ports"
)

// Store acquires the classifier once per process: local cache first, then the
// remote blob. A failed load is remembered; a restart is the only refresh.
type Store struct {
	fetcher   ports.BlobFetcher
	fileID    string
	cachePath string
	timeout   time.Duration
	logger    *slog.Logger

	once  sync.Once
	model *LinearModel
	err   error
}

var _ ports.ModelProvider = (*Store)(nil)

// NewStore wires the fetcher with the artifact identity.
func NewStore(fetcher ports.BlobFetcher, fileID, cachePath string, timeout time.Duration, log *slog.Logger) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Store{
		fetcher:   fetcher,
		fileID:    fileID,
		cachePath: cachePath,
		timeout:   timeout,
		logger:    log,
	}
}

// Model returns the cached classifier or an error wrapping domain.ErrModelUnavailable.
func (s *Store) Model(ctx context.Context) (ports.Classifier, error) {
	s.once.Do(func() {
		// The first caller's cancellation must not poison the process-wide cache.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		s.model, s.err = s.load(loadCtx)
		if s.err != nil {
			s.logError("model unavailable", "error", s.err)
			return
		}
		s.logInfo("model loaded", "name", s.model.Name(), "classes", s.model.Classes())
	})

	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}

func (s *Store) load(ctx context.Context) (*LinearModel, error) {
	if _, err := os.Stat(s.cachePath); errors.Is(err, fs.ErrNotExist) {
		if err := s.download(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("%w: stat cache: %w", domain.ErrModelUnavailable, err)
	}

	f, err := os.Open(s.cachePath)
	if err != nil {
		return nil, fmt.Errorf("%w: open cache: %w", domain.ErrModelUnavailable, err)
	}
	defer f.Close()

	model, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	return model, nil
}

func (s *Store) download(ctx context.Context) error {
	if s.fetcher == nil {
		return errors.New("no model fetcher configured")
	}

	dir := filepath.Dir(s.cachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	s.logInfo("downloading model", "file_id", s.fileID, "cache", s.cachePath)
	if err := s.fetcher.Fetch(ctx, s.fileID, tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fetch %s: %w", s.fileID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.cachePath); err != nil {
		return fmt.Errorf("move model into cache: %w", err)
	}
	return nil
}

func (s *Store) logInfo(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Store) logError(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, args...)
	}
}
