package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Auditorium/internal/config"
	"Auditorium/internal/infrastructure/github"
	"Auditorium/internal/infrastructure/language"
	"Auditorium/internal/infrastructure/llm"
	"Auditorium/internal/infrastructure/ml"
	"Auditorium/internal/infrastructure/reference"
	"Auditorium/internal/infrastructure/storage"
	"Auditorium/internal/infrastructure/web"
	"Auditorium/internal/logging"
	"Auditorium/internal/ports"
	"Auditorium/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	log      *slog.Logger
	models   *ml.Store
	analyzer *usecase.Analyzer
	closers  []func() error
}

// New builds every adapter selected by cfg. cfg must already be validated.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, log: baseLogger}

	fetcher, err := newFetcher(ctx, cfg.Model)
	if err != nil {
		return nil, err
	}
	a.models = ml.NewStore(fetcher, cfg.Model.FileID, cfg.Model.CachePath, cfg.Model.Timeout, baseLogger.With("component", "model"))

	store, err := a.newVersionedStore(ctx)
	if err != nil {
		return nil, err
	}
	logbook := usecase.NewLogbook(store, usecase.LogbookConfig{
		Path:    logPath(cfg.Log),
		Branch:  cfg.Log.Branch,
		Timeout: cfg.Log.Timeout,
		Retries: cfg.Log.ConflictRetries,
	}, baseLogger.With("component", "logbook"))

	generator, err := newGenerator(ctx, cfg.Advisor)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	advisor := usecase.NewAdvisor(generator, cfg.Advisor.Timeout, cfg.Advisor.Publication, baseLogger.With("component", "advisor"))

	var detector ports.LanguageDetector
	if cfg.Language.IsEnabled() {
		d, err := language.NewDetector(cfg.Language.Languages)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("language detector: %w", err)
		}
		detector = d
	}

	var references ports.ReferenceSource
	if cfg.Reference.DatasetPath != "" {
		references = reference.NewDataset(cfg.Reference.DatasetPath, cfg.Reference.MinScore, baseLogger.With("component", "reference"))
	}

	a.analyzer = usecase.NewAnalyzer(usecase.AnalyzerDeps{
		Models:           a.models,
		Logbook:          logbook,
		Advisor:          advisor,
		References:       references,
		Detector:         detector,
		Location:         cfg.Server.Location(),
		Logger:           baseLogger.With("component", "analyzer"),
		ReferenceLimit:   cfg.Reference.Limit,
		ExpectedLanguage: cfg.Language.Expected,
	})

	return a, nil
}

// Analyzer exposes the use case for one-shot CLI runs.
func (a *Application) Analyzer() *usecase.Analyzer {
	return a.analyzer
}

// Run serves the web surface until ctx is canceled. The model starts loading
// in the background so the first request does not pay for the download.
func (a *Application) Run(ctx context.Context) error {
	handler, err := web.NewHandler(a.analyzer, a.cfg.Server.Location(), a.log.With("component", "web"))
	if err != nil {
		return err
	}

	go func() {
		if _, err := a.models.Model(ctx); err != nil {
			a.log.Error("model unavailable, predictions disabled until restart", "error", err)
		}
	}()

	server := web.NewServer(a.cfg.Server.Addr, handler, a.cfg.Server.ShutdownTimeout, a.log.With("component", "http"))
	return server.Run(ctx)
}

// Close releases local resources such as the SQLite handle.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) newVersionedStore(ctx context.Context) (ports.VersionedStore, error) {
	switch a.cfg.Log.Backend {
	case config.BackendSQLite:
		store, err := storage.OpenSQLiteStore(a.cfg.Log.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open log database: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.BackendGitHub:
		store, err := github.NewStore(ctx, a.cfg.Log.Token, a.cfg.Log.Repository)
		if err != nil {
			return nil, fmt.Errorf("github log store: %w", err)
		}
		if a.cfg.Log.BaseURL != "" {
			return store.WithBaseURL(a.cfg.Log.BaseURL)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown log backend %q", a.cfg.Log.Backend)
}

func newFetcher(ctx context.Context, cfg config.ModelConfig) (ports.BlobFetcher, error) {
	if cfg.DriveAPIKey != "" {
		f, err := ml.NewDriveAPIFetcher(ctx, cfg.DriveAPIKey)
		if err != nil {
			return nil, fmt.Errorf("model fetcher: %w", err)
		}
		return f, nil
	}
	return ml.NewDriveFetcher(cfg.DownloadURL, cfg.Timeout, cfg.Progress), nil
}

func newGenerator(ctx context.Context, cfg config.AdvisorConfig) (ports.TextGenerator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return llm.NewChatGPTClient(cfg), nil
	case config.ProviderGemini:
		g, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("advisor: %w", err)
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown advisor provider %q", cfg.Provider)
}

// logPath keeps the SQLite backend usable without a GitHub file path.
func logPath(cfg config.LogConfig) string {
	if cfg.Path == "" {
		return "titles.txt"
	}
	return cfg.Path
}
