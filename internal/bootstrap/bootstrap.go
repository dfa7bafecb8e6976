// Package bootstrap provides dependency initialization for the studio API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/supplierstudio/studio-api/internal/config"
	"github.com/supplierstudio/studio-api/internal/pipeline"
	"github.com/supplierstudio/studio-api/internal/poller"
	"github.com/supplierstudio/studio-api/internal/product"
	"github.com/supplierstudio/studio-api/internal/storage"
	"github.com/supplierstudio/studio-api/internal/veo"
	"github.com/supplierstudio/studio-api/internal/vision"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Repo   product.Repository
	Runner *pipeline.Runner

	closers []func()
}

// Close releases resources held by the dependency graph.
func (d *Dependencies) Close() {
	for _, fn := range d.closers {
		fn()
	}
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	// Initialize the record store
	repo, err := initRepository(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}
	deps.Repo = repo

	// Initialize blob storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the vision model
	model, err := initVisionModel(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}

	analyzer := vision.NewAnalyzer(model, logger,
		vision.WithMinWords(cfg.MinSceneWords),
		vision.WithMaxAttempts(cfg.MaxAnalyzeAttempts),
		vision.WithStrategy(vision.RetryStrategy(strings.ToLower(cfg.RetryStrategy))),
	)

	// Initialize the text-to-video client
	veoClient, err := veo.NewClient(cfg.VeoAccessToken, cfg.VeoProjectID,
		veo.WithLocation(cfg.VeoLocation),
		veo.WithModel(cfg.VeoModel),
		veo.WithStorageURI(cfg.VeoStorageURI),
	)
	if err != nil {
		return nil, fmt.Errorf("create veo client: %w", err)
	}

	engine := poller.NewEngine(veoClient, logger,
		poller.WithInterval(cfg.PollInterval),
		poller.WithBudget(cfg.PollBudget),
	)

	var runnerOpts []pipeline.RunnerOption
	if cfg.S3Enabled() {
		// Archive finished reels only when an S3 bucket is available.
		runnerOpts = append(runnerOpts, pipeline.WithReelArchiver(veo.NewDownloader()))
	}

	deps.Runner = pipeline.NewRunner(analyzer, model, veoClient, engine, repo, store, logger, runnerOpts...)

	return deps, nil
}

// initRepository selects the record store backend based on configuration.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (product.Repository, error) {
	if cfg.PostgresEnabled() {
		repo, err := product.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create postgres repository: %w", err)
		}
		deps.closers = append(deps.closers, repo.Close)
		logger.Info("postgres record store configured")
		return repo, nil
	}

	logger.Info("in-memory record store configured")
	return product.NewMemoryRepository(), nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}

// initVisionModel creates the configured vision model backend.
func initVisionModel(ctx context.Context, cfg *config.Config, deps *Dependencies) (vision.Model, error) {
	switch strings.ToLower(cfg.VisionProvider) {
	case "openai":
		model, err := vision.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.VisionModel)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return model, nil
	default:
		model, err := vision.NewGeminiModel(ctx, cfg.GoogleAPIKey, cfg.VisionModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}
		deps.closers = append(deps.closers, func() { _ = model.Close() })
		return model, nil
	}
}
