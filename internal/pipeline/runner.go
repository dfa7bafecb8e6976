// Package pipeline orchestrates the product generation workflow: marketing
// content and ad-reel generation run in the background after an upload is
// accepted, and record reads trigger opportunistic re-polls of unfinished
// video operations.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/supplierstudio/studio-api/internal/poller"
	"github.com/supplierstudio/studio-api/internal/product"
	"github.com/supplierstudio/studio-api/internal/storage"
	"github.com/supplierstudio/studio-api/internal/veo"
	"github.com/supplierstudio/studio-api/internal/vision"
)

// Runner coordinates the generation pipeline for product records.
//
// The two halves of the pipeline are independent: the content half writes
// generated copy and owns processing_status; the video half writes the
// operation name and later the reel URL. Their writes may interleave, but
// each touches only its own fields, so ordering between halves does not
// matter. Within the video half, the reel URL is only ever written after
// the operation name for the same operation.
type Runner struct {
	analyzer *vision.Analyzer
	model    vision.Model
	veo      veo.Client
	engine   *poller.Engine
	repo     product.Repository
	store    storage.Storage
	logger   *slog.Logger

	// archiver, when set, copies finished reels into blob storage so they
	// outlive the rendering service's retention window.
	archiver *veo.Downloader

	// inflight guards against concurrent poll sessions for one record.
	// Redundant GET-triggered re-polls are cheap to request and expensive
	// upstream, so only one session per record runs at a time.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithReelArchiver enables copying finished reels to blob storage.
func WithReelArchiver(d *veo.Downloader) RunnerOption {
	return func(r *Runner) {
		r.archiver = d
	}
}

// NewRunner creates a Runner.
func NewRunner(
	analyzer *vision.Analyzer,
	model vision.Model,
	veoClient veo.Client,
	engine *poller.Engine,
	repo product.Repository,
	store storage.Storage,
	logger *slog.Logger,
	opts ...RunnerOption,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		analyzer: analyzer,
		model:    model,
		veo:      veoClient,
		engine:   engine,
		repo:     repo,
		store:    store,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process runs the full generation pipeline for a freshly created record.
// It is meant to be called on a goroutine with a detached context; errors
// never reach the upload caller, they are reconciled onto the record.
func (r *Runner) Process(ctx context.Context, rec *product.Record, img vision.Image) {
	logger := r.logger.With(slog.String("record_id", rec.ID))

	if path, err := r.store.SaveBlob(ctx, "photo", bytes.NewReader(img.Data)); err != nil {
		logger.Warn("failed to store product photo", slog.String("error", err.Error()))
	} else if err := r.repo.SetImagePath(ctx, rec.ID, path); err != nil {
		r.logUpdateErr(logger, "image path", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.generateContent(gctx, rec, img, logger)
		return nil
	})
	g.Go(func() error {
		r.generateReel(gctx, rec, img, logger)
		return nil
	})

	_ = g.Wait()
	logger.Info("background pipeline finished")
}

// generateContent produces the marketing copy and reconciles it, then
// resolves the record's processing status. The status reflects only this
// half; the video half reports through the reel fields.
func (r *Runner) generateContent(ctx context.Context, rec *product.Record, img vision.Image, logger *slog.Logger) {
	prompt := vision.ContentPrompt(rec.Title, rec.Price, rec.Description)

	raw, err := r.model.Describe(ctx, img, prompt)
	if err != nil {
		logger.Error("content generation failed", slog.String("error", err.Error()))
		if err := r.repo.SetProcessingStatus(ctx, rec.ID, product.StatusFailed, err.Error()); err != nil {
			r.logUpdateErr(logger, "processing status", err)
		}
		return
	}

	content, parsed := vision.ParseContent(raw, rec.Title, rec.Price)
	if err := r.repo.SetGeneratedContent(ctx, rec.ID, content, parsed); err != nil {
		r.logUpdateErr(logger, "generated content", err)
	}
	if err := r.repo.SetProcessingStatus(ctx, rec.ID, product.StatusCompleted, ""); err != nil {
		r.logUpdateErr(logger, "processing status", err)
	}

	logger.Info("content generation completed", slog.Bool("parsed", parsed))
}

// generateReel derives a scene description from the photo, submits the
// video job, registers the operation handle, and runs the first bounded
// poll session.
func (r *Runner) generateReel(ctx context.Context, rec *product.Record, img vision.Image, logger *slog.Logger) {
	scene, err := r.analyzer.Analyze(ctx, img, vision.ScenePrompt)
	if err != nil {
		logger.Error("scene analysis failed", slog.String("error", err.Error()))
		if err := r.repo.SetReelFailure(ctx, rec.ID, product.ReelFailed, err.Error()); err != nil {
			r.logUpdateErr(logger, "reel failure", err)
		}
		return
	}

	logger.Info("scene description accepted",
		slog.Int("word_count", scene.WordCount),
		slog.Int("attempts", scene.Attempts),
		slog.Bool("met_threshold", scene.MetThreshold),
	)

	op, err := r.veo.Submit(ctx, scene.Text, veo.Params{})
	if err != nil {
		logger.Error("video submission failed", slog.String("error", err.Error()))
		if err := r.repo.SetReelFailure(ctx, rec.ID, product.ReelFailed, err.Error()); err != nil {
			r.logUpdateErr(logger, "reel failure", err)
		}
		return
	}

	// The full name goes to the store; the fetch endpoint requires it.
	if err := r.repo.SetOperationName(ctx, rec.ID, op.Name); err != nil {
		r.logUpdateErr(logger, "operation name", err)
		return
	}

	logger.Info("video operation submitted",
		slog.String("operation_id", op.ID),
	)

	// The first session holds the same guard as read-triggered ones, so a
	// GET arriving while it runs cannot start a duplicate session.
	if !r.acquire(rec.ID) {
		return
	}
	defer r.release(rec.ID)
	r.pollAndReconcile(ctx, rec.ID, op.Name, logger)
}

// EnsureReel starts a background poll session for a record whose reel is
// still pending. It is safe to call on every read of an incomplete record:
// records that do not need polling and records with a session already in
// flight are skipped.
func (r *Runner) EnsureReel(ctx context.Context, rec *product.Record) {
	if rec == nil || !rec.NeedsReelPoll() {
		return
	}
	if !r.acquire(rec.ID) {
		return
	}

	logger := r.logger.With(slog.String("record_id", rec.ID))
	go func() {
		defer r.release(rec.ID)
		r.pollAndReconcile(ctx, rec.ID, rec.OperationName, logger)
	}()
}

// pollAndReconcile runs one bounded poll session and folds the outcome
// into the record. A not-found record is logged and dropped, never fatal.
func (r *Runner) pollAndReconcile(ctx context.Context, id, operationName string, logger *slog.Logger) {
	outcome, err := r.engine.Run(ctx, operationName)
	if err != nil {
		logger.Warn("poll session aborted", slog.String("error", err.Error()))
		return
	}

	switch outcome.State {
	case poller.StateSucceeded:
		var url *string
		if outcome.VideoURL != "" {
			url = &outcome.VideoURL
		}
		if err := r.repo.SetReelURL(ctx, id, url); err != nil {
			r.logUpdateErr(logger, "reel url", err)
			return
		}
		logger.Info("reel reconciled",
			slog.String("url", outcome.VideoURL),
			slog.Int("polls", outcome.Polls),
			slog.Duration("elapsed", outcome.Elapsed),
		)
		if r.archiver != nil && outcome.VideoURL != "" {
			r.archiveReel(ctx, id, outcome.VideoURL, logger)
		}
	case poller.StateFailed:
		if err := r.repo.SetReelFailure(ctx, id, product.ReelFailed, outcome.ErrorDetail); err != nil {
			r.logUpdateErr(logger, "reel failure", err)
			return
		}
		logger.Warn("video operation failed", slog.String("detail", outcome.ErrorDetail))
	case poller.StateTimedOut:
		// Not a failure: the upstream job may still finish, and a later
		// read-triggered session can reconcile it.
		if err := r.repo.SetReelFailure(ctx, id, product.ReelTimedOut,
			fmt.Sprintf("gave up waiting after %s", outcome.Elapsed.Round(0))); err != nil {
			r.logUpdateErr(logger, "reel timeout", err)
			return
		}
		logger.Warn("poll session timed out",
			slog.Int("polls", outcome.Polls),
			slog.Duration("elapsed", outcome.Elapsed),
		)
	}
}

// archiveReel copies a finished reel into blob storage. Archiving is best
// effort: the record already carries the rendered URL, so failures here
// are logged and dropped.
func (r *Runner) archiveReel(ctx context.Context, id, url string, logger *slog.Logger) {
	var buf bytes.Buffer
	if err := r.archiver.Fetch(ctx, url, &buf); err != nil {
		logger.Warn("reel download failed", slog.String("error", err.Error()))
		return
	}

	key := "reels/" + id + ".mp4"
	archived, err := r.store.UploadToS3(ctx, key, &buf)
	if err != nil {
		if errors.Is(err, storage.ErrS3NotConfigured) {
			return
		}
		logger.Warn("reel archive upload failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("reel archived", slog.String("archive_url", archived))
}

// acquire marks a record's poll session as in flight.
// Returns false when a session is already running.
func (r *Runner) acquire(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight == nil {
		r.inflight = make(map[string]struct{})
	}
	if _, busy := r.inflight[id]; busy {
		return false
	}
	r.inflight[id] = struct{}{}
	return true
}

// release clears a record's in-flight marker.
func (r *Runner) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, id)
}

// logUpdateErr reports a reconciliation write failure. Missing records are
// expected when a record is deleted mid-pipeline; other errors are louder.
func (r *Runner) logUpdateErr(logger *slog.Logger, field string, err error) {
	if errors.Is(err, product.ErrRecordNotFound) {
		logger.Warn("record vanished before reconciliation", slog.String("field", field))
		return
	}
	logger.Error("reconciliation write failed",
		slog.String("field", field),
		slog.String("error", err.Error()),
	)
}
