package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplierstudio/studio-api/internal/poller"
	"github.com/supplierstudio/studio-api/internal/product"
	"github.com/supplierstudio/studio-api/internal/veo"
	"github.com/supplierstudio/studio-api/internal/vision"
)

const testOpName = "projects/p/locations/l/publishers/google/models/m/operations/op-1"

// fakeModel answers the marketing-copy instruction with JSON and every
// other instruction with a long scene description.
type fakeModel struct {
	contentErr error
	sceneText  string
}

func (m *fakeModel) Describe(_ context.Context, _ vision.Image, instruction string) (string, error) {
	if strings.Contains(instruction, "JSON") {
		if m.contentErr != nil {
			return "", m.contentErr
		}
		return `{"category": "Dresses", "description": "A light summer dress."}`, nil
	}
	text := m.sceneText
	if text == "" {
		text = strings.TrimSpace(strings.Repeat("scene ", 60))
	}
	return text, nil
}

// fakeVeo scripts the submit result and the status check sequence.
type fakeVeo struct {
	submitOp   veo.Operation
	submitErr  error
	fetchDelay time.Duration
	fetchRes   veo.CheckResult
	fetchErr   error

	submitCalls atomic.Int32
	fetchCalls  atomic.Int32
}

func (f *fakeVeo) Submit(context.Context, string, veo.Params) (veo.Operation, error) {
	f.submitCalls.Add(1)
	return f.submitOp, f.submitErr
}

func (f *fakeVeo) Fetch(context.Context, string) (veo.CheckResult, error) {
	f.fetchCalls.Add(1)
	if f.fetchDelay > 0 {
		time.Sleep(f.fetchDelay)
	}
	return f.fetchRes, f.fetchErr
}

// fakeStore records saved blobs without touching the filesystem.
type fakeStore struct {
	saved atomic.Int32
}

func (s *fakeStore) SaveBlob(_ context.Context, name string, data io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, data)
	s.saved.Add(1)
	return "/tmp/test/" + name, nil
}

func (s *fakeStore) LoadBlob(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (s *fakeStore) Cleanup(context.Context, []string) error { return nil }

func (s *fakeStore) UploadToS3(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("not configured")
}

func testRunner(t *testing.T, client veo.Client, repo product.Repository) *Runner {
	t.Helper()
	model := &fakeModel{}
	analyzer := vision.NewAnalyzer(model, nil, vision.WithMinWords(50), vision.WithMaxAttempts(3))
	engine := poller.NewEngine(client, nil,
		poller.WithInterval(time.Millisecond),
		poller.WithBudget(250*time.Millisecond),
	)
	return NewRunner(analyzer, model, client, engine, repo, &fakeStore{}, nil)
}

func testImage() vision.Image {
	return vision.Image{Data: []byte{0xff, 0xd8, 0xff}, MIME: "image/jpeg"}
}

// waitFor polls the repository until the condition holds or the deadline
// passes. Background reconciliation runs on its own goroutines.
func waitFor(t *testing.T, repo product.Repository, id string, cond func(*product.Record) bool) *product.Record {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		if cond(rec) {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
	return nil
}

func TestProcess_HappyPath(t *testing.T) {
	repo := product.NewMemoryRepository()
	client := &fakeVeo{
		submitOp: veo.Operation{Name: testOpName, ID: "op-1"},
		fetchRes: veo.CheckResult{Done: true, Succeeded: true, VideoURL: "https://storage.cloud.google.com/b/v.mp4"},
	}
	runner := testRunner(t, client, repo)

	rec := product.New("Summer Dress", 1299, "")
	require.NoError(t, repo.Create(context.Background(), rec))

	runner.Process(context.Background(), rec, testImage())

	found, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)

	assert.Equal(t, product.StatusCompleted, found.ProcessingStatus)
	require.NotNil(t, found.Content)
	assert.Equal(t, "Dresses", found.Content.Category)
	assert.True(t, found.ContentOK)
	assert.NotEmpty(t, found.ImagePath)

	assert.Equal(t, testOpName, found.OperationName)
	assert.Equal(t, product.ReelReady, found.ReelState)
	assert.Equal(t, "https://storage.cloud.google.com/b/v.mp4", found.ReelURL)
}

func TestProcess_ContentFailureDoesNotBlockReel(t *testing.T) {
	repo := product.NewMemoryRepository()
	client := &fakeVeo{
		submitOp: veo.Operation{Name: testOpName, ID: "op-1"},
		fetchRes: veo.CheckResult{Done: true, Succeeded: true, VideoURL: "https://storage.cloud.google.com/b/v.mp4"},
	}
	model := &fakeModel{contentErr: errors.New("model unavailable")}
	analyzer := vision.NewAnalyzer(model, nil, vision.WithMinWords(50), vision.WithMaxAttempts(2))
	engine := poller.NewEngine(client, nil,
		poller.WithInterval(time.Millisecond),
		poller.WithBudget(250*time.Millisecond),
	)
	runner := NewRunner(analyzer, model, client, engine, repo, &fakeStore{}, nil)

	rec := product.New("Summer Dress", 1299, "")
	require.NoError(t, repo.Create(context.Background(), rec))

	runner.Process(context.Background(), rec, testImage())

	found, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)

	assert.Equal(t, product.StatusFailed, found.ProcessingStatus)
	assert.NotEmpty(t, found.ProcessingError)

	// The video half reports through its own fields and still completes.
	assert.Equal(t, product.ReelReady, found.ReelState)
	assert.Equal(t, "https://storage.cloud.google.com/b/v.mp4", found.ReelURL)
}

func TestProcess_SubmitFailureMarksReelFailed(t *testing.T) {
	repo := product.NewMemoryRepository()
	client := &fakeVeo{submitErr: errors.New("quota exceeded")}
	runner := testRunner(t, client, repo)

	rec := product.New("Summer Dress", 1299, "")
	require.NoError(t, repo.Create(context.Background(), rec))

	runner.Process(context.Background(), rec, testImage())

	found, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)

	assert.Equal(t, product.ReelFailed, found.ReelState)
	assert.Contains(t, found.ReelError, "quota exceeded")
	assert.Empty(t, found.OperationName)

	// Content generation is unaffected by the video half failing.
	assert.Equal(t, product.StatusCompleted, found.ProcessingStatus)
}

func TestProcess_TimeoutLeavesReelRepollable(t *testing.T) {
	repo := product.NewMemoryRepository()
	client := &fakeVeo{
		submitOp: veo.Operation{Name: testOpName, ID: "op-1"},
		fetchRes: veo.CheckResult{Done: false},
	}
	runner := testRunner(t, client, repo)

	rec := product.New("Summer Dress", 1299, "")
	require.NoError(t, repo.Create(context.Background(), rec))

	runner.Process(context.Background(), rec, testImage())

	found, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)

	assert.Equal(t, product.ReelTimedOut, found.ReelState)
	assert.True(t, found.NeedsReelPoll(), "timed-out reel must remain pollable")
}

func TestEnsureReel_ReconcilesPendingOperation(t *testing.T) {
	repo := product.NewMemoryRepository()
	client := &fakeVeo{
		fetchRes: veo.CheckResult{Done: true, Succeeded: true, VideoURL: "https://storage.cloud.google.com/b/v.mp4"},
	}
	runner := testRunner(t, client, repo)

	rec := product.New("Summer Dress", 1299, "")
	require.NoError(t, repo.Create(context.Background(), rec))
	require.NoError(t, repo.SetOperationName(context.Background(), rec.ID, testOpName))

	pending, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	runner.EnsureReel(context.Background(), pending)

	found := waitFor(t, repo, rec.ID, func(r *product.Record) bool {
		return r.ReelState == product.ReelReady
	})
	assert.Equal(t, "https://storage.cloud.google.com/b/v.mp4", found.ReelURL)
}

func TestEnsureReel_NilURLBecomesUnavailable(t *testing.T) {
	repo := product.NewMemoryRepository()
	client := &fakeVeo{
		fetchRes: veo.CheckResult{Done: true, Succeeded: true},
	}
	runner := testRunner(t, client, repo)

	rec := product.New("Summer Dress", 1299, "")
	require.NoError(t, repo.Create(context.Background(), rec))
	require.NoError(t, repo.SetOperationName(context.Background(), rec.ID, testOpName))

	pending, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	runner.EnsureReel(context.Background(), pending)

	found := waitFor(t, repo, rec.ID, func(r *product.Record) bool {
		return r.ReelState == product.ReelUnavailable
	})
	assert.Empty(t, found.ReelURL)
	assert.False(t, found.NeedsReelPoll())
}

func TestEnsureReel_DeduplicatesConcurrentSessions(t *testing.T) {
	repo := product.NewMemoryRepository()
	client := &fakeVeo{
		fetchDelay: 50 * time.Millisecond,
		fetchRes:   veo.CheckResult{Done: true, Succeeded: true, VideoURL: "https://storage.cloud.google.com/b/v.mp4"},
	}
	runner := testRunner(t, client, repo)

	rec := product.New("Summer Dress", 1299, "")
	require.NoError(t, repo.Create(context.Background(), rec))
	require.NoError(t, repo.SetOperationName(context.Background(), rec.ID, testOpName))

	pending, err := repo.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)

	// Several reads arrive while the first session is still in flight.
	runner.EnsureReel(context.Background(), pending)
	runner.EnsureReel(context.Background(), pending)
	runner.EnsureReel(context.Background(), pending)

	waitFor(t, repo, rec.ID, func(r *product.Record) bool {
		return r.ReelState == product.ReelReady
	})
	assert.Equal(t, int32(1), client.fetchCalls.Load(), "only one poll session should run")
}

func TestProcess_FirstSessionBlocksReadTriggeredRepoll(t *testing.T) {
	repo := product.NewMemoryRepository()
	client := &fakeVeo{
		submitOp:   veo.Operation{Name: testOpName, ID: "op-1"},
		fetchDelay: 200 * time.Millisecond,
		fetchRes:   veo.CheckResult{Done: true, Succeeded: true, VideoURL: "https://storage.cloud.google.com/b/v.mp4"},
	}
	runner := testRunner(t, client, repo)

	rec := product.New("Summer Dress", 1299, "")
	require.NoError(t, repo.Create(context.Background(), rec))

	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Process(context.Background(), rec, testImage())
	}()

	// A read lands while the upload-triggered poll session is still in
	// flight; its re-poll must be a no-op against the same guard.
	pending := waitFor(t, repo, rec.ID, func(r *product.Record) bool {
		return r.ReelState == product.ReelSubmitted
	})
	runner.EnsureReel(context.Background(), pending)
	runner.EnsureReel(context.Background(), pending)

	<-done
	found := waitFor(t, repo, rec.ID, func(r *product.Record) bool {
		return r.ReelState == product.ReelReady
	})
	assert.Equal(t, "https://storage.cloud.google.com/b/v.mp4", found.ReelURL)
	assert.Equal(t, int32(1), client.fetchCalls.Load(), "the upload-triggered and read-triggered sessions must not overlap")
}

func TestEnsureReel_SkipsSettledRecords(t *testing.T) {
	repo := product.NewMemoryRepository()
	client := &fakeVeo{}
	runner := testRunner(t, client, repo)

	tests := []struct {
		name string
		prep func(id string)
	}{
		{"no operation", func(string) {}},
		{"reel ready", func(id string) {
			_ = repo.SetOperationName(context.Background(), id, testOpName)
			url := "https://storage.cloud.google.com/b/v.mp4"
			_ = repo.SetReelURL(context.Background(), id, &url)
		}},
		{"reel failed", func(id string) {
			_ = repo.SetOperationName(context.Background(), id, testOpName)
			_ = repo.SetReelFailure(context.Background(), id, product.ReelFailed, "rejected")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := product.New("Summer Dress", 1299, "")
			require.NoError(t, repo.Create(context.Background(), rec))
			tt.prep(rec.ID)

			current, err := repo.FindByID(context.Background(), rec.ID)
			require.NoError(t, err)
			runner.EnsureReel(context.Background(), current)

			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, int32(0), client.fetchCalls.Load())
		})
	}
}
