package product

import (
	"context"
	"sync"
	"time"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; production deployments use the
// Postgres-backed repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryRepository creates a new in-memory record repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*Record),
	}
}

// Create persists a record to the in-memory storage.
// Creates a clone to avoid external mutations.
func (r *MemoryRepository) Create(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec.Clone()
	return nil
}

// FindByID retrieves a record by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// SetImagePath records the stored photo location.
func (r *MemoryRepository) SetImagePath(_ context.Context, id, path string) error {
	return r.update(id, func(rec *Record) {
		rec.ImagePath = path
	})
}

// SetGeneratedContent writes the marketing copy for the record.
func (r *MemoryRepository) SetGeneratedContent(_ context.Context, id string, content *GeneratedContent, ok bool) error {
	return r.update(id, func(rec *Record) {
		if content != nil {
			clone := *content
			rec.Content = &clone
		} else {
			rec.Content = nil
		}
		rec.ContentOK = ok
	})
}

// SetOperationName registers the long-running operation handle.
func (r *MemoryRepository) SetOperationName(_ context.Context, id, operationName string) error {
	return r.update(id, func(rec *Record) {
		rec.OperationName = operationName
		rec.ReelState = ReelSubmitted
		rec.ReelURL = ""
		rec.ReelError = ""
	})
}

// SetReelURL reconciles the poll outcome for a succeeded operation.
func (r *MemoryRepository) SetReelURL(_ context.Context, id string, url *string) error {
	return r.update(id, func(rec *Record) {
		if url == nil {
			rec.ReelState = ReelUnavailable
			rec.ReelURL = ""
			return
		}
		rec.ReelState = ReelReady
		rec.ReelURL = *url
	})
}

// SetReelFailure records a failed or timed-out video job.
func (r *MemoryRepository) SetReelFailure(_ context.Context, id string, state ReelState, detail string) error {
	return r.update(id, func(rec *Record) {
		rec.ReelState = state
		rec.ReelError = detail
	})
}

// SetProcessingStatus updates the content-half status.
func (r *MemoryRepository) SetProcessingStatus(_ context.Context, id string, status ProcessingStatus, errDetail string) error {
	return r.update(id, func(rec *Record) {
		rec.ProcessingStatus = status
		rec.ProcessingError = errDetail
	})
}

// update applies a mutation to the stored record and stamps UpdatedAt.
func (r *MemoryRepository) update(id string, fn func(*Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	fn(rec)
	rec.UpdatedAt = time.Now().UTC()
	return nil
}
