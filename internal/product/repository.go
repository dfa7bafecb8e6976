package product

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned when a record cannot be found by ID.
// Pipeline stages treat it as non-fatal: log and continue.
var ErrRecordNotFound = errors.New("product: record not found")

// Repository is the reconciliation store port. Each Set* method is a single
// field-scoped partial update keyed by record ID; updates on different
// fields are order-commutative and idempotent, and every update stamps
// UpdatedAt. Last write wins on the same field.
type Repository interface {
	// Create persists a new record.
	Create(ctx context.Context, rec *Record) error

	// FindByID retrieves a record by its identifier.
	// Returns ErrRecordNotFound if the record does not exist.
	FindByID(ctx context.Context, id string) (*Record, error)

	// SetImagePath records where the uploaded product photo was stored.
	SetImagePath(ctx context.Context, id, path string) error

	// SetGeneratedContent writes the marketing copy produced for the record.
	SetGeneratedContent(ctx context.Context, id string, content *GeneratedContent, ok bool) error

	// SetOperationName registers the fully-qualified long-running operation
	// name and moves the reel state to submitted.
	SetOperationName(ctx context.Context, id, operationName string) error

	// SetReelURL reconciles the poll outcome for a succeeded operation.
	// A nil url means the operation finished without an artifact; the reel
	// state becomes unavailable rather than ready.
	SetReelURL(ctx context.Context, id string, url *string) error

	// SetReelFailure records a failed or timed-out video job.
	SetReelFailure(ctx context.Context, id string, state ReelState, detail string) error

	// SetProcessingStatus updates the content-half status with optional
	// error detail.
	SetProcessingStatus(ctx context.Context, id string, status ProcessingStatus, errDetail string) error
}
