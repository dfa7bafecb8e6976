// Package product provides the ProductRecord aggregate and its repository
// port. The record is the single durable source of truth for the generation
// pipeline: every stage folds its result into the record through narrow,
// field-scoped partial updates.
package product

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus represents the state of the content-generation half of
// the pipeline. The video half reports independently through ReelState.
type ProcessingStatus string

const (
	// StatusProcessing indicates the background pipeline is still running.
	StatusProcessing ProcessingStatus = "processing"
	// StatusCompleted indicates content generation finished successfully.
	StatusCompleted ProcessingStatus = "completed"
	// StatusFailed indicates content generation failed.
	StatusFailed ProcessingStatus = "failed"
)

// ReelState tracks the ad-reel half of the pipeline.
type ReelState string

const (
	// ReelNone means no video job has been submitted yet.
	ReelNone ReelState = "none"
	// ReelSubmitted means an operation is registered but not yet resolved.
	ReelSubmitted ReelState = "submitted"
	// ReelReady means the reel URL is available.
	ReelReady ReelState = "ready"
	// ReelUnavailable means the operation finished but produced no artifact.
	// Distinct from ReelSubmitted: the status endpoint was checked.
	ReelUnavailable ReelState = "unavailable"
	// ReelFailed means the upstream video job failed.
	ReelFailed ReelState = "failed"
	// ReelTimedOut means polling gave up waiting; the upstream job may still
	// complete and a later re-poll can pick it up.
	ReelTimedOut ReelState = "timed_out"
)

// IsTerminal returns true if the reel state no longer needs polling.
func (s ReelState) IsTerminal() bool {
	switch s {
	case ReelReady, ReelUnavailable, ReelFailed:
		return true
	default:
		return false
	}
}

// GeneratedContent is the structured marketing copy produced by the vision
// model for a product image.
type GeneratedContent struct {
	Category          string  `json:"category"`
	ProductName       string  `json:"product_name"`
	Description       string  `json:"description"`
	SizeChart         string  `json:"size_chart"`
	Specifications    string  `json:"specifications"`
	CareInstructions  string  `json:"care_instructions"`
	TargetAudience    string  `json:"target_audience"`
	Occasions         string  `json:"occasions"`
	InstagramCaption  string  `json:"instagram_caption"`
	InstagramHashtags string  `json:"instagram_hashtags"`
	FacebookCaption   string  `json:"facebook_caption"`
	FacebookHashtags  string  `json:"facebook_hashtags"`
	ConfidenceScore   float64 `json:"confidence_score"`
	DataSource        string  `json:"data_source"`
}

// Record represents a persisted product and the progress of its generation
// pipeline. Only the repository writes records; pipeline stages hand their
// results to it as partial updates.
type Record struct {
	// ID is the externally visible record identifier, assigned at creation.
	ID string
	// Title is the seller-supplied product title.
	Title string
	// Price is the product price in whole currency units.
	Price int
	// Description is the seller-supplied description.
	Description string
	// ImagePath is where the uploaded product photo was stored.
	ImagePath string

	// ProcessingStatus tracks the content-generation half of the pipeline.
	ProcessingStatus ProcessingStatus
	// ProcessingError carries the failure detail when ProcessingStatus is failed.
	ProcessingError string

	// Content is the generated marketing copy, nil until reconciled.
	Content *GeneratedContent
	// ContentOK reports whether Content came from a successful model response
	// rather than the deterministic fallback.
	ContentOK bool

	// OperationName is the fully-qualified long-running operation name.
	// Cleared or replaced only by a fresh submission, never by a poll.
	OperationName string
	// ReelState tracks the video half of the pipeline.
	ReelState ReelState
	// ReelURL is the browser-openable URL of the rendered reel.
	// Set if and only if the operation succeeded and was reconciled.
	ReelURL string
	// ReelError carries the failure detail when ReelState is failed.
	ReelError string

	// CreatedAt is when the record was created.
	CreatedAt time.Time
	// UpdatedAt is stamped by every partial update.
	UpdatedAt time.Time
}

// New creates a Record in the initial processing state with a fresh ID.
func New(title string, price int, description string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:               uuid.NewString(),
		Title:            title,
		Price:            price,
		Description:      description,
		ProcessingStatus: StatusProcessing,
		ReelState:        ReelNone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NeedsReelPoll reports whether a read of this record should trigger an
// opportunistic background re-poll.
func (r *Record) NeedsReelPoll() bool {
	return r.OperationName != "" && !r.ReelState.IsTerminal()
}

// Clone creates a deep copy of the record for safe reads.
func (r *Record) Clone() *Record {
	clone := *r
	if r.Content != nil {
		content := *r.Content
		clone.Content = &content
	}
	return &clone
}
