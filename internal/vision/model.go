// Package vision provides image analysis through vision-language models.
// It wraps a single-shot "describe this image" model call with a bounded
// retry policy keyed on a minimum word-count heuristic, and generates
// structured marketing content for product records.
package vision

import (
	"context"
	"errors"
)

// Static errors for vision operations.
var (
	// ErrNoImage is returned when Analyze is called without image data.
	ErrNoImage = errors.New("vision: no image provided")
	// ErrEmptyResponse is returned when the model returns no usable text.
	ErrEmptyResponse = errors.New("vision: empty model response")
)

// Image is raw image data together with its MIME type.
type Image struct {
	Data []byte
	MIME string // e.g. "image/jpeg"
}

// Model is the single-shot vision-language model collaborator.
// Implementations may fail with transient upstream errors; retry policy
// lives in Analyzer, not here.
type Model interface {
	// Describe sends the image and instruction to the model and returns
	// the generated text.
	Describe(ctx context.Context, img Image, instruction string) (string, error)
}

// Result is the outcome of an Analyze call.
type Result struct {
	// Text is the accepted (or last, when attempts were exhausted) response.
	Text string
	// WordCount is the whitespace-token count of Text.
	WordCount int
	// Attempts is the number of model calls made.
	Attempts int
	// MetThreshold reports whether Text reached the minimum word count.
	MetThreshold bool
}
