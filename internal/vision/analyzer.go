package vision

import (
	"context"
	"fmt"
	"log/slog"
)

// RetryStrategy selects how the instruction is adjusted between attempts
// when a response falls below the word-count threshold.
type RetryStrategy string

const (
	// StrategySamePrompt resends the identical instruction on every attempt.
	StrategySamePrompt RetryStrategy = "same_prompt"
	// StrategyAugmentPrompt appends an explicit minimum-length clause to the
	// instruction on retry attempts.
	StrategyAugmentPrompt RetryStrategy = "augment_prompt"
)

// Analyzer calls a vision model and accepts only responses meeting a
// minimum informativeness bar. Short responses are retried up to
// MaxAttempts; when attempts are exhausted the last short response is
// returned anyway, since a short answer beats no answer.
type Analyzer struct {
	model       Model
	minWords    int
	maxAttempts int
	strategy    RetryStrategy
	logger      *slog.Logger
}

// AnalyzerOption is a function that configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithMinWords sets the minimum acceptable word count.
// A value <= 0 accepts every response on the first attempt.
func WithMinWords(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.minWords = n
	}
}

// WithMaxAttempts sets the attempt cap.
func WithMaxAttempts(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithStrategy sets the retry strategy for short responses.
func WithStrategy(s RetryStrategy) AnalyzerOption {
	return func(a *Analyzer) {
		a.strategy = s
	}
}

// NewAnalyzer creates an Analyzer around the given model.
// Defaults: 50 minimum words, 5 attempts, same-prompt retries.
func NewAnalyzer(model Model, logger *slog.Logger, opts ...AnalyzerOption) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{
		model:       model,
		minWords:    50,
		maxAttempts: 5,
		strategy:    StrategySamePrompt,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze invokes the model with the same image until a response meets the
// word-count threshold or attempts are exhausted.
//
// Upstream model errors are retried within the same attempt budget; an
// error on the final attempt is returned to the caller rather than a
// fabricated result. A missing image fails immediately with ErrNoImage
// before any model call.
func (a *Analyzer) Analyze(ctx context.Context, img Image, instruction string) (Result, error) {
	if len(img.Data) == 0 {
		return Result{}, ErrNoImage
	}

	var (
		lastText  string
		lastCount int
	)

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("vision: analyze cancelled: %w", err)
		}

		prompt := instruction
		if attempt > 1 && a.strategy == StrategyAugmentPrompt {
			prompt = fmt.Sprintf("%s\n\nBe more detailed. Respond with at least %d words.", instruction, a.minWords)
		}

		text, err := a.model.Describe(ctx, img, prompt)
		if err != nil {
			if attempt == a.maxAttempts {
				return Result{}, fmt.Errorf("vision: analyze failed after %d attempts: %w", attempt, err)
			}
			a.logger.Warn("model call failed, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			continue
		}

		lastText = text
		lastCount = CountWords(text)

		if lastCount >= a.minWords {
			return Result{
				Text:         lastText,
				WordCount:    lastCount,
				Attempts:     attempt,
				MetThreshold: true,
			}, nil
		}

		a.logger.Debug("response below word threshold",
			slog.Int("attempt", attempt),
			slog.Int("word_count", lastCount),
			slog.Int("min_words", a.minWords),
		)
	}

	// Attempts exhausted with only short responses; degrade gracefully.
	return Result{
		Text:         lastText,
		WordCount:    lastCount,
		Attempts:     a.maxAttempts,
		MetThreshold: false,
	}, nil
}
