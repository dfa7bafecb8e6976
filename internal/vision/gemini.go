package vision

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiModel implements Model using the Google Generative AI SDK.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini-backed vision model.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision: gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("vision: create gemini client: %w", err)
	}

	return &GeminiModel{
		client: client,
		model:  model,
	}, nil
}

// Describe sends the image and instruction to Gemini and returns the text.
func (m *GeminiModel) Describe(ctx context.Context, img Image, instruction string) (string, error) {
	model := m.client.GenerativeModel(m.model)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(mimeSubtype(img.MIME), img.Data),
		genai.Text(instruction),
	)
	if err != nil {
		return "", fmt.Errorf("vision: gemini generate: %w", err)
	}

	text, err := textFromResponse(resp)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Close releases the underlying client.
func (m *GeminiModel) Close() error {
	return m.client.Close()
}

// textFromResponse extracts the concatenated text parts of the first candidate.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.Join(parts, ""), nil
}

// mimeSubtype maps "image/jpeg" to the bare format name the SDK expects.
func mimeSubtype(mime string) string {
	if idx := strings.IndexByte(mime, '/'); idx >= 0 {
		return mime[idx+1:]
	}
	if mime == "" {
		return "jpeg"
	}
	return mime
}

var _ Model = (*GeminiModel)(nil)
