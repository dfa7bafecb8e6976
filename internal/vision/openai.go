package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIModel implements Model using the official openai-go SDK
// (chat completions with an inline image part).
type OpenAIModel struct {
	model string
	opts  []option.RequestOption
}

// NewOpenAIModel creates an OpenAI-backed vision model.
func NewOpenAIModel(apiKey, model string) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision: openai api key missing")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIModel{
		model: model,
		opts:  []option.RequestOption{option.WithAPIKey(apiKey)},
	}, nil
}

// Describe sends the image as a data URL alongside the instruction.
func (m *OpenAIModel) Describe(ctx context.Context, img Image, instruction string) (string, error) {
	client := openai.NewClient(m.opts...)

	mime := img.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img.Data))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(instruction),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision: openai generate: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Model = (*OpenAIModel)(nil)
