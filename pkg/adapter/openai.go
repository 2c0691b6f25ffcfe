package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIAdapter talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, OpenRouter, DeepSeek, local servers).
type OpenAIAdapter struct {
	client openai.Client
}

// NewOpenAIAdapter creates an adapter for the endpoint at baseURL. The SDK's
// built-in retries are disabled; callers decide whether to try again.
func NewOpenAIAdapter(baseURL, apiKey string, opts ...option.RequestOption) (*OpenAIAdapter, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("openai-compatible base URL is required")
	}

	clientOpts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(apiKey))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAIAdapter{client: openai.NewClient(clientOpts...)}, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Complete posts a chat completion and returns the first choice's content.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	capture := &responseCapture{}
	resp, err := a.client.Chat.Completions.New(ctx, params, option.WithMiddleware(capture.middleware))
	if err != nil {
		return nil, capture.wrap(err)
	}

	out := &Response{Model: resp.Model}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
	}
	out.Usage = &Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return out, nil
}
