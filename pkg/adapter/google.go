package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/zen-systems/toolroute/pkg/config"
)

// GoogleAdapter implements the Adapter interface for Gemini models.
type GoogleAdapter struct {
	client *genai.Client
}

// NewGoogleAdapter creates a new Google Gemini adapter. baseURL may be empty.
func NewGoogleAdapter(ctx context.Context, apiKey, baseURL string) (*GoogleAdapter, error) {
	if apiKey == "" {
		return nil, &config.ConfigurationError{Field: "model.api_key", Reason: "is required for the google provider"}
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *GoogleAdapter) Name() string {
	return "google"
}

// Complete sends the exchange to Gemini.
func (a *GoogleAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSON {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := a.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.User), gc)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &ModelCallError{Status: apiErr.Code, Body: apiErr.Message, Err: err}
		}
		return nil, &ModelCallError{Err: err}
	}

	out := &Response{Model: req.Model}
	if resp != nil {
		out.Content = resp.Text()
		if resp.UsageMetadata != nil {
			out.Usage = &Usage{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
			}
		}
	}
	return out, nil
}
