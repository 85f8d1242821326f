// Package gemini wraps the Google GenAI SDK behind the small generation API
// this service needs.
package gemini

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// Client defines the Gemini operations used by the analysis pipeline.
type Client interface {
	GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is our own request type for GenerateContent.
type GenerateRequest struct {
	Model       string
	Prompt      string
	MaxTokens   int64
	Temperature *float64
}

// GenerateResponse is our own response type from GenerateContent.
type GenerateResponse struct {
	Model string
	Text  string
}

// sdkClient implements Client using google.golang.org/genai.
type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini client backed by the GenAI SDK.
func NewClient(ctx context.Context, apiKey string) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}

	return &sdkClient{client: client}, nil
}

func (c *sdkClient) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		// googleapi errors include the HTTP status ("Error 429: ...") in the
		// message; retry classification upstream matches on it.
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	text := resp.Text()
	if text == "" {
		return nil, eris.New("gemini: empty response")
	}

	return &GenerateResponse{
		Model: req.Model,
		Text:  text,
	}, nil
}
