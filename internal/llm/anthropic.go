package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/advisor-api/pkg/anthropic"
)

// anthropicClient adapts pkg/anthropic to the Client interface.
type anthropicClient struct {
	api anthropic.Client
}

// NewAnthropic wraps an Anthropic API client.
func NewAnthropic(api anthropic.Client) Client {
	return &anthropicClient{api: api}
}

func (c *anthropicClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	resp, err := c.api.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     req.ModelID,
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic generate")
	}

	resp.Usage.LogCost(resp.Model, "analysis")

	return &GenerateResult{
		RawText:   resp.Text,
		ModelName: DisplayName(resp.Model),
	}, nil
}
