package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/advisor-api/pkg/gemini"
)

// geminiClient adapts pkg/gemini to the Client interface.
type geminiClient struct {
	api gemini.Client
}

// NewGemini wraps a Gemini API client.
func NewGemini(api gemini.Client) Client {
	return &geminiClient{api: api}
}

func (c *geminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	resp, err := c.api.GenerateContent(ctx, gemini.GenerateRequest{
		Model:     req.ModelID,
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: gemini generate")
	}

	return &GenerateResult{
		RawText:   resp.Text,
		ModelName: DisplayName(resp.Model),
	}, nil
}
