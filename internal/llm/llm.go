// Package llm abstracts the generative-model providers behind one client
// interface and resolves model-tier aliases to provider model ids.
package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/advisor-api/internal/model"
)

// GenerateRequest is a single prompt submission.
type GenerateRequest struct {
	ModelID   string // provider-specific model id, already resolved
	Prompt    string
	MaxTokens int64
}

// GenerateResult is the raw model output before any parsing.
type GenerateResult struct {
	RawText   string
	ModelName string // display name reported back to the client
}

// Client is the single operation the pipeline needs from a provider. Errors
// from implementations carry the upstream HTTP status inside the message
// ("429", "503") when the failure is transient; resilience.IsTransient
// depends on that convention.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// ModelMap resolves the fast/quality aliases for one provider.
type ModelMap struct {
	Fast    string `yaml:"fast" mapstructure:"fast"`
	Quality string `yaml:"quality" mapstructure:"quality"`
}

// Resolve maps an alias to the configured provider model id.
func (m ModelMap) Resolve(alias model.ModelAlias) (string, error) {
	switch alias {
	case model.ModelFast:
		return m.Fast, nil
	case model.ModelQuality:
		return m.Quality, nil
	default:
		return "", eris.Errorf("llm: unknown model alias %q", alias)
	}
}
