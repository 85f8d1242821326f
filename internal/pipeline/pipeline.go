// Package pipeline runs one analysis or chat request end to end: extract the
// uploaded file, pick an industry framing, assemble the prompt, call the
// model with retries, and parse the reply.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/advisor-api/internal/extract"
	"github.com/sells-group/advisor-api/internal/industry"
	"github.com/sells-group/advisor-api/internal/llm"
	"github.com/sells-group/advisor-api/internal/model"
	"github.com/sells-group/advisor-api/internal/parse"
	"github.com/sells-group/advisor-api/internal/prompt"
	"github.com/sells-group/advisor-api/internal/resilience"
)

// Config tunes the analyzer. Zero values fall back to defaults.
type Config struct {
	// MaxTokens caps the model completion length. Default: 4096.
	MaxTokens int64

	// CallTimeout bounds a single model call on top of the request
	// context. Zero means no extra deadline.
	CallTimeout time.Duration

	// Retry controls the backoff wrapper around model calls.
	Retry resilience.RetryConfig
}

// Analyzer composes the request pipeline. All fields are required except
// Config, and the struct is safe for concurrent use.
type Analyzer struct {
	extractor  *extract.Extractor
	classifier *industry.Classifier
	templates  *prompt.Templates
	client     llm.Client
	models     llm.ModelMap
	cfg        Config
}

// New wires an Analyzer. Pass industry.Default() for the built-in table.
func New(ex *extract.Extractor, cl *industry.Classifier, tpl *prompt.Templates, client llm.Client, models llm.ModelMap, cfg Config) *Analyzer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &Analyzer{
		extractor:  ex,
		classifier: cl,
		templates:  tpl,
		client:     client,
		models:     models,
		cfg:        cfg,
	}
}

// Analyze runs the full analysis flow for one request.
func (a *Analyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	fileContent, err := a.fileContent(ctx, req.FileKind, req.FileBytes)
	if err != nil {
		return nil, err
	}

	fields := prompt.Fields{
		FileName:         req.FileName,
		TacticsString:    req.TacticName,
		KpisString:       req.KPIName,
		CurrentSituation: req.SituationText,
		DataString:       fileContent,
		ClientName:       req.ClientName,
	}

	industryName := ""
	if ictx, ok := a.classifier.Classify(fileContent, req.SituationText); ok {
		industryName = ictx.Name
		fields.IndustryContext = ictx.ContextDetails
		fields.IndustryTips = ictx.SpecificTips
	}

	assembled := prompt.Assemble(a.templates.ForDetail(req.OutputDetail), fields)

	out, err := a.generate(ctx, req.ModelID, assembled)
	if err != nil {
		return nil, err
	}

	parsed := parse.Analysis(out.RawText)
	return &model.AnalysisResult{
		HTML:             parsed.HTMLFragment,
		Raw:              out.RawText,
		Prompt:           assembled,
		ModelDisplayName: out.ModelName,
		RawFileContent:   fileContent,
		Industry:         industryName,
	}, nil
}

// Chat answers a follow-up question about a prior analysis. The reply is the
// model's text as-is, trimmed; chat responses are not marker-delimited.
func (a *Analyzer) Chat(ctx context.Context, req model.ChatRequest) (string, error) {
	fileContent, err := a.fileContent(ctx, req.FileKind, req.FileBytes)
	if err != nil {
		return "", err
	}

	fields := prompt.Fields{
		FileName:            req.FileName,
		TacticsString:       req.TacticName,
		KpisString:          req.KPIName,
		CurrentSituation:    req.Question,
		DataString:          fileContent,
		ConversationHistory: prompt.RenderConversation(req.Conversation),
	}
	assembled := prompt.Assemble(a.templates.Chat, fields)

	out, err := a.generate(ctx, req.ModelID, assembled)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.RawText), nil
}

func (a *Analyzer) fileContent(ctx context.Context, kind model.FileKind, data []byte) (string, error) {
	if kind == model.FileKindNone || kind == "" || len(data) == 0 {
		return "", nil
	}
	content, err := a.extractor.Content(ctx, kind, data)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: extract file")
	}
	return content, nil
}

func (a *Analyzer) generate(ctx context.Context, alias model.ModelAlias, prompt string) (*llm.GenerateResult, error) {
	modelID, err := a.models.Resolve(alias)
	if err != nil {
		return nil, err
	}

	if a.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.CallTimeout)
		defer cancel()
	}

	cfg := a.cfg.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("llm", "generate")
	}

	start := time.Now()
	out, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*llm.GenerateResult, error) {
		return a.client.Generate(ctx, llm.GenerateRequest{
			ModelID:   modelID,
			Prompt:    prompt,
			MaxTokens: a.cfg.MaxTokens,
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: model call")
	}

	zap.L().Info("model call complete",
		zap.String("model", modelID),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("response_chars", len(out.RawText)))
	return out, nil
}
