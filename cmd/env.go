package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/advisor-api/internal/extract"
	"github.com/sells-group/advisor-api/internal/industry"
	"github.com/sells-group/advisor-api/internal/llm"
	"github.com/sells-group/advisor-api/internal/pipeline"
	"github.com/sells-group/advisor-api/internal/prompt"
	"github.com/sells-group/advisor-api/internal/store"
	"github.com/sells-group/advisor-api/pkg/anthropic"
	"github.com/sells-group/advisor-api/pkg/gemini"
)

func buildStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url is required for the postgres driver")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func buildClient(ctx context.Context) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		if cfg.LLM.AnthropicKey == "" {
			return nil, eris.New("llm.anthropic_key is required for the anthropic provider")
		}
		return llm.NewAnthropic(anthropic.NewClient(cfg.LLM.AnthropicKey)), nil
	case "gemini":
		if cfg.LLM.GeminiKey == "" {
			return nil, eris.New("llm.gemini_key is required for the gemini provider")
		}
		api, err := gemini.NewClient(ctx, cfg.LLM.GeminiKey)
		if err != nil {
			return nil, err
		}
		return llm.NewGemini(api), nil
	default:
		return nil, eris.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func buildAnalyzer(ctx context.Context) (*pipeline.Analyzer, error) {
	client, err := buildClient(ctx)
	if err != nil {
		return nil, err
	}

	templates, err := prompt.Load(cfg.Prompt.TemplatesDir)
	if err != nil {
		return nil, err
	}

	pdf, err := extract.NewPDFExtractor(extract.PDFConfig{
		Provider:      cfg.PDF.Provider,
		PdfToTextPath: cfg.PDF.PdfToTextPath,
		MistralKey:    cfg.PDF.MistralKey,
		MistralModel:  cfg.PDF.MistralModel,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("analyzer configured",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("fast_model", cfg.LLM.Models().Fast),
		zap.String("quality_model", cfg.LLM.Models().Quality),
		zap.String("pdf_provider", cfg.PDF.Provider))

	return pipeline.New(
		extract.New(pdf),
		industry.Default(),
		templates,
		client,
		cfg.LLM.Models(),
		pipeline.Config{
			MaxTokens:   cfg.LLM.MaxTokens,
			CallTimeout: time.Duration(cfg.LLM.RequestTimeoutSecs) * time.Second,
			Retry:       cfg.Retry.Resilience(),
		},
	), nil
}
