// Package server exposes the analysis pipeline and history store over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/advisor-api/internal/auth"
	"github.com/sells-group/advisor-api/internal/model"
	"github.com/sells-group/advisor-api/internal/store"
)

// Analyzer is the slice of the pipeline the handlers need.
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
	Chat(ctx context.Context, req model.ChatRequest) (string, error)
}

// Config tunes the HTTP surface.
type Config struct {
	// MaxUploadBytes caps the multipart request body. Default: 10 MiB.
	MaxUploadBytes int64

	// AllowedOrigins configures CORS. Empty means same-origin only.
	AllowedOrigins []string
}

// Server holds the handler dependencies. Construct with New.
type Server struct {
	analyzer Analyzer
	store    store.Store
	verifier auth.Verifier
	cfg      Config
}

// New builds a Server. store may be nil when history persistence is disabled;
// /analyze then skips saving and the history routes return 503.
func New(a Analyzer, st store.Store, v auth.Verifier, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return &Server{analyzer: a, store: st, verifier: v, cfg: cfg}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/get-help", s.handleGetHelp)

	r.Route("/api/history", func(r chi.Router) {
		r.Use(auth.Middleware(s.verifier))
		r.Get("/", s.handleListHistory)
		r.Delete("/", s.handleDeleteAllHistory)
		r.Get("/{id}", s.handleGetHistory)
		r.Delete("/{id}", s.handleDeleteHistory)
		r.Put("/{id}/chat", s.handleReplaceChat)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// messageBody is the uniform error envelope.
type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageBody{Message: msg})
}

func writeTranslated(w http.ResponseWriter, err error) {
	status, msg := translate(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	} else {
		zap.L().Warn("request rejected", zap.Error(err))
	}
	writeMessage(w, status, msg)
}
