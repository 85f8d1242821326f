package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/advisor-api/internal/extract"
	"github.com/sells-group/advisor-api/internal/model"
)

// analyzeResponse extends AnalysisResult with the persistence outcome.
type analyzeResponse struct {
	HTML             string `json:"html"`
	Raw              string `json:"raw"`
	Prompt           string `json:"prompt"`
	ModelDisplayName string `json:"modelName"`
	RawFileContent   string `json:"rawFileContent"`
	Industry         string `json:"industry,omitempty"`
	HistoryID        string `json:"historyId,omitempty"`
	SaveWarning      string `json:"saveWarning,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.optionalUser(w, r)
	if !ok {
		return
	}

	form, ok := s.parseUpload(w, r)
	if !ok {
		return
	}

	req := model.AnalysisRequest{
		TacticName:    r.FormValue("tacticName"),
		KPIName:       r.FormValue("kpiName"),
		SituationText: r.FormValue("situationText"),
		ClientName:    r.FormValue("clientName"),
		ModelID:       model.ModelAlias(formOr(r, "modelId", string(model.ModelFast))),
		OutputDetail:  model.OutputDetail(formOr(r, "outputDetail", string(model.DetailBrief))),
		FileName:      form.name,
		FileKind:      form.kind,
		FileBytes:     form.data,
	}
	if !req.ModelID.Valid() {
		writeMessage(w, http.StatusBadRequest, "Unknown model selection.")
		return
	}
	if !req.OutputDetail.Valid() {
		writeMessage(w, http.StatusBadRequest, "Unknown output detail level.")
		return
	}
	if req.TacticName == "" || req.KPIName == "" {
		writeMessage(w, http.StatusBadRequest, "Both a tactic and a KPI are required.")
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		writeTranslated(w, err)
		return
	}

	resp := analyzeResponse{
		HTML:             result.HTML,
		Raw:              result.Raw,
		Prompt:           result.Prompt,
		ModelDisplayName: result.ModelDisplayName,
		RawFileContent:   result.RawFileContent,
		Industry:         result.Industry,
	}

	// Persistence failure after a successful analysis never fails the
	// request; the result is returned with a warning instead.
	if userID != "" && s.store != nil {
		entry, err := s.store.AddHistory(r.Context(), userID, historyInputs(req), model.HistoryResults{
			AnalysisHTML:     result.HTML,
			AnalysisRaw:      result.Raw,
			ModelDisplayName: result.ModelDisplayName,
			PromptText:       result.Prompt,
		})
		if err != nil {
			zap.L().Warn("history save failed", zap.String("user_id", userID), zap.Error(err))
			resp.SaveWarning = "The analysis succeeded but could not be saved to your history."
		} else {
			resp.HistoryID = entry.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetHelp(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseUpload(w, r)
	if !ok {
		return
	}

	var conversation []model.ChatMessage
	if raw := r.FormValue("conversationHistory"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &conversation); err != nil {
			writeMessage(w, http.StatusBadRequest, "conversationHistory is not valid JSON.")
			return
		}
	}

	req := model.ChatRequest{
		Question:     r.FormValue("question"),
		Conversation: conversation,
		TacticName:   r.FormValue("tacticName"),
		KPIName:      r.FormValue("kpiName"),
		ModelID:      model.ModelAlias(formOr(r, "modelId", string(model.ModelFast))),
		FileName:     form.name,
		FileKind:     form.kind,
		FileBytes:    form.data,
	}
	if req.Question == "" {
		writeMessage(w, http.StatusBadRequest, "A question is required.")
		return
	}
	if !req.ModelID.Valid() {
		writeMessage(w, http.StatusBadRequest, "Unknown model selection.")
		return
	}

	reply, err := s.analyzer.Chat(r.Context(), req)
	if err != nil {
		writeTranslated(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// optionalUser resolves the bearer token when one is sent. A missing header
// is anonymous; a present but invalid token is rejected.
func (s *Server) optionalUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", true
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		writeMessage(w, http.StatusUnauthorized, "malformed authorization header")
		return "", false
	}
	userID, err := s.verifier.Verify(token)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "invalid token")
		return "", false
	}
	return userID, true
}

type uploadedFile struct {
	name string
	kind model.FileKind
	data []byte
}

// parseUpload reads the multipart form and the optional file part (named
// "file", falling back to "contextFile" for the chat endpoint).
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (uploadedFile, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeTranslated(w, err)
			return uploadedFile{}, false
		}
		writeMessage(w, http.StatusBadRequest, "Expected a multipart form body.")
		return uploadedFile{}, false
	}

	out := uploadedFile{kind: model.FileKindNone}
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		file, header, err = r.FormFile("contextFile")
	}
	if errors.Is(err, http.ErrMissingFile) {
		return out, true
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Could not read the uploaded file.")
		return uploadedFile{}, false
	}
	defer file.Close()

	kind, err := extract.KindFromFilename(header.Filename)
	if err != nil {
		writeTranslated(w, err)
		return uploadedFile{}, false
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeTranslated(w, err)
		return uploadedFile{}, false
	}

	out.name = header.Filename
	out.kind = kind
	out.data = data
	return out, true
}

func formOr(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func historyInputs(req model.AnalysisRequest) model.HistoryInputs {
	return model.HistoryInputs{
		TacticName:    req.TacticName,
		KPIName:       req.KPIName,
		SituationText: req.SituationText,
		ClientName:    req.ClientName,
		ModelID:       req.ModelID,
		OutputDetail:  req.OutputDetail,
		FileName:      req.FileName,
		FileKind:      req.FileKind,
	}
}
