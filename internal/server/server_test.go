package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/advisor-api/internal/model"
	"github.com/sells-group/advisor-api/internal/store"
)

// fakeAnalyzer returns canned results without touching a model provider.
type fakeAnalyzer struct {
	result   *model.AnalysisResult
	chatText string
	err      error
	lastReq  model.AnalysisRequest
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) Chat(_ context.Context, _ model.ChatRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.chatText, nil
}

// staticVerifier accepts tokens of the form "user:<id>".
type staticVerifier struct{}

func (staticVerifier) Verify(token string) (string, error) {
	if id, ok := strings.CutPrefix(token, "user:"); ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func newTestServer(t *testing.T, a Analyzer) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	return New(a, st, staticVerifier{}, Config{}), st
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doRequest(h http.Handler, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{})
	rec := doRequest(s.Router(), http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyze_AnonymousSkipsHistory(t *testing.T) {
	fa := &fakeAnalyzer{result: &model.AnalysisResult{
		HTML:             "<p>done</p>",
		Raw:              "raw",
		Prompt:           "prompt",
		ModelDisplayName: "Test Model",
	}}
	s, _ := newTestServer(t, fa)

	body, ct := multipartBody(t, map[string]string{
		"tacticName": "SEM",
		"kpiName":    "CTR",
	}, "data.csv", []byte("a,b\n1,2\n"))
	rec := doRequest(s.Router(), http.MethodPost, "/analyze", "", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "<p>done</p>", resp.HTML)
	assert.Empty(t, resp.HistoryID)
	assert.Empty(t, resp.SaveWarning)

	assert.Equal(t, model.FileKindCSV, fa.lastReq.FileKind)
	assert.Equal(t, "data.csv", fa.lastReq.FileName)
}

func TestAnalyze_AuthenticatedSavesHistory(t *testing.T) {
	fa := &fakeAnalyzer{result: &model.AnalysisResult{HTML: "<p>x</p>", Raw: "x"}}
	s, st := newTestServer(t, fa)

	body, ct := multipartBody(t, map[string]string{
		"tacticName": "SEM",
		"kpiName":    "CTR",
	}, "", nil)
	rec := doRequest(s.Router(), http.MethodPost, "/analyze", "user:u1", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.HistoryID)

	saved, err := st.GetHistory(context.Background(), resp.HistoryID)
	require.NoError(t, err)
	assert.Equal(t, "u1", saved.UserID)
	assert.Equal(t, "SEM", saved.Inputs.TacticName)
	assert.Equal(t, "<p>x</p>", saved.Results.AnalysisHTML)
}

func TestAnalyze_SaveFailureIsWarningNotError(t *testing.T) {
	fa := &fakeAnalyzer{result: &model.AnalysisResult{HTML: "<p>x</p>"}}
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	// Closing the store makes every write fail while the server still
	// holds a reference to it.
	require.NoError(t, st.Close())

	s := New(fa, st, staticVerifier{}, Config{})

	body, ct := multipartBody(t, map[string]string{
		"tacticName": "SEM",
		"kpiName":    "CTR",
	}, "", nil)
	rec := doRequest(s.Router(), http.MethodPost, "/analyze", "user:u1", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "<p>x</p>", resp.HTML)
	assert.NotEmpty(t, resp.SaveWarning)
	assert.Empty(t, resp.HistoryID)
}

func TestAnalyze_InvalidTokenRejected(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{result: &model.AnalysisResult{}})
	body, ct := multipartBody(t, map[string]string{"tacticName": "SEM", "kpiName": "CTR"}, "", nil)
	rec := doRequest(s.Router(), http.MethodPost, "/analyze", "garbage", body, ct)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyze_MissingFields(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{result: &model.AnalysisResult{}})
	body, ct := multipartBody(t, map[string]string{"tacticName": "SEM"}, "", nil)
	rec := doRequest(s.Router(), http.MethodPost, "/analyze", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "message")
}

func TestAnalyze_UnsupportedFileType(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{result: &model.AnalysisResult{}})
	body, ct := multipartBody(t, map[string]string{
		"tacticName": "SEM",
		"kpiName":    "CTR",
	}, "report.docx", []byte("x"))
	rec := doRequest(s.Router(), http.MethodPost, "/analyze", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not supported")
}

func TestAnalyze_TransientErrorTranslated(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{err: errors.New("model call: got 429 from upstream")})
	body, ct := multipartBody(t, map[string]string{"tacticName": "SEM", "kpiName": "CTR"}, "", nil)
	rec := doRequest(s.Router(), http.MethodPost, "/analyze", "", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "busy right now")
}

func TestGetHelp(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{chatText: "Here is why."})

	history, err := json.Marshal([]model.ChatMessage{{Role: model.RoleUser, Content: "earlier"}})
	require.NoError(t, err)

	body, ct := multipartBody(t, map[string]string{
		"question":            "Why did CTR drop?",
		"tacticName":          "SEM",
		"kpiName":             "CTR",
		"conversationHistory": string(history),
	}, "", nil)
	rec := doRequest(s.Router(), http.MethodPost, "/get-help", "", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"response":"Here is why."}`, rec.Body.String())
}

func TestGetHelp_BadConversationJSON(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{chatText: "x"})
	body, ct := multipartBody(t, map[string]string{
		"question":            "Why?",
		"conversationHistory": "{not json",
	}, "", nil)
	rec := doRequest(s.Router(), http.MethodPost, "/get-help", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory_RequiresAuth(t *testing.T) {
	s, _ := newTestServer(t, &fakeAnalyzer{})
	rec := doRequest(s.Router(), http.MethodGet, "/api/history", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "message")
}

func TestHistory_CRUDAndOwnership(t *testing.T) {
	s, st := newTestServer(t, &fakeAnalyzer{})
	router := s.Router()

	entry, err := st.AddHistory(context.Background(), "owner", model.HistoryInputs{TacticName: "SEM"}, model.HistoryResults{AnalysisHTML: "<p>x</p>"})
	require.NoError(t, err)

	t.Run("owner reads entry", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/history/"+entry.ID, "user:owner", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got model.HistoryEntry
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "SEM", got.Inputs.TacticName)
	})

	t.Run("other user gets 403", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/history/"+entry.ID, "user:intruder", nil, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("absent id gets 404", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/history/nope", "user:owner", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("owner replaces chat", func(t *testing.T) {
		payload := `{"chatMessages":[{"role":"user","content":"q"},{"role":"assistant","content":"a"}]}`
		rec := doRequest(router, http.MethodPut, "/api/history/"+entry.ID+"/chat", "user:owner", strings.NewReader(payload), "application/json")
		require.Equal(t, http.StatusOK, rec.Code)

		got, err := st.GetHistory(context.Background(), entry.ID)
		require.NoError(t, err)
		require.Len(t, got.ChatMessages, 2)
		assert.Equal(t, model.RoleAssistant, got.ChatMessages[1].Role)
	})

	t.Run("other user cannot replace chat", func(t *testing.T) {
		rec := doRequest(router, http.MethodPut, "/api/history/"+entry.ID+"/chat", "user:intruder", strings.NewReader(`{"chatMessages":[]}`), "application/json")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("list scoped to user", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/history", "user:intruder", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("owner deletes entry", func(t *testing.T) {
		rec := doRequest(router, http.MethodDelete, "/api/history/"+entry.ID, "user:owner", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		_, err := st.GetHistory(context.Background(), entry.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestHistory_DeleteAll(t *testing.T) {
	s, st := newTestServer(t, &fakeAnalyzer{})
	router := s.Router()

	for range 3 {
		_, err := st.AddHistory(context.Background(), "u1", model.HistoryInputs{}, model.HistoryResults{})
		require.NoError(t, err)
	}
	_, err := st.AddHistory(context.Background(), "u2", model.HistoryInputs{}, model.HistoryResults{})
	require.NoError(t, err)

	rec := doRequest(router, http.MethodDelete, "/api/history", "user:u1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":3}`, rec.Body.String())

	left, err := st.ListHistory(context.Background(), "u2")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
