// Package model defines the domain types shared across the analysis service.
package model

// FileKind identifies the format of an uploaded campaign-data file.
type FileKind string

const (
	FileKindCSV  FileKind = "csv"
	FileKindXLSX FileKind = "xlsx"
	FileKindPDF  FileKind = "pdf"
	FileKindNone FileKind = "none"
)

// Valid reports whether the kind is one of the supported upload formats.
func (k FileKind) Valid() bool {
	switch k {
	case FileKindCSV, FileKindXLSX, FileKindPDF, FileKindNone:
		return true
	}
	return false
}

// ModelAlias selects the model tier for a request. Aliases are resolved to
// provider-specific model ids by the configured LLM client.
type ModelAlias string

const (
	ModelFast    ModelAlias = "fast"
	ModelQuality ModelAlias = "quality"
)

// Valid reports whether the alias is a known model tier.
func (m ModelAlias) Valid() bool {
	return m == ModelFast || m == ModelQuality
}

// OutputDetail selects between the brief and detailed analysis templates.
type OutputDetail string

const (
	DetailBrief    OutputDetail = "brief"
	DetailDetailed OutputDetail = "detailed"
)

// Valid reports whether the detail level is known.
func (d OutputDetail) Valid() bool {
	return d == DetailBrief || d == DetailDetailed
}

// AnalysisRequest carries one analysis submission. It is constructed per
// request and discarded after the response; FileBytes never persists.
type AnalysisRequest struct {
	TacticName    string       `json:"tacticName"`
	KPIName       string       `json:"kpiName"`
	SituationText string       `json:"situationText"`
	ClientName    string       `json:"clientName"`
	ModelID       ModelAlias   `json:"modelId"`
	OutputDetail  OutputDetail `json:"outputDetail"`
	FileName      string       `json:"fileName"`
	FileKind      FileKind     `json:"fileKind"`
	FileBytes     []byte       `json:"-"`
}

// AnalysisResult is the structured outcome of one analysis run.
type AnalysisResult struct {
	HTML             string `json:"html"`
	Raw              string `json:"raw"`
	Prompt           string `json:"prompt"`
	ModelDisplayName string `json:"modelName"`
	RawFileContent   string `json:"rawFileContent"`
	Industry         string `json:"industry,omitempty"`
}

// ChatRequest carries one follow-up question about a prior analysis.
type ChatRequest struct {
	Question     string        `json:"question"`
	Conversation []ChatMessage `json:"conversationHistory"`
	TacticName   string        `json:"tacticName"`
	KPIName      string        `json:"kpiName"`
	ModelID      ModelAlias    `json:"modelId"`
	FileName     string        `json:"fileName"`
	FileKind     FileKind      `json:"fileKind"`
	FileBytes    []byte        `json:"-"`
}
