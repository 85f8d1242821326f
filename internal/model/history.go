package model

import "time"

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn in the follow-up thread attached to a history entry.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryInputs snapshots the request fields that produced an analysis.
// File bytes are not retained, only the name and kind.
type HistoryInputs struct {
	TacticName    string       `json:"tacticName"`
	KPIName       string       `json:"kpiName"`
	SituationText string       `json:"situationText"`
	ClientName    string       `json:"clientName"`
	ModelID       ModelAlias   `json:"modelId"`
	OutputDetail  OutputDetail `json:"outputDetail"`
	FileName      string       `json:"fileName"`
	FileKind      FileKind     `json:"fileKind"`
}

// HistoryResults holds the outcome of the analysis run.
type HistoryResults struct {
	AnalysisHTML     string `json:"analysisHtml"`
	AnalysisRaw      string `json:"analysisRawText"`
	ModelDisplayName string `json:"modelDisplayName"`
	PromptText       string `json:"promptText"`
}

// HistoryEntry is one persisted analysis run plus its chat thread, owned by a
// single user. ChatMessages is replaced wholesale on each save; the last
// writer wins and there is no server-side merge.
type HistoryEntry struct {
	ID           string         `json:"id"`
	UserID       string         `json:"-"`
	CreatedAt    time.Time      `json:"timestamp"`
	Inputs       HistoryInputs  `json:"inputs"`
	Results      HistoryResults `json:"results"`
	ChatMessages []ChatMessage  `json:"chatMessages"`
}
