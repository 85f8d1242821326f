package llm

// displayNames maps provider model ids to the names shown to users. Unknown
// ids fall through unchanged.
var displayNames = map[string]string{
	"claude-haiku-4-5-20251001":  "Claude Haiku 4.5",
	"claude-sonnet-4-5-20250929": "Claude Sonnet 4.5",
	"gemini-2.5-flash":           "Gemini 2.5 Flash",
	"gemini-2.5-pro":             "Gemini 2.5 Pro",
}

// DisplayName returns the user-facing name for a provider model id.
func DisplayName(modelID string) string {
	if name, ok := displayNames[modelID]; ok {
		return name
	}
	return modelID
}
