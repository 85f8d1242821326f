// Package prompt renders model prompts from fixed templates by literal
// placeholder substitution.
package prompt

import (
	"embed"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/advisor-api/internal/model"
)

//go:embed templates/*.tmpl
var defaultTemplates embed.FS

// notAvailable substitutes for any optional field the request left empty.
const notAvailable = "N/A"

// genericTipsFallback renders when no industry context was selected.
const genericTipsFallback = "No industry-specific guidance available; apply general best practices for this tactic."

// Templates holds the three prompt templates. They are external
// configuration: embedded defaults, optionally overridden per file from a
// templates directory.
type Templates struct {
	Brief    string
	Detailed string
	Chat     string
}

// Load returns the embedded templates, with any same-named .tmpl file in dir
// (brief.tmpl, detailed.tmpl, chat.tmpl) taking precedence. An empty dir
// loads the embedded set only.
func Load(dir string) (*Templates, error) {
	t := &Templates{}
	for name, dst := range map[string]*string{
		"brief.tmpl":    &t.Brief,
		"detailed.tmpl": &t.Detailed,
		"chat.tmpl":     &t.Chat,
	} {
		data, err := defaultTemplates.ReadFile("templates/" + name)
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: embedded template %s", name)
		}
		if dir != "" {
			if override, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
				data = override
			} else if !os.IsNotExist(err) {
				return nil, eris.Wrapf(err, "prompt: read template override %s", name)
			}
		}
		*dst = string(data)
	}
	return t, nil
}

// ForDetail returns the analysis template for the requested output detail.
func (t *Templates) ForDetail(d model.OutputDetail) string {
	if d == model.DetailDetailed {
		return t.Detailed
	}
	return t.Brief
}

// Fields carries the values substituted into a template. Empty fields render
// as the literal "N/A".
type Fields struct {
	FileName            string
	TacticsString       string
	KpisString          string
	CurrentSituation    string
	DataString          string
	IndustryContext     string
	IndustryTips        []string
	ClientName          string
	ConversationHistory string
}

type substitution struct {
	placeholder string
	value       string
}

// Assemble fills the template with the given fields. Each placeholder is
// replaced literally at its first occurrence in the original template only,
// so a field value that itself contains "{{...}}" text stays inert and later
// occurrences of a placeholder remain untouched. The result is a pure
// function of (template, fields).
func Assemble(template string, f Fields) string {
	subs := []substitution{
		{"{{fileName}}", orNA(f.FileName)},
		{"{{tacticsString}}", orNA(f.TacticsString)},
		{"{{kpisString}}", orNA(f.KpisString)},
		{"{{currentSituation}}", orNA(f.CurrentSituation)},
		{"{{dataString}}", orNA(f.DataString)},
		{"{{industryContext}}", orNA(f.IndustryContext)},
		{"{{industryTips}}", renderTips(f.IndustryTips)},
		{"{{clientName}}", orNA(f.ClientName)},
		{"{{conversationHistory}}", orNA(f.ConversationHistory)},
	}

	// Locate the first occurrence of every placeholder in the original
	// template, then splice the values in a single left-to-right pass.
	type site struct {
		at  int
		sub substitution
	}
	var sites []site
	for _, s := range subs {
		if at := strings.Index(template, s.placeholder); at >= 0 {
			sites = append(sites, site{at: at, sub: s})
		}
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].at < sites[j].at })

	var b strings.Builder
	b.Grow(len(template))
	prev := 0
	for _, s := range sites {
		b.WriteString(template[prev:s.at])
		b.WriteString(s.sub.value)
		prev = s.at + len(s.sub.placeholder)
	}
	b.WriteString(template[prev:])
	return b.String()
}

// RenderConversation flattens a chat thread for the {{conversationHistory}}
// placeholder, one "role: content" line per message.
func RenderConversation(msgs []model.ChatMessage) string {
	if len(msgs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, string(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func renderTips(tips []string) string {
	if len(tips) == 0 {
		return genericTipsFallback
	}
	lines := make([]string, 0, len(tips))
	for _, tip := range tips {
		lines = append(lines, "- "+tip)
	}
	return strings.Join(lines, "\n")
}
