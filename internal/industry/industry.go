// Package industry selects a canned domain-framing context for the prompt by
// naive keyword frequency over the request text.
package industry

import (
	_ "embed"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed industries.yaml
var defaultTableYAML []byte

// Context is one industry record. The table is loaded once at startup and
// never mutated.
type Context struct {
	Name           string   `yaml:"name"`
	ContextDetails string   `yaml:"context_details"`
	SpecificTips   []string `yaml:"specific_tips"`
	Keywords       []string `yaml:"keywords"`
}

// Classifier scores free text against an ordered industry table.
type Classifier struct {
	contexts []Context
	patterns [][]*regexp.Regexp
}

type tableFile struct {
	Industries []Context `yaml:"industries"`
}

// NewClassifier builds a classifier from YAML table data.
func NewClassifier(tableYAML []byte) (*Classifier, error) {
	var tf tableFile
	if err := yaml.Unmarshal(tableYAML, &tf); err != nil {
		return nil, eris.Wrap(err, "industry: parse table")
	}
	if len(tf.Industries) == 0 {
		return nil, eris.New("industry: table has no industries")
	}

	c := &Classifier{contexts: tf.Industries}
	for _, ind := range tf.Industries {
		if ind.Name == "" {
			return nil, eris.New("industry: entry missing name")
		}
		pats := make([]*regexp.Regexp, 0, len(ind.Keywords))
		for _, kw := range ind.Keywords {
			// Case-insensitive whole-word match; keywords may be phrases.
			pats = append(pats, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
		}
		c.patterns = append(c.patterns, pats)
	}
	return c, nil
}

// Default returns a classifier over the embedded industry table.
func Default() *Classifier {
	c, err := NewClassifier(defaultTableYAML)
	if err != nil {
		// The embedded table is validated by tests; a parse failure here is a
		// build defect, not a runtime condition.
		panic(err)
	}
	return c
}

// Classify counts keyword hits for each industry over the concatenated file
// content and situation text and returns the context with the strictly
// highest positive total. Ties keep the earlier table entry. A zero best
// score returns (nil, false) and the caller substitutes the generic fallback.
func (c *Classifier) Classify(fileContent, situationText string) (*Context, bool) {
	text := fileContent + "\n" + situationText
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	best := -1
	bestScore := 0
	for i, pats := range c.patterns {
		score := 0
		for _, p := range pats {
			score += len(p.FindAllStringIndex(text, -1))
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return nil, false
	}
	return &c.contexts[best], true
}

// Contexts returns the ordered table, primarily for diagnostics and tests.
func (c *Classifier) Contexts() []Context {
	return c.contexts
}
