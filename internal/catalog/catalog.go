// Package catalog holds the static, ordered list of intake questions.
// A Catalog is built once at startup and never mutated; accessors hand out
// copies.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultQuestions []byte

// Kind is the closed set of step kinds.
type Kind string

const (
	KindSingleChoice Kind = "single-choice"
	KindMultiChoice  Kind = "multi-choice"
	KindShortText    Kind = "short-text"
	KindLongText     Kind = "long-text"
	KindInstruction  Kind = "instruction"
	KindSingleImage  Kind = "single-image"
	KindMultiImage   Kind = "multi-image"
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindSingleChoice, KindMultiChoice, KindShortText, KindLongText,
	KindInstruction, KindSingleImage, KindMultiImage,
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown question kind %q", s)
}

// IsImage reports whether answers of this kind carry files.
func (k Kind) IsImage() bool { return k == KindSingleImage || k == KindMultiImage }

// IsChoice reports whether the kind presents choices.
func (k Kind) IsChoice() bool { return k == KindSingleChoice || k == KindMultiChoice }

// HasTextEntry reports whether the step has a text-entry control that can
// receive focus.
func (k Kind) HasTextEntry() bool { return k == KindShortText || k == KindLongText }

// Validation restricts free-text input.
type Validation string

const (
	ValidationText    Validation = "text"
	ValidationNumeric Validation = "numeric"
)

// Choice is one selectable option.
type Choice struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Question is one immutable step definition.
type Question struct {
	ID            int        `yaml:"-" json:"id"`
	Prompt        string     `yaml:"prompt" json:"prompt"`
	Kind          Kind       `yaml:"kind" json:"kind"`
	Choices       []Choice   `yaml:"choices,omitempty" json:"choices,omitempty"`
	Validation    Validation `yaml:"validation,omitempty" json:"validation,omitempty"`
	Placeholder   string     `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	HelpText      string     `yaml:"help_text,omitempty" json:"help_text,omitempty"`
	Auxiliary     string     `yaml:"auxiliary,omitempty" json:"auxiliary,omitempty"` // markdown
	AuxiliaryHTML string     `yaml:"auxiliary_html,omitempty" json:"auxiliary_html,omitempty"`
	Email         bool       `yaml:"email,omitempty" json:"email,omitempty"`
}

// AuxiliaryMarkdown returns the auxiliary content as markdown, converting
// HTML content when that is what the catalog provides.
func (q Question) AuxiliaryMarkdown() string {
	if q.Auxiliary != "" {
		return q.Auxiliary
	}
	if q.AuxiliaryHTML == "" {
		return ""
	}
	md, err := HTMLToMarkdown(q.AuxiliaryHTML)
	if err != nil {
		return ""
	}
	return md
}

func (q Question) clone() Question {
	q.Choices = append([]Choice(nil), q.Choices...)
	return q
}

// Catalog is the ordered question list.
type Catalog struct {
	questions []Question
}

type document struct {
	Questions []Question `yaml:"questions"`
}

var (
	// ErrEmpty is returned for a catalog without questions.
	ErrEmpty = errors.New("catalog has no questions")
)

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultQuestions)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path yields Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Question ids are their
// positions.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for i := range doc.Questions {
		doc.Questions[i].ID = i
		if doc.Questions[i].Validation == "" {
			doc.Questions[i].Validation = ValidationText
		}
	}
	c := &Catalog{questions: doc.Questions}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.questions) == 0 {
		return ErrEmpty
	}
	emails := 0
	for _, q := range c.questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("question %d must have a prompt", q.ID)
		}
		if _, err := ParseKind(string(q.Kind)); err != nil {
			return fmt.Errorf("question %d: %w", q.ID, err)
		}
		switch q.Validation {
		case ValidationText, ValidationNumeric:
		default:
			return fmt.Errorf("question %d: unknown validation %q", q.ID, q.Validation)
		}
		if q.Kind.IsChoice() {
			if len(q.Choices) == 0 {
				return fmt.Errorf("question %d (%s) needs at least one choice", q.ID, q.Kind)
			}
			seen := make(map[string]bool, len(q.Choices))
			for _, ch := range q.Choices {
				if ch.Value == "" {
					return fmt.Errorf("question %d has a choice without a value", q.ID)
				}
				if q.Kind == KindMultiChoice && strings.Contains(ch.Value, ",") {
					return fmt.Errorf("question %d: multi-choice value %q must not contain a comma", q.ID, ch.Value)
				}
				if seen[ch.Value] {
					return fmt.Errorf("question %d has duplicate choice %q", q.ID, ch.Value)
				}
				seen[ch.Value] = true
			}
		} else if len(q.Choices) > 0 {
			return fmt.Errorf("question %d (%s) must not have choices", q.ID, q.Kind)
		}
		if q.Email {
			emails++
			if q.Kind != KindShortText {
				return fmt.Errorf("question %d: email question must be %s", q.ID, KindShortText)
			}
		}
	}
	if emails > 1 {
		return fmt.Errorf("catalog has %d email questions, at most one allowed", emails)
	}
	return nil
}

// Len returns the number of questions.
func (c *Catalog) Len() int { return len(c.questions) }

// Question returns the question with the given id.
func (c *Catalog) Question(id int) (Question, bool) {
	if id < 0 || id >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[id].clone(), true
}

// Questions returns a copy of all questions in order.
func (c *Catalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	for i, q := range c.questions {
		out[i] = q.clone()
	}
	return out
}

// EmailQuestion returns the id of the question that captures the contact
// email, or -1.
func (c *Catalog) EmailQuestion() int {
	for _, q := range c.questions {
		if q.Email {
			return q.ID
		}
	}
	return -1
}
