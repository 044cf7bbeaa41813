package intake

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hrygo/cogniflow/plugin/ai/aitime"
	"github.com/hrygo/cogniflow/store"
)

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// TemplateField is one input of a template form.
type TemplateField struct {
	Key      string `yaml:"key" json:"key"`
	Label    string `yaml:"label" json:"label"`
	Required bool   `yaml:"required" json:"required"`
}

// Template is an input form opened by "/<trigger>".
type Template struct {
	Trigger string          `yaml:"trigger" json:"trigger"`
	Aliases []string        `yaml:"aliases" json:"aliases,omitempty"`
	Name    string          `yaml:"name" json:"name"`
	Type    store.ItemType  `yaml:"type" json:"type"`
	Tags    []string        `yaml:"tags" json:"tags"`
	Title   string          `yaml:"title" json:"-"`
	Body    string          `yaml:"body" json:"-"`
	Fields  []TemplateField `yaml:"fields" json:"fields"`
}

// TemplateRegistry holds templates by trigger word.
type TemplateRegistry struct {
	templates []*Template
	byTrigger map[string]*Template
}

// LoadTemplates parses a YAML template registry.
func LoadTemplates(data []byte) (*TemplateRegistry, error) {
	var doc struct {
		Templates []*Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}

	r := &TemplateRegistry{byTrigger: map[string]*Template{}}
	for _, t := range doc.Templates {
		if t.Trigger == "" {
			return nil, errors.Errorf("template %q has no trigger", t.Name)
		}
		if !t.Type.IsValid() {
			return nil, errors.Errorf("template %q has invalid type %q", t.Trigger, t.Type)
		}
		for _, word := range append([]string{t.Trigger}, t.Aliases...) {
			key := strings.ToLower(word)
			if _, dup := r.byTrigger[key]; dup {
				return nil, errors.Errorf("duplicate template trigger %q", word)
			}
			r.byTrigger[key] = t
		}
		r.templates = append(r.templates, t)
	}
	return r, nil
}

// DefaultTemplates returns the embedded template registry.
func DefaultTemplates() *TemplateRegistry {
	r, err := LoadTemplates(defaultTemplatesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded templates.yaml is invalid: %v", err))
	}
	return r
}

// Lookup finds a template by trigger or alias, ignoring case.
func (r *TemplateRegistry) Lookup(trigger string) (*Template, bool) {
	t, ok := r.byTrigger[strings.ToLower(trigger)]
	return t, ok
}

// All returns the templates in registry order.
func (r *TemplateRegistry) All() []*Template {
	return append([]*Template(nil), r.templates...)
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

// ErrMissingField is returned by Render when a required field is empty.
var ErrMissingField = errors.New("required template field is empty")

// Render fills the template with values and returns the resulting draft.
func (t *Template) Render(values map[string]string) (*Draft, error) {
	for _, f := range t.Fields {
		if f.Required && strings.TrimSpace(values[f.Key]) == "" {
			return nil, errors.Wrapf(ErrMissingField, "%s (%s)", f.Label, f.Key)
		}
	}

	fill := func(s string) string {
		s = placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
			return strings.TrimSpace(values[m[1:len(m)-1]])
		})
		lines := strings.Split(s, "\n")
		kept := lines[:0]
		for _, line := range lines {
			// Drop "label：" lines whose value was left empty.
			trimmed := strings.TrimSpace(line)
			if strings.HasSuffix(trimmed, "：") || strings.HasSuffix(trimmed, ":") {
				continue
			}
			kept = append(kept, line)
		}
		return strings.TrimSpace(strings.Join(kept, "\n"))
	}

	tags := append([]string{}, t.Tags...)
	draft := &Draft{
		Type:        t.Type,
		Title:       fill(t.Title),
		Description: fill(t.Body),
		Priority:    store.PriorityMedium,
		Tags:        tags,
		Entities:    map[string]any{},
		RawText:     "/" + t.Trigger,
	}

	if t.Type == store.ItemTypeEvent {
		if start, ok := aitime.CanonicalLocal(values["start"]); ok {
			r := aitime.CompleteEventRange(start, values["end"])
			draft.StartTime, draft.EndTime = &r.Start, &r.End
		}
	}
	return draft, nil
}
