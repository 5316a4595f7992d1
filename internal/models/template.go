package models

import (
	"encoding/json"
	"sort"
)

// TemplateButton is a button attached to a structured WhatsApp template.
type TemplateButton struct {
	Type    string      `json:"type,omitempty"`
	Text    string      `json:"text,omitempty"`
	URL     string      `json:"url,omitempty"`
	Example ExampleText `json:"example,omitempty"`
}

// ExampleText holds the sample values attached to a component or button. The
// provider sends them as plain lists or as objects of nested lists (for
// instance {"body_text":[["Ana","42"]]}); every string leaf is kept. Object
// members are visited in key order.
type ExampleText []string

// UnmarshalJSON flattens any JSON value into its string leaves.
func (e *ExampleText) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = collectStrings(raw, nil)
	return nil
}

func collectStrings(v any, out []string) []string {
	switch t := v.(type) {
	case string:
		return append(out, t)
	case []any:
		for _, item := range t {
			out = collectStrings(item, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = collectStrings(t[k], out)
		}
	}
	return out
}

// TemplateComponent is one component (HEADER, BODY, FOOTER, BUTTONS) of a
// structured WhatsApp template.
type TemplateComponent struct {
	Type    string           `json:"type"`
	Format  string           `json:"format,omitempty"`
	Text    string           `json:"text,omitempty"`
	Buttons []TemplateButton `json:"buttons,omitempty"`
	Example ExampleText      `json:"example,omitempty"`
}

// Template is a flattened, selectable catalog entry. Instance and Language are
// only populated for WhatsApp templates and are required to send them.
type Template struct {
	Channel      Channel             `json:"channel"`
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Body         string              `json:"body,omitempty"`
	Description  string              `json:"description"`
	Placeholders []string            `json:"placeholders,omitempty"`
	MaxIndex     int                 `json:"max_index"`
	Instance     string              `json:"instance,omitempty"`
	Language     string              `json:"language,omitempty"`
	HeaderFormat string              `json:"header_format,omitempty"`
	HeaderText   string              `json:"header_text,omitempty"`
	Components   []TemplateComponent `json:"components,omitempty"`
}

// RequiresVariables reports whether the template references any placeholder.
func (t *Template) RequiresVariables() bool {
	return t != nil && len(t.Placeholders) > 0
}

// Option is a dynamic selection entry exposed to the workflow host.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"name"`
	Description string `json:"description"`
}
