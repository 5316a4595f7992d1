// Package template extracts positional placeholders ({{1}}, {{2}}, ...) from
// provider template bodies.
package template

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

var placeholderPattern = regexp.MustCompile(`{{\d+}}`)

// Placeholders is the distinct set of positional indices found in one or more
// text fragments. Indices are sorted ascending by numeric value.
type Placeholders struct {
	Indices []string
	Max     int
}

// Count returns the number of distinct indices.
func (p Placeholders) Count() int {
	return len(p.Indices)
}

// Empty reports whether no placeholder was found.
func (p Placeholders) Empty() bool {
	return len(p.Indices) == 0
}

// Extract scans the fragments as one text and returns the distinct indices and
// the highest index referenced. Gaps are tolerated so Max may exceed Count.
func Extract(fragments ...string) Placeholders {
	seen := make(map[string]struct{})
	var out Placeholders
	for _, fragment := range fragments {
		for _, match := range placeholderPattern.FindAllString(fragment, -1) {
			idx := normalizeIndex(match)
			if _, dup := seen[idx]; dup {
				continue
			}
			seen[idx] = struct{}{}
			out.Indices = append(out.Indices, idx)
			if n, err := strconv.Atoi(idx); err == nil && n > out.Max {
				out.Max = n
			}
		}
	}
	sort.SliceStable(out.Indices, func(i, j int) bool {
		return lessIndex(out.Indices[i], out.Indices[j])
	})
	return out
}

// ExtractEach scans every fragment independently, keeping the input order.
func ExtractEach(fragments ...string) []Placeholders {
	out := make([]Placeholders, len(fragments))
	for i, fragment := range fragments {
		out[i] = Extract(fragment)
	}
	return out
}

// Fragments returns the scannable text of a structured template in scan order:
// header, body and remaining components, button texts, button URLs, examples.
func Fragments(components []models.TemplateComponent) []string {
	var header, body, buttonText, buttonURL, examples []string
	for _, c := range components {
		switch strings.ToUpper(strings.TrimSpace(c.Type)) {
		case "HEADER":
			if c.Text != "" {
				header = append(header, c.Text)
			}
		default:
			if c.Text != "" {
				body = append(body, c.Text)
			}
		}
		for _, b := range c.Buttons {
			if b.Text != "" {
				buttonText = append(buttonText, b.Text)
			}
			if b.URL != "" {
				buttonURL = append(buttonURL, b.URL)
			}
			examples = append(examples, nonEmpty(b.Example)...)
		}
		examples = append(examples, nonEmpty(c.Example)...)
	}

	out := make([]string, 0, len(header)+len(body)+len(buttonText)+len(buttonURL)+len(examples))
	out = append(out, header...)
	out = append(out, body...)
	out = append(out, buttonText...)
	out = append(out, buttonURL...)
	out = append(out, examples...)
	return out
}

func normalizeIndex(token string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, token)
	return digits
}

func lessIndex(a, b string) bool {
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		return len(ta) < len(tb)
	}
	if ta != tb {
		return ta < tb
	}
	return a < b
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
