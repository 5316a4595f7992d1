package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajayykmr/nvoip-dispatcher/internal/models"
)

func TestExtractDistinctAndMax(t *testing.T) {
	got := Extract("Hi {{1}}, your code is {{2}}. Bye {{1}}")

	assert.Equal(t, []string{"1", "2"}, got.Indices)
	assert.Equal(t, 2, got.Max)
	assert.Equal(t, 2, got.Count())
}

func TestExtractToleratesGaps(t *testing.T) {
	got := Extract("{{3}} and {{10}} and {{3}}")

	require.Equal(t, []string{"3", "10"}, got.Indices)
	assert.Equal(t, 10, got.Max)
	assert.Greater(t, got.Max, got.Count())
}

func TestExtractMaxCoversEveryMember(t *testing.T) {
	bodies := []string{
		"{{1}}{{2}}{{3}}",
		"{{9}} {{2}}",
		"no vars at all",
		"{{12}}{{4}}{{12}}{{7}}",
	}
	for _, body := range bodies {
		got := Extract(body)
		for _, idx := range got.Indices {
			n := 0
			for _, r := range idx {
				n = n*10 + int(r-'0')
			}
			assert.LessOrEqual(t, n, got.Max, "body %q", body)
		}
	}
}

func TestExtractIgnoresMalformedTokens(t *testing.T) {
	got := Extract("{{name}} {1} {{ 2 }} {{}}")

	assert.True(t, got.Empty())
	assert.Zero(t, got.Max)
}

func TestExtractEmptyInput(t *testing.T) {
	assert.True(t, Extract().Empty())
	assert.True(t, Extract("").Empty())
}

func TestExtractAcrossFragments(t *testing.T) {
	got := Extract("Header {{1}}", "Body {{2}} {{1}}", "https://x.test/{{3}}")

	assert.Equal(t, []string{"1", "2", "3"}, got.Indices)
	assert.Equal(t, 3, got.Max)
}

func TestExtractEachKeepsFragmentsSeparate(t *testing.T) {
	got := ExtractEach("{{1}}", "plain", "{{2}} {{4}}")

	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Max)
	assert.True(t, got[1].Empty())
	assert.Equal(t, []string{"2", "4"}, got[2].Indices)
}

func TestFragmentsOrder(t *testing.T) {
	components := []models.TemplateComponent{
		{Type: "BODY", Text: "body {{2}}"},
		{Type: "HEADER", Format: "TEXT", Text: "header {{1}}"},
		{Type: "FOOTER", Text: "footer"},
		{Type: "BUTTONS", Buttons: []models.TemplateButton{
			{Type: "URL", Text: "Open", URL: "https://x.test/{{3}}", Example: []string{"https://x.test/abc"}},
		}},
	}

	got := Fragments(components)

	assert.Equal(t, []string{
		"header {{1}}",
		"body {{2}}",
		"footer",
		"Open",
		"https://x.test/{{3}}",
		"https://x.test/abc",
	}, got)
	assert.Equal(t, 3, Extract(got...).Max)
}
