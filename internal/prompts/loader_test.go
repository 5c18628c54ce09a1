package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("categorize.json", "classify-job-titles")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.Categories}}")
	assert.Contains(t, prompt, "{{.Titles}}")
	assert.Contains(t, prompt, "{{.Count}}")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("categorize.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"replaces placeholders", "Classify {{.Count}} titles: {{.Titles}}", map[string]string{"Count": "2", "Titles": "a, b"}, "Classify 2 titles: a, b"},
		{"no placeholders", "No placeholders here", map[string]string{"Key": "Value"}, "No placeholders here"},
		{"missing value stays", "Hello {{.Name}}", map[string]string{}, "Hello {{.Name}}"},
		{"value with placeholder is literal", "{{.A}} {{.B}}", map[string]string{"A": "{{.B}}", "B": "x"}, "{{.B}} x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.template, tt.data))
		})
	}
}

func TestRender(t *testing.T) {
	ClearCache()

	prompt, err := Render("categorize.json", "classify-job-titles", map[string]string{
		"Categories": "- IT\n- Other",
		"Titles":     "0: python developer",
		"Count":      "1",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "0: python developer")
	assert.Contains(t, prompt, "exactly 1 entries")
	assert.NotContains(t, prompt, "{{.")

	_, err = Render("categorize.json", "missing", nil)
	assert.Error(t, err)
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get("categorize.json", "classify-job-titles")
	require.NoError(t, err)

	prompt2, err := Get("categorize.json", "classify-job-titles")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
