// AngelaMos | 2026
// generator_test.go

package strategy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentValid(t *testing.T) {
	raw, err := json.Marshal(sampleDocument())
	require.NoError(t, err)

	doc, err := parseDocument(string(raw))
	require.NoError(t, err)
	assert.Equal(t, "Teardowns", doc.Pillars[0].PillarName)
}

func TestParseDocumentStripsCodeFences(t *testing.T) {
	raw, err := json.Marshal(sampleDocument())
	require.NoError(t, err)

	fenced := "```json\n" + string(raw) + "\n```"

	doc, err := parseDocument(fenced)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Overview.GrowthObjective)
}

func TestParseDocumentRejectsMalformedJSON(t *testing.T) {
	_, err := parseDocument("the strategy is: post more")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestParseDocumentRejectsIncompleteSections(t *testing.T) {
	mutations := map[string]func(*Document){
		"overview": func(d *Document) { d.Overview = StrategicOverview{} },
		"pillars":  func(d *Document) { d.Pillars = nil },
		"calendar": func(d *Document) { d.Calendar = nil },
		"keywords": func(d *Document) { d.Keywords = KeywordSet{} },
		"roi":      func(d *Document) { d.ROI = ROIPrediction{} },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			doc := sampleDocument()
			mutate(doc)

			raw, err := json.Marshal(doc)
			require.NoError(t, err)

			_, err = parseDocument(string(raw))
			assert.ErrorIs(t, err, ErrIncompleteDocument)
		})
	}
}

func TestBuildPromptIncludesRequestFields(t *testing.T) {
	prompt := buildPrompt(baseRequest())

	assert.Contains(t, prompt, "Grow my newsletter to ten thousand subscribers")
	assert.Contains(t, prompt, "Indie makers and bootstrapped founders")
	assert.Contains(t, prompt, "SaaS")
	assert.Contains(t, prompt, "LinkedIn")
	assert.Contains(t, prompt, "beginner")
}
