package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRaw(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		score   any
	}{
		{name: "plain object", input: `{"riskScore": 80}`, score: float64(80)},
		{name: "markdown fence", input: "```json\n{\"riskScore\": 12}\n```", score: float64(12)},
		{name: "bare fence", input: "```\n{\"riskScore\": 3}\n```", score: float64(3)},
		{name: "chatty wrapper", input: "Here is the result: {\"riskScore\": 44} hope it helps", score: float64(44)},
		{name: "empty", input: "   ", wantErr: true},
		{name: "no braces", input: "the model refused", wantErr: true},
		{name: "broken braces", input: "{not json}", wantErr: true},
		{name: "array is not an object", input: `[1,2,3]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ParseRaw(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnparseable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, obj["riskScore"])
		})
	}
}

func TestNormalizeDefaultsMissingFields(t *testing.T) {
	r := Normalize(map[string]any{})

	assert.Equal(t, 0, r.RiskScore)
	assert.Equal(t, RiskSafe, r.RiskLevel)
	assert.Equal(t, "Analysis complete.", r.Summary)
	assert.NotNil(t, r.Threats.NLP)
	assert.NotNil(t, r.Threats.URL)
	assert.NotNil(t, r.Threats.Visual)
	assert.Empty(t, r.Threats.NLP)
	assert.Equal(t, "N/A", r.TechnicalDetails.SpfDkimCheck)
	assert.Equal(t, "N/A", r.TechnicalDetails.DomainAge)
	assert.Equal(t, 0, r.TechnicalDetails.AIProbability)
	assert.Equal(t, StatusComplete, r.Status)
}

func TestNormalizeCoercesOutOfShapeValues(t *testing.T) {
	r := Normalize(map[string]any{
		"riskScore": 250.4,
		"riskLevel": " malicious ",
		"summary":   "",
		"threats": map[string]any{
			"nlp":     []any{"urgency", 7, nil, "fear"},
			"url":     "not-a-list",
			"visuals": []any{"fake logo"},
		},
		"technicalDetails": map[string]any{
			"aiProbability": "-5",
			"spfDkimCheck":  "FAIL",
		},
	})

	assert.Equal(t, 100, r.RiskScore)
	assert.Equal(t, RiskMalicious, r.RiskLevel)
	assert.Equal(t, "Analysis complete.", r.Summary)
	assert.Equal(t, []string{"urgency", "fear"}, r.Threats.NLP)
	assert.Equal(t, []string{}, r.Threats.URL)
	assert.Equal(t, []string{"fake logo"}, r.Threats.Visual)
	assert.Equal(t, 0, r.TechnicalDetails.AIProbability)
	assert.Equal(t, "FAIL", r.TechnicalDetails.SpfDkimCheck)
	assert.Equal(t, "N/A", r.TechnicalDetails.DomainAge)
}

func TestNormalizeUnknownRiskLevelFallsBackToSafe(t *testing.T) {
	r := Normalize(map[string]any{"riskLevel": "CATASTROPHIC", "riskScore": 90})
	assert.Equal(t, RiskSafe, r.RiskLevel)
	assert.Equal(t, 90, r.RiskScore)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw, err := ParseRaw(`{"riskScore": 61.6, "threats": {"nlp": ["a"]}, "technicalDetails": {"domainAge": "3 days"}}`)
	require.NoError(t, err)

	first := Normalize(raw)
	second := Normalize(raw)
	assert.Equal(t, first, second)
	assert.Equal(t, 62, first.RiskScore)
}

func TestNormalizeWellFormedRoundTrip(t *testing.T) {
	raw, err := ParseRaw(`{
		"riskScore": 88,
		"riskLevel": "MALICIOUS",
		"summary": "High-confidence phishing attempt using urgency and lookalike domain.",
		"threats": {
			"nlp": ["Urgency creation", "Fear appeal"],
			"url": ["Lookalike domain 'ups-delivery-status-update.com'"],
			"visual": []
		},
		"technicalDetails": {"spfDkimCheck": "FAIL", "domainAge": "< 24 hours", "aiProbability": 92}
	}`)
	require.NoError(t, err)

	want := Result{
		RiskScore: 88,
		RiskLevel: RiskMalicious,
		Summary:   "High-confidence phishing attempt using urgency and lookalike domain.",
		Threats: Threats{
			NLP:    []string{"Urgency creation", "Fear appeal"},
			URL:    []string{"Lookalike domain 'ups-delivery-status-update.com'"},
			Visual: []string{},
		},
		TechnicalDetails: TechnicalDetails{SpfDkimCheck: "FAIL", DomainAge: "< 24 hours", AIProbability: 92},
		Status:           StatusComplete,
	}
	assert.Equal(t, want, Normalize(raw))
}

func TestFallbackPlacesErrorInModalityCategory(t *testing.T) {
	tests := []struct {
		modality Modality
		nlp      int
		url      int
		visual   int
	}{
		{ModalityText, 1, 0, 0},
		{ModalitySMS, 1, 0, 0},
		{ModalityAPIKey, 1, 0, 0},
		{ModalityFile, 1, 0, 0},
		{ModalityURL, 0, 1, 0},
		{ModalityQR, 0, 1, 0},
		{ModalityImage, 0, 0, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.modality), func(t *testing.T) {
			r := Fallback(tt.modality)
			assert.Equal(t, 50, r.RiskScore)
			assert.Equal(t, RiskSuspicious, r.RiskLevel)
			assert.True(t, r.Degraded())
			assert.Len(t, r.Threats.NLP, tt.nlp)
			assert.Len(t, r.Threats.URL, tt.url)
			assert.Len(t, r.Threats.Visual, tt.visual)
			assert.Equal(t, "UNKNOWN", r.TechnicalDetails.SpfDkimCheck)
		})
	}
}

func TestParseModality(t *testing.T) {
	m, err := ParseModality(" URL ")
	require.NoError(t, err)
	assert.Equal(t, ModalityURL, m)

	_, err = ParseModality("fax")
	assert.ErrorIs(t, err, ErrInvalidModality)
}

func TestStripMarkdown(t *testing.T) {
	in := "# Steps\n**Rotate** the `key` and *audit* __logs__\n## Next"
	assert.Equal(t, "Steps\nRotate the key and audit logs\nNext", StripMarkdown(in))
}
