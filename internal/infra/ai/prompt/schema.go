package prompt

import "github.com/sashabaranov/go-openai/jsonschema"

// SchemaName identifies the declared response schema to the provider.
const SchemaName = "analysis_result"

func stringArray(desc string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Array,
		Description: desc,
		Items:       &jsonschema.Definition{Type: jsonschema.String},
	}
}

// ResultSchema mirrors the analysis result shape.
func ResultSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"riskScore": {Type: jsonschema.Integer, Description: "0 to 100"},
			"riskLevel": {Type: jsonschema.String, Enum: []string{"SAFE", "SUSPICIOUS", "MALICIOUS"}},
			"summary":   {Type: jsonschema.String},
			"threats": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"nlp":    stringArray("Language and psychological findings"),
					"url":    stringArray("Domain and link findings"),
					"visual": stringArray("Branding and layout findings"),
				},
			},
			"technicalDetails": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"spfDkimCheck":  {Type: jsonschema.String},
					"domainAge":     {Type: jsonschema.String},
					"aiProbability": {Type: jsonschema.Integer, Description: "0 to 100"},
					"extractedUrl":  {Type: jsonschema.String},
				},
			},
		},
		Required: []string{"riskScore", "riskLevel", "summary", "threats", "technicalDetails"},
	}
}
