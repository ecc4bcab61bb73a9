// Package report renders finished scans into human-readable documents.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	domain "github.com/bryanwahyu/sentinelai/internal/domain/scans"
)

// Format of an exported report
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("invalid report format: %q (allowed: markdown, json)", s)
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/markdown; charset=utf-8"
}

func (f Format) Ext() string {
	if f == FormatJSON {
		return "json"
	}
	return "md"
}

type section struct {
	Title string
	Items []string
}

var markdownTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"ts":      func(t time.Time) string { return t.UTC().Format(time.RFC1123) },
	"section": func(title string, items []string) section { return section{Title: title, Items: items} },
}).Parse(`# SentinelAI Threat Report

| Field | Value |
| --- | --- |
| Scan ID | {{.ID}} |
| Type | {{.Type}} |
| Subject | {{.Subject}} |
| Sender | {{.Sender}} |
| Scanned at | {{ts .Timestamp}} |
| Risk | **{{.Result.RiskLevel}}** ({{.Result.RiskScore}}/100) |
{{- if .Result.Degraded}}
| Status | analysis unavailable, verdict is a placeholder |
{{- end}}

## Summary

{{.Result.Summary}}

## Findings
{{template "list" (section "Language & intent" .Result.Threats.NLP)}}
{{template "list" (section "Links & domains" .Result.Threats.URL)}}
{{template "list" (section "Visual" .Result.Threats.Visual)}}
## Technical details

- SPF/DKIM: {{.Result.TechnicalDetails.SpfDkimCheck}}
- Domain age: {{.Result.TechnicalDetails.DomainAge}}
- AI generation probability: {{.Result.TechnicalDetails.AIProbability}}%
{{- with .Result.TechnicalDetails.ExtractedURL}}
- Extracted URL: {{.}}
{{- end}}
{{define "list"}}
### {{.Title}}
{{if .Items}}{{range .Items}}
- {{.}}{{end}}{{else}}
_None detected._{{end}}
{{end}}`))

// Render returns the document bytes for item in format f.
func Render(item domain.HistoryItem, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(item, "", "  ")
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := markdownTmpl.Execute(&buf, item); err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("invalid report format: %q", f)
}

// Key is the object key a report is stored under.
func Key(item domain.HistoryItem, f Format) string {
	session := item.SessionID
	if session == "" {
		session = "-"
	}
	return fmt.Sprintf("reports/%s/%s.%s", session, item.ID, f.Ext())
}
