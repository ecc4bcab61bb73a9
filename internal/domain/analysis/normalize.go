package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	defaultSummary = "Analysis complete."
	notAvailable   = "N/A"
)

// ErrUnparseable is returned when no JSON object can be recovered from a reply.
var ErrUnparseable = errors.New("analysis: response is not a JSON object")

// ParseRaw turns model output into an untyped JSON object. It strips markdown
// fences, then tries the whole text, then the span between the first '{' and
// the last '}'.
func ParseRaw(text string) (map[string]any, error) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return nil, ErrUnparseable
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil && obj != nil {
		return obj, nil
	}

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first == -1 || last <= first {
		return nil, ErrUnparseable
	}
	obj = nil
	if err := json.Unmarshal([]byte(cleaned[first:last+1]), &obj); err != nil || obj == nil {
		return nil, ErrUnparseable
	}
	return obj, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// drop the info string, e.g. ```json
		if nl := strings.IndexByte(s, '\n'); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Normalize maps an arbitrary decoded object onto Result, defaulting every
// missing or malformed field. It has no hidden state.
func Normalize(raw map[string]any) Result {
	threats, _ := raw["threats"].(map[string]any)
	tech, _ := raw["technicalDetails"].(map[string]any)

	visual := stringList(threats["visual"])
	if _, ok := threats["visual"]; !ok {
		visual = stringList(threats["visuals"])
	}

	score, _ := toPercent(raw["riskScore"])
	aiProb, _ := toPercent(tech["aiProbability"])

	return Result{
		RiskScore: score,
		RiskLevel: toRiskLevel(raw["riskLevel"]),
		Summary:   stringOr(raw["summary"], defaultSummary),
		Threats: Threats{
			NLP:    stringList(threats["nlp"]),
			URL:    stringList(threats["url"]),
			Visual: visual,
		},
		TechnicalDetails: TechnicalDetails{
			SpfDkimCheck:  stringOr(tech["spfDkimCheck"], notAvailable),
			DomainAge:     stringOr(tech["domainAge"], notAvailable),
			AIProbability: aiProb,
			ExtractedURL:  stringOr(tech["extractedUrl"], ""),
		},
		Status: StatusComplete,
	}
}

// Fallback is the fixed degraded result for a failed scan of modality m.
func Fallback(m Modality) Result {
	r := Result{
		RiskScore: 50,
		RiskLevel: RiskSuspicious,
		Summary:   "Analysis failed or timed out. Treat with caution.",
		Threats: Threats{
			NLP:    []string{},
			URL:    []string{},
			Visual: []string{},
		},
		TechnicalDetails: TechnicalDetails{
			SpfDkimCheck:  "UNKNOWN",
			DomainAge:     "UNKNOWN",
			AIProbability: 0,
		},
		Status: StatusUnavailable,
	}
	switch m {
	case ModalityURL, ModalityQR:
		r.Threats.URL = []string{"Analysis Error"}
	case ModalityImage:
		r.Threats.Visual = []string{"Analysis Error"}
	default:
		r.Threats.NLP = []string{"Analysis Error"}
	}
	return r
}

func toRiskLevel(v any) RiskLevel {
	s, _ := v.(string)
	l := RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return RiskSafe
	}
	return l
}

func stringOr(v any, def string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func stringList(v any) []string {
	out := []string{}
	switch items := v.(type) {
	case []string:
		out = append(out, items...)
	case []any:
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// toPercent reads a number (or numeric string), rounds it and clamps to 0..100.
func toPercent(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%")), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	f = math.Round(f)
	if f < 0 {
		f = 0
	}
	if f > 100 {
		f = 100
	}
	return int(f), true
}
