package analysis

// RiskLevel enum
type RiskLevel string

const (
	RiskSafe       RiskLevel = "SAFE"
	RiskSuspicious RiskLevel = "SUSPICIOUS"
	RiskMalicious  RiskLevel = "MALICIOUS"
)

// Valid reports whether l is one of the three known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskSafe, RiskSuspicious, RiskMalicious:
		return true
	}
	return false
}

// Status tells a real verdict apart from the degraded placeholder.
type Status string

const (
	StatusComplete    Status = "complete"
	StatusUnavailable Status = "unavailable"
)

// Threats groups findings by category.
type Threats struct {
	NLP    []string `json:"nlp"`
	URL    []string `json:"url"`
	Visual []string `json:"visual"`
}

// TechnicalDetails are model-reported fields. For key scans SpfDkimCheck holds
// the detected provider and DomainAge the entropy level.
type TechnicalDetails struct {
	SpfDkimCheck  string `json:"spfDkimCheck"`
	DomainAge     string `json:"domainAge"`
	AIProbability int    `json:"aiProbability"`
	ExtractedURL  string `json:"extractedUrl,omitempty"`
}

// Result is the fixed-shape verdict returned for every scan.
type Result struct {
	RiskScore        int              `json:"riskScore"`
	RiskLevel        RiskLevel        `json:"riskLevel"`
	Summary          string           `json:"summary"`
	Threats          Threats          `json:"threats"`
	TechnicalDetails TechnicalDetails `json:"technicalDetails"`
	Status           Status           `json:"status"`
}

// Degraded reports whether r is the placeholder produced on failure.
func (r Result) Degraded() bool { return r.Status == StatusUnavailable }
