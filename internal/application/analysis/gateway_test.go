package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	domai "github.com/bryanwahyu/sentinelai/internal/domain/ai"
	domain "github.com/bryanwahyu/sentinelai/internal/domain/analysis"
	"github.com/bryanwahyu/sentinelai/internal/logger"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Complete(ctx context.Context, c domai.Completion) (string, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Error(1)
}

func newGateway(m *MockClient) *Gateway {
	return NewGateway(m, logger.Discard())
}

func assertWellFormed(t *testing.T, r domain.Result) {
	t.Helper()
	assert.GreaterOrEqual(t, r.RiskScore, 0)
	assert.LessOrEqual(t, r.RiskScore, 100)
	assert.True(t, r.RiskLevel.Valid())
	assert.NotNil(t, r.Threats.NLP)
	assert.NotNil(t, r.Threats.URL)
	assert.NotNil(t, r.Threats.Visual)
}

func TestStructuredScansAlwaysWellFormed(t *testing.T) {
	replies := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "full", reply: `{"riskScore":70,"riskLevel":"SUSPICIOUS","summary":"s","threats":{"nlp":[],"url":["x"],"visual":[]},"technicalDetails":{"spfDkimCheck":"FAIL","domainAge":"2d","aiProbability":40}}`},
		{name: "partial", reply: `{"riskLevel":"MALICIOUS"}`},
		{name: "fenced", reply: "```json\n{\"riskScore\": 5}\n```"},
		{name: "garbage", reply: "sorry, I cannot help"},
		{name: "transport", err: errors.New("dial tcp: connection refused")},
	}

	calls := map[string]func(g *Gateway) domain.Result{
		"text":   func(g *Gateway) domain.Result { return g.AnalyzeText(context.Background(), "s", "f", "b") },
		"url":    func(g *Gateway) domain.Result { return g.AnalyzeURL(context.Background(), "http://x.top") },
		"apikey": func(g *Gateway) domain.Result { return g.AnalyzeAPIKey(context.Background(), "AKIA...") },
		"sms":    func(g *Gateway) domain.Result { return g.AnalyzeSMS(context.Background(), "pay now") },
	}

	for _, rp := range replies {
		for name, call := range calls {
			t.Run(rp.name+"/"+name, func(t *testing.T) {
				m := new(MockClient)
				m.On("Complete", mock.Anything, mock.Anything).Return(rp.reply, rp.err)
				assertWellFormed(t, call(newGateway(m)))
				m.AssertNumberOfCalls(t, "Complete", 1)
			})
		}
	}
}

func TestTextFallbackWhenServiceUnreachable(t *testing.T) {
	m := new(MockClient)
	m.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("service unreachable"))

	r := newGateway(m).AnalyzeText(context.Background(),
		"ACTION REQUIRED: Your Microsoft 365 Password Expires Today",
		"security@ms-auth-portal-update.net",
		"Your password expires. [ Click Here to Validate Now ]")

	assert.Equal(t, 50, r.RiskScore)
	assert.Equal(t, domain.RiskSuspicious, r.RiskLevel)
	assert.Equal(t, []string{"Analysis Error"}, r.Threats.NLP)
	assert.Equal(t, domain.StatusUnavailable, r.Status)
}

func TestUnparseableReplyYieldsFallback(t *testing.T) {
	m := new(MockClient)
	m.On("Complete", mock.Anything, mock.Anything).Return("no json here", nil)

	r := newGateway(m).AnalyzeURL(context.Background(), "https://secure-login-apple-id.verify-account-updates.com")
	assert.Equal(t, domain.Fallback(domain.ModalityURL), r)
}

func TestTextScansDeclareSchema(t *testing.T) {
	m := new(MockClient)
	m.On("Complete", mock.Anything, mock.MatchedBy(func(c domai.Completion) bool {
		return c.Schema && c.ImageBase64 == "" && c.System != ""
	})).Return(`{"riskScore": 1}`, nil)

	newGateway(m).AnalyzeFile(context.Background(), "notes.txt", "hello")
	m.AssertExpectations(t)
}

func TestImageScanSendsInlineBytes(t *testing.T) {
	m := new(MockClient)
	m.On("Complete", mock.Anything, mock.MatchedBy(func(c domai.Completion) bool {
		return c.ImageBase64 == "aGVsbG8=" && c.JSON && !c.Schema
	})).Return(`{"riskScore": 30, "threats": {"visuals": ["fake logo"]}}`, nil)

	r := newGateway(m).AnalyzeImage(context.Background(), "aGVsbG8=")
	assert.Equal(t, []string{"fake logo"}, r.Threats.Visual)
	assert.Equal(t, "N/A (Image Scan)", r.TechnicalDetails.SpfDkimCheck)
	m.AssertExpectations(t)
}

func TestQRFallbackUsesURLCategory(t *testing.T) {
	m := new(MockClient)
	m.On("Complete", mock.Anything, mock.Anything).Return("", domai.ErrQuotaExceeded)

	r := newGateway(m).AnalyzeQR(context.Background(), "aGVsbG8=")
	assert.Equal(t, []string{"Analysis Error"}, r.Threats.URL)
	assert.Empty(t, r.Threats.NLP)
}

func TestAnalyzeDispatchesByModality(t *testing.T) {
	m := new(MockClient)
	m.On("Complete", mock.Anything, mock.MatchedBy(func(c domai.Completion) bool {
		return c.ImageBase64 == "" && c.Schema
	})).Return(`{"riskScore": 77, "riskLevel": "MALICIOUS"}`, nil)

	r := newGateway(m).Analyze(context.Background(), domain.Request{Modality: domain.ModalitySMS, SMS: "win a prize"})
	assert.Equal(t, 77, r.RiskScore)
	assert.Equal(t, domain.RiskMalicious, r.RiskLevel)
}

func TestAskAdvisor(t *testing.T) {
	t.Run("returns raw text", func(t *testing.T) {
		m := new(MockClient)
		m.On("Complete", mock.Anything, mock.MatchedBy(func(c domai.Completion) bool {
			return c.Prompt == "How do I spot smishing?" && !c.Schema && !c.JSON
		})).Return("**Check** the sender", nil)
		assert.Equal(t, "**Check** the sender", newGateway(m).AskAdvisor(context.Background(), "How do I spot smishing?"))
	})

	t.Run("static fallback on failure", func(t *testing.T) {
		m := new(MockClient)
		m.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("timeout"))
		assert.Equal(t, AdvisorFallback, newGateway(m).AskAdvisor(context.Background(), "hi"))
	})
}

func TestAskSiteGuide(t *testing.T) {
	t.Run("uses the guide persona", func(t *testing.T) {
		m := new(MockClient)
		m.On("Complete", mock.Anything, mock.MatchedBy(func(c domai.Completion) bool {
			return strings.HasPrefix(c.System, "You are SentinelBot") && c.Prompt == "Where is my history?"
		})).Return("Open the session history.", nil)
		assert.Equal(t, "Open the session history.", newGateway(m).AskSiteGuide(context.Background(), "Where is my history?"))
		m.AssertExpectations(t)
	})

	t.Run("empty reply falls back", func(t *testing.T) {
		m := new(MockClient)
		m.On("Complete", mock.Anything, mock.Anything).Return("  ", nil)
		assert.Equal(t, GuideFallback, newGateway(m).AskSiteGuide(context.Background(), "hi"))
	})

	t.Run("error falls back", func(t *testing.T) {
		m := new(MockClient)
		m.On("Complete", mock.Anything, mock.Anything).Return("", domai.ErrQuotaExceeded)
		assert.Equal(t, GuideFallback, newGateway(m).AskSiteGuide(context.Background(), "hi"))
	})
}
