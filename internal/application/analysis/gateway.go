package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domai "github.com/bryanwahyu/sentinelai/internal/domain/ai"
	domain "github.com/bryanwahyu/sentinelai/internal/domain/analysis"
	"github.com/bryanwahyu/sentinelai/internal/infra/ai/prompt"
	"github.com/bryanwahyu/sentinelai/internal/logger"
)

// AdvisorFallback is returned whenever the advisory call fails.
const AdvisorFallback = "Connection to Security Advisor failed."

// GuideFallback is returned whenever the site guide call fails.
const GuideFallback = "Assistant unavailable."

// Gateway turns one typed input into one normalized result. None of its
// methods return an error: failures become domain.Fallback.
type Gateway struct {
	client domai.Client
	log    *logrus.Entry
}

func NewGateway(client domai.Client, log logrus.FieldLogger) *Gateway {
	return &Gateway{client: client, log: logger.Component(log, "gateway")}
}

// Analyze dispatches on req.Modality.
func (g *Gateway) Analyze(ctx context.Context, req domain.Request) domain.Result {
	switch req.Modality {
	case domain.ModalityText:
		return g.AnalyzeText(ctx, req.Subject, req.Sender, req.Body)
	case domain.ModalityURL:
		return g.AnalyzeURL(ctx, req.URL)
	case domain.ModalityAPIKey:
		return g.AnalyzeAPIKey(ctx, req.Key)
	case domain.ModalitySMS:
		return g.AnalyzeSMS(ctx, req.SMS)
	case domain.ModalityQR:
		return g.analyzeVisual(ctx, domain.ModalityQR, req.ImageBase64, req.ImageMIME)
	case domain.ModalityImage:
		return g.analyzeVisual(ctx, domain.ModalityImage, req.ImageBase64, req.ImageMIME)
	case domain.ModalityFile:
		return g.AnalyzeFile(ctx, req.FileName, req.FileContent)
	default:
		g.log.WithField("modality", req.Modality).Warn("unknown modality, returning fallback")
		return domain.Fallback(req.Modality)
	}
}

func (g *Gateway) AnalyzeText(ctx context.Context, subject, sender, body string) domain.Result {
	return g.run(ctx, domain.ModalityText, domai.Completion{
		Prompt: prompt.EmailPrompt(subject, sender, prompt.Sanitize(body)),
		Schema: true,
	})
}

func (g *Gateway) AnalyzeURL(ctx context.Context, url string) domain.Result {
	return g.run(ctx, domain.ModalityURL, domai.Completion{Prompt: prompt.URLPrompt(url), Schema: true})
}

func (g *Gateway) AnalyzeAPIKey(ctx context.Context, key string) domain.Result {
	return g.run(ctx, domain.ModalityAPIKey, domai.Completion{Prompt: prompt.APIKeyPrompt(key), Schema: true})
}

func (g *Gateway) AnalyzeSMS(ctx context.Context, text string) domain.Result {
	return g.run(ctx, domain.ModalitySMS, domai.Completion{Prompt: prompt.SMSPrompt(text), Schema: true})
}

func (g *Gateway) AnalyzeFile(ctx context.Context, name, content string) domain.Result {
	return g.run(ctx, domain.ModalityFile, domai.Completion{
		Prompt: prompt.FilePrompt(name, prompt.Sanitize(content)),
		Schema: true,
	})
}

// AnalyzeQR expects raw base64 without a data: prefix.
func (g *Gateway) AnalyzeQR(ctx context.Context, base64Image string) domain.Result {
	return g.analyzeVisual(ctx, domain.ModalityQR, base64Image, "")
}

// AnalyzeImage expects raw base64 without a data: prefix.
func (g *Gateway) AnalyzeImage(ctx context.Context, base64Image string) domain.Result {
	return g.analyzeVisual(ctx, domain.ModalityImage, base64Image, "")
}

func (g *Gateway) analyzeVisual(ctx context.Context, m domain.Modality, data, mime string) domain.Result {
	instruction := prompt.ImagePrompt()
	if m == domain.ModalityQR {
		instruction = prompt.QRPrompt()
	}
	res := g.run(ctx, m, domai.Completion{
		System:      prompt.GetSystemPrompt(),
		Prompt:      instruction,
		ImageBase64: data,
		ImageMIME:   mime,
		JSON:        true,
	})
	if m == domain.ModalityImage && !res.Degraded() {
		res.TechnicalDetails.SpfDkimCheck = "N/A (Image Scan)"
	}
	return res
}

func (g *Gateway) run(ctx context.Context, m domain.Modality, c domai.Completion) domain.Result {
	if c.System == "" {
		c.System = prompt.GetSystemPrompt()
	}
	start := time.Now()
	entry := g.log.WithField("modality", m)

	text, err := g.client.Complete(ctx, c)
	if err != nil {
		entry.WithError(err).WithField("duration", time.Since(start).String()).Warn("analysis call failed, using fallback")
		return domain.Fallback(m)
	}

	raw, err := domain.ParseRaw(text)
	if err != nil {
		entry.WithError(err).WithField("response_len", len(text)).Warn("unparseable analysis response, using fallback")
		return domain.Fallback(m)
	}

	res := domain.Normalize(raw)
	entry.WithFields(logrus.Fields{
		"duration":   time.Since(start).String(),
		"risk_level": res.RiskLevel,
		"risk_score": res.RiskScore,
	}).Info("analysis complete")
	return res
}

// AskAdvisor answers a free-form question with the fixed consultant persona.
func (g *Gateway) AskAdvisor(ctx context.Context, question string) string {
	return g.chat(ctx, "advisor", prompt.AdvisorPersona, question, AdvisorFallback)
}

// AskSiteGuide answers navigation questions as SentinelBot.
func (g *Gateway) AskSiteGuide(ctx context.Context, question string) string {
	return g.chat(ctx, "guide", prompt.GuidePersona, question, GuideFallback)
}

// chat is a plain-text completion; any failure or empty reply becomes fallback.
func (g *Gateway) chat(ctx context.Context, assistant, persona, question, fallback string) string {
	text, err := g.client.Complete(ctx, domai.Completion{
		System: persona,
		Prompt: question,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		g.log.WithError(err).WithField("assistant", assistant).Warn("assistant call failed")
		return fallback
	}
	return text
}
