package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/sentinelai/internal/domain/ai"
	"github.com/bryanwahyu/sentinelai/internal/infra/ai/prompt"
)

const (
	defaultMaxTokens   = 2048
	defaultTextModel   = "gpt-4o-mini"
	defaultVisionModel = "gpt-4o-mini"
)

// Options configures the client. BaseURL may point at any OpenAI-compatible
// endpoint (for example Gemini's /v1beta/openai/).
type Options struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	VisionModel string
	MaxTokens   int
	HTTPClient  *http.Client
}

type Client struct {
	*openai.Client
	TextModel   string
	VisionModel string
	MaxTokens   int
}

func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	c := &Client{
		Client:      openai.NewClientWithConfig(cfg),
		TextModel:   opts.TextModel,
		VisionModel: opts.VisionModel,
		MaxTokens:   opts.MaxTokens,
	}
	if c.TextModel == "" {
		c.TextModel = defaultTextModel
	}
	if c.VisionModel == "" {
		c.VisionModel = defaultVisionModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	return c
}

// Complete issues a single chat completion and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, in domai.Completion) (string, error) {
	req := c.buildRequest(in)

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", domai.ErrEmptyResponse
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", domai.ErrEmptyResponse
	}
	return content, nil
}

func (c *Client) buildRequest(in domai.Completion) openai.ChatCompletionRequest {
	model := c.TextModel
	if in.ImageBase64 != "" {
		model = c.VisionModel
	}

	var msgs []openai.ChatCompletionMessage
	if in.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: in.System})
	}
	if in.ImageBase64 != "" {
		mime := in.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    fmt.Sprintf("data:%s;base64,%s", mime, in.ImageBase64),
						Detail: openai.ImageURLDetailAuto,
					},
				},
				{Type: openai.ChatMessagePartTypeText, Text: in.Prompt},
			},
		})
	} else {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: in.Prompt})
	}

	req := openai.ChatCompletionRequest{Model: model, Messages: msgs}
	switch {
	case in.Schema:
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   prompt.SchemaName,
				Schema: prompt.ResultSchema(),
			},
		}
	case in.JSON:
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		req.MaxCompletionTokens = c.MaxTokens
	} else {
		req.MaxTokens = c.MaxTokens
	}
	return req
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s", domai.ErrQuotaExceeded, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", domai.ErrQuotaExceeded, reqErr.Err)
	}
	return fmt.Errorf("failed to create chat completion: %w", err)
}
