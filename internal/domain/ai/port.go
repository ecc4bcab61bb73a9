package ai

import "context"

// Completion is one request to the generative service.
type Completion struct {
	// System is the persona/instruction message, optional.
	System string
	Prompt string
	// ImageBase64 switches the call to the vision model when set.
	ImageBase64 string
	ImageMIME   string
	// JSON asks for a JSON object reply; with Schema set the reply is
	// constrained to the analysis result schema.
	JSON   bool
	Schema bool
}

type Client interface {
	Complete(ctx context.Context, c Completion) (string, error)
}
