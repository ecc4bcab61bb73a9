package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidModality is returned for names outside Modalities.
var ErrInvalidModality = errors.New("invalid modality")

// Modality is the category of input being analyzed.
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityURL    Modality = "url"
	ModalityAPIKey Modality = "apikey"
	ModalityImage  Modality = "image"
	ModalitySMS    Modality = "sms"
	ModalityQR     Modality = "qr"
	ModalityFile   Modality = "file"
)

// Modalities lists every supported modality in display order.
var Modalities = []Modality{
	ModalityText, ModalityURL, ModalityAPIKey, ModalityImage, ModalitySMS, ModalityQR, ModalityFile,
}

// ParseModality accepts any casing and surrounding whitespace.
func ParseModality(s string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modalities {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidModality, s)
}

// Visual reports whether the modality carries image bytes.
func (m Modality) Visual() bool {
	return m == ModalityImage || m == ModalityQR
}

// Request is the modality-specific payload handed to the gateway.
type Request struct {
	Modality    Modality
	Subject     string
	Sender      string
	Body        string
	URL         string
	Key         string
	ImageBase64 string
	ImageMIME   string
	SMS         string
	FileName    string
	FileContent string
}
