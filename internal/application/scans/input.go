package scans

import (
	"encoding/base64"
	"strings"

	"github.com/bryanwahyu/sentinelai/internal/domain/analysis"
)

// MaxImageBytes is the largest decoded image accepted for visual scans.
const MaxImageBytes = 5 * 1024 * 1024

// Input holds the pending fields of every modality; only the active
// modality's field is read.
type Input struct {
	Text        string `json:"text,omitempty"`
	URL         string `json:"url,omitempty"`
	Key         string `json:"apikey,omitempty"`
	Image       string `json:"image,omitempty"` // raw base64 or a data: URL
	SMS         string `json:"sms,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	FileContent string `json:"fileContent,omitempty"`
}

var requiredMessages = map[analysis.Modality]*ValidationError{
	analysis.ModalityText:   {Field: "text", Message: "Please enter the email content to analyze."},
	analysis.ModalityURL:    {Field: "url", Message: "Please enter a URL to inspect."},
	analysis.ModalityAPIKey: {Field: "apikey", Message: "Please enter an API key string to check."},
	analysis.ModalityImage:  {Field: "image", Message: "Please upload an image screenshot first."},
	analysis.ModalitySMS:    {Field: "sms", Message: "Please enter the SMS message to analyze."},
	analysis.ModalityQR:     {Field: "image", Message: "Please upload a QR code image first."},
	analysis.ModalityFile:   {Field: "fileContent", Message: "Please upload a file with readable content."},
}

func missing(m analysis.Modality) *ValidationError {
	v := *requiredMessages[m]
	return &v
}

// buildRequest validates in for modality m and returns the gateway request
// together with the display subject and sender.
func buildRequest(m analysis.Modality, in Input) (analysis.Request, string, string, *ValidationError) {
	req := analysis.Request{Modality: m}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch m {
	case analysis.ModalityText:
		if blank(in.Text) {
			return req, "", "", missing(m)
		}
		req.Subject, req.Sender, req.Body = parseEmail(in.Text)
		return req, req.Subject, req.Sender, nil

	case analysis.ModalityURL:
		if blank(in.URL) {
			return req, "", "", missing(m)
		}
		req.URL = strings.TrimSpace(in.URL)
		return req, "URL Inspection", req.URL, nil

	case analysis.ModalityAPIKey:
		if blank(in.Key) {
			return req, "", "", missing(m)
		}
		req.Key = strings.TrimSpace(in.Key)
		return req, "Credential Audit", "Source Code Scan", nil

	case analysis.ModalitySMS:
		if blank(in.SMS) {
			return req, "", "", missing(m)
		}
		req.SMS = in.SMS
		return req, "SMS Scan", "Mobile Message", nil

	case analysis.ModalityFile:
		if blank(in.FileContent) {
			return req, "", "", missing(m)
		}
		req.FileName = strings.TrimSpace(in.FileName)
		if req.FileName == "" {
			req.FileName = "untitled"
		}
		req.FileContent = in.FileContent
		return req, "File Audit", req.FileName, nil

	case analysis.ModalityImage, analysis.ModalityQR:
		mime, data := splitDataURL(in.Image)
		if blank(data) {
			return req, "", "", missing(m)
		}
		if decodedSize(data) > MaxImageBytes {
			return req, "", "", &ValidationError{Field: "image", Message: "File size too large. Please upload an image under 5MB."}
		}
		req.ImageBase64, req.ImageMIME = data, mime
		if m == analysis.ModalityQR {
			return req, "QR Code Scan", "QR Decoder", nil
		}
		return req, "Image Scan", "Visual Analysis", nil
	}
	return req, "", "", &ValidationError{Field: "modality", Message: "Unsupported scan type."}
}

// parseEmail pulls Subject:/From: header lines out of pasted email text; the
// whole text stays the body.
func parseEmail(raw string) (subject, sender, body string) {
	subject, sender = "Unknown Subject", "Unknown Sender"
	foundSubject, foundSender := false, false
	for _, line := range strings.Split(raw, "\n") {
		l := strings.TrimSpace(line)
		lower := strings.ToLower(l)
		switch {
		case !foundSubject && strings.HasPrefix(lower, "subject:"):
			subject = strings.TrimSpace(l[len("subject:"):])
			foundSubject = true
		case !foundSender && strings.HasPrefix(lower, "from:"):
			sender = strings.TrimSpace(l[len("from:"):])
			foundSender = true
		}
	}
	return subject, sender, raw
}

// decodedSize is the exact byte length of base64 data, padding excluded.
func decodedSize(data string) int {
	data = strings.TrimRight(strings.TrimSpace(data), "=")
	return base64.RawStdEncoding.DecodedLen(len(data))
}

// splitDataURL accepts "data:image/png;base64,AAAA" or plain base64.
func splitDataURL(s string) (mime, data string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	comma := strings.IndexByte(s, ',')
	if comma == -1 {
		return "", ""
	}
	header := s[len("data:"):comma]
	if semi := strings.IndexByte(header, ';'); semi != -1 {
		header = header[:semi]
	}
	return header, s[comma+1:]
}
