package prompt

import (
	"fmt"
	"strings"
)

// MaxFileChars caps how much of an uploaded file is embedded in the prompt.
const MaxFileChars = 15000

// AdvisorPersona is the fixed system instruction for the advisory chat.
const AdvisorPersona = `You are an elite cybersecurity consultant for SentinelAI. Give concise, immediate and actionable security advice. Keep answers technical, under 200 words, and use bullet points.`

// GuidePersona drives the navigation helper. It answers how-to questions about
// the service itself, not security analysis.
const GuidePersona = `You are SentinelBot, the SentinelAI assistant. Help users find their way around SentinelAI in plain text: which scan type to pick (email text, URL, API key, screenshot, SMS, QR code, file), how to read a risk score, and where reports and history live. No markdown.`

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior phishing and fraud analyst. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- riskScore is an integer from 0 to 100.
- riskLevel is exactly one of SAFE, SUSPICIOUS, MALICIOUS.
- threats.nlp, threats.url and threats.visual are arrays of short finding strings; use an empty array when a category does not apply.
- technicalDetails.aiProbability is an integer from 0 to 100.

Schema (example with empty values):
{
  "riskScore": 0,
  "riskLevel": "<SAFE|SUSPICIOUS|MALICIOUS>",
  "summary": "<string>",
  "threats": {"nlp": ["<string>"], "url": ["<string>"], "visual": ["<string>"]},
  "technicalDetails": {
    "spfDkimCheck": "<string>",
    "domainAge": "<string>",
    "aiProbability": 0,
    "extractedUrl": "<string, QR scans only>"
  }
}`
}

// EmailPrompt builds the text-analysis instruction.
func EmailPrompt(subject, sender, body string) string {
	return fmt.Sprintf(`Analyze the following email for sophisticated AI-generated phishing.

Sender: %s
Subject: %s
Body: %s

Focus on:
1. Psychological manipulation such as urgency, fear or curiosity (report under threats.nlp).
2. URL and domain anomalies such as lookalike domains (threats.url).
3. AI-generation artifacts such as unnatural phrasing or generic structure (technicalDetails.aiProbability).
4. Likelihood of spoofing based on the sender format (technicalDetails.spfDkimCheck as PASS, FAIL or SOFTFAIL).`, sender, subject, body)
}

// URLPrompt builds the URL forensic instruction.
func URLPrompt(url string) string {
	return fmt.Sprintf(`Analyze this URL for phishing, fraud or malicious redirects.
URL: %s

Inspect the string structure:
1. Typosquatting (for example goog1e.com).
2. Top-level domain reputation (.xyz, .top and .cam are common in spam).
3. Sub-domain masking (for example paypal.com.account-verify.net).
4. URL shorteners or obfuscation.

Mark a legitimate major brand as SAFE and a mimic as MALICIOUS.
Put structural issues in threats.url and suspicious keywords in threats.nlp; leave threats.visual empty.
Set technicalDetails.spfDkimCheck to "N/A", estimate technicalDetails.domainAge from the structure, and use technicalDetails.aiProbability for the likelihood the domain was algorithmically generated.`, url)
}

// APIKeyPrompt builds the secret-string audit instruction.
func APIKeyPrompt(key string) string {
	return fmt.Sprintf(`Decide whether this string is a sensitive API key, private token or secret credential.
String: %q

1. Identify the likely provider from common prefixes (sk_live_ for Stripe, AKIA for AWS, ghp_ for GitHub).
2. Judge its entropy.
3. Decide whether it is a test key (low risk) or a production key (high risk if exposed).

Put format warnings in threats.nlp and leave threats.url and threats.visual empty.
Store the detected provider in technicalDetails.spfDkimCheck, the entropy level (Low, Medium, High) in technicalDetails.domainAge and the probability it is a valid secret in technicalDetails.aiProbability.`, key)
}

// SMSPrompt builds the smishing instruction.
func SMSPrompt(text string) string {
	return fmt.Sprintf(`Analyze this SMS message for smishing and fraud.
Message: %q

Report manipulation tactics in threats.nlp and any links or short codes in threats.url. Leave threats.visual empty and set technicalDetails.spfDkimCheck to "N/A".`, text)
}

// QRPrompt is the instruction sent with a QR code image.
func QRPrompt() string {
	return `Decode the QR code in this image and analyze the destination URL for phishing. Put the decoded URL in technicalDetails.extractedUrl and URL issues in threats.url. Return only the JSON object described in the system message.`
}

// ImagePrompt is the instruction sent with a screenshot.
func ImagePrompt() string {
	return `Analyze this screenshot of an email or message. Look for:
1. Visual brand mismatches (for example an Apple logo with a gmail.com sender).
2. Suspicious layout or blurry assets typical of mass-produced phishing.
3. Fake urgency buttons or overlays.

Report visual findings in threats.visual. Return only the JSON object described in the system message.`
}

// FilePrompt builds the file audit instruction; content beyond MaxFileChars is dropped.
func FilePrompt(name, content string) string {
	return fmt.Sprintf(`Audit the file %q for phishing lures, embedded malicious links and leaked credentials.

Content:
%s`, name, Truncate(content, MaxFileChars))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Sanitize strips NUL bytes that some providers reject.
func Sanitize(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
