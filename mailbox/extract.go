package mailbox

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ExtractBody decodes a message's transport-encoded body into plain text.
// Resolution order, first success wins:
//  1. the top-level body payload, if present
//  2. the first text/plain part, recursing into nested parts
//  3. the first text/html part, with markup stripped
//  4. the first part of any type with decodable data
//
// It returns whatever it found, including ""; callers decide how short is
// too short.
func ExtractBody(m *Message) string {
	if m == nil || m.Payload == nil {
		return ""
	}

	if text, ok := decodePart(m.Payload); ok && text != "" {
		if strings.HasPrefix(m.Payload.MimeType, "text/html") {
			return StripHTML(text)
		}
		return text
	}

	if p := findPart(m.Payload.Parts, "text/plain"); p != nil {
		if text, ok := decodePart(p); ok {
			return text
		}
	}

	if p := findPart(m.Payload.Parts, "text/html"); p != nil {
		if text, ok := decodePart(p); ok {
			return StripHTML(text)
		}
	}

	if text, ok := firstDecodable(m.Payload.Parts); ok {
		return text
	}
	return ""
}

// StripHTML removes markup tags and collapses runs of whitespace to single
// spaces.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// findPart walks the part tree depth-first for the first part of the given
// media type that actually carries data.
func findPart(parts []*Part, mimeType string) *Part {
	for _, p := range parts {
		if p == nil {
			continue
		}
		if strings.HasPrefix(p.MimeType, mimeType) && p.Body != nil && p.Body.Data != "" {
			return p
		}
		if nested := findPart(p.Parts, mimeType); nested != nil {
			return nested
		}
	}
	return nil
}

func firstDecodable(parts []*Part) (string, bool) {
	for _, p := range parts {
		if p == nil {
			continue
		}
		if text, ok := decodePart(p); ok && text != "" {
			return text, true
		}
		if text, ok := firstDecodable(p.Parts); ok {
			return text, true
		}
	}
	return "", false
}

func decodePart(p *Part) (string, bool) {
	if p == nil || p.Body == nil || p.Body.Data == "" {
		return "", false
	}
	text, err := decodeBase64URL(p.Body.Data)
	if err != nil {
		return "", false
	}
	return text, true
}

// decodeBase64URL undoes the provider's URL-safe alphabet (-_ for +/) and
// then applies standard base64 decoding, tolerating missing padding.
func decodeBase64URL(data string) (string, error) {
	s := strings.ReplaceAll(data, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	s = strings.TrimRight(s, "=")
	b, err := base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
