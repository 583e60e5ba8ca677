package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"smokestore-backend/utils"
)

// ErrNoAmount is returned when none of the amount patterns match the body.
var ErrNoAmount = errors.New("parser: no amount found")

// ParsedPayment holds the facts extracted from one confirmation email.
type ParsedPayment struct {
	Issuer       string  `json:"issuer"`
	Amount       float64 `json:"amount"`
	Reference    string  `json:"reference"`
	SenderHandle string  `json:"sender_handle"`
}

// Amount patterns, tried in order; the first pattern that matches wins even
// if a later pattern would match earlier in the text.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bRs\.?\s*([\d,]+(?:\.\d{1,2})?)`),
	regexp.MustCompile(`₹\s*([\d,]+(?:\.\d{1,2})?)`),
	regexp.MustCompile(`(?i)\bINR\s*([\d,]+(?:\.\d{1,2})?)`),
}

// Reference patterns, tried in order. The label is case-insensitive but the
// code itself must be an uppercase alphanumeric token.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:UPI\s*Ref(?:erence)?\s*(?:No\.?|Number)?\s*[:\-])\s*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i:Reference\s*(?:No\.?|Number)?\s*[:\-])\s*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i:Transaction\s*ID\s*[:\-])\s*([A-Z0-9]+)`),
}

// Issuer table, matched case-insensitively against the From header; order
// matters (first substring hit wins).
var issuerRules = []struct {
	substr string
	name   string
}{
	{"hdfcbank", "HDFC Bank"},
	{"phonepe", "PhonePe"},
	{"paytm", "Paytm"},
	{"icicibank", "ICICI Bank"},
	{"axisbank", "Axis Bank"},
	{"sbi", "SBI"},
	{"yesbank", "Yes Bank"},
	{"google", "Google Pay"},
}

// Parse extracts payment facts from a plain-text email body and its sender
// header. It fails only when no amount can be found; a missing reference or
// an unrecognized sender degrade to "N/A" / "Unknown".
func Parse(text, sender string) (*ParsedPayment, error) {
	amount, ok := firstAmount(text)
	if !ok {
		return nil, ErrNoAmount
	}

	reference := "N/A"
	for _, re := range referencePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			reference = m[1]
			break
		}
	}

	return &ParsedPayment{
		Issuer:       IdentifyIssuer(sender),
		Amount:       amount,
		Reference:    reference,
		SenderHandle: "N/A", // no VPA extraction from body yet
	}, nil
}

// IdentifyIssuer maps a sender header to a known bank or payment app.
func IdentifyIssuer(sender string) string {
	s := strings.ToLower(sender)
	for _, rule := range issuerRules {
		if strings.Contains(s, rule.substr) {
			return rule.name
		}
	}
	return "Unknown"
}

// ScanForAmount reports whether the text contains any monetary amount within
// tolerance of want. Used by the poll loop as a cheap pre-filter before the
// full Parse of the matched message.
func ScanForAmount(text string, want float64) bool {
	for _, re := range amountPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v, err := parseAmount(m[1]); err == nil && utils.AmountsMatch(v, want) {
				return true
			}
		}
	}
	return false
}

func firstAmount(text string) (float64, bool) {
	for _, re := range amountPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := parseAmount(m[1]); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
