package gateway

import (
	"errors"
	"strings"

	"ussd-gateway/internal/ussd"
)

// Aggregator callback form fields. The shape follows the common
// Africa's Talking-style POST contract.
const (
	fieldSessionID   = "sessionId"
	fieldPhoneNumber = "phoneNumber"
	fieldServiceCode = "serviceCode"
	fieldText        = "text"
)

var (
	errMissingSessionID = errors.New("gateway: sessionId is required")
	errMissingPhone     = errors.New("gateway: phoneNumber is required")
)

type formReader interface {
	PostForm(key string) string
}

// parseInbound decodes and normalizes the aggregator form into an
// engine request. Text is passed through untouched; token handling is
// the engine's job.
func parseInbound(f formReader) (ussd.Request, error) {
	req := ussd.Request{
		SessionID:   strings.TrimSpace(f.PostForm(fieldSessionID)),
		PhoneNumber: normalizePhone(f.PostForm(fieldPhoneNumber)),
		Text:        f.PostForm(fieldText),
	}
	if req.SessionID == "" {
		return ussd.Request{}, errMissingSessionID
	}
	if req.PhoneNumber == "" {
		return ussd.Request{}, errMissingPhone
	}
	return req, nil
}

// normalizePhone canonicalizes MSISDNs so the same subscriber always
// maps to the same session key regardless of aggregator formatting.
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '+' && b.Len() == 0:
			b.WriteRune(c)
		}
		// Spaces, dashes and parentheses are dropped.
	}
	s := b.String()
	if s == "" || s == "+" {
		return ""
	}
	if !strings.HasPrefix(s, "+") {
		s = "+" + s
	}
	return s
}
