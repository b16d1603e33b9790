// Package redact masks common PII patterns in transcript text before it is
// persisted.
package redact

import (
	"context"
	"regexp"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Runs of 7+ digits, optionally separated or prefixed the way phone
	// numbers and card numbers usually are.
	numberPattern = regexp.MustCompile(`\+?\d[\d\-\s().]{5,}\d`)
)

// PatternRedactor replaces email addresses and long digit runs with fixed
// placeholders. It never fails, so transcript appends are never blocked by it.
type PatternRedactor struct{}

// NewPatternRedactor creates a pattern redactor.
func NewPatternRedactor() *PatternRedactor {
	return &PatternRedactor{}
}

// Redact masks PII patterns in raw and returns the masked text.
func (p *PatternRedactor) Redact(_ context.Context, raw string) (string, error) {
	masked := emailPattern.ReplaceAllString(raw, "[email]")
	masked = numberPattern.ReplaceAllStringFunc(masked, func(m string) string {
		digits := 0
		for _, r := range m {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits >= 7 {
			return "[number]"
		}
		return m
	})
	return masked, nil
}
