package llm

import (
	"errors"
	"fmt"
)

var (
	ErrExternalService = errors.New("reasoning service error")
	ErrParse           = errors.New("reasoning reply parse error")
)

// ExternalServiceError means the call itself failed: network, auth, quota
// or timeout. The caller may retry.
type ExternalServiceError struct {
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("Anthropic API error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("Anthropic API error: %v", e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }

// ParseError means the service answered but the text was not a usable
// classification. Retrying the same prompt rarely helps.
type ParseError struct {
	Reason string
	Text   string // truncated reply text
	Err    error
}

const maxParseErrorText = 512

func newParseError(reason, text string, err error) *ParseError {
	if len(text) > maxParseErrorText {
		text = text[:maxParseErrorText] + fmt.Sprintf("... [truncated, total_length=%d]", len(text))
	}
	return &ParseError{Reason: reason, Text: text, Err: err}
}

func (e *ParseError) Error() string {
	msg := "parsing classification reply: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Text != "" {
		msg += fmt.Sprintf(" (response: %s)", e.Text)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
