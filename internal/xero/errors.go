package xero

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// APIError reports a failed Xero API call. Message is human-readable
// (validation errors joined when the body carried them); Body is the
// raw response for diagnosis. Err, when set, links the error into the
// sentinel taxonomy for errors.Is checks.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
	Err        error
}

func (e *APIError) Error() string { return e.Message }
func (e *APIError) Unwrap() error { return e.Err }

// TransientError wraps a connection-level failure (timeout, refused,
// DNS). The client surfaces these immediately; callers needing
// resilience here add their own retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// parseErrorMessage extracts a readable message from a Xero error body.
// Validation exceptions carry a nested per-field message list which is
// joined into one string; anything else falls back to the body's
// Message/Detail field or a truncated raw body. Never panics: malformed
// bodies degrade to the generic form.
func parseErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)

		if parsed.Get("Type").String() == "ValidationException" {
			var messages []string

			for _, element := range parsed.Get("Elements").Array() {
				for _, ve := range element.Get("ValidationErrors").Array() {
					if m := ve.Get("Message").String(); m != "" {
						messages = append(messages, m)
					}
				}
			}

			if len(messages) > 0 {
				return "Validation error: " + strings.Join(messages, "; ")
			}
		}

		if m := parsed.Get("Message").String(); m != "" {
			return "Xero error: " + m
		}

		if d := parsed.Get("Detail").String(); d != "" {
			return "Xero error: " + d
		}
	}

	return "Xero API error: " + sanitizeResponseBody(body)
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 200 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 200
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}
