package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// SourceError is a non-success response from a remote catalog source.
// It is fatal for the request that produced it; callers do not retry.
type SourceError struct {
	Source     string
	StatusCode int
	URL        string
	Body       string // Leading part of the response body, if any
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s returned HTTP %d %s", e.Source, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// NewSourceError creates a SourceError for a failed request
func NewSourceError(source string, statusCode int, url, body string) *SourceError {
	return &SourceError{
		Source:     source,
		StatusCode: statusCode,
		URL:        url,
		Body:       body,
	}
}

// IsSourceError checks if error is a SourceError
func IsSourceError(err error) bool {
	var sourceErr *SourceError
	return stdErrors.As(err, &sourceErr)
}
