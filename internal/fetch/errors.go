package fetch

import "fmt"

// HTTPError is returned when the upstream answers with a non-2xx status after
// all retries are exhausted, or immediately for non-retryable statuses.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upstream %s: %s: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("upstream %s: %s", e.URL, e.Status)
}

// Retryable reports whether the status indicates a transient condition
// (rate limiting or server-side failure). Other 4xx statuses mean the request
// itself is wrong and retrying cannot help.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// ParseError is returned when a 2xx response body is not valid JSON. It is not
// retryable; callers treat it as an empty result for that call.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
