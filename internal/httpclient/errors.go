package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/xml"
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 4 << 10

// StatusError is the cause of every error returned for an unexpected status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	// RetryAfter is set from the Retry-After header of 503 responses.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// checkStatus returns nil when resp carries one of the accepted codes and a
// classified error otherwise. The body of a failed response is consumed.
func checkStatus(resp *http.Response, accepted ...int) error {
	for _, code := range accepted {
		if resp.StatusCode == code {
			return nil
		}
	}

	statusErr := &StatusError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}
	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		statusErr.RetryAfter = time.Duration(seconds) * time.Second
	}

	message := http.StatusText(resp.StatusCode)
	if data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); err == nil {
		if desc := xml.ErrorDescription(data); desc != "" {
			message = desc
		}
	}
	return &apperr.Error{
		Kind:    apperr.KindForStatus(resp.StatusCode),
		Message: message,
		Cause:   statusErr,
	}
}
