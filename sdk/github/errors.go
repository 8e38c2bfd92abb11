package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Kind classifies a failed API call.
type Kind int

const (
	KindRequestFailed Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindRateLimited
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindConflict:
		return "conflict"
	default:
		return "request_failed"
	}
}

// Sentinels matched by *APIError through errors.Is.
var (
	ErrUnauthenticated = errors.New("github: unauthenticated")
	ErrForbidden       = errors.New("github: forbidden")
	ErrNotFound        = errors.New("github: not found")
	ErrRateLimited     = errors.New("github: rate limited")
	ErrConflict        = errors.New("github: conflicting file update")
	ErrRequestFailed   = errors.New("github: request failed")
)

// ErrMissingSHA is returned without sending a request when an update or delete
// omits the blob SHA it is based on.
var ErrMissingSHA = errors.New("github: sha of the current file is required")

// ErrNotAFile means a contents lookup resolved to a directory or another non-file entry.
var ErrNotAFile = errors.New("github: path is not a file")

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthenticated:
		return ErrUnauthenticated
	case KindForbidden:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	case KindConflict:
		return ErrConflict
	default:
		return ErrRequestFailed
	}
}

// APIError is a non-2xx response, normalized.
type APIError struct {
	Kind       Kind
	StatusCode int
	Method     string
	Path       string
	// Message and DocumentationURL come from GitHub's JSON error body.
	Message          string
	DocumentationURL string
	Body             []byte
	// ResetAt is when the rate-limit window reopens. Always set for KindRateLimited.
	ResetAt time.Time
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "github: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Kind)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Kind == KindRateLimited && !e.ResetAt.IsZero() {
		fmt.Fprintf(&b, " (resets at %s)", e.ResetAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}

// Is matches the sentinel for the error's kind.
func (e *APIError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// RetryAfter returns how long until the rate-limit window resets, or 0.
func (e *APIError) RetryAfter(now time.Time) time.Duration {
	if e.Kind != KindRateLimited || e.ResetAt.IsZero() {
		return 0
	}
	if d := e.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// AsAPIError unwraps err to *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// defaultRateLimitWait applies when GitHub signals a limit without any reset hint.
const defaultRateLimitWait = time.Minute

// classifyResponse builds the APIError for a non-2xx response. Rate limiting is
// checked first because GitHub reports it as 403 as well as 429.
func classifyResponse(method, path string, resp *http.Response, body []byte, rate *RateLimit, now time.Time) *APIError {
	apiErr := &APIError{
		StatusCode:       resp.StatusCode,
		Method:           method,
		Path:             path,
		Body:             body,
		Message:          strings.TrimSpace(gjson.GetBytes(body, "message").String()),
		DocumentationURL: gjson.GetBytes(body, "documentation_url").String(),
	}

	retryAfter, hasRetryAfter := parseRetryAfter(resp.Header)
	exhausted := strings.TrimSpace(resp.Header.Get("X-RateLimit-Remaining")) == "0"

	switch {
	case exhausted || resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode == http.StatusForbidden && hasRetryAfter):
		apiErr.Kind = KindRateLimited
		switch {
		case rate != nil && !rate.ResetAt.IsZero():
			apiErr.ResetAt = rate.ResetAt
		case hasRetryAfter:
			apiErr.ResetAt = now.Add(retryAfter)
		default:
			apiErr.ResetAt = now.Add(defaultRateLimitWait)
		}
	case resp.StatusCode == http.StatusUnauthorized:
		apiErr.Kind = KindUnauthenticated
	case resp.StatusCode == http.StatusForbidden:
		apiErr.Kind = KindForbidden
	case resp.StatusCode == http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case resp.StatusCode == http.StatusConflict:
		apiErr.Kind = KindConflict
	case resp.StatusCode == http.StatusUnprocessableEntity && mentionsSHA(body):
		apiErr.Kind = KindConflict
	default:
		apiErr.Kind = KindRequestFailed
	}
	return apiErr
}

// mentionsSHA reports whether a 422 body complains about the sha field.
func mentionsSHA(body []byte) bool {
	if strings.Contains(strings.ToLower(gjson.GetBytes(body, "message").String()), "sha") {
		return true
	}
	found := false
	gjson.GetBytes(body, "errors").ForEach(func(_, value gjson.Result) bool {
		if strings.EqualFold(value.Get("field").String(), "sha") || strings.Contains(strings.ToLower(value.Get("message").String()), "sha") {
			found = true
			return false
		}
		return true
	})
	return found
}
