// Package github is an authenticated client for the subset of the GitHub REST API the
// publisher needs: the current user, repositories, file contents, trees and commits.
//
// Every non-2xx response becomes an *APIError matching one of ErrUnauthenticated,
// ErrForbidden, ErrNotFound, ErrRateLimited, ErrConflict or ErrRequestFailed. The
// client never retries; rate-limited errors carry ResetAt for the caller to act on.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/router-for-me/gitpress/internal/buildinfo"
	"github.com/router-for-me/gitpress/internal/util"
	"github.com/router-for-me/gitpress/sdk/credential"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	mediaType      = "application/vnd.github+json"
	maxBodyBytes   = 32 << 20
)

// Client is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	userAgent  string
	now        func() time.Time

	rate atomic.Pointer[RateLimit]
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. GitHub Enterprise or a test server.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		} else {
			log.Warnf("github: ignoring invalid base URL %q: %v", raw, err)
		}
	}
}

// WithHTTPClient sets the transport, typically util.NewHTTPClient for proxy support.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent overrides the default gitpress/<version> user agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client authenticating with token.
func NewClient(token string, opts ...Option) *Client {
	base, _ := url.Parse(DefaultBaseURL + "/")
	c := &Client{
		baseURL:    base,
		httpClient: util.NewHTTPClient(nil),
		token:      token,
		userAgent:  buildinfo.UserAgent(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromStore creates a client from the stored credential. Without a stored
// credential the error matches ErrUnauthenticated.
func FromStore(ctx context.Context, store credential.Store, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, &APIError{Kind: KindUnauthenticated, Message: "no credential store configured"}
	}
	cred, err := store.Retrieve(ctx)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, &APIError{Kind: KindUnauthenticated, StatusCode: http.StatusUnauthorized, Message: "not signed in"}
		}
		return nil, err
	}
	if cred.Expired(time.Now()) {
		return nil, &APIError{Kind: KindUnauthenticated, StatusCode: http.StatusUnauthorized, Message: "stored credential has expired"}
	}
	return NewClient(cred.AccessToken, opts...), nil
}

// RateLimit returns the quota from the most recent response, or nil before any call.
func (c *Client) RateLimit() *RateLimit {
	rl := c.rate.Load()
	if rl == nil {
		return nil
	}
	cp := *rl
	return &cp
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	rel, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("github: invalid path %q: %w", path, err)
	}
	u := c.baseURL.ResolveReference(rel)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, errMarshal := json.Marshal(b)
		if errMarshal != nil {
			return nil, fmt.Errorf("github: encode request body: %w", errMarshal)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", mediaType)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends the request and returns the body of a 2xx response. Any other status is
// classified into an *APIError.
func (c *Client) do(req *http.Request) ([]byte, http.Header, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("github: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Debugf("github: close response body: %v", errClose)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("github: read response: %w", err)
	}

	rl := parseRateLimit(resp.Header)
	if rl.Present {
		c.rate.Store(&rl)
	}

	entry := log.WithFields(log.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
		"status": resp.StatusCode,
	})
	if rl.Present {
		entry = entry.WithFields(log.Fields{"resource": rl.Resource, "remaining": rl.Remaining})
	}
	entry.Debugf("github request completed in %s", time.Since(start).Truncate(time.Millisecond))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, resp.Header, nil
	}
	var rate *RateLimit
	if rl.Present {
		rate = &rl
	}
	apiErr := classifyResponse(req.Method, req.URL.Path, resp, body, rate, c.now())
	switch apiErr.Kind {
	case KindRateLimited:
		entry.WithField("reset_at", apiErr.ResetAt.Format(time.RFC3339)).Warn("github rate limit reached")
	case KindUnauthenticated:
		entry.Warnf("github rejected credential %s", util.MaskAuthorizationHeader(req.Header.Get("Authorization")))
	}
	return nil, resp.Header, apiErr
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) (http.Header, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	body, header, err := c.do(req)
	if err != nil {
		return header, err
	}
	if out != nil {
		if err = json.Unmarshal(body, out); err != nil {
			return header, fmt.Errorf("github: decode %s: %w", path, err)
		}
	}
	return header, nil
}

// escapePath escapes each segment of a repository file path.
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func repoPath(owner, repo string) string {
	return "repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

func pageQuery(q url.Values, page, perPage int) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	return q
}

var linkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="([a-z]+)"`)

// parseLinkPages extracts next and last page numbers from a Link header.
func parseLinkPages(h http.Header) (next, last int) {
	for _, m := range linkPattern.FindAllStringSubmatch(h.Get("Link"), -1) {
		u, err := url.Parse(m[1])
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(u.Query().Get("page"))
		if err != nil {
			continue
		}
		switch m[2] {
		case "next":
			next = n
		case "last":
			last = n
		}
	}
	return next, last
}
