// Package httpclient speaks the CalDAV wire protocol: it sends PROPFIND,
// REPORT, GET, PUT and DELETE requests and decodes their responses. Failed
// requests are reported as *apperr.Error values classified by status, so
// callers see the same taxonomy the server uses.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/guard"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/internal/xml/props"
)

// maxRedirects bounds how many redirects one request follows.
const maxRedirects = 5

// HttpClientWrapper wraps http.Client with CalDAV-specific functionality
type HttpClientWrapper interface {
	DoPROPFIND(ctx context.Context, url string, depth int, names ...props.Name) (*xml.ParsedMultistatus, error)
	DoREPORT(ctx context.Context, url string, depth int, query *etree.Document) (*xml.ParsedMultistatus, error)
	DoGET(ctx context.Context, url string) (*Object, error)
	DoPUT(ctx context.Context, url string, cond guard.Conditions, data []byte) (newEtag string, err error)
	DoDELETE(ctx context.Context, url string, etag string) error
	ResolveURL(url string) (*url.URL, error)
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// NewHttpClientWrapper creates a new client wrapper. Redirects are followed by
// the wrapper itself so that PROPFIND and REPORT keep their method and body
// across them.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &httpClientWrapper{client: &c, baseURL: baseURL, logger: logger}, nil
}

// ResolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) ResolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// do sends one request, following redirects with the same method and body.
func (c *httpClientWrapper) do(ctx context.Context, method, urlStr string, body []byte, header http.Header) (*http.Response, error) {
	target, err := c.ResolveURL(urlStr)
	if err != nil {
		return nil, err
	}

	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s request: %w", method, err)
		}
		for key, values := range header {
			req.Header[key] = values
		}

		resp, err := c.client.Do(req)
		if err != nil {
			c.logger.Debug("request failed", "method", method, "url", target.String(), "error", err)
			return nil, fmt.Errorf("%s %s: %w", method, target, err)
		}
		c.logger.Debug("received response",
			"method", method,
			"url", target.String(),
			"status", resp.Status)

		if !isRedirect(resp.StatusCode) || hops == maxRedirects {
			return resp, nil
		}
		next, err := resp.Location()
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%s %s: redirect without location: %w", method, target, err)
		}
		c.logger.Debug("following redirect", "from", target.String(), "to", next.String())
		target = next
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
