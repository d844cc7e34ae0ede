package httpclient

import (
	"context"
	"net/http"

	"github.com/cyp0633/caldora/internal/guard"
)

// DoPUT uploads a calendar object under the given preconditions and returns
// the entity tag the server assigned.
func (c *httpClientWrapper) DoPUT(ctx context.Context, urlStr string, cond guard.Conditions, data []byte) (newEtag string, err error) {
	c.logger.Debug("starting PUT request",
		"url", urlStr,
		"if_match", cond.IfMatch,
		"if_none_match", cond.IfNoneMatch,
		"data_length", len(data))

	header := http.Header{}
	header.Set("Content-Type", "text/calendar; charset=utf-8")
	if cond.IfMatch != "" {
		header.Set("If-Match", cond.IfMatch)
	}
	if cond.IfNoneMatch != "" {
		header.Set("If-None-Match", cond.IfNoneMatch)
	}

	resp, err := c.do(ctx, http.MethodPut, urlStr, data, header)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, http.StatusOK, http.StatusCreated, http.StatusNoContent); err != nil {
		c.logger.Debug("PUT rejected",
			"url", urlStr,
			"status_code", resp.StatusCode)
		return "", err
	}

	newEtag = resp.Header.Get("ETag")
	c.logger.Debug("PUT request complete",
		"status", resp.Status,
		"new_etag", newEtag)
	return newEtag, nil
}
