package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxObjectSize bounds a downloaded calendar object.
const maxObjectSize = 4 << 20

// Object is a downloaded calendar resource.
type Object struct {
	Data []byte
	ETag string
}

// DoGET downloads a calendar object together with its entity tag.
func (c *httpClientWrapper) DoGET(ctx context.Context, urlStr string) (*Object, error) {
	header := http.Header{}
	header.Set("Accept", "text/calendar")

	resp, err := c.do(ctx, http.MethodGet, urlStr, nil, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", urlStr, err)
	}
	return &Object{Data: data, ETag: resp.Header.Get("ETag")}, nil
}
