package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/internal/xml/props"
)

// DoPROPFIND performs a PROPFIND request. Without names it asks for allprop.
func (c *httpClientWrapper) DoPROPFIND(ctx context.Context, urlStr string, depth int, names ...props.Name) (*xml.ParsedMultistatus, error) {
	c.logger.Debug("starting PROPFIND request",
		"url", urlStr,
		"depth", depth,
		"properties", len(names))

	ms, err := c.multistatus(ctx, "PROPFIND", urlStr, depth, xml.NewPropfind(names...))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("PROPFIND request complete",
		"url", urlStr,
		"responses", len(ms.Responses))
	return ms, nil
}

// multistatus sends an XML body and decodes the 207 answer.
func (c *httpClientWrapper) multistatus(ctx context.Context, method, urlStr string, depth int, doc *etree.Document) (*xml.ParsedMultistatus, error) {
	body, err := xml.Bytes(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s body: %w", method, err)
	}

	header := http.Header{}
	header.Set("Depth", strconv.Itoa(depth))
	header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.do(ctx, method, urlStr, body, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, http.StatusMultiStatus); err != nil {
		c.logger.Debug("unexpected response status",
			"method", method,
			"status_code", resp.StatusCode)
		return nil, err
	}

	ms, err := xml.ParseMultistatus(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", method, err)
	}
	return ms, nil
}
