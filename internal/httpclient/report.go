package httpclient

import (
	"context"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml"
)

// DoREPORT executes a CalDAV REPORT request
func (c *httpClientWrapper) DoREPORT(ctx context.Context, urlStr string, depth int, query *etree.Document) (*xml.ParsedMultistatus, error) {
	report := ""
	if root := query.Root(); root != nil {
		report = root.Tag
	}
	c.logger.Debug("starting REPORT request",
		"url", urlStr,
		"depth", depth,
		"report", report)

	ms, err := c.multistatus(ctx, "REPORT", urlStr, depth, query)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("REPORT request complete",
		"report", report,
		"responses", len(ms.Responses))
	return ms, nil
}
