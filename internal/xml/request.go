package xml

import (
	"bytes"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/xml/calendarquery"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/samber/mo"
)

// maxBodySize bounds every XML request body.
const maxBodySize = 1 << 20

// PropfindRequest is a decoded PROPFIND body. Include lists the extra
// properties requested next to allprop.
type PropfindRequest struct {
	AllProp  bool
	PropName bool
	Props    []props.Name
	Include  []props.Name
}

// ReportKind names the supported REPORT bodies.
type ReportKind int

const (
	ReportCalendarQuery ReportKind = iota
	ReportCalendarMultiget
)

func (k ReportKind) String() string {
	if k == ReportCalendarMultiget {
		return "calendar-multiget"
	}
	return "calendar-query"
}

// ReportRequest is a decoded REPORT body. AllProp is set when the body names
// no properties. Hrefs holds the calendar-multiget targets and Filter the
// calendar-query filter, where nil matches every event.
type ReportRequest struct {
	Kind    ReportKind
	AllProp bool
	Props   []props.Name
	Hrefs   []string
	Filter  *storage.Filter
}

// MkcolRequest carries the calendar properties set by MKCOL or MKCALENDAR.
type MkcolRequest struct {
	DisplayName mo.Option[string]
	Description mo.Option[string]
	Color       mo.Option[string]
}

// readDocument parses a request body. An empty body yields a nil document.
func readDocument(body io.Reader) (*etree.Document, error) {
	if body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return nil, apperr.BadRequest("unreadable request body", err)
	}
	if len(data) > maxBodySize {
		return nil, apperr.BadRequest("request body too large", nil)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, apperr.BadRequest("malformed XML", err)
	}
	if doc.Root() == nil {
		return nil, apperr.BadRequest("XML body has no root element", nil)
	}
	return doc, nil
}

// propNames returns the qualified names listed under elem.
func propNames(elem *etree.Element) []props.Name {
	names := make([]props.Name, 0, len(elem.ChildElements()))
	for _, c := range elem.ChildElements() {
		names = append(names, nameOf(c))
	}
	return names
}

// ParsePropfind decodes a PROPFIND body. An empty body is an allprop request
// (RFC 4918 section 9.1).
func ParsePropfind(body io.Reader) (*PropfindRequest, error) {
	doc, err := readDocument(body)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return &PropfindRequest{AllProp: true}, nil
	}

	root := doc.Root()
	if !is(root, DAV, "propfind") {
		return nil, apperr.BadRequest("expected DAV:propfind, got "+nameOf(root).String(), nil)
	}

	req := &PropfindRequest{}
	switch {
	case child(root, DAV, "propname") != nil:
		req.PropName = true
	case child(root, DAV, "allprop") != nil:
		req.AllProp = true
		if include := child(root, DAV, "include"); include != nil {
			req.Include = propNames(include)
		}
	case child(root, DAV, "prop") != nil:
		req.Props = propNames(child(root, DAV, "prop"))
	default:
		return nil, apperr.BadRequest("propfind names neither prop, allprop nor propname", nil)
	}
	return req, nil
}

// ParseReport decodes a calendar-query or calendar-multiget body.
func ParseReport(body io.Reader) (*ReportRequest, error) {
	doc, err := readDocument(body)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.BadRequest("REPORT requires a body", nil)
	}

	root := doc.Root()
	req := &ReportRequest{}
	switch {
	case is(root, CalDAV, "calendar-query"):
		req.Kind = ReportCalendarQuery
		filter, err := calendarquery.ParseFilterElement(child(root, CalDAV, "filter"))
		if err != nil {
			return nil, apperr.BadRequest("invalid calendar-query filter", err)
		}
		req.Filter = filter
	case is(root, CalDAV, "calendar-multiget"):
		req.Kind = ReportCalendarMultiget
		for _, c := range root.ChildElements() {
			if is(c, DAV, "href") {
				if href := strings.TrimSpace(c.Text()); href != "" {
					req.Hrefs = append(req.Hrefs, href)
				}
			}
		}
	default:
		return nil, apperr.BadRequest("unsupported report "+nameOf(root).String(), nil)
	}

	if prop := child(root, DAV, "prop"); prop != nil {
		req.Props = propNames(prop)
	} else {
		req.AllProp = true
	}
	return req, nil
}

// ParseMkcol decodes an extended MKCOL (RFC 5689) or MKCALENDAR (RFC 4791)
// body. An empty body sets nothing.
func ParseMkcol(body io.Reader) (*MkcolRequest, error) {
	doc, err := readDocument(body)
	if err != nil {
		return nil, err
	}
	req := &MkcolRequest{}
	if doc == nil {
		return req, nil
	}

	root := doc.Root()
	if !is(root, DAV, "mkcol") && !is(root, CalDAV, "mkcalendar") {
		return nil, apperr.BadRequest("expected DAV:mkcol or CALDAV:mkcalendar, got "+nameOf(root).String(), nil)
	}

	for _, set := range root.ChildElements() {
		if !is(set, DAV, "set") {
			continue
		}
		prop := child(set, DAV, "prop")
		if prop == nil {
			continue
		}
		for _, p := range prop.ChildElements() {
			value := strings.TrimSpace(p.Text())
			switch nameOf(p) {
			case props.DisplayNameName:
				req.DisplayName = mo.Some(value)
			case props.CalendarDescriptionName:
				req.Description = mo.Some(value)
			case props.CalendarColorName:
				req.Color = mo.Some(value)
			}
		}
	}
	return req, nil
}

// ErrorDocument renders the <d:error> body sent with CalDAV failures.
func ErrorDocument(kind apperr.Kind, message string) *etree.Document {
	doc, root := newDocument("error")
	if cond := conditionFor(kind); cond.Local != "" {
		root.AddChild(cond.Element())
	}
	desc := root.CreateElement("responsedescription")
	desc.Space = "d"
	desc.SetText(message)
	return doc
}

// conditionFor names the precondition element reported for a kind.
func conditionFor(kind apperr.Kind) props.Name {
	switch kind {
	case apperr.KindForbidden:
		return props.Name{Space: DAV, Local: "need-privileges"}
	}
	return props.Name{}
}

