package xml

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/samber/mo"
)

// Multistatus is a 207 response body.
type Multistatus struct {
	Responses []Response
}

// Response describes one resource. When Err is set the resource is reported
// with a single status derived from it and Props are ignored.
type Response struct {
	Href  string
	Props []PropResult
	Err   error
}

// PropResult is the outcome of resolving one requested property.
type PropResult struct {
	Name  props.Name
	Value mo.Result[props.Property]
}

// StatusLine formats an HTTP status line as used in <status> elements.
func StatusLine(code int) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, http.StatusText(code))
}

// PropStatus maps a resolver error onto the propstat status code.
func PropStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, props.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, props.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, props.ErrInternal):
		return http.StatusInternalServerError
	}
	return apperr.StatusOf(err)
}

// ToXML renders the multistatus. Properties of one response are grouped into
// one propstat per status, in ascending status order.
func (m *Multistatus) ToXML() *etree.Document {
	doc, root := newDocument("multistatus")

	for _, resp := range m.Responses {
		response := root.CreateElement("response")
		response.Space = "d"
		href := response.CreateElement("href")
		href.Space = "d"
		href.SetText(resp.Href)

		if resp.Err != nil {
			status := response.CreateElement("status")
			status.Space = "d"
			status.SetText(StatusLine(apperr.StatusOf(resp.Err)))
			continue
		}

		groups := map[int][]*etree.Element{}
		for _, p := range resp.Props {
			code := http.StatusOK
			var elem *etree.Element
			if value, err := p.Value.Get(); err != nil {
				code = PropStatus(err)
				elem = p.Name.Element()
			} else {
				elem = value.Encode()
			}
			groups[code] = append(groups[code], elem)
		}

		codes := make([]int, 0, len(groups))
		for code := range groups {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		for _, code := range codes {
			propstat := response.CreateElement("propstat")
			propstat.Space = "d"
			prop := propstat.CreateElement("prop")
			prop.Space = "d"
			for _, elem := range groups[code] {
				prop.AddChild(elem)
			}
			status := propstat.CreateElement("status")
			status.Space = "d"
			status.SetText(StatusLine(code))
		}
	}

	return doc
}

// WriteTo writes the indented document.
func (m *Multistatus) WriteTo(w io.Writer) (int64, error) {
	doc := m.ToXML()
	doc.Indent(2)
	return doc.WriteTo(w)
}

// ParsedMultistatus is a decoded multistatus body.
type ParsedMultistatus struct {
	Responses []ParsedResponse
}

// ParsedResponse is one decoded <response>. Status is set for responses that
// carry a bare <status> instead of propstats.
type ParsedResponse struct {
	Href      string
	Status    int
	Propstats []ParsedPropstat
}

// ParsedPropstat groups the properties reported under one status.
type ParsedPropstat struct {
	Status int
	Props  []*etree.Element
}

// Prop finds a property in any propstat and returns it with its status.
func (r ParsedResponse) Prop(name props.Name) (*etree.Element, int, bool) {
	for _, ps := range r.Propstats {
		for _, p := range ps.Props {
			if is(p, name.Space, name.Local) {
				return p, ps.Status, true
			}
		}
	}
	return nil, 0, false
}

// Response finds the response for href.
func (m *ParsedMultistatus) Response(href string) (ParsedResponse, bool) {
	for _, r := range m.Responses {
		if r.Href == href {
			return r, true
		}
	}
	return ParsedResponse{}, false
}

// ParseMultistatus decodes a multistatus body.
func ParseMultistatus(r io.Reader) (*ParsedMultistatus, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("reading multistatus: %w", err)
	}
	root := doc.Root()
	if !is(root, DAV, "multistatus") {
		return nil, errors.New("root element is not DAV:multistatus")
	}

	ms := &ParsedMultistatus{}
	for _, respElem := range root.ChildElements() {
		if !is(respElem, DAV, "response") {
			continue
		}
		resp := ParsedResponse{}
		if href := child(respElem, DAV, "href"); href != nil {
			resp.Href = strings.TrimSpace(href.Text())
		}
		if status := child(respElem, DAV, "status"); status != nil {
			code, err := parseStatusLine(status.Text())
			if err != nil {
				return nil, err
			}
			resp.Status = code
		}
		for _, psElem := range respElem.ChildElements() {
			if !is(psElem, DAV, "propstat") {
				continue
			}
			ps := ParsedPropstat{}
			if status := child(psElem, DAV, "status"); status != nil {
				code, err := parseStatusLine(status.Text())
				if err != nil {
					return nil, err
				}
				ps.Status = code
			}
			if prop := child(psElem, DAV, "prop"); prop != nil {
				ps.Props = prop.ChildElements()
			}
			resp.Propstats = append(resp.Propstats, ps)
		}
		ms.Responses = append(ms.Responses, resp)
	}
	return ms, nil
}

func parseStatusLine(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed status line %q", line)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("malformed status line %q: %w", line, err)
	}
	return code, nil
}
