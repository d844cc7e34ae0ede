package xml

import (
	"bytes"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml/calendarquery"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/cyp0633/caldora/server/storage"
)

// Request bodies sent by the CalDAV client.

// NewPropfind builds a PROPFIND body asking for names. Without names it asks
// for allprop.
func NewPropfind(names ...props.Name) *etree.Document {
	doc, root := newDocument("propfind")
	if len(names) == 0 {
		root.AddChild(props.Name{Space: DAV, Local: "allprop"}.Element())
		return doc
	}
	root.AddChild(propElement(names))
	return doc
}

// NewCalendarQuery builds a calendar-query REPORT body. A nil filter matches
// every event.
func NewCalendarQuery(filter *storage.Filter, names ...props.Name) *etree.Document {
	doc, root := newCalDAVDocument("calendar-query")
	if len(names) > 0 {
		root.AddChild(propElement(names))
	}
	root.AddChild(calendarquery.EncodeFilter(filter))
	return doc
}

// NewCalendarMultiget builds a calendar-multiget REPORT body for hrefs.
func NewCalendarMultiget(hrefs []string, names ...props.Name) *etree.Document {
	doc, root := newCalDAVDocument("calendar-multiget")
	if len(names) > 0 {
		root.AddChild(propElement(names))
	}
	for _, href := range hrefs {
		elem := props.Name{Space: DAV, Local: "href"}.Element()
		elem.SetText(href)
		root.AddChild(elem)
	}
	return doc
}

// Bytes serializes a request document.
func Bytes(doc *etree.Document) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newCalDAVDocument(local string) (*etree.Document, *etree.Element) {
	doc, root := newDocument(local)
	root.Space = props.Prefixes[CalDAV]
	return doc, root
}

func propElement(names []props.Name) *etree.Element {
	prop := props.Name{Space: DAV, Local: "prop"}.Element()
	for _, name := range names {
		prop.AddChild(name.Element())
	}
	return prop
}

// Href returns the text of the DAV:href child of a property such as
// current-user-principal.
func Href(prop *etree.Element) string {
	if href := child(prop, DAV, "href"); href != nil {
		return href.Text()
	}
	return ""
}

// HasChild reports whether elem has a direct child with the given name.
func HasChild(elem *etree.Element, name props.Name) bool {
	return elem != nil && child(elem, name.Space, name.Local) != nil
}

// ErrorDescription extracts the responsedescription of a DAV:error body. It
// returns "" for anything else.
func ErrorDescription(data []byte) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return ""
	}
	root := doc.Root()
	if !is(root, DAV, "error") {
		return ""
	}
	if desc := child(root, DAV, "responsedescription"); desc != nil {
		return strings.TrimSpace(desc.Text())
	}
	return ""
}
