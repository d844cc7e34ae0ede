// Package xml encodes and decodes the WebDAV/CalDAV XML bodies exchanged by
// the CalDAV handler and client. Nothing outside this package tree touches XML.
package xml

import (
	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/xml/props"
)

// Namespace definitions for CalDAV and WebDAV
const (
	DAV            = props.NSDAV
	CalDAV         = props.NSCalDAV
	CalendarServer = props.NSCalendarServer
	AppleICal      = props.NSAppleICal
)

var namespaceOrder = []string{DAV, CalDAV, CalendarServer, AppleICal}

// AddNamespaces declares the standard prefixes on the root element.
func AddNamespaces(root *etree.Element) {
	for _, ns := range namespaceOrder {
		root.CreateAttr("xmlns:"+props.Prefixes[ns], ns)
	}
}

// newDocument creates a document whose root is a DAV: element with every
// standard prefix declared.
func newDocument(local string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(local)
	root.Space = props.Prefixes[DAV]
	AddNamespaces(root)
	return doc, root
}

// nameOf resolves an element's prefix into its namespace URI.
func nameOf(elem *etree.Element) props.Name {
	return props.Name{Space: elem.NamespaceURI(), Local: elem.Tag}
}

func is(elem *etree.Element, space, local string) bool {
	return elem != nil && elem.Tag == local && elem.NamespaceURI() == space
}

// child returns the first direct child with the given qualified name.
func child(parent *etree.Element, space, local string) *etree.Element {
	for _, c := range parent.ChildElements() {
		if is(c, space, local) {
			return c
		}
	}
	return nil
}
