// Package props encodes the WebDAV and CalDAV properties served by the
// CalDAV handler. Every property knows how to render itself as an etree
// element carrying the prefixes declared on the multistatus root.
package props

import (
	"errors"

	"github.com/beevik/etree"
)

// XML namespaces.
const (
	NSDAV            = "DAV:"
	NSCalDAV         = "urn:ietf:params:xml:ns:caldav"
	NSCalendarServer = "http://calendarserver.org/ns/"
	NSAppleICal      = "http://apple.com/ns/ical/"
)

// Prefixes maps each known namespace to the prefix declared on response roots.
var Prefixes = map[string]string{
	NSDAV:            "d",
	NSCalDAV:         "cal",
	NSCalendarServer: "cs",
	NSAppleICal:      "ical",
}

// Errors a resolver returns in place of a property. They decide the status
// of the propstat the property lands in.
var (
	ErrNotFound  = errors.New("property not found")
	ErrForbidden = errors.New("property access forbidden")
	ErrInternal  = errors.New("property could not be computed")
)

// Property is a resolved property value.
type Property interface {
	Encode() *etree.Element
}

// Name is a namespace qualified property name.
type Name struct {
	Space string
	Local string
}

func (n Name) String() string {
	return "{" + n.Space + "}" + n.Local
}

// Element creates an empty element for the name. Known namespaces use their
// declared prefix; anything else carries its own xmlns attribute.
func (n Name) Element() *etree.Element {
	elem := etree.NewElement(n.Local)
	if prefix, ok := Prefixes[n.Space]; ok {
		elem.Space = prefix
	} else if n.Space != "" {
		elem.CreateAttr("xmlns", n.Space)
	}
	return elem
}

// Well known property names.
var (
	DisplayNameName                   = Name{NSDAV, "displayname"}
	ResourcetypeName                  = Name{NSDAV, "resourcetype"}
	GetEtagName                       = Name{NSDAV, "getetag"}
	GetLastModifiedName               = Name{NSDAV, "getlastmodified"}
	GetContentTypeName                = Name{NSDAV, "getcontenttype"}
	GetContentLengthName              = Name{NSDAV, "getcontentlength"}
	OwnerName                         = Name{NSDAV, "owner"}
	CurrentUserPrincipalName          = Name{NSDAV, "current-user-principal"}
	PrincipalURLName                  = Name{NSDAV, "principal-URL"}
	SupportedReportSetName            = Name{NSDAV, "supported-report-set"}
	CurrentUserPrivilegeSetName       = Name{NSDAV, "current-user-privilege-set"}
	CalendarHomeSetName               = Name{NSCalDAV, "calendar-home-set"}
	CalendarDescriptionName           = Name{NSCalDAV, "calendar-description"}
	CalendarDataName                  = Name{NSCalDAV, "calendar-data"}
	SupportedCalendarComponentSetName = Name{NSCalDAV, "supported-calendar-component-set"}
	SupportedCalendarDataName         = Name{NSCalDAV, "supported-calendar-data"}
	GetCTagName                       = Name{NSCalendarServer, "getctag"}
	CalendarColorName                 = Name{NSAppleICal, "calendar-color"}
)

func createElement(space, local string) *etree.Element {
	return Name{space, local}.Element()
}

func davElement(local string) *etree.Element {
	return createElement(NSDAV, local)
}

func hrefElement(href string) *etree.Element {
	elem := davElement("href")
	elem.SetText(href)
	return elem
}
