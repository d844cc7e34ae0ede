package props

import (
	"net/http"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/server/storage"
)

type DisplayName struct {
	Value string
}

func (p DisplayName) Encode() *etree.Element {
	elem := DisplayNameName.Element()
	elem.SetText(p.Value)
	return elem
}

// Resourcetype renders the resource kind: the root is a plain collection,
// calendars are calendar collections and events are plain resources.
type Resourcetype struct {
	Type storage.ResourceType
}

func (p Resourcetype) Encode() *etree.Element {
	elem := ResourcetypeName.Element()
	switch p.Type {
	case storage.ResourceRoot:
		elem.AddChild(davElement("collection"))
	case storage.ResourceCollection:
		elem.AddChild(davElement("collection"))
		elem.AddChild(createElement(NSCalDAV, "calendar"))
	}
	return elem
}

type GetEtag struct {
	Value string
}

func (p GetEtag) Encode() *etree.Element {
	elem := GetEtagName.Element()
	elem.SetText(p.Value)
	return elem
}

type GetLastModified struct {
	Value time.Time
}

func (p GetLastModified) Encode() *etree.Element {
	elem := GetLastModifiedName.Element()
	elem.SetText(p.Value.UTC().Format(http.TimeFormat))
	return elem
}

type GetContentType struct {
	Value string
}

func (p GetContentType) Encode() *etree.Element {
	elem := GetContentTypeName.Element()
	elem.SetText(p.Value)
	return elem
}

type GetContentLength struct {
	Value int
}

func (p GetContentLength) Encode() *etree.Element {
	elem := GetContentLengthName.Element()
	elem.SetText(strconv.Itoa(p.Value))
	return elem
}

type Owner struct {
	Href string
}

func (p Owner) Encode() *etree.Element {
	elem := OwnerName.Element()
	elem.AddChild(hrefElement(p.Href))
	return elem
}

type CurrentUserPrincipal struct {
	Href string
}

func (p CurrentUserPrincipal) Encode() *etree.Element {
	elem := CurrentUserPrincipalName.Element()
	elem.AddChild(hrefElement(p.Href))
	return elem
}

type PrincipalURL struct {
	Href string
}

func (p PrincipalURL) Encode() *etree.Element {
	elem := PrincipalURLName.Element()
	elem.AddChild(hrefElement(p.Href))
	return elem
}

type ReportType int

const (
	ReportCalendarQuery ReportType = iota
	ReportCalendarMultiget
)

type SupportedReportSet struct {
	Reports []ReportType
}

func (p SupportedReportSet) Encode() *etree.Element {
	elem := SupportedReportSetName.Element()
	for _, report := range p.Reports {
		supported := davElement("supported-report")
		reportElem := davElement("report")
		switch report {
		case ReportCalendarQuery:
			reportElem.AddChild(createElement(NSCalDAV, "calendar-query"))
		case ReportCalendarMultiget:
			reportElem.AddChild(createElement(NSCalDAV, "calendar-multiget"))
		}
		supported.AddChild(reportElem)
		elem.AddChild(supported)
	}
	return elem
}

// CurrentUserPrivilegeSet lists DAV privileges such as "read" or "write".
type CurrentUserPrivilegeSet struct {
	Privileges []string
}

func (p CurrentUserPrivilegeSet) Encode() *etree.Element {
	elem := CurrentUserPrivilegeSetName.Element()
	for _, privilege := range p.Privileges {
		privElem := davElement("privilege")
		privElem.AddChild(davElement(privilege))
		elem.AddChild(privElem)
	}
	return elem
}
