package props

import "github.com/beevik/etree"

type CalendarHomeSet struct {
	Href string
}

func (p CalendarHomeSet) Encode() *etree.Element {
	elem := CalendarHomeSetName.Element()
	elem.AddChild(hrefElement(p.Href))
	return elem
}

type CalendarDescription struct {
	Value string
}

func (p CalendarDescription) Encode() *etree.Element {
	elem := CalendarDescriptionName.Element()
	elem.SetText(p.Value)
	return elem
}

// CalendarData carries a complete VCALENDAR document. etree escapes it on
// output.
type CalendarData struct {
	ICal string
}

func (p CalendarData) Encode() *etree.Element {
	elem := CalendarDataName.Element()
	elem.SetText(p.ICal)
	return elem
}

type SupportedCalendarComponentSet struct {
	Components []string
}

func (p SupportedCalendarComponentSet) Encode() *etree.Element {
	elem := SupportedCalendarComponentSetName.Element()
	for _, component := range p.Components {
		comp := createElement(NSCalDAV, "comp")
		comp.CreateAttr("name", component)
		elem.AddChild(comp)
	}
	return elem
}

type SupportedCalendarData struct {
	ContentType string
	Version     string
}

func (p SupportedCalendarData) Encode() *etree.Element {
	elem := SupportedCalendarDataName.Element()
	data := createElement(NSCalDAV, "calendar-data")
	data.CreateAttr("content-type", p.ContentType)
	if p.Version != "" {
		data.CreateAttr("version", p.Version)
	}
	elem.AddChild(data)
	return elem
}
