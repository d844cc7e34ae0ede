package props

import "github.com/beevik/etree"

// Apple CalendarServer Extensions

type GetCTag struct {
	Value string
}

func (p GetCTag) Encode() *etree.Element {
	elem := GetCTagName.Element()
	elem.SetText(p.Value)
	return elem
}

// Apple iCal Extensions

type CalendarColor struct {
	Value string
}

func (p CalendarColor) Encode() *etree.Element {
	elem := CalendarColorName.Element()
	elem.SetText(p.Value)
	return elem
}
