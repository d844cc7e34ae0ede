package calendarquery

import (
	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/server/storage"
)

// calPrefix is the prefix the CalDAV namespace is declared under on request roots.
const calPrefix = "cal"

// EncodeFilter renders f as a <filter> element, the inverse of
// ParseFilterElement. A nil filter renders the match-everything VCALENDAR
// comp-filter.
func EncodeFilter(f *storage.Filter) *etree.Element {
	filterElem := newElement("filter")
	if f == nil {
		comp := newElement("comp-filter")
		comp.CreateAttr("name", "VCALENDAR")
		filterElem.AddChild(comp)
		return filterElem
	}
	filterElem.AddChild(encodeCompFilter(f))
	return filterElem
}

func encodeCompFilter(f *storage.Filter) *etree.Element {
	elem := newElement("comp-filter")
	elem.CreateAttr("name", f.Component)
	if f.Test == "anyof" {
		elem.CreateAttr("test", "anyof")
	}
	if f.IsNotDefined {
		elem.AddChild(newElement("is-not-defined"))
		return elem
	}

	if tr := f.TimeRange; tr != nil {
		trElem := newElement("time-range")
		if tr.Start != nil {
			trElem.CreateAttr("start", tr.Start.UTC().Format(TimeFormat))
		}
		if tr.End != nil {
			trElem.CreateAttr("end", tr.End.UTC().Format(TimeFormat))
		}
		elem.AddChild(trElem)
	}
	for _, pf := range f.PropFilters {
		elem.AddChild(encodePropFilter(pf))
	}
	for i := range f.Children {
		elem.AddChild(encodeCompFilter(&f.Children[i]))
	}
	return elem
}

func encodePropFilter(pf storage.PropFilter) *etree.Element {
	elem := newElement("prop-filter")
	elem.CreateAttr("name", pf.Name)
	if pf.IsNotDefined {
		elem.AddChild(newElement("is-not-defined"))
		return elem
	}
	if tm := pf.TextMatch; tm != nil {
		tmElem := newElement("text-match")
		if tm.Collation != "" {
			tmElem.CreateAttr("collation", tm.Collation)
		}
		if tm.MatchType != "" {
			tmElem.CreateAttr("match-type", tm.MatchType)
		}
		if tm.Negate {
			tmElem.CreateAttr("negate-condition", "yes")
		}
		tmElem.SetText(tm.Value)
		elem.AddChild(tmElem)
	}
	return elem
}

func newElement(local string) *etree.Element {
	elem := etree.NewElement(local)
	elem.Space = calPrefix
	return elem
}
