// Package calendarquery decodes the <filter> element of a CalDAV
// calendar-query REPORT into a storage.Filter.
package calendarquery

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/server/storage"
)

// TimeFormat is the UTC date-time form CalDAV uses in time-range attributes.
const TimeFormat = "20060102T150405Z"

// ErrInvalidFilter is returned for filters that cannot be evaluated.
var ErrInvalidFilter = errors.New("invalid calendar-query filter")

// ParseFilterElement parses a <filter> element into a Filter structure. A nil
// element or a filter without comp-filter yields a nil Filter, which matches
// every event.
func ParseFilterElement(filterElem *etree.Element) (*storage.Filter, error) {
	if filterElem == nil {
		return nil, nil
	}

	compFilters := childElements(filterElem, "comp-filter")
	if len(compFilters) == 0 {
		return nil, nil
	}
	if len(compFilters) > 1 {
		return nil, fmt.Errorf("%w: filter holds %d top-level comp-filters", ErrInvalidFilter, len(compFilters))
	}

	return parseCompFilter(compFilters[0])
}

// parseCompFilter recursively parses a comp-filter element
func parseCompFilter(elem *etree.Element) (*storage.Filter, error) {
	name := elem.SelectAttrValue("name", "")
	if name == "" {
		return nil, fmt.Errorf("%w: comp-filter without name", ErrInvalidFilter)
	}
	filter := &storage.Filter{
		Component: strings.ToUpper(name),
		Test:      elem.SelectAttrValue("test", "allof"),
	}

	if firstChild(elem, "is-not-defined") != nil {
		filter.IsNotDefined = true
		return filter, nil
	}

	if tr := firstChild(elem, "time-range"); tr != nil {
		timeRange, err := parseTimeRange(tr)
		if err != nil {
			return nil, err
		}
		filter.TimeRange = timeRange
	}

	for _, pf := range childElements(elem, "prop-filter") {
		propFilter, err := parsePropFilter(pf)
		if err != nil {
			return nil, err
		}
		filter.PropFilters = append(filter.PropFilters, propFilter)
	}

	for _, nested := range childElements(elem, "comp-filter") {
		child, err := parseCompFilter(nested)
		if err != nil {
			return nil, err
		}
		filter.Children = append(filter.Children, *child)
	}

	return filter, nil
}

func parsePropFilter(elem *etree.Element) (storage.PropFilter, error) {
	name := elem.SelectAttrValue("name", "")
	if name == "" {
		return storage.PropFilter{}, fmt.Errorf("%w: prop-filter without name", ErrInvalidFilter)
	}
	propFilter := storage.PropFilter{Name: strings.ToUpper(name)}

	if firstChild(elem, "is-not-defined") != nil {
		propFilter.IsNotDefined = true
		return propFilter, nil
	}
	if tm := firstChild(elem, "text-match"); tm != nil {
		propFilter.TextMatch = parseTextMatch(tm)
	}
	return propFilter, nil
}

func parseTextMatch(elem *etree.Element) *storage.TextMatch {
	return &storage.TextMatch{
		Collation: elem.SelectAttrValue("collation", "i;unicode-casemap"),
		MatchType: elem.SelectAttrValue("match-type", "contains"),
		Negate:    elem.SelectAttrValue("negate-condition", "no") == "yes",
		Value:     strings.TrimSpace(elem.Text()),
	}
}

// parseTimeRange parses a time-range element. Either bound may be absent, but
// a present bound must be a UTC date-time and the range must not be inverted.
func parseTimeRange(elem *etree.Element) (*storage.TimeRange, error) {
	timeRange := &storage.TimeRange{}

	for _, bound := range []struct {
		attr string
		dst  **time.Time
	}{
		{"start", &timeRange.Start},
		{"end", &timeRange.End},
	} {
		raw := elem.SelectAttrValue(bound.attr, "")
		if raw == "" {
			continue
		}
		t, err := time.Parse(TimeFormat, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: time-range %s %q: %w", ErrInvalidFilter, bound.attr, raw, err)
		}
		*bound.dst = &t
	}

	if timeRange.Start != nil && timeRange.End != nil && timeRange.End.Before(*timeRange.Start) {
		return nil, fmt.Errorf("%w: time-range ends before it starts", ErrInvalidFilter)
	}
	return timeRange, nil
}

// childElements returns the direct children with the given local name. The
// CalDAV namespace is the only one these names appear in, so the prefix is
// not checked.
func childElements(parent *etree.Element, localName string) []*etree.Element {
	var elements []*etree.Element
	for _, child := range parent.ChildElements() {
		if strings.EqualFold(child.Tag, localName) {
			elements = append(elements, child)
		}
	}
	return elements
}

func firstChild(parent *etree.Element, localName string) *etree.Element {
	if elements := childElements(parent, localName); len(elements) > 0 {
		return elements[0]
	}
	return nil
}
