package storage

import (
	"strings"
	"time"
)

// TextMatch describes a <text-match> constraint.
type TextMatch struct {
	Collation string // "i;unicode-casemap" (default), "i;ascii-casemap" or "i;octet"
	MatchType string // "equals", "contains" (default), "starts-with", "ends-with"
	Negate    bool   // true if negate-condition="yes"
	Value     string // text to match
}

// PropFilter describes a <prop-filter> inside a comp-filter.
type PropFilter struct {
	Name         string     // e.g. "SUMMARY", "UID"
	IsNotDefined bool       // <is-not-defined/>
	TextMatch    *TextMatch // optional
}

// TimeRange describes a <time-range> in a comp-filter. Both bounds are
// optional and inclusive.
type TimeRange struct {
	Start *time.Time
	End   *time.Time
}

// Filter is one <comp-filter> node. The root node names VCALENDAR and its
// children name the contained components.
type Filter struct {
	Component    string       // Name of component (e.g. "VCALENDAR", "VEVENT")
	IsNotDefined bool         // <is-not-defined/>
	TimeRange    *TimeRange   // optional <time-range>
	PropFilters  []PropFilter // zero or more <prop-filter>
	Children     []Filter     // nested <comp-filter>
	Test         string       // "allof" (default) or "anyof"
}

// Match reports whether the event satisfies the filter. A nil filter matches
// every event.
func (f *Filter) Match(ev *Event) bool {
	if f == nil {
		return true
	}
	if !strings.EqualFold(f.Component, "VCALENDAR") && f.Component != "" {
		// A bare VEVENT filter without the VCALENDAR wrapper.
		return f.matchComponent(ev)
	}
	if f.IsNotDefined {
		return false
	}
	return combine(f.Test, len(f.Children), func(i int) bool {
		return f.Children[i].matchComponent(ev)
	})
}

func (f *Filter) matchComponent(ev *Event) bool {
	if !strings.EqualFold(f.Component, "VEVENT") {
		// Only events are stored, so any other component is absent.
		return f.IsNotDefined
	}
	if f.IsNotDefined {
		return false
	}
	if f.TimeRange != nil && !f.TimeRange.Overlaps(ev.Start, ev.EffectiveEnd()) {
		return false
	}
	conditions := len(f.PropFilters) + len(f.Children)
	return combine(f.Test, conditions, func(i int) bool {
		if i < len(f.PropFilters) {
			return f.PropFilters[i].Match(ev)
		}
		// Sub-components such as VALARM are not stored.
		return f.Children[i-len(f.PropFilters)].IsNotDefined
	})
}

// Overlaps reports whether [start, end] intersects the range, bounds inclusive.
func (tr *TimeRange) Overlaps(start, end time.Time) bool {
	if tr == nil {
		return true
	}
	if tr.End != nil && start.After(*tr.End) {
		return false
	}
	if tr.Start != nil && end.Before(*tr.Start) {
		return false
	}
	return true
}

// Match reports whether the event satisfies the prop-filter.
func (pf PropFilter) Match(ev *Event) bool {
	value, defined := eventProperty(ev, pf.Name)
	if pf.IsNotDefined {
		return !defined
	}
	if !defined {
		return false
	}
	if pf.TextMatch == nil {
		return true
	}
	return pf.TextMatch.Match(value)
}

// Match applies the text-match to a property value.
func (tm *TextMatch) Match(value string) bool {
	needle := tm.Value
	if tm.Collation != "i;octet" {
		value = strings.ToLower(value)
		needle = strings.ToLower(needle)
	}
	var ok bool
	switch tm.MatchType {
	case "equals":
		ok = value == needle
	case "starts-with":
		ok = strings.HasPrefix(value, needle)
	case "ends-with":
		ok = strings.HasSuffix(value, needle)
	default:
		ok = strings.Contains(value, needle)
	}
	return ok != tm.Negate
}

func eventProperty(ev *Event, name string) (string, bool) {
	switch strings.ToUpper(name) {
	case "UID":
		return ev.ID, true
	case "SUMMARY":
		return ev.Title, ev.Title != ""
	case "DESCRIPTION":
		if ev.Description == nil {
			return "", false
		}
		return *ev.Description, true
	case "LOCATION":
		if ev.Location == nil {
			return "", false
		}
		return *ev.Location, true
	case "DTSTART":
		return ev.Start.UTC().Format("20060102T150405Z"), true
	case "DTEND":
		return ev.End.UTC().Format("20060102T150405Z"), !ev.End.IsZero()
	}
	return "", false
}

func combine(test string, n int, match func(int) bool) bool {
	if test == "anyof" {
		if n == 0 {
			return true
		}
		for i := 0; i < n; i++ {
			if match(i) {
				return true
			}
		}
		return false
	}
	for i := 0; i < n; i++ {
		if !match(i) {
			return false
		}
	}
	return true
}

// EventsInRange builds the filter a calendar-query with a single VEVENT
// time-range produces. It returns nil when both bounds are absent.
func EventsInRange(start, end *time.Time) *Filter {
	if start == nil && end == nil {
		return nil
	}
	return &Filter{
		Component: "VCALENDAR",
		Children: []Filter{{
			Component: "VEVENT",
			TimeRange: &TimeRange{Start: start, End: end},
		}},
	}
}
