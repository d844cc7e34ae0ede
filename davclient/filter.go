package davclient

import (
	"context"
	"fmt"
	"time"

	"github.com/cyp0633/caldora/server/storage"
)

// ObjectFilter is the interface for filtering calendar objects
type ObjectFilter interface {
	TimeRange(start, end time.Time) ObjectFilter
	ObjectType(objType string) ObjectFilter
	UID(uid string) ObjectFilter
	Summary(summary string) ObjectFilter
	NotSummary(summary string) ObjectFilter
	Description(desc string) ObjectFilter
	Location(location string) ObjectFilter
	NoLocation() ObjectFilter
	AnyOf() ObjectFilter
	Limit(limit int) ObjectFilter
	Do(ctx context.Context) ([]CalendarObject, error)
}

// calendarQuerier is an interface for the calendar query operations needed by objectFilter
type calendarQuerier interface {
	executeCalendarQuery(ctx context.Context, filter *storage.Filter, etagOnly bool) ([]CalendarObject, error)
}

// Filter represents the main filter builder
type objectFilter struct {
	client      calendarQuerier
	objectType  string
	etagOnly    bool
	start       time.Time
	end         time.Time
	propFilters []storage.PropFilter
	anyOf       bool
	limit       int
}

// TimeRange limits the result to objects overlapping [start, end]. A zero
// bound leaves that side open.
func (f *objectFilter) TimeRange(start, end time.Time) ObjectFilter {
	f.start, f.end = start, end
	return f
}

func (f *objectFilter) ObjectType(objType string) ObjectFilter {
	f.objectType = objType
	return f
}

func (f *objectFilter) UID(uid string) ObjectFilter {
	return f.textMatch("UID", uid, "equals", false)
}

func (f *objectFilter) Summary(summary string) ObjectFilter {
	return f.textMatch("SUMMARY", summary, "contains", false)
}

func (f *objectFilter) NotSummary(summary string) ObjectFilter {
	return f.textMatch("SUMMARY", summary, "contains", true)
}

func (f *objectFilter) Description(desc string) ObjectFilter {
	return f.textMatch("DESCRIPTION", desc, "contains", false)
}

func (f *objectFilter) Location(location string) ObjectFilter {
	return f.textMatch("LOCATION", location, "contains", false)
}

func (f *objectFilter) NoLocation() ObjectFilter {
	f.propFilters = append(f.propFilters, storage.PropFilter{Name: "LOCATION", IsNotDefined: true})
	return f
}

// AnyOf makes the property conditions alternatives instead of requirements.
func (f *objectFilter) AnyOf() ObjectFilter {
	f.anyOf = true
	return f
}

func (f *objectFilter) Limit(limit int) ObjectFilter {
	f.limit = limit
	return f
}

func (f *objectFilter) textMatch(name, value, matchType string, negate bool) ObjectFilter {
	f.propFilters = append(f.propFilters, storage.PropFilter{
		Name: name,
		TextMatch: &storage.TextMatch{
			Collation: "i;unicode-casemap",
			MatchType: matchType,
			Negate:    negate,
			Value:     value,
		},
	})
	return f
}

// buildFilter converts the builder into a calendar-query filter
func (f *objectFilter) buildFilter() *storage.Filter {
	inner := storage.Filter{
		Component:   f.objectType,
		PropFilters: f.propFilters,
	}
	if f.anyOf {
		inner.Test = "anyof"
	}
	if !f.start.IsZero() || !f.end.IsZero() {
		inner.TimeRange = &storage.TimeRange{}
		if !f.start.IsZero() {
			start := f.start.UTC()
			inner.TimeRange.Start = &start
		}
		if !f.end.IsZero() {
			end := f.end.UTC()
			inner.TimeRange.End = &end
		}
	}
	return &storage.Filter{
		Component: "VCALENDAR",
		Children:  []storage.Filter{inner},
	}
}

// Do executes the filter and returns the matching objects
func (f *objectFilter) Do(ctx context.Context) ([]CalendarObject, error) {
	if !f.start.IsZero() && !f.end.IsZero() && f.end.Before(f.start) {
		return nil, fmt.Errorf("time range ends before it starts")
	}

	objects, err := f.client.executeCalendarQuery(ctx, f.buildFilter(), f.etagOnly)
	if err != nil {
		return nil, err
	}

	if f.limit > 0 && len(objects) > f.limit {
		objects = objects[:f.limit]
	}
	return objects, nil
}
