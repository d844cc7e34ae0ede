package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func testEvent(title string, start, end time.Time) *Event {
	return &Event{
		ID:         "ev-" + title,
		CalendarID: "work",
		Title:      title,
		Start:      start,
		End:        end,
	}
}

func TestFilterMatchTimeRange(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	t1 := day.Add(10 * time.Hour)
	t2 := day.Add(12 * time.Hour)

	rangeFilter := func(start, end *time.Time) *Filter {
		return &Filter{
			Component: "VCALENDAR",
			Children: []Filter{{
				Component: "VEVENT",
				TimeRange: &TimeRange{Start: start, End: end},
			}},
		}
	}

	tests := []struct {
		name   string
		event  *Event
		filter *Filter
		want   bool
	}{
		{"inside", testEvent("a", t1.Add(30*time.Minute), t1.Add(90*time.Minute)), rangeFilter(&t1, &t2), true},
		{"ends before", testEvent("b", day.Add(8*time.Hour), day.Add(9*time.Hour)), rangeFilter(&t1, &t2), false},
		{"starts after", testEvent("c", day.Add(13*time.Hour), day.Add(14*time.Hour)), rangeFilter(&t1, &t2), false},
		{"touches start bound", testEvent("d", day.Add(9*time.Hour), t1), rangeFilter(&t1, &t2), true},
		{"touches end bound", testEvent("e", t2, day.Add(13*time.Hour)), rangeFilter(&t1, &t2), true},
		{"spans range", testEvent("f", day, day.Add(23*time.Hour)), rangeFilter(&t1, &t2), true},
		{"open start", testEvent("g", day, day.Add(time.Hour)), rangeFilter(nil, &t2), true},
		{"open end", testEvent("h", day.Add(20*time.Hour), day.Add(21*time.Hour)), rangeFilter(&t1, nil), true},
		{"nil filter", testEvent("i", day, day), nil, true},
		{"no children", testEvent("j", day, day), &Filter{Component: "VCALENDAR"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.event))
		})
	}
}

func TestFilterMatchAllDay(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	ev := &Event{ID: "x", CalendarID: "c", Title: "holiday", Start: day, End: day, AllDay: true}

	afternoon := day.Add(15 * time.Hour)
	evening := day.Add(18 * time.Hour)
	f := &Filter{Component: "VCALENDAR", Children: []Filter{{
		Component: "VEVENT",
		TimeRange: &TimeRange{Start: &afternoon, End: &evening},
	}}}

	assert.True(t, f.Match(ev))
}

func TestFilterMatchComponents(t *testing.T) {
	ev := testEvent("standup", time.Now(), time.Now().Add(time.Hour))

	todo := &Filter{Component: "VCALENDAR", Children: []Filter{{Component: "VTODO"}}}
	assert.False(t, todo.Match(ev))

	noTodo := &Filter{Component: "VCALENDAR", Children: []Filter{{Component: "VTODO", IsNotDefined: true}}}
	assert.True(t, noTodo.Match(ev))

	alarm := &Filter{Component: "VCALENDAR", Children: []Filter{{
		Component: "VEVENT",
		Children:  []Filter{{Component: "VALARM"}},
	}}}
	assert.False(t, alarm.Match(ev))

	notDefined := &Filter{Component: "VCALENDAR", IsNotDefined: true}
	assert.False(t, notDefined.Match(ev))
}

func TestPropFilterMatch(t *testing.T) {
	ev := testEvent("Team Standup", time.Now(), time.Now().Add(time.Hour))
	ev.Location = ptr("Room 4")

	tests := []struct {
		name string
		pf   PropFilter
		want bool
	}{
		{"contains case-insensitive", PropFilter{Name: "SUMMARY", TextMatch: &TextMatch{Value: "standup"}}, true},
		{"octet is case-sensitive", PropFilter{Name: "SUMMARY", TextMatch: &TextMatch{Value: "standup", Collation: "i;octet"}}, false},
		{"equals", PropFilter{Name: "LOCATION", TextMatch: &TextMatch{Value: "room 4", MatchType: "equals"}}, true},
		{"starts-with", PropFilter{Name: "SUMMARY", TextMatch: &TextMatch{Value: "team", MatchType: "starts-with"}}, true},
		{"negated", PropFilter{Name: "SUMMARY", TextMatch: &TextMatch{Value: "standup", Negate: true}}, false},
		{"defined", PropFilter{Name: "LOCATION"}, true},
		{"description not defined", PropFilter{Name: "DESCRIPTION", IsNotDefined: true}, true},
		{"location not defined", PropFilter{Name: "LOCATION", IsNotDefined: true}, false},
		{"unknown property", PropFilter{Name: "X-FOO"}, false},
		{"uid", PropFilter{Name: "UID", TextMatch: &TextMatch{Value: ev.ID, MatchType: "equals"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pf.Match(ev))
		})
	}
}

func TestFilterTestAttribute(t *testing.T) {
	ev := testEvent("Review", time.Now(), time.Now().Add(time.Hour))
	filters := []PropFilter{
		{Name: "SUMMARY", TextMatch: &TextMatch{Value: "review"}},
		{Name: "LOCATION"},
	}

	allof := &Filter{Component: "VCALENDAR", Children: []Filter{{Component: "VEVENT", PropFilters: filters}}}
	anyof := &Filter{Component: "VCALENDAR", Children: []Filter{{Component: "VEVENT", PropFilters: filters, Test: "anyof"}}}

	assert.False(t, allof.Match(ev))
	assert.True(t, anyof.Match(ev))
}

func TestEventValidate(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	valid := &Event{ID: "e", CalendarID: "c", Title: "t", Start: start, End: start.Add(time.Hour)}
	assert.NoError(t, valid.Validate())

	backwards := &Event{ID: "e", CalendarID: "c", Title: "t", Start: start, End: start.Add(-time.Hour)}
	assert.ErrorIs(t, backwards.Validate(), ErrInvalidInput)

	allDay := &Event{ID: "e", CalendarID: "c", Title: "t", Start: start, AllDay: true}
	assert.NoError(t, allDay.Validate())

	untitled := &Event{ID: "e", CalendarID: "c", Start: start, End: start}
	assert.ErrorIs(t, untitled.Validate(), ErrInvalidInput)
}

func TestTouchIsMonotonic(t *testing.T) {
	prev := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	next := Touch(prev, prev.Add(-time.Second))
	assert.True(t, next.After(prev))

	later := Touch(prev, prev.Add(time.Second+123))
	assert.Equal(t, prev.Add(time.Second), later)
}

func TestEventsInRange(t *testing.T) {
	assert.Nil(t, EventsInRange(nil, nil))

	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	f := EventsInRange(&from, nil)
	before := &Event{ID: "a", Title: "a", Start: from.Add(-2 * time.Hour), End: from.Add(-time.Hour)}
	touching := &Event{ID: "b", Title: "b", Start: from.Add(-time.Hour), End: from}

	assert.False(t, f.Match(before))
	assert.True(t, f.Match(touching))
}
