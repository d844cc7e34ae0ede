package davclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQuerier struct {
	filter   *storage.Filter
	etagOnly bool
	objects  []CalendarObject
	err      error
}

func (q *recordingQuerier) executeCalendarQuery(_ context.Context, filter *storage.Filter, etagOnly bool) ([]CalendarObject, error) {
	q.filter = filter
	q.etagOnly = etagOnly
	return q.objects, q.err
}

func TestObjectFilterBuildsQuery(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	tests := []struct {
		name  string
		build func(f ObjectFilter) ObjectFilter
		want  storage.Filter
	}{
		{
			name:  "all events",
			build: func(f ObjectFilter) ObjectFilter { return f },
			want:  storage.Filter{Component: "VEVENT"},
		},
		{
			name:  "time range",
			build: func(f ObjectFilter) ObjectFilter { return f.TimeRange(start, end) },
			want: storage.Filter{
				Component: "VEVENT",
				TimeRange: &storage.TimeRange{Start: &start, End: &end},
			},
		},
		{
			name:  "open ended range",
			build: func(f ObjectFilter) ObjectFilter { return f.TimeRange(start, time.Time{}) },
			want: storage.Filter{
				Component: "VEVENT",
				TimeRange: &storage.TimeRange{Start: &start},
			},
		},
		{
			name: "summary or location",
			build: func(f ObjectFilter) ObjectFilter {
				return f.Summary("standup").Location("room 4").AnyOf()
			},
			want: storage.Filter{
				Component: "VEVENT",
				Test:      "anyof",
				PropFilters: []storage.PropFilter{
					{Name: "SUMMARY", TextMatch: &storage.TextMatch{Collation: "i;unicode-casemap", MatchType: "contains", Value: "standup"}},
					{Name: "LOCATION", TextMatch: &storage.TextMatch{Collation: "i;unicode-casemap", MatchType: "contains", Value: "room 4"}},
				},
			},
		},
		{
			name: "uid and negated summary",
			build: func(f ObjectFilter) ObjectFilter {
				return f.UID("ev-1").NotSummary("cancelled").NoLocation()
			},
			want: storage.Filter{
				Component: "VEVENT",
				PropFilters: []storage.PropFilter{
					{Name: "UID", TextMatch: &storage.TextMatch{Collation: "i;unicode-casemap", MatchType: "equals", Value: "ev-1"}},
					{Name: "SUMMARY", TextMatch: &storage.TextMatch{Collation: "i;unicode-casemap", MatchType: "contains", Negate: true, Value: "cancelled"}},
					{Name: "LOCATION", IsNotDefined: true},
				},
			},
		},
		{
			name:  "todos",
			build: func(f ObjectFilter) ObjectFilter { return f.ObjectType("VTODO").Description("groceries") },
			want: storage.Filter{
				Component: "VTODO",
				PropFilters: []storage.PropFilter{
					{Name: "DESCRIPTION", TextMatch: &storage.TextMatch{Collation: "i;unicode-casemap", MatchType: "contains", Value: "groceries"}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &recordingQuerier{}
			f := &objectFilter{client: q, objectType: "VEVENT"}

			_, err := tt.build(f).Do(context.Background())
			require.NoError(t, err)

			require.NotNil(t, q.filter)
			assert.Equal(t, "VCALENDAR", q.filter.Component)
			require.Len(t, q.filter.Children, 1)
			assert.Equal(t, tt.want, q.filter.Children[0])
			assert.False(t, q.etagOnly)
		})
	}
}

func TestObjectFilterLimit(t *testing.T) {
	q := &recordingQuerier{objects: []CalendarObject{{URL: "a"}, {URL: "b"}, {URL: "c"}}}
	f := &objectFilter{client: q, objectType: "VEVENT", etagOnly: true}

	objects, err := f.Limit(2).Do(context.Background())
	require.NoError(t, err)
	assert.Len(t, objects, 2)
	assert.True(t, q.etagOnly)
}

func TestObjectFilterRejectsInvertedRange(t *testing.T) {
	q := &recordingQuerier{}
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := (&objectFilter{client: q}).TimeRange(start, start.Add(-time.Hour)).Do(context.Background())
	assert.Error(t, err)
	assert.Nil(t, q.filter)
}

func TestObjectFilterPropagatesErrors(t *testing.T) {
	q := &recordingQuerier{err: errors.New("boom")}

	_, err := (&objectFilter{client: q}).Do(context.Background())
	assert.EqualError(t, err, "boom")
}
