package xml

import (
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePropfind(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		allProp   bool
		propName  bool
		wantProps []props.Name
		include   []props.Name
		wantErr   bool
	}{
		{
			name:    "empty body is allprop",
			body:    "",
			allProp: true,
		},
		{
			name:    "whitespace body is allprop",
			body:    "  \n ",
			allProp: true,
		},
		{
			name: "prop list with mixed namespaces",
			body: `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:" xmlns:cs="http://calendarserver.org/ns/" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:prop>
    <d:resourcetype/>
    <d:displayname/>
    <cs:getctag/>
    <c:supported-calendar-component-set/>
  </d:prop>
</d:propfind>`,
			wantProps: []props.Name{
				props.ResourcetypeName,
				props.DisplayNameName,
				props.GetCTagName,
				props.SupportedCalendarComponentSetName,
			},
		},
		{
			name:      "default namespace",
			body:      `<propfind xmlns="DAV:"><prop><getetag/></prop></propfind>`,
			wantProps: []props.Name{props.GetEtagName},
		},
		{
			name:    "allprop with include",
			body:    `<d:propfind xmlns:d="DAV:"><d:allprop/><d:include><d:current-user-privilege-set/></d:include></d:propfind>`,
			allProp: true,
			include: []props.Name{props.CurrentUserPrivilegeSetName},
		},
		{
			name:     "propname",
			body:     `<d:propfind xmlns:d="DAV:"><d:propname/></d:propfind>`,
			propName: true,
		},
		{
			name:    "malformed",
			body:    `<d:propfind xmlns:d="DAV:"><d:prop>`,
			wantErr: true,
		},
		{
			name:    "wrong root",
			body:    `<d:propertyupdate xmlns:d="DAV:"/>`,
			wantErr: true,
		},
		{
			name:    "root in wrong namespace",
			body:    `<x:propfind xmlns:x="http://example.com/"><x:prop/></x:propfind>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParsePropfind(strings.NewReader(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.allProp, req.AllProp)
			assert.Equal(t, tt.propName, req.PropName)
			assert.Equal(t, tt.wantProps, req.Props)
			assert.Equal(t, tt.include, req.Include)
		})
	}
}

func TestParseReportCalendarQuery(t *testing.T) {
	body := `<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <D:getetag/>
    <C:calendar-data/>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="20250301T000000Z" end="20250302T000000Z"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`

	req, err := ParseReport(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, ReportCalendarQuery, req.Kind)
	assert.False(t, req.AllProp)
	assert.Equal(t, []props.Name{props.GetEtagName, props.CalendarDataName}, req.Props)
	require.NotNil(t, req.Filter)
	require.Len(t, req.Filter.Children, 1)
	tr := req.Filter.Children[0].TimeRange
	require.NotNil(t, tr)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *tr.Start)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), *tr.End)
}

func TestParseReportWithoutFilterMatchesEverything(t *testing.T) {
	req, err := ParseReport(strings.NewReader(
		`<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav"><D:prop><D:getetag/></D:prop></C:calendar-query>`))
	require.NoError(t, err)
	assert.Nil(t, req.Filter)
}

func TestParseReportCalendarMultiget(t *testing.T) {
	body := `<C:calendar-multiget xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:href>/calendars/work/a.ics</D:href>
  <D:href> /calendars/work/b.ics </D:href>
  <D:href></D:href>
</C:calendar-multiget>`

	req, err := ParseReport(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, ReportCalendarMultiget, req.Kind)
	assert.True(t, req.AllProp)
	assert.Equal(t, []string{"/calendars/work/a.ics", "/calendars/work/b.ics"}, req.Hrefs)
}

func TestParseReportErrors(t *testing.T) {
	tests := map[string]string{
		"empty body":     "",
		"malformed":      `<C:calendar-query xmlns:C="urn:ietf:params:xml:ns:caldav">`,
		"unknown report": `<D:sync-collection xmlns:D="DAV:"/>`,
		"bad time-range": `<C:calendar-query xmlns:C="urn:ietf:params:xml:ns:caldav"><C:filter><C:comp-filter name="VCALENDAR">
			<C:comp-filter name="VEVENT"><C:time-range start="yesterday"/></C:comp-filter></C:comp-filter></C:filter></C:calendar-query>`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseReport(strings.NewReader(body))
			require.Error(t, err)
			assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
		})
	}
}

func TestParseMkcol(t *testing.T) {
	t.Run("mkcalendar", func(t *testing.T) {
		body := `<C:mkcalendar xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav" xmlns:I="http://apple.com/ns/ical/">
  <D:set>
    <D:prop>
      <D:displayname>Work</D:displayname>
      <C:calendar-description>Team meetings</C:calendar-description>
      <I:calendar-color>#3366ff</I:calendar-color>
    </D:prop>
  </D:set>
</C:mkcalendar>`
		req, err := ParseMkcol(strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, "Work", req.DisplayName.OrEmpty())
		assert.Equal(t, "Team meetings", req.Description.OrEmpty())
		assert.Equal(t, "#3366ff", req.Color.OrEmpty())
	})

	t.Run("extended mkcol", func(t *testing.T) {
		body := `<D:mkcol xmlns:D="DAV:"><D:set><D:prop><D:resourcetype><D:collection/></D:resourcetype><D:displayname>Home</D:displayname></D:prop></D:set></D:mkcol>`
		req, err := ParseMkcol(strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, "Home", req.DisplayName.MustGet())
		assert.True(t, req.Description.IsAbsent())
	})

	t.Run("empty body", func(t *testing.T) {
		req, err := ParseMkcol(strings.NewReader(""))
		require.NoError(t, err)
		assert.True(t, req.DisplayName.IsAbsent())
	})

	t.Run("wrong root", func(t *testing.T) {
		_, err := ParseMkcol(strings.NewReader(`<D:propfind xmlns:D="DAV:"/>`))
		assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	})
}
