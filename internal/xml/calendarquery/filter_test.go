package calendarquery

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createElementFromXML is a test helper that creates an etree Element from XML string
func createElementFromXML(t *testing.T, xmlStr string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xmlStr))
	return doc.Root()
}

func TestParseFilterElement_Nil(t *testing.T) {
	filter, err := ParseFilterElement(nil)
	assert.Nil(t, filter)
	assert.Nil(t, err)
}

func TestParseFilterElement_Empty(t *testing.T) {
	filterElem := createElementFromXML(t, `<C:filter xmlns:C="urn:ietf:params:xml:ns:caldav"></C:filter>`)
	filter, err := ParseFilterElement(filterElem)
	assert.Nil(t, filter)
	assert.Nil(t, err)
}

func TestParseFilterElement_Basic(t *testing.T) {
	filterElem := createElementFromXML(t, `
    <C:filter xmlns:C="urn:ietf:params:xml:ns:caldav">
        <C:comp-filter name="VCALENDAR">
            <C:comp-filter name="VEVENT"/>
        </C:comp-filter>
    </C:filter>`)
	filter, err := ParseFilterElement(filterElem)

	require.NoError(t, err)
	require.NotNil(t, filter)
	assert.Equal(t, "VCALENDAR", filter.Component)
	assert.Equal(t, "allof", filter.Test)
	require.Len(t, filter.Children, 1)
	assert.Equal(t, "VEVENT", filter.Children[0].Component)
	assert.Nil(t, filter.Children[0].TimeRange)
}

func TestParseFilterElement_Complete(t *testing.T) {
	filterElem := createElementFromXML(t, `
    <C:filter xmlns:C="urn:ietf:params:xml:ns:caldav">
        <C:comp-filter name="VCALENDAR" test="anyof">
            <C:comp-filter name="vevent">
                <C:time-range start="20240101T000000Z" end="20240131T235959Z"/>
                <C:prop-filter name="SUMMARY">
                    <C:text-match collation="i;octet" match-type="starts-with" negate-condition="yes">Meeting</C:text-match>
                </C:prop-filter>
                <C:prop-filter name="location">
                    <C:is-not-defined/>
                </C:prop-filter>
                <C:comp-filter name="VALARM">
                    <C:is-not-defined/>
                </C:comp-filter>
            </C:comp-filter>
        </C:comp-filter>
    </C:filter>`)
	filter, err := ParseFilterElement(filterElem)
	require.NoError(t, err)
	require.NotNil(t, filter)
	assert.Equal(t, "anyof", filter.Test)
	require.Len(t, filter.Children, 1)

	eventFilter := filter.Children[0]
	assert.Equal(t, "VEVENT", eventFilter.Component)
	require.NotNil(t, eventFilter.TimeRange)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *eventFilter.TimeRange.Start)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), *eventFilter.TimeRange.End)

	require.Len(t, eventFilter.PropFilters, 2)
	summary := eventFilter.PropFilters[0]
	assert.Equal(t, "SUMMARY", summary.Name)
	require.NotNil(t, summary.TextMatch)
	assert.Equal(t, "i;octet", summary.TextMatch.Collation)
	assert.Equal(t, "starts-with", summary.TextMatch.MatchType)
	assert.True(t, summary.TextMatch.Negate)
	assert.Equal(t, "Meeting", summary.TextMatch.Value)

	location := eventFilter.PropFilters[1]
	assert.Equal(t, "LOCATION", location.Name)
	assert.True(t, location.IsNotDefined)
	assert.Nil(t, location.TextMatch)

	require.Len(t, eventFilter.Children, 1)
	assert.Equal(t, "VALARM", eventFilter.Children[0].Component)
	assert.True(t, eventFilter.Children[0].IsNotDefined)
}

func TestParseFilterElement_OpenEndedTimeRange(t *testing.T) {
	filterElem := createElementFromXML(t, `
    <C:filter xmlns:C="urn:ietf:params:xml:ns:caldav">
        <C:comp-filter name="VCALENDAR">
            <C:comp-filter name="VEVENT">
                <C:time-range start="20240101T000000Z"/>
            </C:comp-filter>
        </C:comp-filter>
    </C:filter>`)
	filter, err := ParseFilterElement(filterElem)
	require.NoError(t, err)
	tr := filter.Children[0].TimeRange
	require.NotNil(t, tr)
	assert.NotNil(t, tr.Start)
	assert.Nil(t, tr.End)
}

func TestParseFilterElement_Errors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{
			name: "malformed start",
			xml: `<C:filter xmlns:C="urn:ietf:params:xml:ns:caldav"><C:comp-filter name="VCALENDAR">
				<C:comp-filter name="VEVENT"><C:time-range start="2024-01-01"/></C:comp-filter>
			</C:comp-filter></C:filter>`,
		},
		{
			name: "local time end",
			xml: `<C:filter xmlns:C="urn:ietf:params:xml:ns:caldav"><C:comp-filter name="VCALENDAR">
				<C:comp-filter name="VEVENT"><C:time-range end="20240101T000000"/></C:comp-filter>
			</C:comp-filter></C:filter>`,
		},
		{
			name: "inverted range",
			xml: `<C:filter xmlns:C="urn:ietf:params:xml:ns:caldav"><C:comp-filter name="VCALENDAR">
				<C:comp-filter name="VEVENT"><C:time-range start="20240201T000000Z" end="20240101T000000Z"/></C:comp-filter>
			</C:comp-filter></C:filter>`,
		},
		{
			name: "nameless comp-filter",
			xml:  `<C:filter xmlns:C="urn:ietf:params:xml:ns:caldav"><C:comp-filter/></C:filter>`,
		},
		{
			name: "nameless prop-filter",
			xml: `<C:filter xmlns:C="urn:ietf:params:xml:ns:caldav"><C:comp-filter name="VCALENDAR">
				<C:comp-filter name="VEVENT"><C:prop-filter/></C:comp-filter>
			</C:comp-filter></C:filter>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := ParseFilterElement(createElementFromXML(t, tt.xml))
			assert.ErrorIs(t, err, ErrInvalidFilter)
			assert.Nil(t, filter)
		})
	}
}
