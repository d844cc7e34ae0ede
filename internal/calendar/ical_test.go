package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func icsBody(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return strings.Join(all, "\r\n")
}

func TestDecodeEvent(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:client-uid",
		"DTSTAMP:20240101T000000Z",
		"SUMMARY:Planning",
		"DESCRIPTION:Quarterly planning",
		"LOCATION:Room 4",
		"DTSTART:20240304T090000Z",
		"DTEND:20240304T100000Z",
		"END:VEVENT",
	)

	ev, err := DecodeEvent(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "Planning", ev.Title)
	require.NotNil(t, ev.Description)
	assert.Equal(t, "Quarterly planning", *ev.Description)
	require.NotNil(t, ev.Location)
	assert.Equal(t, "Room 4", *ev.Location)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), ev.End)
	assert.False(t, ev.AllDay)
}

func TestDecodeAllDayEvent(t *testing.T) {
	body := icsBody(
		"BEGIN:VEVENT",
		"UID:holiday",
		"DTSTAMP:20240101T000000Z",
		"SUMMARY:Holiday",
		"DTSTART;VALUE=DATE:20240501",
		"END:VEVENT",
	)

	ev, err := DecodeEvent(strings.NewReader(body))
	require.NoError(t, err)
	assert.True(t, ev.AllDay)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), ev.Start)
	assert.Nil(t, ev.Description)
	assert.Nil(t, ev.Location)
}

func TestDecodeEventErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not icalendar", "hello"},
		{"no event", icsBody()},
		{"two events", icsBody(
			"BEGIN:VEVENT", "UID:a", "DTSTAMP:20240101T000000Z", "SUMMARY:a", "DTSTART:20240101T000000Z", "END:VEVENT",
			"BEGIN:VEVENT", "UID:b", "DTSTAMP:20240101T000000Z", "SUMMARY:b", "DTSTART:20240101T000000Z", "END:VEVENT",
		)},
		{"missing summary", icsBody(
			"BEGIN:VEVENT", "UID:a", "DTSTAMP:20240101T000000Z", "DTSTART:20240101T000000Z", "END:VEVENT",
		)},
		{"missing dtstart", icsBody(
			"BEGIN:VEVENT", "UID:a", "DTSTAMP:20240101T000000Z", "SUMMARY:a", "END:VEVENT",
		)},
		{"bad dtstart", icsBody(
			"BEGIN:VEVENT", "UID:a", "DTSTAMP:20240101T000000Z", "SUMMARY:a", "DTSTART:tomorrow", "END:VEVENT",
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
		})
	}
}

func TestEncodeEventsRoundTrip(t *testing.T) {
	desc := "Bring slides, and coffee; please"
	ev := storage.Event{
		ID:          "planning",
		CalendarID:  "work",
		Title:       "Planning",
		Description: &desc,
		Start:       time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	data, err := EncodeEvents(ev)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "PRODID:"+ProductID)
	assert.Contains(t, text, "UID:planning")
	assert.Contains(t, text, "DTSTART:20240304T090000Z")

	decoded, err := DecodeEvent(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, ev.Title, decoded.Title)
	require.NotNil(t, decoded.Description)
	assert.Equal(t, desc, *decoded.Description)
	assert.Nil(t, decoded.Location)
	assert.Equal(t, ev.Start, decoded.Start)
	assert.Equal(t, ev.End, decoded.End)
}

func TestEncodeAllDayEvent(t *testing.T) {
	ev := storage.Event{
		ID:     "holiday",
		Title:  "Holiday",
		Start:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		AllDay: true,
	}

	data, err := EncodeEvents(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DTSTART;VALUE=DATE:20240501")

	decoded, err := DecodeEvent(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.True(t, decoded.AllDay)
	assert.Equal(t, ev.End, decoded.End)
}
