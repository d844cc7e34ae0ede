package server

import (
	"net/http"
	"testing"

	"github.com/cyp0633/caldora/internal/guard"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mkcalendarBody = `<?xml version="1.0" encoding="utf-8"?>
<c:mkcalendar xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav" xmlns:i="http://apple.com/ns/ical/">
  <d:set>
    <d:prop>
      <d:displayname>Work</d:displayname>
      <c:calendar-description>Office hours</c:calendar-description>
      <i:calendar-color>#FF0000</i:calendar-color>
    </d:prop>
  </d:set>
</c:mkcalendar>`

func TestMkcalendar(t *testing.T) {
	ts := newTestServer(t, guard.ModeStrict)

	rec := ts.do("alice", "MKCALENDAR", "/calendars/work/", mkcalendarBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/calendars/work/", rec.Header().Get("Location"))

	body := `<d:propfind xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav" xmlns:i="http://apple.com/ns/ical/">
  <d:prop><d:displayname/><c:calendar-description/><i:calendar-color/></d:prop></d:propfind>`
	ms := parseMultistatus(t, ts.do("alice", "PROPFIND", "/calendars/work/", body, map[string]string{"Depth": "0"}))
	require.Len(t, ms.Responses, 1)

	for name, want := range map[props.Name]string{
		props.DisplayNameName:         "Work",
		props.CalendarDescriptionName: "Office hours",
		props.CalendarColorName:       "#FF0000",
	} {
		elem, status, ok := ms.Responses[0].Prop(name)
		require.True(t, ok, name.String())
		assert.Equal(t, http.StatusOK, status, name.String())
		assert.Equal(t, want, elem.Text(), name.String())
	}
}

func TestMkcol(t *testing.T) {
	ts := newTestServer(t, guard.ModeStrict)

	tests := []struct {
		name       string
		user       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"plain mkcol", "alice", "MKCOL", "/calendars/home/", "", http.StatusCreated},
		{"existing", "alice", "MKCOL", "/calendars/home/", "", http.StatusMethodNotAllowed},
		{"existing for another user", "bob", "MKCALENDAR", "/calendars/home/", "", http.StatusMethodNotAllowed},
		{"on event path", "alice", "MKCOL", "/calendars/home/x.ics", "", http.StatusMethodNotAllowed},
		{"on home", "alice", "MKCOL", "/calendars/", "", http.StatusMethodNotAllowed},
		{"wrong root element", "alice", "MKCOL", "/calendars/other/", `<d:propfind xmlns:d="DAV:"/>`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.user, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusMethodNotAllowed {
				assert.NotEmpty(t, rec.Header().Get("Allow"))
				assertErrorDocument(t, rec)
			}
		})
	}
}
