package server

import (
	"net/http"
	"testing"

	"github.com/cyp0633/caldora/internal/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEvent(t *testing.T) {
	ts := newTestServer(t, guard.ModeStrict)
	ts.createCalendar("alice", "work")
	tag := ts.putEvent("alice", "work", "standup", "Standup", eventStart)

	tests := []struct {
		name       string
		method     string
		path       string
		headers    map[string]string
		wantStatus int
		wantBody   string
	}{
		{"get", http.MethodGet, standupPath, nil, http.StatusOK, "SUMMARY:Standup"},
		{"head", http.MethodHead, standupPath, nil, http.StatusOK, ""},
		{"not modified", http.MethodGet, standupPath, map[string]string{"If-None-Match": tag}, http.StatusNotModified, ""},
		{"stale tag", http.MethodGet, standupPath, map[string]string{"If-None-Match": `"stale"`}, http.StatusOK, "BEGIN:VEVENT"},
		{"missing event", http.MethodGet, "/calendars/work/nope.ics", nil, http.StatusNotFound, ""},
		{"calendar export", http.MethodGet, "/calendars/work/", nil, http.StatusOK, "UID:standup"},
		{"home", http.MethodGet, "/calendars/", nil, http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do("alice", tt.method, tt.path, "", tt.headers)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if tt.method == http.MethodHead {
				assert.Empty(t, rec.Body.String())
				assert.NotEmpty(t, rec.Header().Get("Content-Length"))
			}
			if tt.path == standupPath && tt.wantStatus != http.StatusNotFound {
				assert.Equal(t, tag, rec.Header().Get("ETag"))
			}
		})
	}
}

func TestGetInvisibleEvent(t *testing.T) {
	ts := newTestServer(t, guard.ModeStrict)
	ts.createCalendar("alice", "work")
	ts.putEvent("alice", "work", "standup", "Standup", eventStart)

	rec := ts.do("bob", http.MethodGet, standupPath, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
