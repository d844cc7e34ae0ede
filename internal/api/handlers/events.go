package handlers

import (
	"net/http"
	"time"

	"github.com/cyp0633/caldora/internal/api/middleware"
	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/calendar"
	"github.com/cyp0633/caldora/internal/etag"
	"github.com/cyp0633/caldora/internal/guard"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/gorilla/mux"
)

// Event request/response types

type EventRequest struct {
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
}

type EventResponse struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendar_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	ETag        string    `json:"etag"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toEventResponse(ev *storage.Event) EventResponse {
	return EventResponse{
		ID:          ev.ID,
		CalendarID:  ev.CalendarID,
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       ev.Start,
		End:         ev.End,
		AllDay:      ev.AllDay,
		ETag:        etag.Compute(*ev),
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}

func (req EventRequest) toEvent(calendarID, eventID string) *storage.Event {
	ev := &storage.Event{
		ID:          eventID,
		CalendarID:  calendarID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Start:       req.Start,
		End:         req.End,
		AllDay:      req.AllDay,
	}
	if ev.End.IsZero() {
		ev.End = ev.Start
	}
	return ev
}

func conditions(r *http.Request) guard.Conditions {
	return guard.Conditions{
		IfMatch:     r.Header.Get("If-Match"),
		IfNoneMatch: r.Header.Get("If-None-Match"),
	}
}

func eventLocation(ev *storage.Event) string {
	return "/api/calendars/" + ev.CalendarID + "/events/" + ev.ID
}

// parseRange reads the optional RFC 3339 start and end query parameters.
func parseRange(r *http.Request) (*storage.Filter, error) {
	var bounds [2]*time.Time
	for i, key := range []string{"start", "end"} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, apperr.BadRequest("Invalid "+key+" time, expected RFC 3339", err)
		}
		bounds[i] = &t
	}
	if bounds[0] != nil && bounds[1] != nil && bounds[1].Before(*bounds[0]) {
		return nil, apperr.BadRequest("end precedes start", nil)
	}
	return storage.EventsInRange(bounds[0], bounds[1]), nil
}

// ListEvents returns the events of a calendar, optionally limited to a range.
func ListEvents(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseRange(r)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		evs, err := svc.ListEvents(r.Context(), userID(r), mux.Vars(r)["calendarId"], filter)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		events := make([]EventResponse, 0, len(evs))
		for i := range evs {
			events = append(events, toEventResponse(&evs[i]))
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// CreateEvent stores a new event under a generated id.
func CreateEvent(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EventRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		result, err := svc.CreateEvent(r.Context(), userID(r), req.toEvent(mux.Vars(r)["calendarId"], ""))
		if err != nil {
			middleware.WriteCreateError(w, err)
			return
		}

		w.Header().Set("ETag", result.ETag)
		w.Header().Set("Location", eventLocation(&result.Event))
		writeJSON(w, http.StatusCreated, toEventResponse(&result.Event))
	}
}

// GetEvent returns one event with its entity tag. A matching If-None-Match
// yields 304.
func GetEvent(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		ev, err := svc.GetEvent(r.Context(), userID(r), vars["calendarId"], vars["eventId"])
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		tag := etag.Compute(*ev)
		w.Header().Set("ETag", tag)
		if guard.NotModified(r.Header.Get("If-None-Match"), tag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponse(ev))
	}
}

// PutEvent creates or replaces an event under the caller's preconditions.
func PutEvent(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EventRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		vars := mux.Vars(r)
		result, err := svc.PutEvent(r.Context(), userID(r), req.toEvent(vars["calendarId"], vars["eventId"]), conditions(r))
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		w.Header().Set("ETag", result.ETag)
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
			w.Header().Set("Location", eventLocation(&result.Event))
		}
		writeJSON(w, status, toEventResponse(&result.Event))
	}
}

// DeleteEvent tombstones an event under the caller's preconditions.
func DeleteEvent(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		if err := svc.DeleteEvent(r.Context(), userID(r), vars["calendarId"], vars["eventId"], conditions(r)); err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
