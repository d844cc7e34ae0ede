package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cyp0633/caldora/internal/api/middleware"
	"github.com/cyp0633/caldora/internal/calendar"
	"github.com/cyp0633/caldora/internal/etag"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/gorilla/mux"
)

// Calendar request/response types

type CalendarRequest struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	IsPublic    bool    `json:"is_public"`
}

type CalendarResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	IsPublic    bool      `json:"is_public"`
	CTag        string    `json:"ctag"`
	Permission  string    `json:"permission,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toCalendarResponse(cal *storage.Calendar, perm storage.Permission) CalendarResponse {
	resp := CalendarResponse{
		ID:          cal.ID,
		OwnerID:     cal.OwnerID,
		Name:        cal.Name,
		Description: cal.Description,
		Color:       cal.Color,
		IsPublic:    cal.IsPublic,
		CTag:        etag.CTag(*cal),
		CreatedAt:   cal.CreatedAt,
		UpdatedAt:   cal.UpdatedAt,
	}
	if perm != storage.PermissionNone {
		resp.Permission = perm.String()
	}
	return resp
}

// ListCalendars returns every calendar visible to the caller.
func ListCalendars(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		cals, err := svc.ListCalendars(r.Context(), uid)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		calendars := make([]CalendarResponse, 0, len(cals))
		for i := range cals {
			perm := storage.PermissionNone
			if cals[i].OwnerID == uid {
				perm = storage.PermissionAdmin
			}
			calendars = append(calendars, toCalendarResponse(&cals[i], perm))
		}
		writeJSON(w, http.StatusOK, calendars)
	}
}

// CreateCalendar adds a calendar owned by the caller.
func CreateCalendar(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CalendarRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		if req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Name is required")
			return
		}

		cal := &storage.Calendar{
			ID:          req.ID,
			Name:        req.Name,
			Description: req.Description,
			Color:       req.Color,
			IsPublic:    req.IsPublic,
		}
		if err := svc.CreateCalendar(r.Context(), userID(r), cal); err != nil {
			middleware.WriteCreateError(w, err)
			return
		}

		w.Header().Set("Location", "/api/calendars/"+cal.ID)
		writeJSON(w, http.StatusCreated, toCalendarResponse(cal, storage.PermissionAdmin))
	}
}

// GetCalendar returns a single calendar.
func GetCalendar(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cal, perm, err := svc.GetCalendar(r.Context(), userID(r), mux.Vars(r)["calendarId"])
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		w.Header().Set("ETag", etag.CTag(*cal))
		writeJSON(w, http.StatusOK, toCalendarResponse(cal, perm))
	}
}

// UpdateCalendar replaces the calendar properties. Admin only.
func UpdateCalendar(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CalendarRequest
		if err := decodeJSON(r, &req); err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		ctx := r.Context()
		uid := userID(r)
		cal, perm, err := svc.GetCalendar(ctx, uid, mux.Vars(r)["calendarId"])
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		cal.Name = req.Name
		cal.Description = req.Description
		cal.Color = req.Color
		cal.IsPublic = req.IsPublic
		if err := svc.UpdateCalendar(ctx, uid, cal); err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCalendarResponse(cal, perm))
	}
}

// DeleteCalendar removes a calendar with its events and shares. Admin only.
func DeleteCalendar(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteCalendar(r.Context(), userID(r), mux.Vars(r)["calendarId"]); err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ExportCalendar serves every event of the calendar as one iCalendar file.
func ExportCalendar(svc *calendar.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		uid := userID(r)
		cal, _, err := svc.GetCalendar(ctx, uid, mux.Vars(r)["calendarId"])
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		events, err := svc.ListEvents(ctx, uid, cal.ID, nil)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}
		data, err := calendar.EncodeEvents(events...)
		if err != nil {
			middleware.WriteAppError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+cal.ID+`.ics"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("ETag", etag.CTag(*cal))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
