// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/cyp0633/caldora/internal/api/handlers"
	"github.com/cyp0633/caldora/internal/api/middleware"
	"github.com/cyp0633/caldora/internal/calendar"
	"github.com/cyp0633/caldora/server/auth"
	"github.com/gorilla/mux"
)

// Register adds the REST routes and the health endpoints to r. Everything
// under /api except registration and login requires a bearer token.
func Register(r *mux.Router, svc *calendar.Service, accounts *auth.Accounts) {
	r.HandleFunc("/health", handlers.HealthCheck(svc)).Methods("GET")

	// Public endpoints
	public := r.PathPrefix("/api").Subrouter()
	public.HandleFunc("/health", handlers.HealthCheck(svc)).Methods("GET")
	public.HandleFunc("/auth/register", handlers.Register(accounts)).Methods("POST")
	public.HandleFunc("/auth/login", handlers.Login(accounts)).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware(accounts, auth.SchemeBearer, middleware.Unauthorized))

	api.HandleFunc("/users/{userId}", handlers.GetUser(accounts)).Methods("GET")

	// Calendar endpoints
	api.HandleFunc("/calendars", handlers.ListCalendars(svc)).Methods("GET")
	api.HandleFunc("/calendars", handlers.CreateCalendar(svc)).Methods("POST")
	api.HandleFunc("/calendars/{calendarId}", handlers.GetCalendar(svc)).Methods("GET")
	api.HandleFunc("/calendars/{calendarId}", handlers.UpdateCalendar(svc)).Methods("PUT")
	api.HandleFunc("/calendars/{calendarId}", handlers.DeleteCalendar(svc)).Methods("DELETE")
	api.HandleFunc("/calendars/{calendarId}/export.ics", handlers.ExportCalendar(svc)).Methods("GET")

	// Event endpoints
	api.HandleFunc("/calendars/{calendarId}/events", handlers.ListEvents(svc)).Methods("GET")
	api.HandleFunc("/calendars/{calendarId}/events", handlers.CreateEvent(svc)).Methods("POST")
	api.HandleFunc("/calendars/{calendarId}/events/{eventId}", handlers.GetEvent(svc)).Methods("GET")
	api.HandleFunc("/calendars/{calendarId}/events/{eventId}", handlers.PutEvent(svc)).Methods("PUT")
	api.HandleFunc("/calendars/{calendarId}/events/{eventId}", handlers.DeleteEvent(svc)).Methods("DELETE")

	// Share endpoints
	api.HandleFunc("/calendars/{calendarId}/shares", handlers.ListShares(svc)).Methods("GET")
	api.HandleFunc("/calendars/{calendarId}/shares", handlers.CreateShare(svc)).Methods("POST")
	api.HandleFunc("/calendars/{calendarId}/shares/{shareId}", handlers.DeleteShare(svc)).Methods("DELETE")

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not_found", "No such endpoint")
	})
}
