package server

import (
	"net/http"
	"sort"

	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/gorilla/mux"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"
	headerETag        = "ETag"
	headerDAV         = "DAV"
	headerAllow       = "Allow"
	headerLocation    = "Location"

	// MIME types
	mimeTypeCalendar = "text/calendar; charset=utf-8"
	mimeTypeEvent    = "text/calendar; charset=utf-8; component=VEVENT"
	mimeTypeXML      = "application/xml; charset=utf-8"

	// DAV capability values
	davCapabilities = "1, 3, calendar-access"
	allowedMethods  = "OPTIONS, PROPFIND, REPORT, GET, HEAD, PUT, DELETE, MKCOL, MKCALENDAR"

	// WellKnownPath is the RFC 6764 bootstrap location.
	WellKnownPath = "/.well-known/caldav"
)

// davMethods are the methods routed to the CalDAV handler.
var davMethods = []string{
	http.MethodOptions, "PROPFIND", "REPORT", http.MethodGet, http.MethodHead,
	http.MethodPut, http.MethodDelete, "MKCOL", "MKCALENDAR",
}

// Mount registers the CalDAV tree and its well-known redirect on the router.
// The redirect is served without authentication.
func Mount(router *mux.Router, h *CaldavHandler) {
	router.Handle(WellKnownPath, WellKnownRedirect(h.Prefix)).
		Methods(http.MethodGet, http.MethodHead, "PROPFIND")
	router.Handle(WellKnownPath+"/", WellKnownRedirect(h.Prefix)).
		Methods(http.MethodGet, http.MethodHead, "PROPFIND")
	router.PathPrefix(h.Prefix).Handler(h).Methods(davMethods...)
	router.PathPrefix(h.Prefix).HandlerFunc(h.rejectMethod)

	// The bare prefix without its trailing slash still names the home.
	if bare := h.Prefix[:len(h.Prefix)-1]; bare != "" {
		router.Handle(bare, h).Methods(davMethods...)
		router.HandleFunc(bare, h.rejectMethod)
	}
}

// WellKnownRedirect answers with a permanent redirect to the calendar home.
func WellKnownRedirect(target string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}

func sortedNames(table map[props.Name]Resolver) []props.Name {
	names := make([]props.Name, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i].String() < names[j].String()
	})
	return names
}
