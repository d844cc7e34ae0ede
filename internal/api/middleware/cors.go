package middleware

import (
	"net/http"
	"slices"
	"strings"
)

const (
	corsMethods        = "GET, POST, PUT, DELETE, OPTIONS, PROPFIND, REPORT, MKCOL, MKCALENDAR"
	corsHeaders        = "Authorization, Content-Type, Accept, Depth, Prefer, If-Match, If-None-Match"
	corsExposedHeaders = "ETag, Location, DAV"
	corsMaxAge         = "86400"
)

// CORS returns middleware that answers preflight requests and annotates
// responses for the allowed origins. "*" allows every origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowAll := slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!allowAll && !slices.Contains(origins, origin)) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if allowAll {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Expose-Headers", corsExposedHeaders)

			// A plain OPTIONS is a DAV capability probe and passes through.
			if IsPreflight(r) {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsPreflight reports whether r is a CORS preflight request.
func IsPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && strings.TrimSpace(r.Header.Get("Access-Control-Request-Method")) != ""
}
