// Package handlers implements the REST endpoints.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/server/auth"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.BadRequest("Invalid request body", err)
	}
	return nil
}

// userID returns the authenticated principal set by the auth middleware.
func userID(r *http.Request) string {
	if p := auth.GetPrincipalFromContext(r.Context()); p != nil {
		return p.ID
	}
	return ""
}
