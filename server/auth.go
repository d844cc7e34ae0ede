package server

import (
	"errors"
	"net/http"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/server/auth"
	"github.com/cyp0633/caldora/server/storage"
)

// checkAuth authenticates the request with Basic (password or token) or
// Bearer credentials. A read without an Authorization header proceeds as the
// anonymous principal; authorizeAnonymous later limits it to public
// calendars. On failure it writes the 401 and returns false.
func (h *CaldavHandler) checkAuth(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	if r.Header.Get("Authorization") == "" && anonymousMethod(r.Method) {
		return auth.Anonymous(), true
	}

	principal, err := auth.FromRequest(r, h.Auth, auth.SchemeBasic|auth.SchemeBearer)
	if err == nil {
		return principal, true
	}

	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		// The store failed while looking up the user.
		h.writeError(w, err)
		return nil, false
	}
	h.Logger.Info("authentication failed",
		"reason", authErr.Type,
		"path", r.URL.Path)
	h.writeError(w, apperr.Unauthorized("authentication required"))
	return nil, false
}

// authorizeAnonymous admits an anonymous request only when it targets a
// public calendar or one of its events. Anything else is challenged so the
// client can retry with credentials.
func (h *CaldavHandler) authorizeAnonymous(w http.ResponseWriter, r *http.Request, res Resource) bool {
	if res.ResourceType == storage.ResourceCollection || res.ResourceType == storage.ResourceObject {
		_, _, err := h.Service.GetCalendar(r.Context(), "", res.CalendarID)
		if err == nil {
			return true
		}
		if kind := apperr.KindOf(err); kind != apperr.KindNotFound && kind != apperr.KindForbidden {
			h.writeError(w, err)
			return false
		}
	}
	h.Logger.Debug("anonymous request refused",
		"method", r.Method,
		"path", r.URL.Path)
	h.writeError(w, apperr.Unauthorized("authentication required"))
	return false
}

func anonymousMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, "PROPFIND", "REPORT":
		return true
	}
	return false
}
