package server

import (
	"errors"
	"net/http"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/server/auth"
)

var errMethodNotAllowed = errors.New("method not allowed on this resource")

// retryAfterSeconds is sent with 503 responses.
const retryAfterSeconds = "1"

// writeError renders err as a <d:error> body with the status of its kind.
func (h *CaldavHandler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errMethodNotAllowed) {
		w.Header().Set(headerAllow, allowedMethods)
		h.writeErrorDocument(w, http.StatusMethodNotAllowed, apperr.KindConflict, errMethodNotAllowed.Error())
		return
	}

	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindInternal:
		h.Logger.Error("request failed", "error", err)
	case apperr.KindTransient:
		h.Logger.Warn("store unavailable", "error", err)
		w.Header().Set("Retry-After", retryAfterSeconds)
	case apperr.KindUnauthorized:
		auth.Challenge(w, h.Realm)
	default:
		h.Logger.Debug("request rejected", "kind", kind, "error", err)
	}
	h.writeErrorDocument(w, apperr.HTTPStatus(kind), kind, apperr.PublicMessage(err))
}

// writeErrorDocument sends status with a <d:error> body so that failures
// stay parseable XML.
func (h *CaldavHandler) writeErrorDocument(w http.ResponseWriter, status int, kind apperr.Kind, message string) {
	doc := xml.ErrorDocument(kind, message)
	doc.Indent(2)
	w.Header().Set(headerContentType, mimeTypeXML)
	w.WriteHeader(status)
	if _, werr := doc.WriteTo(w); werr != nil {
		h.Logger.Error("failed to write error body", "error", werr)
	}
}

// rejectMethod answers methods the CalDAV tree does not implement.
func (h *CaldavHandler) rejectMethod(w http.ResponseWriter, r *http.Request) {
	h.Logger.Debug("unsupported method",
		"method", r.Method,
		"path", r.URL.Path)
	h.writeError(w, errMethodNotAllowed)
}
