package server

import (
	"fmt"
	"net/http"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/server/storage"
)

// handleMkcol creates a calendar at the collection path for both MKCOL and
// MKCALENDAR. The collection must not exist yet.
func (h *CaldavHandler) handleMkcol(w http.ResponseWriter, r *http.Request, ctx *RequestContext, req mkcolRequest) {
	if ctx.Resource.ResourceType != storage.ResourceCollection {
		h.Logger.Warn("mkcol not allowed on resource type",
			"resource_type", ctx.Resource.ResourceType)
		h.writeError(w, errMethodNotAllowed)
		return
	}

	cal := &storage.Calendar{
		ID:    ctx.Resource.CalendarID,
		Name:  req.body.DisplayName.OrEmpty(),
		Color: req.body.Color.OrEmpty(),
	}
	if desc, ok := req.body.Description.Get(); ok {
		cal.Description = &desc
	}

	if err := h.Service.CreateCalendar(r.Context(), ctx.Principal.ID, cal); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			// RFC 4918 section 9.3.1: MKCOL on a mapped URL is 405.
			h.writeError(w, fmt.Errorf("%w: %v", errMethodNotAllowed, err))
			return
		}
		h.writeError(w, err)
		return
	}

	path, err := h.URLConverter.EncodePath(ctx.Resource)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Logger.Info("calendar created",
		"path", path,
		"method", r.Method)
	w.Header().Set(headerLocation, path)
	w.WriteHeader(http.StatusCreated)
}
