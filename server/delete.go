package server

import (
	"net/http"

	"github.com/cyp0633/caldora/server/storage"
)

// handleDelete removes an event, or a calendar together with its events.
func (h *CaldavHandler) handleDelete(w http.ResponseWriter, r *http.Request, ctx *RequestContext, req deleteRequest) {
	var err error
	switch ctx.Resource.ResourceType {
	case storage.ResourceObject:
		err = h.Service.DeleteEvent(r.Context(), ctx.Principal.ID, ctx.Resource.CalendarID, ctx.Resource.EventID.MustGet(), req.cond)
	case storage.ResourceCollection:
		err = h.Service.DeleteCalendar(r.Context(), ctx.Principal.ID, ctx.Resource.CalendarID)
	default:
		err = errMethodNotAllowed
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Logger.Info("resource deleted",
		"resource_type", ctx.Resource.ResourceType,
		"calendar_id", ctx.Resource.CalendarID,
		"event_id", ctx.Resource.EventID.OrEmpty())
	w.WriteHeader(http.StatusNoContent)
}
