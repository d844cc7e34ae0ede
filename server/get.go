package server

import (
	"net/http"
	"strconv"

	"github.com/cyp0633/caldora/internal/calendar"
	"github.com/cyp0633/caldora/internal/etag"
	"github.com/cyp0633/caldora/internal/guard"
	"github.com/cyp0633/caldora/server/storage"
)

// handleGet serves an event as iCalendar. On a calendar collection it serves
// every event of the calendar in one VCALENDAR, tagged with the collection tag.
func (h *CaldavHandler) handleGet(w http.ResponseWriter, r *http.Request, ctx *RequestContext, req getRequest) {
	var (
		events []storage.Event
		tag    string
	)
	rctx := r.Context()

	switch ctx.Resource.ResourceType {
	case storage.ResourceObject:
		ev, err := h.Service.GetEvent(rctx, ctx.Principal.ID, ctx.Resource.CalendarID, ctx.Resource.EventID.MustGet())
		if err != nil {
			h.writeError(w, err)
			return
		}
		events = []storage.Event{*ev}
		tag = etag.Compute(*ev)
		w.Header().Set("Last-Modified", ev.UpdatedAt.UTC().Format(http.TimeFormat))

	case storage.ResourceCollection:
		cal, _, err := h.Service.GetCalendar(rctx, ctx.Principal.ID, ctx.Resource.CalendarID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		events, err = h.Service.ListEvents(rctx, ctx.Principal.ID, cal.ID, nil)
		if err != nil {
			h.writeError(w, err)
			return
		}
		tag = etag.CTag(*cal)

	default:
		h.writeError(w, errMethodNotAllowed)
		return
	}

	w.Header().Set(headerETag, tag)
	if guard.NotModified(req.ifNoneMatch, tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := calendar.EncodeEvents(events...)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if req.headOnly {
		return
	}
	if _, err := w.Write(data); err != nil {
		h.Logger.Error("failed to write response", "error", err)
	}
}
