package server

import (
	"io"
	"mime"
	"net/http"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/calendar"
	"github.com/cyp0633/caldora/server/storage"
)

// maxICalSize bounds a PUT body.
const maxICalSize = 1 << 20

func (h *CaldavHandler) handlePut(w http.ResponseWriter, r *http.Request, ctx *RequestContext, req putRequest) {
	if ctx.Resource.ResourceType != storage.ResourceObject {
		h.Logger.Warn("put not allowed on resource type",
			"resource_type", ctx.Resource.ResourceType)
		h.writeError(w, errMethodNotAllowed)
		return
	}

	if contentType := r.Header.Get(headerContentType); contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "text/calendar" {
			h.Logger.Warn("unsupported media type",
				"content_type", contentType)
			h.writeErrorDocument(w, http.StatusUnsupportedMediaType, apperr.KindBadRequest, "calendar objects must be sent as text/calendar")
			return
		}
	}

	ev, err := calendar.DecodeEvent(io.LimitReader(req.body, maxICalSize))
	if err != nil {
		h.writeError(w, err)
		return
	}
	// The path names the event; the UID inside the body does not.
	ev.ID = ctx.Resource.EventID.MustGet()
	ev.CalendarID = ctx.Resource.CalendarID

	result, err := h.Service.PutEvent(r.Context(), ctx.Principal.ID, ev, req.cond)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set(headerETag, result.ETag)
	if result.Created {
		path, err := h.URLConverter.EncodePath(ctx.Resource)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.Logger.Info("event created",
			"path", path,
			"etag", result.ETag)
		w.Header().Set(headerLocation, path)
		w.WriteHeader(http.StatusCreated)
		return
	}
	h.Logger.Info("event updated",
		"calendar_id", ev.CalendarID,
		"event_id", ev.ID,
		"etag", result.ETag)
	w.WriteHeader(http.StatusNoContent)
}
