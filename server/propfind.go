package server

import (
	"context"
	"net/http"
	"slices"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/samber/mo"
)

// propSelection is the set of properties a PROPFIND or REPORT asks for.
type propSelection struct {
	all     bool
	names   bool
	props   []props.Name
	include []props.Name
}

func selectionFromPropfind(body *xml.PropfindRequest) propSelection {
	return propSelection{
		all:     body.AllProp,
		names:   body.PropName,
		props:   body.Props,
		include: body.Include,
	}
}

func (s propSelection) resolve(env *propEnv) []xml.PropResult {
	rt := env.res.ResourceType
	if s.names {
		return propNames(rt)
	}
	list := s.props
	if s.all {
		list = slices.Clone(allProps[rt])
		for _, name := range s.include {
			if !slices.Contains(list, name) {
				list = append(list, name)
			}
		}
	}
	return resolveWith(env, list, resolversFor(rt))
}

func (h *CaldavHandler) handlePropfind(w http.ResponseWriter, r *http.Request, ctx *RequestContext, req propfindRequest) {
	sel := selectionFromPropfind(req.body)
	rctx := r.Context()
	var responses []xml.Response

	switch ctx.Resource.ResourceType {
	case storage.ResourceRoot:
		responses = append(responses, h.propResponse(newPropEnv(rctx, h, ctx, ctx.Resource), sel))
		if ctx.Depth > 0 {
			cals, err := h.Service.ListCalendars(rctx, ctx.Principal.ID)
			if err != nil {
				h.writeError(w, err)
				return
			}
			for i := range cals {
				responses = append(responses, h.calendarResponse(rctx, ctx, &cals[i], h.knownPermission(ctx, &cals[i]), sel))
			}
		}

	case storage.ResourceCollection:
		cal, perm, err := h.Service.GetCalendar(rctx, ctx.Principal.ID, ctx.Resource.CalendarID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		responses = append(responses, h.calendarResponse(rctx, ctx, cal, mo.Some(perm), sel))
		if ctx.Depth > 0 {
			events, err := h.Service.ListEvents(rctx, ctx.Principal.ID, cal.ID, nil)
			if err != nil {
				h.writeError(w, err)
				return
			}
			for i := range events {
				responses = append(responses, h.eventResponse(rctx, ctx, &events[i], mo.Some(perm), sel))
			}
		}

	case storage.ResourceObject:
		ev, err := h.Service.GetEvent(rctx, ctx.Principal.ID, ctx.Resource.CalendarID, ctx.Resource.EventID.MustGet())
		if err != nil {
			h.writeError(w, err)
			return
		}
		responses = append(responses, h.eventResponse(rctx, ctx, ev, mo.None[storage.Permission](), sel))

	default:
		h.writeError(w, apperr.NotFound("no such resource"))
		return
	}

	h.Logger.Debug("propfind resolved",
		"resource_type", ctx.Resource.ResourceType,
		"depth", ctx.Depth,
		"responses", len(responses))
	h.writeMultistatus(w, &xml.Multistatus{Responses: responses})
}

// knownPermission avoids a lookup for calendars the principal owns.
func (h *CaldavHandler) knownPermission(ctx *RequestContext, cal *storage.Calendar) mo.Option[storage.Permission] {
	if cal.OwnerID == ctx.Principal.ID {
		return mo.Some(storage.PermissionAdmin)
	}
	return mo.None[storage.Permission]()
}

func (h *CaldavHandler) calendarResponse(rctx context.Context, ctx *RequestContext, cal *storage.Calendar, perm mo.Option[storage.Permission], sel propSelection) xml.Response {
	env := newPropEnv(rctx, h, ctx, CalendarResource(cal.ID)).withCalendar(cal, perm)
	return h.propResponse(env, sel)
}

func (h *CaldavHandler) eventResponse(rctx context.Context, ctx *RequestContext, ev *storage.Event, perm mo.Option[storage.Permission], sel propSelection) xml.Response {
	env := newPropEnv(rctx, h, ctx, EventResource(ev.CalendarID, ev.ID)).withEvent(ev)
	env.perm = perm
	return h.propResponse(env, sel)
}

// propResponse builds the multistatus entry of one resource. A resource whose
// href cannot be built is reported on its own and does not abort the rest.
func (h *CaldavHandler) propResponse(env *propEnv, sel propSelection) xml.Response {
	href, err := h.URLConverter.EncodePath(env.res)
	if err != nil {
		h.Logger.Error("failed to encode resource path",
			"calendar_id", env.res.CalendarID,
			"event_id", env.res.EventID.OrEmpty(),
			"error", err)
		return xml.Response{Href: href, Err: apperr.Internal("cannot address resource", err)}
	}
	return xml.Response{Href: href, Props: sel.resolve(env)}
}

func (h *CaldavHandler) writeMultistatus(w http.ResponseWriter, ms *xml.Multistatus) {
	w.Header().Set(headerContentType, mimeTypeXML)
	w.WriteHeader(http.StatusMultiStatus)
	if _, err := ms.WriteTo(w); err != nil {
		h.Logger.Error("failed to write multistatus", "error", err)
	}
}
