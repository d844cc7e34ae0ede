package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/samber/mo"
)

func (h *CaldavHandler) handleReport(w http.ResponseWriter, r *http.Request, ctx *RequestContext, req reportRequest) {
	sel := propSelection{props: req.body.Props}
	if req.body.AllProp {
		// A REPORT without <prop> returns the event data along with allprop.
		sel = propSelection{all: true, include: []props.Name{props.CalendarDataName}}
	}

	var (
		responses []xml.Response
		err       error
	)
	switch req.body.Kind {
	case xml.ReportCalendarMultiget:
		responses = h.calendarMultiget(r.Context(), ctx, req.body.Hrefs, sel)
	default:
		responses, err = h.calendarQuery(r.Context(), ctx, req.body.Filter, sel)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Logger.Debug("report resolved",
		"kind", req.body.Kind.String(),
		"calendar_id", ctx.Resource.CalendarID,
		"responses", len(responses))
	h.writeMultistatus(w, &xml.Multistatus{Responses: responses})
}

// calendarQuery returns every event under the target that matches the filter.
// On the calendar home it searches all visible calendars.
func (h *CaldavHandler) calendarQuery(rctx context.Context, ctx *RequestContext, filter *storage.Filter, sel propSelection) ([]xml.Response, error) {
	var calendarIDs []string
	switch ctx.Resource.ResourceType {
	case storage.ResourceRoot:
		cals, err := h.Service.ListCalendars(rctx, ctx.Principal.ID)
		if err != nil {
			return nil, err
		}
		for _, cal := range cals {
			calendarIDs = append(calendarIDs, cal.ID)
		}
	case storage.ResourceCollection:
		calendarIDs = []string{ctx.Resource.CalendarID}
	case storage.ResourceObject:
		ev, err := h.Service.GetEvent(rctx, ctx.Principal.ID, ctx.Resource.CalendarID, ctx.Resource.EventID.MustGet())
		if err != nil {
			return nil, err
		}
		if !filter.Match(ev) {
			return nil, nil
		}
		return []xml.Response{h.eventResponse(rctx, ctx, ev, mo.None[storage.Permission](), sel)}, nil
	}

	var responses []xml.Response
	for _, calendarID := range calendarIDs {
		events, err := h.Service.ListEvents(rctx, ctx.Principal.ID, calendarID, filter)
		if err != nil {
			return nil, err
		}
		for i := range events {
			responses = append(responses, h.eventResponse(rctx, ctx, &events[i], mo.None[storage.Permission](), sel))
		}
	}
	return responses, nil
}

// calendarMultiget resolves each href on its own. An href that does not name
// a visible event gets a 404 entry and never fails the whole report.
func (h *CaldavHandler) calendarMultiget(rctx context.Context, ctx *RequestContext, hrefs []string, sel propSelection) []xml.Response {
	responses := make([]xml.Response, 0, len(hrefs))
	for _, href := range hrefs {
		res, err := h.resourceFromHref(href)
		if err == nil && res.ResourceType != storage.ResourceObject {
			err = apperr.NotFound("href does not name an event")
		}
		if err != nil {
			responses = append(responses, xml.Response{Href: href, Err: err})
			continue
		}

		ev, err := h.Service.GetEvent(rctx, ctx.Principal.ID, res.CalendarID, res.EventID.MustGet())
		if err != nil {
			h.Logger.Debug("multiget href unavailable",
				"href", href,
				"error", err)
			responses = append(responses, xml.Response{Href: href, Err: err})
			continue
		}
		responses = append(responses, h.eventResponse(rctx, ctx, ev, mo.None[storage.Permission](), sel))
	}
	return responses
}

// resourceFromHref accepts absolute URLs as well as absolute paths.
func (h *CaldavHandler) resourceFromHref(href string) (Resource, error) {
	u, err := url.Parse(href)
	if err != nil {
		return Resource{}, apperr.NotFound("malformed href")
	}
	path := u.EscapedPath()
	if !strings.HasPrefix(path, h.Prefix) {
		return Resource{}, apperr.NotFound("href outside the calendar tree")
	}
	res, err := h.URLConverter.ParsePath(strings.TrimPrefix(path, h.Prefix))
	if err != nil {
		return Resource{}, apperr.NotFound("href does not name a resource")
	}
	return res, nil
}
