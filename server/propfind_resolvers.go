package server

import (
	"context"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldora/internal/calendar"
	"github.com/cyp0633/caldora/internal/etag"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/samber/mo"
)

// Resolver resolves a single property for the given environment.
type Resolver func(env *propEnv) mo.Result[props.Property]

// propEnv holds what the resolvers of one resource need. The calendar and
// event are loaded by the caller; derived values are computed lazily.
type propEnv struct {
	h     *CaldavHandler
	ctx   context.Context
	req   *RequestContext
	res   Resource
	cal   *storage.Calendar
	event *storage.Event

	perm    mo.Option[storage.Permission]
	icalRes mo.Option[mo.Result[string]]
}

func newPropEnv(ctx context.Context, h *CaldavHandler, req *RequestContext, res Resource) *propEnv {
	return &propEnv{h: h, ctx: ctx, req: req, res: res}
}

func (e *propEnv) withCalendar(cal *storage.Calendar, perm mo.Option[storage.Permission]) *propEnv {
	e.cal = cal
	e.perm = perm
	return e
}

func (e *propEnv) withEvent(ev *storage.Event) *propEnv {
	e.event = ev
	return e
}

func (e *propEnv) href(res Resource) mo.Result[string] {
	return mo.TupleToResult(e.h.URLConverter.EncodePath(res))
}

// permission returns the caller's permission on the calendar of the resource.
func (e *propEnv) permission() (storage.Permission, error) {
	if perm, ok := e.perm.Get(); ok {
		return perm, nil
	}
	_, perm, err := e.h.Service.GetCalendar(e.ctx, e.req.Principal.ID, e.res.CalendarID)
	if err != nil {
		return storage.PermissionNone, err
	}
	e.perm = mo.Some(perm)
	return perm, nil
}

// icalendar renders the event once per response.
func (e *propEnv) icalendar() (string, error) {
	if res, ok := e.icalRes.Get(); ok {
		return res.Get()
	}
	data, err := calendar.EncodeEvents(*e.event)
	res := mo.TupleToResult(string(data), err)
	e.icalRes = mo.Some(res)
	return res.Get()
}

func ok(p props.Property) mo.Result[props.Property] {
	return mo.Ok[props.Property](p)
}

func notFound() mo.Result[props.Property] {
	return mo.Err[props.Property](props.ErrNotFound)
}

func internal(env *propEnv, name props.Name, err error) mo.Result[props.Property] {
	env.h.Logger.Error("failed to resolve property",
		"property", name.String(),
		"calendar_id", env.res.CalendarID,
		"event_id", env.res.EventID.OrEmpty(),
		"error", err)
	return mo.Err[props.Property](props.ErrInternal)
}

func hrefProperty(env *propEnv, name props.Name, res Resource, build func(string) props.Property) mo.Result[props.Property] {
	href, err := env.href(res).Get()
	if err != nil {
		return internal(env, name, err)
	}
	return ok(build(href))
}

func privilegeSet(env *propEnv) mo.Result[props.Property] {
	if env.res.ResourceType == storage.ResourceRoot {
		return ok(props.CurrentUserPrivilegeSet{Privileges: []string{"read", "bind", "unbind"}})
	}
	perm, err := env.permission()
	if err != nil {
		return internal(env, props.CurrentUserPrivilegeSetName, err)
	}
	privs := []string{"read"}
	if perm.CanWrite() {
		privs = append(privs, "write", "write-content", "bind", "unbind")
	}
	if perm >= storage.PermissionAdmin {
		privs = append(privs, "write-properties")
	}
	return ok(props.CurrentUserPrivilegeSet{Privileges: privs})
}

func currentUserPrincipal(env *propEnv) mo.Result[props.Property] {
	if env.req.Principal.IsAnonymous() {
		return notFound()
	}
	return hrefProperty(env, props.CurrentUserPrincipalName, RootResource(), func(href string) props.Property {
		return props.CurrentUserPrincipal{Href: href}
	})
}

var rootResolvers = map[props.Name]Resolver{
	props.DisplayNameName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.DisplayName{Value: env.req.Principal.Username})
	},
	props.ResourcetypeName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.Resourcetype{Type: storage.ResourceRoot})
	},
	props.CurrentUserPrincipalName: currentUserPrincipal,
	props.PrincipalURLName: func(env *propEnv) mo.Result[props.Property] {
		return hrefProperty(env, props.PrincipalURLName, RootResource(), func(href string) props.Property {
			return props.PrincipalURL{Href: href}
		})
	},
	props.CalendarHomeSetName: func(env *propEnv) mo.Result[props.Property] {
		return hrefProperty(env, props.CalendarHomeSetName, RootResource(), func(href string) props.Property {
			return props.CalendarHomeSet{Href: href}
		})
	},
	props.CurrentUserPrivilegeSetName: privilegeSet,
}

var calendarResolvers = map[props.Name]Resolver{
	props.DisplayNameName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.DisplayName{Value: env.cal.Name})
	},
	props.ResourcetypeName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.Resourcetype{Type: storage.ResourceCollection})
	},
	props.GetCTagName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.GetCTag{Value: etag.CTag(*env.cal)})
	},
	props.GetEtagName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.GetEtag{Value: etag.CTag(*env.cal)})
	},
	props.GetLastModifiedName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.GetLastModified{Value: env.cal.UpdatedAt})
	},
	props.CalendarDescriptionName: func(env *propEnv) mo.Result[props.Property] {
		if env.cal.Description == nil {
			return notFound()
		}
		return ok(props.CalendarDescription{Value: *env.cal.Description})
	},
	props.CalendarColorName: func(env *propEnv) mo.Result[props.Property] {
		if env.cal.Color == "" {
			return notFound()
		}
		return ok(props.CalendarColor{Value: env.cal.Color})
	},
	props.SupportedCalendarComponentSetName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.SupportedCalendarComponentSet{Components: []string{"VEVENT"}})
	},
	props.SupportedCalendarDataName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.SupportedCalendarData{ContentType: "text/calendar", Version: "2.0"})
	},
	props.SupportedReportSetName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.SupportedReportSet{Reports: []props.ReportType{props.ReportCalendarQuery, props.ReportCalendarMultiget}})
	},
	props.CurrentUserPrincipalName:    currentUserPrincipal,
	props.CurrentUserPrivilegeSetName: privilegeSet,
}

var eventResolvers = map[props.Name]Resolver{
	props.DisplayNameName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.DisplayName{Value: env.event.Title})
	},
	props.ResourcetypeName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.Resourcetype{Type: storage.ResourceObject})
	},
	props.GetEtagName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.GetEtag{Value: etag.Compute(*env.event)})
	},
	props.GetLastModifiedName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.GetLastModified{Value: env.event.UpdatedAt})
	},
	props.GetContentTypeName: func(env *propEnv) mo.Result[props.Property] {
		return ok(props.GetContentType{Value: mimeTypeEvent})
	},
	props.GetContentLengthName: func(env *propEnv) mo.Result[props.Property] {
		data, err := env.icalendar()
		if err != nil {
			return internal(env, props.GetContentLengthName, err)
		}
		return ok(props.GetContentLength{Value: len(data)})
	},
	props.CalendarDataName: func(env *propEnv) mo.Result[props.Property] {
		data, err := env.icalendar()
		if err != nil {
			return internal(env, props.CalendarDataName, err)
		}
		return ok(props.CalendarData{ICal: data})
	},
	props.CurrentUserPrincipalName:    currentUserPrincipal,
	props.CurrentUserPrivilegeSetName: privilegeSet,
}

// allProps lists what allprop returns per resource type. calendar-data is
// only returned when asked for or by a REPORT.
var allProps = map[storage.ResourceType][]props.Name{
	storage.ResourceRoot: {
		props.DisplayNameName,
		props.ResourcetypeName,
		props.CurrentUserPrincipalName,
		props.CalendarHomeSetName,
	},
	storage.ResourceCollection: {
		props.DisplayNameName,
		props.ResourcetypeName,
		props.GetCTagName,
		props.GetEtagName,
		props.GetLastModifiedName,
		props.CalendarDescriptionName,
		props.CalendarColorName,
		props.SupportedCalendarComponentSetName,
		props.SupportedReportSetName,
	},
	storage.ResourceObject: {
		props.DisplayNameName,
		props.ResourcetypeName,
		props.GetEtagName,
		props.GetLastModifiedName,
		props.GetContentTypeName,
		props.GetContentLengthName,
	},
}

func resolversFor(rt storage.ResourceType) map[props.Name]Resolver {
	switch rt {
	case storage.ResourceRoot:
		return rootResolvers
	case storage.ResourceCollection:
		return calendarResolvers
	case storage.ResourceObject:
		return eventResolvers
	}
	return nil
}

// resolveWith dispatches properties using the provided resolver table.
// Unknown properties come back as 404 entries.
func resolveWith(env *propEnv, names []props.Name, table map[props.Name]Resolver) []xml.PropResult {
	results := make([]xml.PropResult, 0, len(names))
	for _, name := range names {
		var value mo.Result[props.Property]
		if resolver, found := table[name]; found {
			value = resolver(env)
		} else {
			value = notFound()
		}
		results = append(results, xml.PropResult{Name: name, Value: value})
	}
	return results
}

// nameOnly renders an empty property element for propname requests.
type nameOnly props.Name

func (n nameOnly) Encode() *etree.Element { return props.Name(n).Element() }

func propNames(rt storage.ResourceType) []xml.PropResult {
	table := resolversFor(rt)
	results := make([]xml.PropResult, 0, len(table))
	for _, name := range sortedNames(table) {
		results = append(results, xml.PropResult{Name: name, Value: ok(nameOnly(name))})
	}
	return results
}
