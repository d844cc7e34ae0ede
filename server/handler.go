package server

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/calendar"
	"github.com/cyp0633/caldora/internal/guard"
	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/server/auth"
)

// RequestContext holds parsed information about the incoming CalDAV request.
type RequestContext struct {
	Resource  Resource
	Principal *auth.Principal
	Depth     int // 0 or 1; infinity is clamped to 1
}

// CaldavHandler is the main HTTP handler for CalDAV requests under a specific prefix.
type CaldavHandler struct {
	Prefix       string // e.g. "/calendars/"
	Realm        string // realm advertised in WWW-Authenticate
	Service      *calendar.Service
	Auth         auth.Authenticator
	URLConverter URLConverter
	Logger       *slog.Logger
}

// NewCaldavHandler creates a new CaldavHandler.
func NewCaldavHandler(prefix, realm string, svc *calendar.Service, authenticator auth.Authenticator, converter URLConverter, logger *slog.Logger) *CaldavHandler {
	// Ensure prefix starts and ends with a slash for consistent parsing
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	if converter == nil {
		converter = &DefaultURLConverter{Prefix: prefix}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CaldavHandler{
		Prefix:       prefix,
		Realm:        realm,
		Service:      svc,
		Auth:         authenticator,
		URLConverter: converter,
		Logger:       logger,
	}
}

// davRequest is the closed set of requests the handler understands. Each
// variant carries what its method needs, already parsed and validated.
type davRequest interface {
	davRequest()
}

type propfindRequest struct {
	body *xml.PropfindRequest
}

type reportRequest struct {
	body *xml.ReportRequest
}

type mkcolRequest struct {
	body *xml.MkcolRequest
}

type getRequest struct {
	ifNoneMatch string
	headOnly    bool
}

type putRequest struct {
	body io.Reader
	cond guard.Conditions
}

type deleteRequest struct {
	cond guard.Conditions
}

type optionsRequest struct{}

func (propfindRequest) davRequest() {}
func (reportRequest) davRequest()   {}
func (mkcolRequest) davRequest()    {}
func (getRequest) davRequest()      {}
func (putRequest) davRequest()      {}
func (deleteRequest) davRequest()   {}
func (optionsRequest) davRequest()  {}

// ServeHTTP handles incoming HTTP requests, performs authentication, parsing, and routing.
func (h *CaldavHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Logger.Debug("received request",
		"method", r.Method,
		"path", r.URL.Path)

	// OPTIONS is answered without credentials so clients can discover the
	// server before authenticating.
	if r.Method == http.MethodOptions {
		h.handleOptions(w, r)
		return
	}

	principal, ok := h.checkAuth(w, r)
	if !ok {
		return
	}

	relativePath := strings.TrimPrefix(r.URL.EscapedPath(), h.Prefix)
	if r.URL.EscapedPath()+"/" == h.Prefix {
		relativePath = ""
	}
	resource, err := h.URLConverter.ParsePath(relativePath)
	if err != nil {
		h.Logger.Debug("path does not name a resource",
			"path", relativePath,
			"error", err)
		if principal.IsAnonymous() {
			h.writeError(w, apperr.Unauthorized("authentication required"))
			return
		}
		h.writeError(w, apperr.NotFound("no such resource"))
		return
	}
	if principal.IsAnonymous() && !h.authorizeAnonymous(w, r, resource) {
		return
	}

	ctx := &RequestContext{
		Resource:  resource,
		Principal: principal,
		Depth:     parseDepth(r.Method, r.Header.Get("Depth")),
	}

	req, err := h.parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Logger.Debug("dispatching request",
		"method", r.Method,
		"resource_type", resource.ResourceType,
		"calendar_id", resource.CalendarID,
		"event_id", resource.EventID.OrEmpty(),
		"user_id", principal.ID,
		"depth", ctx.Depth)

	switch req := req.(type) {
	case propfindRequest:
		h.handlePropfind(w, r, ctx, req)
	case reportRequest:
		h.handleReport(w, r, ctx, req)
	case mkcolRequest:
		h.handleMkcol(w, r, ctx, req)
	case getRequest:
		h.handleGet(w, r, ctx, req)
	case putRequest:
		h.handlePut(w, r, ctx, req)
	case deleteRequest:
		h.handleDelete(w, r, ctx, req)
	case optionsRequest:
		h.handleOptions(w, r)
	}
}

// parseRequest converts the HTTP request into its davRequest variant.
func (h *CaldavHandler) parseRequest(r *http.Request) (davRequest, error) {
	cond := guard.Conditions{
		IfMatch:     r.Header.Get("If-Match"),
		IfNoneMatch: r.Header.Get("If-None-Match"),
	}

	switch r.Method {
	case "PROPFIND":
		body, err := xml.ParsePropfind(r.Body)
		if err != nil {
			return nil, err
		}
		return propfindRequest{body: body}, nil
	case "REPORT":
		body, err := xml.ParseReport(r.Body)
		if err != nil {
			return nil, err
		}
		return reportRequest{body: body}, nil
	case "MKCOL", "MKCALENDAR":
		body, err := xml.ParseMkcol(r.Body)
		if err != nil {
			return nil, err
		}
		return mkcolRequest{body: body}, nil
	case http.MethodGet, http.MethodHead:
		return getRequest{ifNoneMatch: cond.IfNoneMatch, headOnly: r.Method == http.MethodHead}, nil
	case http.MethodPut:
		return putRequest{body: r.Body, cond: cond}, nil
	case http.MethodDelete:
		return deleteRequest{cond: cond}, nil
	case http.MethodOptions:
		return optionsRequest{}, nil
	}
	return nil, errMethodNotAllowed
}

// parseDepth honors 0 and 1 exactly. Infinity is clamped to 1. A missing
// header means infinity for PROPFIND and 0 for everything else.
func parseDepth(method, header string) int {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "0":
		return 0
	case "1", "infinity":
		return 1
	case "":
		if method == "PROPFIND" {
			return 1
		}
	}
	return 0
}
