// Package davclient is a CalDAV client for caldora and other CalDAV servers.
//
// Every write carries a precondition: objects are created with
// If-None-Match: * and updated or deleted with the entity tag the caller last
// saw. A write that lost a race fails with an error whose apperr kind is
// KindConflict; see IsConflict.
package davclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/internal/httpclient"
	"github.com/emersion/go-ical"
)

// ErrMissingETag is returned by updates that carry no entity tag.
var ErrMissingETag = errors.New("an entity tag is required to update an object")

// DAVClient interface defines the CalDAV client operations on one calendar
type DAVClient interface {
	GetAllEvents() ObjectFilter
	GetObjectETags() ObjectFilter
	GetCalendarEtag(ctx context.Context) (string, error)
	GetCalendarObject(ctx context.Context, objectURL string) (*CalendarObject, error)
	MultiGet(ctx context.Context, objectURLs ...string) ([]CalendarObject, error)
	CreateCalendarObject(ctx context.Context, event *ical.Event) (objectURL string, etag string, err error)
	UpdateCalendarObject(ctx context.Context, objectURL string, event *ical.Event, etag string) (newEtag string, err error)
	DeleteCalendarObject(ctx context.Context, objectURL string, etag string) error
}

type davClient struct {
	httpClient  httpclient.HttpClientWrapper
	calendarURL string
}

// NewDAVClient creates a new CalDAV client
func NewDAVClient(httpClient httpclient.HttpClientWrapper, calendarURL string) DAVClient {
	return &davClient{
		httpClient:  httpClient,
		calendarURL: calendarURL,
	}
}

// NewHTTPClient returns a wire client that authenticates as username against
// the server at location. The password may be an access token.
func NewHTTPClient(location, username, password string, cfg *Config) (httpclient.HttpClientWrapper, error) {
	baseURL, err := url.Parse(location)
	if err != nil || baseURL.Host == "" || (baseURL.Scheme != "http" && baseURL.Scheme != "https") {
		return nil, fmt.Errorf("invalid URL")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	client := &http.Client{}
	if cfg.Client != nil {
		*client = *cfg.Client
	}
	client.Transport = httpclient.NewBasicAuthTransport(username, password, client.Transport, cfg.Logger)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return httpclient.NewHttpClientWrapper(client, *baseURL, logger)
}

// IsConflict reports whether err is a lost race: a stale entity tag or a
// create over an existing object.
func IsConflict(err error) bool {
	return apperr.KindOf(err) == apperr.KindConflict
}
