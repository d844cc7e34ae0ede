/*
Package server implements the CalDAV surface of caldora.

# Basic Usage

The handler sits on top of a calendar.Service and an authenticator:

	store := memory.New()
	svc := calendar.New(store, guard.New(guard.ModeStrict))
	accounts := auth.NewAccounts(store, auth.NewTokens(secret, 24*time.Hour))

	h := server.NewCaldavHandler("/calendars/", "caldora", svc, accounts, nil, slog.Default())
	router := mux.NewRouter()
	server.Mount(router, h)
	http.ListenAndServe(":8080", router)

# URL Scheme

The default URLConverter uses this layout under the prefix:
  - /calendars/ - Calendar home of the authenticated principal
  - /calendars/<calendarId>/ - Calendar collection
  - /calendars/<calendarId>/<eventId>.ics - Event

Identifiers are path-escaped. A custom layout can be supplied by implementing
URLConverter.

# Methods

OPTIONS, PROPFIND, REPORT (calendar-query and calendar-multiget), GET, HEAD,
PUT, DELETE and MKCOL/MKCALENDAR are supported. PROPFIND honors Depth 0 and 1;
Depth infinity is treated as 1.

# Anonymous Access

A request without credentials may GET, HEAD, PROPFIND or REPORT a public
calendar and its events, with read permission only. Any other anonymous
request is challenged with 401.

# Preconditions

PUT and DELETE go through the concurrency guard of the service. In strict mode
a write must carry If-Match or If-None-Match: * and fails with 428 otherwise.
A stale If-Match fails with 412. The entity tag returned in the ETag header is
the same tag the REST API reports for the event.

# Errors

Failures are answered with a DAV:error body, including 405 and 415. A store that times out or is
unavailable yields 503 with Retry-After.
*/
package server
