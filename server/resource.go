package server

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cyp0633/caldora/server/storage"
	"github.com/samber/mo"
)

// URLConverter defines the URL path convention of the CalDAV tree. Leave it
// nil when creating the handler to use the default convention.
//
// A resource must be able to find its parent from its path: an object path
// names its calendar, so no lookup is needed to resolve the collection.
type URLConverter interface {
	// ParsePath parses a path relative to the handler prefix.
	ParsePath(path string) (Resource, error)
	// EncodePath encodes a Resource back to its absolute URL path.
	EncodePath(resource Resource) (string, error)
}

// Resource is a parsed CalDAV target.
type Resource struct {
	CalendarID   string
	EventID      mo.Option[string]
	ResourceType storage.ResourceType
}

// RootResource is the calendar home, the parent of every calendar.
func RootResource() Resource {
	return Resource{ResourceType: storage.ResourceRoot}
}

// CalendarResource addresses a calendar collection.
func CalendarResource(calendarID string) Resource {
	return Resource{CalendarID: calendarID, ResourceType: storage.ResourceCollection}
}

// EventResource addresses an event inside a calendar.
func EventResource(calendarID, eventID string) Resource {
	return Resource{CalendarID: calendarID, EventID: mo.Some(eventID), ResourceType: storage.ResourceObject}
}

// DefaultURLConverter implements URLConverter with the layout
//
//	<prefix>                          calendar home
//	<prefix><calendarId>/             calendar collection
//	<prefix><calendarId>/<eventId>.ics event
//
// Identifiers are path-escaped when encoded and unescaped when parsed, so
// the mapping is a bijection for every identifier without a slash.
type DefaultURLConverter struct {
	Prefix string
}

// ParsePath parses a path relative to the prefix. A path that does not fit
// the layout yields storage.ErrNotFound.
func (c *DefaultURLConverter) ParsePath(path string) (Resource, error) {
	path = strings.TrimPrefix(path, c.Prefix)
	path = strings.TrimPrefix(path, "/")
	segments := strings.Split(path, "/")
	if len(segments) > 0 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}

	switch len(segments) {
	case 0:
		return RootResource(), nil

	case 1:
		calendarID, err := url.PathUnescape(segments[0])
		if err != nil || calendarID == "" {
			return Resource{}, fmt.Errorf("invalid calendar segment %q: %w", segments[0], storage.ErrNotFound)
		}
		return CalendarResource(calendarID), nil

	case 2:
		calendarID, err := url.PathUnescape(segments[0])
		if err != nil || calendarID == "" {
			return Resource{}, fmt.Errorf("invalid calendar segment %q: %w", segments[0], storage.ErrNotFound)
		}
		name, ok := strings.CutSuffix(segments[1], ".ics")
		if !ok {
			return Resource{}, fmt.Errorf("event path %q must end in .ics: %w", segments[1], storage.ErrNotFound)
		}
		eventID, err := url.PathUnescape(name)
		if err != nil || eventID == "" {
			return Resource{}, fmt.Errorf("invalid event segment %q: %w", segments[1], storage.ErrNotFound)
		}
		return EventResource(calendarID, eventID), nil
	}

	return Resource{}, fmt.Errorf("invalid path: too many segments (%d): %w", len(segments), storage.ErrNotFound)
}

// EncodePath encodes a Resource into an absolute path under the prefix.
func (c *DefaultURLConverter) EncodePath(resource Resource) (string, error) {
	switch resource.ResourceType {
	case storage.ResourceRoot:
		return c.Prefix, nil

	case storage.ResourceCollection:
		if resource.CalendarID == "" {
			return "", fmt.Errorf("invalid resource: collection must have a CalendarID")
		}
		return c.Prefix + url.PathEscape(resource.CalendarID) + "/", nil

	case storage.ResourceObject:
		eventID, ok := resource.EventID.Get()
		if resource.CalendarID == "" || !ok || eventID == "" {
			return "", fmt.Errorf("invalid resource: object must have CalendarID and EventID")
		}
		return c.Prefix + url.PathEscape(resource.CalendarID) + "/" + url.PathEscape(eventID) + ".ics", nil
	}

	return "", fmt.Errorf("invalid resource type: %s", resource.ResourceType.String())
}
