package davclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/cyp0633/caldora/internal/xml"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/emersion/go-ical"
)

// CalendarObject represents a calendar object with its metadata
type CalendarObject struct {
	Event ical.Event
	URL   string
	ETag  string
}

// GetAllEvents returns a filter for querying all events
func (c *davClient) GetAllEvents() ObjectFilter {
	return &objectFilter{
		client:     c,
		objectType: "VEVENT",
	}
}

// GetObjectETags returns a filter that fetches only the hrefs and entity
// tags of matching objects.
func (c *davClient) GetObjectETags() ObjectFilter {
	return &objectFilter{
		client:     c,
		objectType: "VEVENT",
		etagOnly:   true,
	}
}

// GetCalendarEtag retrieves the collection tag of the calendar, which changes
// whenever any object in it changes.
func (c *davClient) GetCalendarEtag(ctx context.Context) (string, error) {
	ms, err := c.httpClient.DoPROPFIND(ctx, c.calendarURL, 0, props.GetCTagName, props.GetEtagName)
	if err != nil {
		return "", fmt.Errorf("failed to get calendar etag: %w", err)
	}
	for _, resp := range ms.Responses {
		if tag := propText(resp, props.GetCTagName); tag != "" {
			return tag, nil
		}
		if tag := propText(resp, props.GetEtagName); tag != "" {
			return tag, nil
		}
	}
	return "", fmt.Errorf("no calendar found at %s", c.calendarURL)
}

// GetCalendarObject downloads one object.
func (c *davClient) GetCalendarObject(ctx context.Context, objectURL string) (*CalendarObject, error) {
	obj, err := c.httpClient.DoGET(ctx, objectURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar object: %w", err)
	}
	event, err := decodeEvent(obj.Data)
	if err != nil {
		return nil, err
	}
	return &CalendarObject{Event: *event, URL: objectURL, ETag: obj.ETag}, nil
}

// MultiGet fetches several objects in one calendar-multiget REPORT. Objects
// the server reports as missing are left out of the result.
func (c *davClient) MultiGet(ctx context.Context, objectURLs ...string) ([]CalendarObject, error) {
	if len(objectURLs) == 0 {
		return nil, nil
	}
	query := xml.NewCalendarMultiget(objectURLs, props.GetEtagName, props.CalendarDataName)
	ms, err := c.httpClient.DoREPORT(ctx, c.calendarURL, 1, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute calendar multiget: %w", err)
	}
	return objectsFrom(ms, false)
}

// executeCalendarQuery sends a CalDAV REPORT request and returns calendar objects with metadata
func (c *davClient) executeCalendarQuery(ctx context.Context, filter *storage.Filter, etagOnly bool) ([]CalendarObject, error) {
	names := []props.Name{props.GetEtagName}
	if !etagOnly {
		names = append(names, props.CalendarDataName)
	}
	ms, err := c.httpClient.DoREPORT(ctx, c.calendarURL, 1, xml.NewCalendarQuery(filter, names...))
	if err != nil {
		return nil, fmt.Errorf("failed to execute calendar query: %w", err)
	}
	return objectsFrom(ms, etagOnly)
}

func objectsFrom(ms *xml.ParsedMultistatus, etagOnly bool) ([]CalendarObject, error) {
	var objects []CalendarObject
	for _, resp := range ms.Responses {
		if resp.Status != 0 && resp.Status != http.StatusOK {
			continue
		}
		obj := CalendarObject{
			URL:  resp.Href,
			ETag: propText(resp, props.GetEtagName),
		}
		if !etagOnly {
			data, status, ok := resp.Prop(props.CalendarDataName)
			if !ok || status != http.StatusOK {
				continue
			}
			event, err := decodeEvent([]byte(data.Text()))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", resp.Href, err)
			}
			obj.Event = *event
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// decodeEvent parses iCalendar data and returns its first event.
func decodeEvent(data []byte) (*ical.Event, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to parse iCalendar data: %w", err)
	}
	events := cal.Events()
	if len(events) == 0 {
		return nil, fmt.Errorf("iCalendar data holds no %s", ical.CompEvent)
	}
	return &events[0], nil
}
