package davclient

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cyp0633/caldora/internal/guard"
	"github.com/cyp0633/caldora/internal/xml/props"
	"github.com/emersion/go-ical"
	"github.com/google/uuid"
)

// eventToBytes converts an ical.Event to iCalendar format bytes
func eventToBytes(event *ical.Event) ([]byte, error) {
	if event.Props.Get(ical.PropDateTimeStamp) == nil {
		event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//caldora//davclient//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// CreateCalendarObject creates a new object in the calendar and returns its
// URL and entity tag. The object is named after the event UID, which is
// generated when missing. It fails with a conflict when the name is taken.
func (c *davClient) CreateCalendarObject(ctx context.Context, event *ical.Event) (objectURL string, etag string, err error) {
	id := uuid.NewString()
	if uid, err := event.Props.Text(ical.PropUID); err == nil && uid != "" {
		id = uid
	} else {
		event.Props.SetText(ical.PropUID, id)
	}

	base, err := url.Parse(c.calendarURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse collection URL: %w", err)
	}
	objectURL = base.ResolveReference(&url.URL{Path: id + ".ics"}).String()

	data, err := eventToBytes(event)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode calendar object: %w", err)
	}
	etag, err = c.httpClient.DoPUT(ctx, objectURL, guard.Conditions{IfNoneMatch: "*"}, data)
	if err != nil {
		return "", "", fmt.Errorf("failed to create calendar object: %w", err)
	}

	if etag == "" {
		if etag, err = c.fetchETag(ctx, objectURL); err != nil {
			return objectURL, "", err
		}
	}
	return objectURL, etag, nil
}

// UpdateCalendarObject replaces the object at objectURL provided it still
// carries etag, and returns the new entity tag.
func (c *davClient) UpdateCalendarObject(ctx context.Context, objectURL string, event *ical.Event, etag string) (string, error) {
	if etag == "" {
		return "", ErrMissingETag
	}

	data, err := eventToBytes(event)
	if err != nil {
		return "", fmt.Errorf("failed to encode calendar object: %w", err)
	}
	newEtag, err := c.httpClient.DoPUT(ctx, objectURL, guard.Conditions{IfMatch: etag}, data)
	if err != nil {
		return "", fmt.Errorf("failed to update calendar object: %w", err)
	}

	if newEtag == "" {
		return c.fetchETag(ctx, objectURL)
	}
	return newEtag, nil
}

// DeleteCalendarObject deletes a calendar object at the specified URL with optimistic locking using etag
func (c *davClient) DeleteCalendarObject(ctx context.Context, objectURL string, etag string) error {
	if err := c.httpClient.DoDELETE(ctx, objectURL, etag); err != nil {
		return fmt.Errorf("failed to delete calendar object: %w", err)
	}
	return nil
}

func (c *davClient) fetchETag(ctx context.Context, objectURL string) (string, error) {
	ms, err := c.httpClient.DoPROPFIND(ctx, objectURL, 0, props.GetEtagName)
	if err != nil {
		return "", fmt.Errorf("failed to get new etag: %w", err)
	}
	for _, resp := range ms.Responses {
		if tag := propText(resp, props.GetEtagName); tag != "" {
			return tag, nil
		}
	}
	return "", fmt.Errorf("no etag found for %s", objectURL)
}
