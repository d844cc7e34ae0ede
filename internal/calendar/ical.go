package calendar

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/cyp0633/caldora/internal/apperr"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/emersion/go-ical"
)

// ProductID identifies the server in generated iCalendar data.
const ProductID = "-//caldora//NONSGML v1.0//EN"

// DecodeEvent parses an iCalendar body holding exactly one VEVENT into an
// event. The caller assigns ID and CalendarID from the request target.
func DecodeEvent(r io.Reader) (*storage.Event, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, apperr.BadRequest("invalid iCalendar data", err)
	}

	events := cal.Events()
	if len(events) != 1 {
		return nil, apperr.BadRequest(fmt.Sprintf("expected exactly one VEVENT, got %d", len(events)), nil)
	}
	vevent := events[0]

	summary, err := vevent.Props.Text(ical.PropSummary)
	if err != nil {
		return nil, apperr.BadRequest("invalid SUMMARY", err)
	}
	if summary == "" {
		return nil, apperr.BadRequest("missing SUMMARY", nil)
	}

	dtstart := vevent.Props.Get(ical.PropDateTimeStart)
	if dtstart == nil {
		return nil, apperr.BadRequest("missing DTSTART", nil)
	}
	start, err := vevent.DateTimeStart(time.UTC)
	if err != nil {
		return nil, apperr.BadRequest("invalid DTSTART", err)
	}
	end, err := vevent.DateTimeEnd(time.UTC)
	if err != nil {
		return nil, apperr.BadRequest("invalid DTEND", err)
	}

	ev := &storage.Event{
		Title:  summary,
		Start:  start.UTC(),
		End:    end.UTC(),
		AllDay: dtstart.ValueType() == ical.ValueDate,
	}
	if ev.Description, err = optionalText(vevent.Component, ical.PropDescription); err != nil {
		return nil, err
	}
	if ev.Location, err = optionalText(vevent.Component, ical.PropLocation); err != nil {
		return nil, err
	}
	return ev, nil
}

func optionalText(comp *ical.Component, name string) (*string, error) {
	prop := comp.Props.Get(name)
	if prop == nil {
		return nil, nil
	}
	text, err := prop.Text()
	if err != nil {
		return nil, apperr.BadRequest("invalid "+name, err)
	}
	return &text, nil
}

// NewCalendar returns an empty VCALENDAR with VERSION and PRODID set.
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	return cal
}

// EventComponent converts an event into a VEVENT whose UID is the event id.
func EventComponent(ev storage.Event) *ical.Component {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, ev.ID)
	comp.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Description != nil {
		comp.Props.SetText(ical.PropDescription, *ev.Description)
	}
	if ev.Location != nil {
		comp.Props.SetText(ical.PropLocation, *ev.Location)
	}

	if ev.AllDay {
		comp.Props.SetDate(ical.PropDateTimeStart, ev.Start)
		if ev.End.After(ev.Start) {
			comp.Props.SetDate(ical.PropDateTimeEnd, ev.End)
		}
	} else {
		comp.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		comp.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	}

	stamp := ev.UpdatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	comp.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	if !ev.CreatedAt.IsZero() {
		comp.Props.SetDateTime(ical.PropCreated, ev.CreatedAt.UTC())
	}
	if !ev.UpdatedAt.IsZero() {
		comp.Props.SetDateTime(ical.PropLastModified, ev.UpdatedAt.UTC())
	}
	return comp
}

// EncodeEvents renders the events as one VCALENDAR.
func EncodeEvents(events ...storage.Event) ([]byte, error) {
	cal := NewCalendar()
	for _, ev := range events {
		cal.Children = append(cal.Children, EventComponent(ev))
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, apperr.Internal("failed to encode calendar", err)
	}
	return buf.Bytes(), nil
}

