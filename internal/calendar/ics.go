package calendar

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/emersion/go-ical"

	"github.com/anonsched/scheduler/internal/model"
)

// DefaultProductID identifies this application in exported calendars.
const DefaultProductID = "-//SimpleAnonymousScheduler//Meetings//EN"

// ErrNotConfirmed is returned when exporting a meeting without a confirmed time.
var ErrNotConfirmed = errors.New("meeting has no confirmed time")

// EventDescription is the description used for external events.
func EventDescription(link, companyName string) string {
	if link != "" {
		return "Join link: " + link
	}
	return "Meeting scheduled in " + companyName
}

// EncodeICS renders the meeting as a VCALENDAR with a single one-hour VEVENT.
func EncodeICS(m *model.Meeting, attendeeEmails []string, productID string) ([]byte, error) {
	if m.ConfirmedTime == nil {
		return nil, ErrNotConfirmed
	}
	if productID == "" {
		productID = DefaultProductID
	}

	start := m.ConfirmedTime.UTC()
	stamp := m.UpdatedAt.UTC()
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, m.ID+"@scheduler")
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.Truncate(time.Second))
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(model.MeetingDuration))
	event.Props.SetText(ical.PropSummary, m.Title)
	if m.MeetingLink != "" {
		event.Props.SetText(ical.PropLocation, m.MeetingLink)
		event.Props.SetText(ical.PropDescription, EventDescription(m.MeetingLink, ""))
	}
	for _, email := range attendeeEmails {
		prop := ical.NewProp(ical.PropAttendee)
		prop.SetURI(&url.URL{Scheme: "mailto", Opaque: email})
		event.Props.Add(prop)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode ics: %w", err)
	}
	return buf.Bytes(), nil
}
