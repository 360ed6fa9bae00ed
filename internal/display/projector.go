// Package display turns tracked flights into the list a dashboard renders.
// Everything here is a pure function of its input.
package display

import (
	"strings"
	"time"

	"github.com/yegors/flightwatch/internal/avinor"
	"github.com/yegors/flightwatch/internal/tracker"
)

// Icon is a Font Awesome icon class
type Icon string

const (
	IconCalendar  Icon = "fa-calendar"
	IconArrival   Icon = "fa-plane-arrival"
	IconDeparture Icon = "fa-plane-departure"
	IconCancelled Icon = "fa-ban"
	IconClock     Icon = "fa-clock"
	IconNotFound  Icon = "fa-question"
	IconPlane     Icon = "fa-plane"
)

const (
	Header       = "Flight Tracker"
	EmptyMessage = "No active flights tracked."

	unknownAirport = "???"
	timeLayout     = "15:04"
)

// TimeDisplay is the time shown next to a flight. When the actual or
// estimated time differs from the schedule, Struck holds the scheduled time.
type TimeDisplay struct {
	Primary string `json:"primary"`
	Struck  string `json:"struck,omitempty"`
}

// Text renders the time as plain text, marking the struck time with tildes
func (t TimeDisplay) Text() string {
	if t.Struck == "" {
		return t.Primary
	}
	return "~~" + t.Struck + "~~ " + t.Primary
}

// Item is one row of the flight list
type Item struct {
	Label      string      `json:"label"`
	FlightID   string      `json:"flight_id"`
	Icon       Icon        `json:"icon"`
	StatusText string      `json:"status_text"`
	Route      string      `json:"route"`
	Time       TimeDisplay `json:"time"`
}

// View is the complete widget content
type View struct {
	Header  string `json:"header"`
	Empty   bool   `json:"empty"`
	Message string `json:"message,omitempty"`
	Items   []Item `json:"items"`
}

// Project maps tracked flights to a view. homeAirport is the polled airport,
// loc is the time zone times are shown in (nil means local).
func Project(flights []tracker.TrackedFlight, homeAirport string, loc *time.Location) View {
	if loc == nil {
		loc = time.Local
	}

	if len(flights) == 0 {
		return View{
			Header:  Header,
			Empty:   true,
			Message: EmptyMessage,
			Items:   []Item{},
		}
	}

	items := make([]Item, 0, len(flights))
	for _, f := range flights {
		items = append(items, Item{
			Label:      f.Label,
			FlightID:   f.FlightID,
			Icon:       SelectIcon(f.Status),
			StatusText: f.Status.String(),
			Route:      Route(f, homeAirport),
			Time:       Time(f, loc),
		})
	}

	return View{Header: Header, Items: items}
}

// SelectIcon picks the icon for a status. Arrival and departure take
// precedence over the delayed clock.
func SelectIcon(status tracker.FlightStatus) Icon {
	switch {
	case status.Category == tracker.StatusUpcoming:
		return IconCalendar
	case status.Category == tracker.StatusLanded:
		return IconArrival
	case status.Category == tracker.StatusDeparted:
		return IconDeparture
	case status.Category == tracker.StatusCancelled:
		return IconCancelled
	case status.Category == tracker.StatusEstimated || status.IsDelayed():
		return IconClock
	case status.Category == tracker.StatusNotFound:
		return IconNotFound
	default:
		return IconPlane
	}
}

// Route renders the route relative to the home airport
func Route(f tracker.TrackedFlight, homeAirport string) string {
	switch f.Status.Category {
	case tracker.StatusUpcoming, tracker.StatusNotFound:
		return ""
	}

	remote := f.Airport
	if remote == "" {
		remote = unknownAirport
	}

	switch f.ArrDep {
	case avinor.DirectionArrival:
		return remote + " → " + homeAirport
	case avinor.DirectionDeparture:
		return homeAirport + " → " + remote
	default:
		return remote + " ↔ " + homeAirport
	}
}

// Time decides which time(s) to show for a flight
func Time(f tracker.TrackedFlight, loc *time.Location) TimeDisplay {
	switch f.Status.Category {
	case tracker.StatusUpcoming, tracker.StatusNotFound:
		return TimeDisplay{Primary: f.Date}
	}

	scheduled := FormatTime(f.ScheduleTime, loc)
	if scheduled == "" {
		return TimeDisplay{}
	}

	if f.EventTime == "" {
		return TimeDisplay{Primary: scheduled}
	}

	event := FormatTime(f.EventTime, loc)
	if event == "" || event == scheduled {
		return TimeDisplay{Primary: scheduled}
	}

	return TimeDisplay{Primary: event, Struck: scheduled}
}

// FormatTime formats an ISO-8601 timestamp as HH:MM in loc. Unparseable or
// empty input yields an empty string.
func FormatTime(iso string, loc *time.Location) string {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return ""
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Timestamps without a zone are UTC in the feed
		t, err = time.ParseInLocation("2006-01-02T15:04:05", iso, time.UTC)
		if err != nil {
			return ""
		}
	}

	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(timeLayout)
}
