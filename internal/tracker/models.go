package tracker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yegors/flightwatch/internal/avinor"
)

// DateLayout is the calendar date format used by watchlist entries
const DateLayout = "2006-01-02"

// WatchlistEntry is a flight the user wants to track
type WatchlistEntry struct {
	FlightNumber string
	Label        string // optional display name
	Date         string // optional YYYY-MM-DD; the entry is only active on that date
}

// DisplayLabel returns the label, falling back to the flight number
func (e WatchlistEntry) DisplayLabel() string {
	if e.Label != "" {
		return e.Label
	}
	return e.FlightNumber
}

// StatusCategory is the normalized status of a tracked flight
type StatusCategory string

const (
	StatusUpcoming  StatusCategory = "Upcoming"
	StatusScheduled StatusCategory = "Scheduled"
	StatusDelayed   StatusCategory = "Delayed"
	StatusLanded    StatusCategory = "Landed"
	StatusDeparted  StatusCategory = "Departed"
	StatusCancelled StatusCategory = "Cancelled"
	StatusEstimated StatusCategory = "Estimated"
	StatusUnknown   StatusCategory = "Unknown"
	StatusNotFound  StatusCategory = "NotFound"
)

// FlightStatus is a status category plus the delayed prefix
type FlightStatus struct {
	Category StatusCategory
	Delayed  bool
	Code     string // raw feed status code, kept for Unknown
}

// prefixable reports whether the category is shown with a "Delayed" prefix
func (c StatusCategory) prefixable() bool {
	switch c {
	case StatusLanded, StatusDeparted, StatusEstimated, StatusUnknown:
		return true
	}
	return false
}

// String renders the status the way it is displayed, e.g. "Delayed Landed"
func (s FlightStatus) String() string {
	var base string
	switch s.Category {
	case StatusUnknown:
		base = fmt.Sprintf("Unknown(%s)", s.Code)
	case StatusNotFound:
		base = "Not found"
	default:
		base = string(s.Category)
	}

	if s.Delayed && s.Category.prefixable() {
		return "Delayed " + base
	}
	return base
}

// IsDelayed reports whether the status should be presented as delayed
func (s FlightStatus) IsDelayed() bool {
	return s.Category == StatusDelayed || (s.Delayed && s.Category.prefixable())
}

// MarshalJSON encodes the status with its display text
func (s FlightStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Category StatusCategory `json:"category"`
		Delayed  bool           `json:"delayed"`
		Code     string         `json:"code,omitempty"`
		Text     string         `json:"text"`
	}{
		Category: s.Category,
		Delayed:  s.IsDelayed(),
		Code:     s.Code,
		Text:     s.String(),
	})
}

// UnmarshalJSON decodes what MarshalJSON produces
func (s *FlightStatus) UnmarshalJSON(data []byte) error {
	var raw struct {
		Category StatusCategory `json:"category"`
		Delayed  bool           `json:"delayed"`
		Code     string         `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = FlightStatus{Category: raw.Category, Delayed: raw.Delayed, Code: raw.Code}
	return nil
}

// TrackedFlight is one watchlist entry annotated with its current feed state.
// Flight specific fields are empty for entries that have not been matched.
type TrackedFlight struct {
	FlightID     string           `json:"flight_id"`
	Label        string           `json:"label"`
	Date         string           `json:"date,omitempty"`
	ArrDep       avinor.Direction `json:"arr_dep,omitempty"`
	Airport      string           `json:"airport,omitempty"`
	ScheduleTime string           `json:"schedule_time,omitempty"`
	Status       FlightStatus     `json:"status"`
	EventTime    string           `json:"event_time,omitempty"`
	Gate         string           `json:"gate,omitempty"`
	Belt         string           `json:"belt,omitempty"`
}

// Snapshot is the complete result of one fetch cycle
type Snapshot struct {
	Airport     string          `json:"airport"`
	Flights     []TrackedFlight `json:"flights"`
	FeedUpdated string          `json:"feed_updated,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// clone returns a copy that shares no backing array with s
func (s Snapshot) clone() Snapshot {
	flights := make([]TrackedFlight, len(s.Flights))
	copy(flights, s.Flights)
	s.Flights = flights
	return s
}
