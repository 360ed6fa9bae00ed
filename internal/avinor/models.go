package avinor

import "encoding/xml"

// Direction is the direction of a flight relative to the home airport
type Direction string

const (
	DirectionArrival   Direction = "A"
	DirectionDeparture Direction = "D"
)

// Status codes published in the feed's <status code="..."> attribute
const (
	StatusCodeArrived   = "A"
	StatusCodeDeparted  = "D"
	StatusCodeCancelled = "C"
	StatusCodeEstimated = "E"
	StatusCodeNewGate   = "N"
	StatusCodeNewInfo   = "I"
)

// Status is the status carried by a feed record. It is either NoStatus or a
// StatusUpdate.
type Status interface {
	isStatus()
}

// NoStatus means the record has no status update yet
type NoStatus struct{}

// StatusUpdate is a status published by the feed
type StatusUpdate struct {
	Code string `json:"code"`
	Time string `json:"time,omitempty"` // ISO-8601 actual or estimated event time
}

func (NoStatus) isStatus()     {}
func (StatusUpdate) isStatus() {}

// Flight is one flight record as published by the feed
type Flight struct {
	UniqueID     string    `json:"unique_id,omitempty"`
	Airline      string    `json:"airline,omitempty"`
	FlightID     string    `json:"flight_id"`
	DomInt       string    `json:"dom_int,omitempty"` // D (domestic), I (international), S (Schengen)
	ScheduleTime string    `json:"schedule_time,omitempty"`
	ArrDep       Direction `json:"arr_dep,omitempty"`
	Airport      string    `json:"airport,omitempty"` // remote airport IATA code
	CheckIn      string    `json:"check_in,omitempty"`
	Gate         string    `json:"gate,omitempty"`
	Belt         string    `json:"belt,omitempty"`
	Delayed      bool      `json:"delayed"`
	Status       Status    `json:"-"`
}

// Feed is a decoded feed document for one airport
type Feed struct {
	Airport    string
	LastUpdate string
	Flights    []Flight
}

// xmlAirport mirrors the wire format:
// <airport name="OSL"><flights lastUpdate="..."><flight uniqueID="...">...</flight></flights></airport>
type xmlAirport struct {
	XMLName xml.Name    `xml:"airport"`
	Name    string      `xml:"name,attr"`
	Flights *xmlFlights `xml:"flights"`
}

type xmlFlights struct {
	LastUpdate string      `xml:"lastUpdate,attr"`
	Flight     []xmlFlight `xml:"flight"`
}

type xmlFlight struct {
	UniqueID     string     `xml:"uniqueID,attr"`
	Airline      string     `xml:"airline"`
	FlightID     string     `xml:"flight_id"`
	DomInt       string     `xml:"dom_int"`
	ScheduleTime string     `xml:"schedule_time"`
	ArrDep       string     `xml:"arr_dep"`
	Airport      string     `xml:"airport"`
	CheckIn      string     `xml:"check_in"`
	Gate         string     `xml:"gate"`
	Belt         string     `xml:"belt"`
	Delayed      string     `xml:"delayed"`
	Status       *xmlStatus `xml:"status"`
}

type xmlStatus struct {
	Code string `xml:"code,attr"`
	Time string `xml:"time,attr"`
}

func (f xmlFlight) toFlight() Flight {
	flight := Flight{
		UniqueID:     f.UniqueID,
		Airline:      f.Airline,
		FlightID:     f.FlightID,
		DomInt:       f.DomInt,
		ScheduleTime: f.ScheduleTime,
		ArrDep:       Direction(f.ArrDep),
		Airport:      f.Airport,
		CheckIn:      f.CheckIn,
		Gate:         f.Gate,
		Belt:         f.Belt,
		Delayed:      f.Delayed == "Y",
		Status:       NoStatus{},
	}

	// An empty <status/> element carries no information
	if f.Status != nil && f.Status.Code != "" {
		flight.Status = StatusUpdate{Code: f.Status.Code, Time: f.Status.Time}
	}

	return flight
}
