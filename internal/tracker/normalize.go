package tracker

import "github.com/yegors/flightwatch/internal/avinor"

// Normalize derives the status of a feed record and the time of the actual or
// estimated event, if the feed supplied one.
func Normalize(flight avinor.Flight) (FlightStatus, string) {
	switch st := flight.Status.(type) {
	case avinor.StatusUpdate:
		switch st.Code {
		case avinor.StatusCodeArrived:
			return FlightStatus{Category: StatusLanded, Delayed: flight.Delayed, Code: st.Code}, st.Time
		case avinor.StatusCodeDeparted:
			return FlightStatus{Category: StatusDeparted, Delayed: flight.Delayed, Code: st.Code}, st.Time
		case avinor.StatusCodeCancelled:
			// Cancellation drops the delayed prefix
			return FlightStatus{Category: StatusCancelled, Code: st.Code}, ""
		case avinor.StatusCodeEstimated:
			return FlightStatus{Category: StatusEstimated, Delayed: flight.Delayed, Code: st.Code}, st.Time
		default:
			return FlightStatus{Category: StatusUnknown, Delayed: flight.Delayed, Code: st.Code}, ""
		}
	default:
		if flight.Delayed {
			return FlightStatus{Category: StatusDelayed, Delayed: true}, ""
		}
		return FlightStatus{Category: StatusScheduled}, ""
	}
}
