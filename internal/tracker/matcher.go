package tracker

import "github.com/yegors/flightwatch/internal/avinor"

// Match builds the tracked flight list for one cycle.
//
// today is the current calendar date in DateLayout. Entries dated before today
// are dropped, entries dated after today become Upcoming placeholders and the
// rest are matched against the feed by exact flight number, first match wins.
// Unmatched entries are omitted unless reportMissing is set, in which case they
// are emitted as NotFound. A feed without any flights yields an empty list.
func Match(entries []WatchlistEntry, flights []avinor.Flight, today string, reportMissing bool) []TrackedFlight {
	tracked := make([]TrackedFlight, 0, len(entries))
	if len(flights) == 0 {
		return tracked
	}

	for _, entry := range entries {
		if entry.Date != "" && entry.Date < today {
			continue
		}

		if entry.Date != "" && entry.Date > today {
			tracked = append(tracked, TrackedFlight{
				FlightID: entry.FlightNumber,
				Label:    entry.DisplayLabel(),
				Date:     entry.Date,
				Status:   FlightStatus{Category: StatusUpcoming},
			})
			continue
		}

		match, ok := findFlight(flights, entry.FlightNumber)
		if !ok {
			if reportMissing {
				tracked = append(tracked, TrackedFlight{
					FlightID: entry.FlightNumber,
					Label:    entry.DisplayLabel(),
					Date:     entry.Date,
					Status:   FlightStatus{Category: StatusNotFound},
				})
			}
			continue
		}

		tracked = append(tracked, enrich(entry, match))
	}

	return tracked
}

func findFlight(flights []avinor.Flight, flightNumber string) (avinor.Flight, bool) {
	for _, f := range flights {
		if f.FlightID == flightNumber {
			return f, true
		}
	}
	return avinor.Flight{}, false
}

func enrich(entry WatchlistEntry, match avinor.Flight) TrackedFlight {
	status, eventTime := Normalize(match)

	label := entry.Label
	if label == "" {
		label = match.FlightID
	}

	return TrackedFlight{
		FlightID:     match.FlightID,
		Label:        label,
		Date:         entry.Date,
		ArrDep:       match.ArrDep,
		Airport:      match.Airport,
		ScheduleTime: match.ScheduleTime,
		Status:       status,
		EventTime:    eventTime,
		Gate:         match.Gate,
		Belt:         match.Belt,
	}
}
