package domain

import "time"

// ET is the America/New_York location used for all trading-day and
// cooldown-expiry arithmetic. Falls back to a fixed -5h offset if the
// tzdata database is unavailable in the runtime environment.
var ET = loadET()

func loadET() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("ET", -5*60*60)
	}
	return loc
}

// TradingDay returns the calendar date in ET that t falls on, with the
// time-of-day truncated away.
func TradingDay(t time.Time) time.Time {
	et := t.In(ET)
	y, m, d := et.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ET)
}

// IsNewTradingDay reports whether b falls on a later ET calendar date
// than a.
func IsNewTradingDay(a, b time.Time) bool {
	return TradingDay(b).After(TradingDay(a))
}

// EndOfTradingDay returns 23:59:59 ET on the calendar date that t falls
// on, used as the rest-of-day cooldown expiry.
func EndOfTradingDay(t time.Time) time.Time {
	et := t.In(ET)
	y, m, d := et.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, ET)
}
