package services

import (
	"time"
	_ "time/tzdata"

	"github.com/tarkah/tickrs/models"
)

const (
	ExchangeTimezone = "America/New_York"
	// maxSessionLookback bounds the search for the last trading session. The longest run of
	// consecutive closed days on the exchange is well below it.
	maxSessionLookback = 10
)

// CalendarService answers session questions for the US equity exchange. Every method is
// a pure function of its arguments.
type CalendarService struct {
	location *time.Location
}

func NewCalendarService() *CalendarService {
	location, err := time.LoadLocation(ExchangeTimezone)
	if err != nil {
		location = time.FixedZone("EST", -5*60*60)
	}
	return &CalendarService{location: location}
}

func (calendarService *CalendarService) Location() *time.Location {
	return calendarService.location
}

// LocationFor is the zone slots and labels are expressed in for the class.
func (calendarService *CalendarService) LocationFor(class models.InstrumentClass) *time.Location {
	if class == models.InstrumentClassCrypto {
		return time.UTC
	}
	return calendarService.location
}

// SessionWindow returns the trading boundaries of the calendar day containing date. Crypto
// is always open and its window covers the whole UTC day.
func (calendarService *CalendarService) SessionWindow(date time.Time, class models.InstrumentClass) models.SessionWindow {
	if class == models.InstrumentClassCrypto {
		y, m, d := date.In(time.UTC).Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 1)
		return models.SessionWindow{
			Date:           start,
			PreMarketStart: start,
			RegularStart:   start,
			RegularEnd:     end,
			PostMarketEnd:  end,
			AlwaysOpen:     true,
		}
	}

	y, m, d := date.In(calendarService.location).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, calendarService.location)
	if !calendarService.IsTradingDay(midnight) {
		return models.SessionWindow{Date: midnight, Closed: true}
	}

	at := func(hour, minute int) time.Time {
		return time.Date(y, m, d, hour, minute, 0, 0, calendarService.location)
	}
	window := models.SessionWindow{
		Date:           midnight,
		PreMarketStart: at(4, 0),
		RegularStart:   at(9, 30),
		RegularEnd:     at(16, 0),
		PostMarketEnd:  at(20, 0),
	}
	if calendarService.IsEarlyClose(midnight) {
		window.RegularEnd = at(13, 0)
		window.PostMarketEnd = at(17, 0)
	}
	return window
}

func (calendarService *CalendarService) SessionState(instant time.Time, class models.InstrumentClass) models.SessionState {
	if class == models.InstrumentClassCrypto {
		return models.SessionStateRegular
	}
	window := calendarService.SessionWindow(instant, class)
	switch {
	case window.Closed:
		return models.SessionStateClosed
	case instant.Before(window.PreMarketStart):
		return models.SessionStateClosed
	case instant.Before(window.RegularStart):
		return models.SessionStatePreMarket
	case instant.Before(window.RegularEnd):
		return models.SessionStateRegular
	case instant.Before(window.PostMarketEnd):
		return models.SessionStatePostMarket
	}
	return models.SessionStateClosed
}

// IntradaySession picks the session an intraday chart should show at now. That is
// today's session once it has started, otherwise the most recent earlier session. The
// search is bounded; between midnight and the pre-market open it falls back to the
// previous trading day instead of waiting for today's first bar.
//
// For crypto the window is the trailing 24 hours.
func (calendarService *CalendarService) IntradaySession(now time.Time, class models.InstrumentClass, includePrePost bool) models.SessionWindow {
	if class == models.InstrumentClassCrypto {
		end := now.In(time.UTC)
		start := end.Add(-24 * time.Hour).Truncate(time.Minute)
		return models.SessionWindow{
			Date:           start,
			PreMarketStart: start,
			RegularStart:   start,
			RegularEnd:     end,
			PostMarketEnd:  end,
			AlwaysOpen:     true,
		}
	}

	today := calendarService.SessionWindow(now, class)
	if !today.Closed && !now.Before(today.Start(includePrePost)) {
		return today
	}
	if previous, ok := calendarService.PreviousSession(now, class); ok {
		return previous
	}
	return today
}

// PreviousSession returns the last open session strictly before the day containing date.
func (calendarService *CalendarService) PreviousSession(date time.Time, class models.InstrumentClass) (models.SessionWindow, bool) {
	y, m, d := date.In(calendarService.LocationFor(class)).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, calendarService.LocationFor(class))
	for i := 1; i <= maxSessionLookback; i++ {
		window := calendarService.SessionWindow(midnight.AddDate(0, 0, -i), class)
		if !window.Closed {
			return window, true
		}
	}
	return models.SessionWindow{}, false
}

// TradingDays lists the midnights of open days between from and to, both inclusive.
func (calendarService *CalendarService) TradingDays(from, to time.Time, class models.InstrumentClass) []time.Time {
	location := calendarService.LocationFor(class)
	y, m, d := from.In(location).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, location)
	var days []time.Time
	for !day.After(to) {
		if class == models.InstrumentClassCrypto || calendarService.IsTradingDay(day) {
			days = append(days, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return days
}

func (calendarService *CalendarService) IsTradingDay(date time.Time) bool {
	date = date.In(calendarService.location)
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !calendarService.IsHoliday(date)
}

func (calendarService *CalendarService) IsHoliday(date time.Time) bool {
	y, m, d := date.In(calendarService.location).Date()
	for _, holiday := range exchangeHolidays(y) {
		if holiday.month == m && holiday.day == d {
			return true
		}
	}
	return false
}

// IsEarlyClose reports the 13:00 closes: the day after Thanksgiving, Christmas Eve and
// the third of July.
func (calendarService *CalendarService) IsEarlyClose(date time.Time) bool {
	date = date.In(calendarService.location)
	y, m, d := date.Date()
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	if calendarService.IsHoliday(date) {
		return false
	}
	thanksgiving := nthWeekday(y, time.November, time.Thursday, 4)
	switch {
	case m == time.November && d == thanksgiving+1:
		return true
	case m == time.December && d == 24:
		return true
	case m == time.July && d == 3:
		return true
	}
	return false
}

type monthDay struct {
	month time.Month
	day   int
}

func exchangeHolidays(year int) []monthDay {
	holidays := []monthDay{
		{time.January, nthWeekday(year, time.January, time.Monday, 3)},
		{time.February, nthWeekday(year, time.February, time.Monday, 3)},
		{time.May, lastWeekday(year, time.May, time.Monday)},
		{time.September, nthWeekday(year, time.September, time.Monday, 1)},
		{time.November, nthWeekday(year, time.November, time.Thursday, 4)},
	}

	// New Year's Day falling on a Saturday is not observed on the Friday before
	newYear := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	switch newYear.Weekday() {
	case time.Sunday:
		holidays = append(holidays, monthDay{time.January, 2})
	case time.Saturday:
	default:
		holidays = append(holidays, monthDay{time.January, 1})
	}

	goodFriday := easterSunday(year).AddDate(0, 0, -2)
	holidays = append(holidays, monthDay{goodFriday.Month(), goodFriday.Day()})

	if year >= 2022 {
		holidays = append(holidays, observed(year, time.June, 19))
	}
	holidays = append(holidays, observed(year, time.July, 4), observed(year, time.December, 25))
	return holidays
}

func observed(year int, month time.Month, day int) monthDay {
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	switch date.Weekday() {
	case time.Saturday:
		date = date.AddDate(0, 0, -1)
	case time.Sunday:
		date = date.AddDate(0, 0, 1)
	}
	return monthDay{date.Month(), date.Day()}
}

func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return 1 + offset + (n-1)*7
}

func lastWeekday(year int, month time.Month, weekday time.Weekday) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(last.Weekday()) - int(weekday) + 7) % 7
	return last.Day() - offset
}

// easterSunday uses the anonymous Gregorian algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
