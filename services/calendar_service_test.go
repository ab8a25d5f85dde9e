package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarkah/tickrs/models"
)

func newYork(t *testing.T) *time.Location {
	location, err := time.LoadLocation(ExchangeTimezone)
	require.NoError(t, err)
	return location
}

func TestCalendarHolidays(t *testing.T) {
	calendar := NewCalendarService()
	ny := newYork(t)
	assert.Equal(t, ExchangeTimezone, calendar.Location().String())
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, ny) }

	holidays := []time.Time{
		day(2024, time.January, 1),
		day(2024, time.January, 15),  // MLK
		day(2024, time.February, 19), // Presidents
		day(2024, time.March, 29),    // Good Friday
		day(2024, time.May, 27),
		day(2024, time.June, 19),
		day(2024, time.July, 4),
		day(2024, time.September, 2),
		day(2024, time.November, 28),
		day(2024, time.December, 25),
		day(2025, time.April, 18),
		day(2022, time.June, 20), // Juneteenth observed on Monday
		day(2023, time.January, 2),
		day(2021, time.December, 24), // Christmas observed on Friday
	}
	for _, date := range holidays {
		assert.True(t, calendar.IsHoliday(date), date.Format("2006-01-02"))
		assert.False(t, calendar.IsTradingDay(date), date.Format("2006-01-02"))
		assert.True(t, calendar.SessionWindow(date, models.InstrumentClassEquity).Closed)
	}

	assert.True(t, calendar.IsTradingDay(day(2021, time.June, 18)), "no Juneteenth before 2022")
	assert.True(t, calendar.IsTradingDay(day(2021, time.December, 31)), "saturday new year is not observed")
	assert.False(t, calendar.IsTradingDay(day(2024, time.March, 2)), "weekend")
}

func TestCalendarSessionWindow(t *testing.T) {
	calendar := NewCalendarService()
	ny := newYork(t)

	window := calendar.SessionWindow(time.Date(2024, 3, 5, 11, 0, 0, 0, ny), models.InstrumentClassEquity)
	require.False(t, window.Closed)
	assert.Equal(t, time.Date(2024, 3, 5, 4, 0, 0, 0, ny), window.PreMarketStart)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 30, 0, 0, ny), window.RegularStart)
	assert.Equal(t, time.Date(2024, 3, 5, 16, 0, 0, 0, ny), window.RegularEnd)
	assert.Equal(t, time.Date(2024, 3, 5, 20, 0, 0, 0, ny), window.PostMarketEnd)

	for _, date := range []time.Time{
		time.Date(2024, 11, 29, 10, 0, 0, 0, ny),
		time.Date(2024, 12, 24, 10, 0, 0, 0, ny),
		time.Date(2024, 7, 3, 10, 0, 0, 0, ny),
	} {
		early := calendar.SessionWindow(date, models.InstrumentClassEquity)
		assert.Equal(t, 13, early.RegularEnd.Hour(), date.Format("2006-01-02"))
		assert.Equal(t, 17, early.PostMarketEnd.Hour(), date.Format("2006-01-02"))
	}

	// input in another zone still resolves the exchange day
	utc := time.Date(2024, 3, 5, 14, 45, 0, 0, time.UTC)
	assert.Equal(t, models.SessionStateRegular, calendar.SessionState(utc, models.InstrumentClassEquity))
}

func TestCalendarSessionState(t *testing.T) {
	calendar := NewCalendarService()
	ny := newYork(t)
	at := func(h, m int) time.Time { return time.Date(2024, 3, 5, h, m, 0, 0, ny) }

	assert.Equal(t, models.SessionStateClosed, calendar.SessionState(at(3, 59), models.InstrumentClassEquity))
	assert.Equal(t, models.SessionStatePreMarket, calendar.SessionState(at(4, 0), models.InstrumentClassEquity))
	assert.Equal(t, models.SessionStateRegular, calendar.SessionState(at(9, 30), models.InstrumentClassEquity))
	assert.Equal(t, models.SessionStatePostMarket, calendar.SessionState(at(16, 0), models.InstrumentClassEquity))
	assert.Equal(t, models.SessionStateClosed, calendar.SessionState(at(20, 0), models.InstrumentClassEquity))
	assert.Equal(t, models.SessionStateRegular, calendar.SessionState(at(23, 0), models.InstrumentClassCrypto))
}

func TestCalendarIntradaySessionFallsBack(t *testing.T) {
	calendar := NewCalendarService()
	ny := newYork(t)

	// just after midnight on Monday shows Friday's session
	monday := time.Date(2024, 3, 4, 0, 5, 0, 0, ny)
	session := calendar.IntradaySession(monday, models.InstrumentClassEquity, false)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, ny), session.RegularStart)

	// Good Friday and the weekend are skipped
	afterEaster := time.Date(2024, 4, 1, 3, 0, 0, 0, ny)
	session = calendar.IntradaySession(afterEaster, models.InstrumentClassEquity, true)
	assert.Equal(t, time.Date(2024, 3, 28, 4, 0, 0, 0, ny), session.PreMarketStart)

	// pre-market of today counts once pre/post is enabled
	early := time.Date(2024, 3, 5, 5, 0, 0, 0, ny)
	assert.Equal(t, 5, calendar.IntradaySession(early, models.InstrumentClassEquity, true).Date.Day())
	assert.Equal(t, 4, calendar.IntradaySession(early, models.InstrumentClassEquity, false).Date.Day())

	crypto := calendar.IntradaySession(monday, models.InstrumentClassCrypto, false)
	assert.True(t, crypto.AlwaysOpen)
	assert.Equal(t, 24*time.Hour, crypto.RegularEnd.Sub(crypto.RegularStart).Round(time.Minute))
}

func TestCalendarTradingDays(t *testing.T) {
	calendar := NewCalendarService()
	ny := newYork(t)

	days := calendar.TradingDays(time.Date(2024, 3, 25, 0, 0, 0, 0, ny), time.Date(2024, 4, 2, 23, 0, 0, 0, ny), models.InstrumentClassEquity)
	var got []int
	for _, d := range days {
		got = append(got, d.Day())
	}
	assert.Equal(t, []int{25, 26, 27, 28, 1, 2}, got)

	crypto := calendar.TradingDays(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), models.InstrumentClassCrypto)
	assert.Len(t, crypto, 7)
}
