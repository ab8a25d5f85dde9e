package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarkah/tickrs/models"
)

func TestAxisStartsAtListingDate(t *testing.T) {
	calendar := NewCalendarService()
	axisService := NewAxisService(calendar)
	ny := newYork(t)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, ny)
	listing := now.AddDate(0, 0, -10)

	axis := axisService.Align(models.ParseTicker("NEWCO"), models.TimeFrameYear1, listing, now, false)
	assert.Equal(t, listing, axis.Start)
	require.Len(t, axis.Slots, 9)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, ny), axis.Slots[0])
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, ny), axis.Slots[8])

	withoutListing := axisService.Align(models.ParseTicker("OLDCO"), models.TimeFrameYear1, time.Time{}, now, false)
	assert.Equal(t, now.Add(-models.TimeFrameYear1.Span()), withoutListing.Start)
	assert.Greater(t, withoutListing.Len(), 240)
}

func TestAxisIntradaySessionSlots(t *testing.T) {
	axisService := NewAxisService(NewCalendarService())
	ny := newYork(t)
	aapl := models.ParseTicker("AAPL")

	// mid session: slots run from the open up to now
	axis := axisService.Align(aapl, models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 10, 0, 0, 0, ny), false)
	require.Equal(t, 31, axis.Len())
	assert.Equal(t, time.Date(2024, 3, 5, 9, 30, 0, 0, ny), axis.Slots[0])

	// after the close the whole regular session including the closing minute
	axis = axisService.Align(aapl, models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 18, 0, 0, 0, ny), false)
	assert.Equal(t, 391, axis.Len())
	assert.Equal(t, time.Date(2024, 3, 5, 16, 0, 0, 0, ny), axis.Slots[axis.Len()-1])

	// pre/post market widens the window
	axis = axisService.Align(aapl, models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 21, 0, 0, 0, ny), true)
	assert.Equal(t, time.Date(2024, 3, 5, 4, 0, 0, 0, ny), axis.Slots[0])
	assert.Equal(t, time.Date(2024, 3, 5, 20, 0, 0, 0, ny), axis.Slots[axis.Len()-1])

	// truncated pre-market keeps the half hour before the open
	axisService.TruncatePreMarket(true)
	axis = axisService.Align(aapl, models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 21, 0, 0, 0, ny), true)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 0, 0, 0, ny), axis.Slots[0])
	assert.Equal(t, time.Date(2024, 3, 5, 20, 0, 0, 0, ny), axis.Slots[axis.Len()-1])
	axis = axisService.Align(aapl, models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 12, 0, 0, 0, ny), false)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 30, 0, 0, ny), axis.Slots[0], "regular hours are unaffected")
	axisService.TruncatePreMarket(false)

	// early close day
	axis = axisService.Align(aapl, models.TimeFrameDay1, time.Time{}, time.Date(2024, 11, 29, 15, 0, 0, 0, ny), false)
	assert.Equal(t, time.Date(2024, 11, 29, 13, 0, 0, 0, ny), axis.Slots[axis.Len()-1])
}

func TestAxisWeekSkipsOvernightGaps(t *testing.T) {
	axisService := NewAxisService(NewCalendarService())
	ny := newYork(t)
	now := time.Date(2024, 3, 8, 16, 30, 0, 0, ny)

	axis := axisService.Align(models.ParseTicker("AAPL"), models.TimeFrameWeek1, time.Time{}, now, false)
	// 09:30 to 15:30 every half hour on the five trading days; the window opens after the first Friday closed
	assert.Equal(t, 5*13, axis.Len())
	for _, slot := range axis.Slots {
		assert.Equal(t, models.SessionStateRegular, NewCalendarService().SessionState(slot, models.InstrumentClassEquity))
	}
	overnight := time.Date(2024, 3, 6, 22, 0, 0, 0, ny)
	assert.Equal(t, -1, axis.SlotIndex(overnight))
}

func TestAxisCryptoIsContinuous(t *testing.T) {
	axisService := NewAxisService(NewCalendarService())
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) // a Saturday

	axis := axisService.Align(models.ParseTicker("BTC-USD"), models.TimeFrameDay1, time.Time{}, now, false)
	assert.Equal(t, 24*60+1, axis.Len())
	assert.Equal(t, now, axis.Slots[axis.Len()-1])

	weekly := axisService.Align(models.ParseTicker("BTC-USD"), models.TimeFrameWeek1, time.Time{}, now, false)
	assert.Equal(t, 7*48+1, weekly.Len())
}

func TestAxisFiveYearsUsesMondays(t *testing.T) {
	axisService := NewAxisService(NewCalendarService())
	ny := newYork(t)
	axis := axisService.Align(models.ParseTicker("AAPL"), models.TimeFrameYear5, time.Time{}, time.Date(2024, 3, 15, 12, 0, 0, 0, ny), false)

	require.NotZero(t, axis.Len())
	for _, slot := range axis.Slots {
		assert.Equal(t, time.Monday, slot.Weekday())
	}
	assert.InDelta(t, 261, axis.Len(), 2)
}
