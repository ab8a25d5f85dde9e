package services

import (
	"time"

	"github.com/tarkah/tickrs/models"
)

// truncatedPreMarket is how much pre-market a truncated 1D chart keeps before the open.
const truncatedPreMarket = 30 * time.Minute

type AxisService struct {
	calendarService   *CalendarService
	truncatePreMarket bool
}

func NewAxisService(calendarService *CalendarService) *AxisService {
	return &AxisService{calendarService: calendarService}
}

// TruncatePreMarket limits pre-market slots to the half hour before the regular open.
func (axisService *AxisService) TruncatePreMarket(enabled bool) {
	axisService.truncatePreMarket = enabled
}

func (axisService *AxisService) sessionStart(window models.SessionWindow, includePrePost bool) time.Time {
	start := window.Start(includePrePost)
	if includePrePost && axisService.truncatePreMarket && !window.AlwaysOpen {
		if cut := window.RegularStart.Add(-truncatedPreMarket); cut.After(start) {
			start = cut
		}
	}
	return start
}

// Window returns the span [start, end] a timeframe covers at now, before the listing date
// is applied. 1D covers one session (with pre/post market when enabled).
func (axisService *AxisService) Window(ticker models.Ticker, timeFrame models.TimeFrame, now time.Time, includePrePost bool) (time.Time, time.Time) {
	if timeFrame == models.TimeFrameDay1 {
		session := axisService.calendarService.IntradaySession(now, ticker.Class, includePrePost)
		if session.Closed {
			return now, now
		}
		start, end := axisService.sessionStart(session, includePrePost), session.End(includePrePost)
		if now.Before(end) {
			end = now
		}
		if end.Before(start) {
			end = start
		}
		return start, end
	}
	return now.Add(-timeFrame.Span()), now
}

// Align computes the expected slots for the ticker between max(window start, listing
// date) and now. The last slot is the one containing the end of the window, so a chart
// extended to it reaches the current time. Slots only exist inside sessions; gaps between
// sessions have no slots.
func (axisService *AxisService) Align(ticker models.Ticker, timeFrame models.TimeFrame, listingDate time.Time, now time.Time, includePrePost bool) models.Axis {
	start, end := axisService.Window(ticker, timeFrame, now, includePrePost)
	if !listingDate.IsZero() && listingDate.After(start) {
		start = listingDate
	}
	if start.After(end) {
		start = end
	}

	location := axisService.calendarService.LocationFor(ticker.Class)
	axis := models.Axis{
		TimeFrame:   timeFrame,
		Start:       start,
		End:         end,
		Granularity: timeFrame.Granularity(),
		Location:    location,
	}

	switch {
	case timeFrame.Granularity() >= 7*24*time.Hour:
		axis.Slots = axisService.weeklySlots(ticker, start, end, location)
	case timeFrame.Granularity() >= 24*time.Hour:
		axis.Slots = axisService.calendarService.TradingDays(start, end, ticker.Class)
	case ticker.IsCrypto():
		axis.Slots = continuousSlots(start, end, timeFrame.Granularity())
	default:
		axis.Slots = axisService.sessionSlots(ticker, timeFrame, start, end, includePrePost && timeFrame == models.TimeFrameDay1)
	}
	return axis
}

// sessionSlots steps through each trading day's session from its open, so slots line up
// with the provider's bars (09:30, 10:00, ... for 30m).
func (axisService *AxisService) sessionSlots(ticker models.Ticker, timeFrame models.TimeFrame, start, end time.Time, includePrePost bool) []time.Time {
	granularity := timeFrame.Granularity()
	var slots []time.Time
	for _, day := range axisService.calendarService.TradingDays(start, end, ticker.Class) {
		session := axisService.calendarService.SessionWindow(day, ticker.Class)
		open, closing := axisService.sessionStart(session, includePrePost), session.End(includePrePost)
		from := open
		if start.After(from) {
			steps := (start.Sub(open) + granularity - 1) / granularity
			from = open.Add(steps * granularity)
		}
		to := closing
		if end.Before(to) {
			to = end
		}
		for t := from; !t.After(to); t = t.Add(granularity) {
			// the closing instant only gets a slot when it is the end of the axis
			if t.Equal(closing) && to.Before(end) {
				break
			}
			slots = append(slots, t)
		}
	}
	return slots
}

func (axisService *AxisService) weeklySlots(ticker models.Ticker, start, end time.Time, location *time.Location) []time.Time {
	var slots []time.Time
	for _, day := range axisService.calendarService.TradingDays(start, end, ticker.Class) {
		y, m, d := day.Date()
		offset := (int(day.Weekday()) + 6) % 7
		monday := time.Date(y, m, d-offset, 0, 0, 0, 0, location)
		if n := len(slots); n == 0 || !slots[n-1].Equal(monday) {
			slots = append(slots, monday)
		}
	}
	return slots
}

func continuousSlots(start, end time.Time, granularity time.Duration) []time.Time {
	var slots []time.Time
	for t := start.Truncate(granularity); !t.After(end); t = t.Add(granularity) {
		slots = append(slots, t)
	}
	return slots
}
