package models

import (
	"fmt"
	"time"
)

type TimeFrame string

const (
	TimeFrameDay1   TimeFrame = "1D"
	TimeFrameWeek1  TimeFrame = "1W"
	TimeFrameMonth1 TimeFrame = "1M"
	TimeFrameMonth3 TimeFrame = "3M"
	TimeFrameMonth6 TimeFrame = "6M"
	TimeFrameYear1  TimeFrame = "1Y"
	TimeFrameYear5  TimeFrame = "5Y"
)

const day = 24 * time.Hour

var TimeFrames = []TimeFrame{
	TimeFrameDay1, TimeFrameWeek1, TimeFrameMonth1, TimeFrameMonth3,
	TimeFrameMonth6, TimeFrameYear1, TimeFrameYear5,
}

type timeFrameSpec struct {
	interval        string
	granularity     time.Duration
	span            time.Duration
	refreshInterval time.Duration
	retention       time.Duration
	labelFormat     string
}

var timeFrameTable = map[TimeFrame]timeFrameSpec{
	TimeFrameDay1:   {"1m", time.Minute, day, time.Minute, day, "15:04"},
	TimeFrameWeek1:  {"30m", 30 * time.Minute, 7 * day, 5 * time.Minute, 8 * day, "Jan 02 15:04"},
	TimeFrameMonth1: {"1h", time.Hour, 30 * day, 30 * time.Minute, 32 * day, "Jan 02"},
	TimeFrameMonth3: {"1d", day, 90 * day, time.Hour, 95 * day, "Jan 02"},
	TimeFrameMonth6: {"1d", day, 180 * day, time.Hour, 185 * day, "Jan 02"},
	TimeFrameYear1:  {"1d", day, 365 * day, day, 370 * day, "2006-01-02"},
	TimeFrameYear5:  {"1wk", 7 * day, 5 * 365 * day, day, 5*365*day + 7*day, "2006-01-02"},
}

func ParseTimeFrame(s string) (TimeFrame, error) {
	timeFrame := TimeFrame(s)
	if _, ok := timeFrameTable[timeFrame]; !ok {
		return "", fmt.Errorf("unknown time frame %q", s)
	}
	return timeFrame, nil
}

// Interval is the provider bar interval string ("1m", "1d", "1wk", ...)
func (timeFrame TimeFrame) Interval() string {
	return timeFrameTable[timeFrame].interval
}

func (timeFrame TimeFrame) Granularity() time.Duration {
	return timeFrameTable[timeFrame].granularity
}

func (timeFrame TimeFrame) Span() time.Duration {
	return timeFrameTable[timeFrame].span
}

// RefreshInterval is how old the last successful fetch may get before the timeframe is
// polled again.
func (timeFrame TimeFrame) RefreshInterval() time.Duration {
	return timeFrameTable[timeFrame].refreshInterval
}

func (timeFrame TimeFrame) Retention() time.Duration {
	return timeFrameTable[timeFrame].retention
}

func (timeFrame TimeFrame) LabelFormat() string {
	return timeFrameTable[timeFrame].labelFormat
}

func (timeFrame TimeFrame) IsIntraday() bool {
	return timeFrame.Granularity() < day
}

func (timeFrame TimeFrame) Index() int {
	for i, tf := range TimeFrames {
		if tf == timeFrame {
			return i
		}
	}
	return -1
}

func (timeFrame TimeFrame) Up() TimeFrame {
	return TimeFrames[(timeFrame.Index()+1)%len(TimeFrames)]
}

func (timeFrame TimeFrame) Down() TimeFrame {
	return TimeFrames[(timeFrame.Index()+len(TimeFrames)-1)%len(TimeFrames)]
}
