package models

import (
	"fmt"
	"sort"
	"time"
)

type ChartType string

const (
	ChartTypeLine        ChartType = "line"
	ChartTypeCandlestick ChartType = "candle"
	ChartTypeKagi        ChartType = "kagi"
)

var ChartTypes = []ChartType{ChartTypeLine, ChartTypeCandlestick, ChartTypeKagi}

func ParseChartType(s string) (ChartType, error) {
	for _, chartType := range ChartTypes {
		if string(chartType) == s {
			return chartType, nil
		}
	}
	return "", fmt.Errorf("unknown chart type %q", s)
}

func (chartType ChartType) Next() ChartType {
	for i, ct := range ChartTypes {
		if ct == chartType {
			return ChartTypes[(i+1)%len(ChartTypes)]
		}
	}
	return ChartTypeLine
}

// Axis is the ordered set of expected time slots for a ticker and timeframe.
type Axis struct {
	TimeFrame   TimeFrame
	Start       time.Time
	End         time.Time
	Granularity time.Duration
	Slots       []time.Time
	Location    *time.Location
}

func (axis Axis) Len() int {
	return len(axis.Slots)
}

// SlotIndex returns the slot that contains t, or -1 when t falls before the axis or in a
// gap between slots (outside the session, weekend).
func (axis Axis) SlotIndex(t time.Time) int {
	i := sort.Search(len(axis.Slots), func(i int) bool {
		return axis.Slots[i].After(t)
	}) - 1
	if i < 0 {
		return -1
	}
	if !t.Before(axis.Slots[i].Add(axis.Granularity)) {
		return -1
	}
	return i
}

type Point struct {
	X float64
	Y float64
}

type Candle struct {
	X      float64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

func (candle Candle) IsUp() bool {
	return candle.Close >= candle.Open
}

type AxisLabel struct {
	X    float64
	Text string
}

type TickerStatus struct {
	Stale       bool
	NotFound    bool
	LastSuccess time.Time
	LastError   string
	Failures    int
}

type Summary struct {
	LastPrice     float64
	PreviousClose float64
	Change        float64
	ChangePct     float64
	High          float64
	Low           float64
	Volume        float64
}

// ChartView is everything the drawing layer needs for one visible ticker.
type ChartView struct {
	Ticker        Ticker
	TimeFrame     TimeFrame
	ChartType     ChartType
	Loaded        bool
	SlotCount     int
	LinePoints    []Point
	Candles       []Candle
	CandleWidth   float64
	VolumePoints  []Point
	AxisLabels    []AxisLabel
	MinPrice      float64
	MaxPrice      float64
	PreviousClose float64
	KagiSegments  []KagiDisplaySegment
	KagiViewport  KagiViewport
	KagiLabels    []AxisLabel
	Summary       Summary
	Holding       *Holding
	Session       SessionState
	Status        TickerStatus
}
