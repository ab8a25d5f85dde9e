package models

import (
	"time"

	"github.com/sdcoffey/techan"
)

type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// HasPrice reports whether the provider sent a real price for the bar. Placeholder
// rows come back with zero close or zero low.
func (bar Bar) HasPrice() bool {
	return bar.Close > 0 && bar.Low > 0
}

func BarFromCandle(candle *techan.Candle) Bar {
	return Bar{
		Time:   candle.Period.Start,
		Open:   candle.OpenPrice.Float(),
		High:   candle.MaxPrice.Float(),
		Low:    candle.MinPrice.Float(),
		Close:  candle.ClosePrice.Float(),
		Volume: candle.Volume.Float(),
	}
}

// BarSeries is an immutable snapshot of the bars stored for one (ticker, timeframe) key.
// Bars is shared with the store and must not be modified by readers.
type BarSeries struct {
	Ticker    Ticker
	TimeFrame TimeFrame
	Bars      []Bar
	Meta      ChartMeta
	UpdatedAt time.Time
}

func EmptyBarSeries(ticker Ticker, timeFrame TimeFrame) BarSeries {
	return BarSeries{Ticker: ticker, TimeFrame: timeFrame}
}

func (series BarSeries) IsEmpty() bool {
	return len(series.Bars) == 0
}

func (series BarSeries) Last() (Bar, bool) {
	if len(series.Bars) == 0 {
		return Bar{}, false
	}
	return series.Bars[len(series.Bars)-1], true
}

type SeriesKey struct {
	Ticker    Ticker
	TimeFrame TimeFrame
}

// ChartMeta is the provider metadata returned next to a batch of bars.
type ChartMeta struct {
	PreviousClose  float64
	FirstTradeDate time.Time
	Currency       string
}

type BarBatch struct {
	Bars []Bar
	Meta ChartMeta
}
