package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarkah/tickrs/models"
)

func sessionBars(from time.Time, count int, price float64) []models.Bar {
	bars := make([]models.Bar, count)
	for i := range bars {
		p := price + float64(i%7)
		bars[i] = models.Bar{Time: from.Add(time.Duration(i) * time.Minute), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	}
	return bars
}

func TestLineExtendsToSessionClose(t *testing.T) {
	ny := newYork(t)
	axisService := NewAxisService(NewCalendarService())
	chartService := NewChartService()
	aapl := models.ParseTicker("AAPL")

	now := time.Date(2024, 3, 5, 16, 0, 0, 0, ny)
	axis := axisService.Align(aapl, models.TimeFrameDay1, time.Time{}, now, true)
	require.Equal(t, time.Date(2024, 3, 5, 16, 0, 0, 0, ny), axis.Slots[axis.Len()-1])

	bars := sessionBars(time.Date(2024, 3, 5, 15, 50, 0, 0, ny), 9, 100) // last bar at 15:58
	series := models.BarSeries{Ticker: aapl, TimeFrame: models.TimeFrameDay1, Bars: bars}
	view := chartService.Render(series, axis, models.ChartTypeLine, 120, false)

	require.NotEmpty(t, view.LinePoints)
	last := view.LinePoints[len(view.LinePoints)-1]
	assert.Equal(t, float64(axis.Len()-1), last.X)
	assert.Equal(t, time.Date(2024, 3, 5, 16, 0, 0, 0, ny), axis.Slots[int(last.X)])
	assert.Equal(t, bars[len(bars)-1].Close, last.Y)
	assert.Equal(t, float64(axis.SlotIndex(bars[len(bars)-1].Time)), view.LinePoints[len(view.LinePoints)-2].X)
}

func TestLineLeavesInternalGapsOpen(t *testing.T) {
	ny := newYork(t)
	axis := NewAxisService(NewCalendarService()).Align(models.ParseTicker("AAPL"), models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 10, 0, 0, 0, ny), false)
	bars := []models.Bar{
		{Time: time.Date(2024, 3, 5, 9, 30, 0, 0, ny), Open: 1, High: 1, Low: 1, Close: 1},
		{Time: time.Date(2024, 3, 5, 9, 40, 0, 0, ny), Open: 2, High: 2, Low: 2, Close: 2},
		{Time: time.Date(2024, 3, 5, 3, 0, 0, 0, ny), Open: 9, High: 9, Low: 9, Close: 9}, // outside the axis
	}
	points := NewChartService().LinePoints(bars, axis)
	assert.Equal(t, []models.Point{{X: 0, Y: 1}, {X: 10, Y: 2}, {X: 30, Y: 2}}, points)
}

func TestCandleWidthUsesAlignedAxis(t *testing.T) {
	ny := newYork(t)
	axis := NewAxisService(NewCalendarService()).Align(models.ParseTicker("AAPL"), models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 18, 0, 0, 0, ny), false)
	require.Equal(t, 391, axis.Len())

	// data only for the last hour of the session
	bars := sessionBars(time.Date(2024, 3, 5, 15, 0, 0, 0, ny), 60, 100)
	candles, width := NewChartService().Candles(bars, axis, 100)

	// 50 candles fit, so 8 slots per candle and 49 candles over the whole session
	assert.InDelta(t, 100.0/49.0, width, 1e-9)
	require.NotEmpty(t, candles)
	assert.Equal(t, float64(330/8), candles[0].X)
	assert.LessOrEqual(t, len(candles), 9)
	for _, candle := range candles {
		assert.GreaterOrEqual(t, candle.High, candle.Low)
	}
}

func TestCandlesAggregateBuckets(t *testing.T) {
	ny := newYork(t)
	axis := NewAxisService(NewCalendarService()).Align(models.ParseTicker("AAPL"), models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 9, 33, 0, 0, ny), false)
	require.Equal(t, 4, axis.Len())
	bars := []models.Bar{
		{Time: axis.Slots[0], Open: 10, High: 12, Low: 9, Close: 11, Volume: 1},
		{Time: axis.Slots[1], Open: 11, High: 15, Low: 10, Close: 14, Volume: 2},
		{Time: axis.Slots[2], Open: 14, High: 14, Low: 0, Close: 0, Volume: 3}, // no price
		{Time: axis.Slots[3], Open: 14, High: 14, Low: 8, Close: 8, Volume: 4},
	}
	candles, _ := NewChartService().Candles(bars, axis, 4)
	require.Len(t, candles, 2)
	assert.Equal(t, models.Candle{X: 0, Open: 10, High: 15, Low: 9, Close: 14, Volume: 3}, candles[0])
	assert.Equal(t, models.Candle{X: 1, Open: 14, High: 14, Low: 8, Close: 8, Volume: 4}, candles[1])
	assert.False(t, candles[1].IsUp())
}

func TestAxisLabelsFitWidth(t *testing.T) {
	ny := newYork(t)
	axis := NewAxisService(NewCalendarService()).Align(models.ParseTicker("AAPL"), models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 18, 0, 0, 0, ny), false)
	chartService := NewChartService()

	labels := chartService.AxisLabels(axis, 100)
	require.Len(t, labels, 10) // "15:04" plus padding is 10 columns
	assert.Equal(t, "09:30", labels[0].Text)
	assert.Equal(t, "16:00", labels[9].Text)
	assert.Empty(t, chartService.AxisLabels(axis, 5))
}

func TestRenderIncludesPreviousCloseOnDay(t *testing.T) {
	ny := newYork(t)
	aapl := models.ParseTicker("AAPL")
	axis := NewAxisService(NewCalendarService()).Align(aapl, models.TimeFrameDay1, time.Time{}, time.Date(2024, 3, 5, 10, 0, 0, 0, ny), false)
	series := models.BarSeries{
		Ticker:    aapl,
		TimeFrame: models.TimeFrameDay1,
		Bars:      sessionBars(time.Date(2024, 3, 5, 9, 30, 0, 0, ny), 10, 100),
		Meta:      models.ChartMeta{PreviousClose: 90},
	}
	view := NewChartService().Render(series, axis, models.ChartTypeCandlestick, 80, true)
	assert.True(t, view.Loaded)
	assert.Equal(t, 90.0, view.MinPrice)
	assert.Equal(t, 107.0, view.MaxPrice)
	assert.NotEmpty(t, view.VolumePoints)
	assert.Empty(t, view.LinePoints)

	empty := NewChartService().Render(models.EmptyBarSeries(aapl, models.TimeFrameDay1), axis, models.ChartTypeLine, 80, false)
	assert.False(t, empty.Loaded)
	assert.Empty(t, empty.LinePoints)
}

func TestSummary(t *testing.T) {
	series := models.BarSeries{
		TimeFrame: models.TimeFrameDay1,
		Bars: []models.Bar{
			{Time: storeBase, Open: 100, High: 103, Low: 99, Close: 102, Volume: 10},
			{Time: storeBase.Add(time.Minute), Open: 0, High: 0, Low: 0, Close: 0},
			{Time: storeBase.Add(2 * time.Minute), Open: 102, High: 106, Low: 101, Close: 105, Volume: 5},
		},
		Meta: models.ChartMeta{PreviousClose: 100},
	}
	summary := NewChartService().Summary(series)
	assert.Equal(t, 105.0, summary.LastPrice)
	assert.Equal(t, 106.0, summary.High)
	assert.Equal(t, 99.0, summary.Low)
	assert.Equal(t, 15.0, summary.Volume)
	assert.InDelta(t, 5.0, summary.Change, 1e-9)
	assert.InDelta(t, 5.0, summary.ChangePct, 1e-9)

	series.TimeFrame = models.TimeFrameYear1
	summary = NewChartService().Summary(series)
	assert.InDelta(t, 3.0, summary.Change, 1e-9)
}

func TestKagiLabels(t *testing.T) {
	segments := make([]models.KagiDisplaySegment, 40)
	for i := range segments {
		segments[i].StartTime = storeBase.Add(time.Duration(i) * time.Hour)
	}
	labels := NewChartService().KagiLabels(segments, models.TimeFrameDay1, time.UTC)
	// 40 segments span 60 columns, room for 6 labels
	require.Len(t, labels, 6)
	assert.Equal(t, "14:30", labels[0].Text)
	assert.Equal(t, float64(39), labels[5].X)
	assert.Equal(t, 26, KagiSegmentsFit(40))
}
