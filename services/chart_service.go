package services

import (
	"math"
	"time"

	"github.com/tarkah/tickrs/helpers"
	"github.com/tarkah/tickrs/models"
)

const (
	columnsPerCandle = 2
	labelPadding     = 5
)

type ChartService struct{}

func NewChartService() *ChartService {
	return &ChartService{}
}

// Render projects a stored series onto the aligned axis. width is the number of terminal
// columns available to the chart. It only reads the snapshot, so switching chart types
// re-projects the same data.
func (chartService *ChartService) Render(series models.BarSeries, axis models.Axis, chartType models.ChartType, width int, showVolumes bool) models.ChartView {
	view := models.ChartView{
		Ticker:        series.Ticker,
		TimeFrame:     series.TimeFrame,
		ChartType:     chartType,
		Loaded:        !series.IsEmpty(),
		SlotCount:     axis.Len(),
		PreviousClose: series.Meta.PreviousClose,
	}

	switch chartType {
	case models.ChartTypeCandlestick:
		view.Candles, view.CandleWidth = chartService.Candles(series.Bars, axis, width)
		view.MinPrice, view.MaxPrice = candleRange(view.Candles)
	case models.ChartTypeLine:
		view.LinePoints = chartService.LinePoints(series.Bars, axis)
		view.MinPrice, view.MaxPrice = pointRange(view.LinePoints)
	}
	if showVolumes {
		view.VolumePoints = chartService.VolumePoints(series.Bars, axis)
	}
	view.AxisLabels = chartService.AxisLabels(axis, width)

	if series.TimeFrame == models.TimeFrameDay1 && view.PreviousClose > 0 && view.Loaded {
		view.MinPrice = math.Min(view.MinPrice, view.PreviousClose)
		view.MaxPrice = math.Max(view.MaxPrice, view.PreviousClose)
	}
	return view
}

// LinePoints returns one point per bar close at the bar's slot. When the last bar sits
// before the last slot a final point carries its close to the last slot; gaps inside the
// series are left open.
func (chartService *ChartService) LinePoints(bars []models.Bar, axis models.Axis) []models.Point {
	var points []models.Point
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		slot := axis.SlotIndex(bar.Time)
		if slot < 0 {
			continue
		}
		point := models.Point{X: float64(slot), Y: bar.Close}
		if n := len(points); n > 0 && points[n-1].X == point.X {
			points[n-1] = point
			continue
		}
		points = append(points, point)
	}

	if n := len(points); n > 0 && axis.Len() > 0 {
		lastSlot := float64(axis.Len() - 1)
		if points[n-1].X < lastSlot {
			points = append(points, models.Point{X: lastSlot, Y: points[n-1].Y})
		}
	}
	return points
}

// Candles groups bars into as many candles as fit in width. The group size comes from
// the aligned axis, so a series that starts late in the window still gets full width
// candles. The second result is the width of one candle in columns.
func (chartService *ChartService) Candles(bars []models.Bar, axis models.Axis, width int) ([]models.Candle, float64) {
	if axis.Len() == 0 || width <= 0 {
		return nil, 0
	}
	maxCandles := width / columnsPerCandle
	if maxCandles < 1 {
		maxCandles = 1
	}
	chunk := int(math.Ceil(float64(axis.Len()) / float64(maxCandles)))
	if chunk < 1 {
		chunk = 1
	}
	buckets := int(math.Ceil(float64(axis.Len()) / float64(chunk)))
	candleWidth := float64(width) / float64(buckets)

	var candles []models.Candle
	for _, bar := range bars {
		if !bar.HasPrice() {
			continue
		}
		slot := axis.SlotIndex(bar.Time)
		if slot < 0 {
			continue
		}
		x := float64(slot / chunk)
		n := len(candles)
		if n > 0 && candles[n-1].X == x {
			candle := &candles[n-1]
			candle.High = math.Max(candle.High, bar.High)
			candle.Low = math.Min(candle.Low, bar.Low)
			candle.Close = bar.Close
			candle.Volume += bar.Volume
			continue
		}
		open := bar.Open
		if open <= 0 {
			open = bar.Close
		}
		candles = append(candles, models.Candle{
			X:      x,
			Open:   open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}
	return candles, candleWidth
}

func (chartService *ChartService) VolumePoints(bars []models.Bar, axis models.Axis) []models.Point {
	var points []models.Point
	for _, bar := range bars {
		slot := axis.SlotIndex(bar.Time)
		if slot < 0 {
			continue
		}
		if n := len(points); n > 0 && points[n-1].X == float64(slot) {
			points[n-1].Y += bar.Volume
			continue
		}
		points = append(points, models.Point{X: float64(slot), Y: bar.Volume})
	}
	return points
}

// AxisLabels spreads as many time labels over the slots as fit in width.
func (chartService *ChartService) AxisLabels(axis models.Axis, width int) []models.AxisLabel {
	if axis.Len() == 0 {
		return nil
	}
	format := axis.TimeFrame.LabelFormat()
	count := width / (len(format) + labelPadding)
	if count < 1 {
		return nil
	}
	if count > axis.Len() {
		count = axis.Len()
	}

	labels := make([]models.AxisLabel, 0, count)
	for i := 0; i < count; i++ {
		idx := 0
		if count > 1 {
			idx = i * (axis.Len() - 1) / (count - 1)
		}
		slot := axis.Slots[idx]
		if axis.Location != nil {
			slot = slot.In(axis.Location)
		}
		labels = append(labels, models.AxisLabel{X: float64(idx), Text: slot.Format(format)})
	}
	return labels
}

// Summary computes the header numbers for a series. Change is measured against the
// previous close on 1D and against the first bar otherwise.
func (chartService *ChartService) Summary(series models.BarSeries) models.Summary {
	summary := models.Summary{PreviousClose: series.Meta.PreviousClose}

	var highs, lows, volumes []float64
	reference := 0.0
	for _, bar := range series.Bars {
		if !bar.HasPrice() {
			continue
		}
		if reference == 0 {
			reference = bar.Close
		}
		highs = append(highs, bar.High)
		lows = append(lows, bar.Low)
		volumes = append(volumes, bar.Volume)
		summary.LastPrice = bar.Close
	}
	if len(highs) == 0 {
		return summary
	}
	_, summary.High = helpers.MinMax(highs)
	summary.Low, _ = helpers.MinMax(lows)
	summary.Volume = helpers.Sum(volumes)

	if series.TimeFrame == models.TimeFrameDay1 && summary.PreviousClose > 0 {
		reference = summary.PreviousClose
	}
	summary.Change = summary.LastPrice - reference
	summary.ChangePct = helpers.PctChange(reference, summary.LastPrice)
	return summary
}

func pointRange(points []models.Point) (float64, float64) {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Y
	}
	return helpers.MinMax(values)
}

func candleRange(candles []models.Candle) (float64, float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	lows := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
		highs[i] = c.High
	}
	min, _ := helpers.MinMax(lows)
	_, max := helpers.MinMax(highs)
	return min, max
}

// KagiSegmentsFit is how many Kagi segments a chart width can hold; each takes one and a
// half columns.
func KagiSegmentsFit(width int) int {
	fit := width * 2 / 3
	if fit < 1 {
		fit = 1
	}
	return fit
}

// KagiLabels labels the visible segments with their start times, as many as fit in the
// columns the segments occupy.
func (chartService *ChartService) KagiLabels(segments []models.KagiDisplaySegment, timeFrame models.TimeFrame, location *time.Location) []models.AxisLabel {
	if len(segments) == 0 {
		return nil
	}
	format := timeFrame.LabelFormat()
	width := len(segments) * 3 / 2
	count := width / (len(format) + labelPadding)
	if count < 1 {
		return nil
	}

	labels := make([]models.AxisLabel, 0, count)
	for i := 0; i < count; i++ {
		idx := 0
		if count > 1 {
			idx = i * (len(segments) - 1) / (count - 1)
		}
		start := segments[idx].StartTime
		if location != nil {
			start = start.In(location)
		}
		labels = append(labels, models.AxisLabel{X: float64(idx), Text: start.Format(format)})
	}
	return labels
}
