package ui

import (
	"image"
	"math"
	"strings"

	"github.com/gizak/termui/v3"
	"github.com/tarkah/tickrs/helpers"
	"github.com/tarkah/tickrs/models"
)

// Braille cells are 2 dots wide and 4 dots tall.
const (
	dotsPerColumn = 2
	dotsPerRow    = 4
)

// plotArea maps chart coordinates onto the braille dots of a screen rectangle.
type plotArea struct {
	rect     image.Rectangle
	minPrice float64
	maxPrice float64
}

func newPlotArea(rect image.Rectangle, minPrice, maxPrice float64) plotArea {
	if maxPrice <= minPrice {
		maxPrice = minPrice + 1
	}
	return plotArea{rect: rect, minPrice: minPrice, maxPrice: maxPrice}
}

func (area plotArea) dotsWide() int {
	return area.rect.Dx() * dotsPerColumn
}

func (area plotArea) dotsTall() int {
	return area.rect.Dy() * dotsPerRow
}

// y returns the absolute dot row of price; higher prices are nearer the top.
func (area plotArea) y(price float64) int {
	tall := area.dotsTall() - 1
	ratio := (price - area.minPrice) / (area.maxPrice - area.minPrice)
	ratio = math.Max(0, math.Min(1, ratio))
	return area.rect.Min.Y*dotsPerRow + tall - int(math.Round(ratio*float64(tall)))
}

// slotX returns the absolute dot column of a slot index on an axis of count slots.
func (area plotArea) slotX(slot float64, count int) int {
	wide := area.dotsWide() - 1
	offset := 0
	if count > 1 {
		offset = int(math.Round(slot / float64(count-1) * float64(wide)))
	}
	return area.rect.Min.X*dotsPerColumn + offset
}

func plotLine(canvas *termui.Canvas, area plotArea, view models.ChartView, showPrevClose bool) {
	color := termui.ColorGreen
	if view.Summary.Change < 0 {
		color = termui.ColorRed
	}
	if showPrevClose && view.TimeFrame == models.TimeFrameDay1 && view.PreviousClose > 0 {
		y := area.y(view.PreviousClose)
		for x := area.rect.Min.X * dotsPerColumn; x < area.rect.Max.X*dotsPerColumn; x += 4 {
			canvas.SetPoint(image.Pt(x, y), termui.ColorWhite)
		}
	}
	for i := 1; i < len(view.LinePoints); i++ {
		from, to := view.LinePoints[i-1], view.LinePoints[i]
		canvas.SetLine(
			image.Pt(area.slotX(from.X, view.SlotCount), area.y(from.Y)),
			image.Pt(area.slotX(to.X, view.SlotCount), area.y(to.Y)),
			color,
		)
	}
	if len(view.LinePoints) == 1 {
		p := view.LinePoints[0]
		canvas.SetPoint(image.Pt(area.slotX(p.X, view.SlotCount), area.y(p.Y)), color)
	}
}

func plotCandles(canvas *termui.Canvas, area plotArea, view models.ChartView) {
	dotsPerCandle := view.CandleWidth * dotsPerColumn
	for _, candle := range view.Candles {
		color := termui.ColorGreen
		if !candle.IsUp() {
			color = termui.ColorRed
		}
		left := area.rect.Min.X*dotsPerColumn + int(candle.X*dotsPerCandle)
		bodyWidth := int(dotsPerCandle) - 1
		if bodyWidth < 1 {
			bodyWidth = 1
		}
		center := left + bodyWidth/2
		canvas.SetLine(image.Pt(center, area.y(candle.High)), image.Pt(center, area.y(candle.Low)), color)

		top, bottom := area.y(math.Max(candle.Open, candle.Close)), area.y(math.Min(candle.Open, candle.Close))
		for x := left; x < left+bodyWidth; x++ {
			canvas.SetLine(image.Pt(x, top), image.Pt(x, bottom), color)
		}
	}
}

// Each Kagi segment takes three dots: the vertical line sits on the first and the
// horizontal connector to the next segment spans the rest.
const kagiDotsPerSegment = 3

func kagiColor(kind models.KagiLineKind) termui.Color {
	if kind == models.KagiLineYin {
		return termui.ColorRed
	}
	return termui.ColorGreen
}

func plotKagi(canvas *termui.Canvas, area plotArea, view models.ChartView) {
	left := area.rect.Min.X * dotsPerColumn
	for i, segment := range view.KagiSegments {
		x := left + i*kagiDotsPerSegment
		if i > 0 {
			canvas.SetLine(image.Pt(x-kagiDotsPerSegment, area.y(segment.Start)), image.Pt(x, area.y(segment.Start)), kagiColor(segment.KindBefore))
		}
		if segment.HasBreakpoint {
			canvas.SetLine(image.Pt(x, area.y(segment.Start)), image.Pt(x, area.y(segment.Breakpoint)), kagiColor(segment.KindBefore))
			canvas.SetLine(image.Pt(x, area.y(segment.Breakpoint)), image.Pt(x, area.y(segment.End)), kagiColor(segment.KindAfter))
			continue
		}
		canvas.SetLine(image.Pt(x, area.y(segment.Start)), image.Pt(x, area.y(segment.End)), kagiColor(segment.KindAfter))
	}
}

// sparkValues returns at most columns prices for a summary row sparkline, shifted so the
// lowest one sits just above the baseline. Each column keeps the last price that falls in it.
func sparkValues(view models.ChartView, columns int) []float64 {
	var values []float64
	switch view.ChartType {
	case models.ChartTypeCandlestick:
		for _, candle := range view.Candles {
			values = append(values, candle.Close)
		}
	case models.ChartTypeKagi:
		for _, segment := range view.KagiSegments {
			values = append(values, segment.End)
		}
	default:
		for _, point := range view.LinePoints {
			values = append(values, point.Y)
		}
	}
	if len(values) == 0 || columns <= 0 {
		return nil
	}
	if len(values) > columns {
		sampled := make([]float64, columns)
		for i := range sampled {
			sampled[i] = values[(i+1)*len(values)/columns-1]
		}
		values = sampled
	}
	low, high := helpers.MinMax(values)
	floor := low - (high-low)*0.1
	if high == low {
		floor = low - 1
	}
	for i := range values {
		values[i] -= floor
	}
	return values
}

// volumeColumns folds per-slot volumes into one value per column.
func volumeColumns(points []models.Point, slotCount, columns int) []float64 {
	if columns <= 0 || slotCount <= 0 {
		return nil
	}
	data := make([]float64, columns)
	for _, p := range points {
		column := 0
		if slotCount > 1 {
			column = int(p.X / float64(slotCount-1) * float64(columns-1))
		}
		if column >= 0 && column < columns {
			data[column] += p.Y
		}
	}
	return data
}

// labelRow lays the labels out on one line of width columns, dropping labels that would
// overlap the previous one.
func labelRow(labels []models.AxisLabel, columnOf func(x float64) int, width int) string {
	row := []rune(strings.Repeat(" ", width))
	next := 0
	for i, label := range labels {
		text := []rune(label.Text)
		column := columnOf(label.X)
		if i == len(labels)-1 && len(labels) > 1 {
			column -= len(text) - 1
		}
		if column < next {
			column = next
		}
		if column+len(text) > width {
			continue
		}
		copy(row[column:], text)
		next = column + len(text) + 1
	}
	return strings.TrimRight(string(row), " ")
}
