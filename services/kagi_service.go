package services

import (
	"sync"

	"github.com/tarkah/tickrs/helpers"
	"github.com/tarkah/tickrs/models"
)

// kagiPrices returns the price used to extend an up line and the price used to extend a
// down line. With the close price type both are the close.
func kagiPrices(bar models.Bar, priceType models.PriceType) (float64, float64) {
	if priceType == models.PriceTypeHighLow {
		return bar.High, bar.Low
	}
	return bar.Close, bar.Close
}

func kagiUsable(bar models.Bar, priceType models.PriceType) bool {
	if priceType == models.PriceTypeHighLow {
		return bar.Low > 0 && bar.High > 0
	}
	return bar.Close > 0
}

func kagiIsReversal(extreme, move float64, options models.KagiOptions) bool {
	if options.ReversalKind == models.ReversalKindPercentage {
		return move >= options.ReversalValue*extreme
	}
	return move >= options.ReversalValue
}

// KagiStep folds one bar into state and returns the new state. state is not modified.
func KagiStep(state models.KagiState, bar models.Bar, options models.KagiOptions) models.KagiState {
	if !kagiUsable(bar, options.PriceType) {
		return state
	}
	high, low := kagiPrices(bar, options.PriceType)

	next := state
	next.BarCount++
	next.LastTime = bar.Time

	switch {
	case state.Status != models.KagiStatusTracking:
		next.Status = models.KagiStatusTracking
		next.Direction = models.KagiDirectionNone
		next.First = bar
		next.Extreme = bar.Close
		next.Completed = nil
		next.Current = models.KagiSegment{Start: bar.Close, End: bar.Close, StartTime: bar.Time, EndTime: bar.Time}

	case state.Direction == models.KagiDirectionNone:
		firstHigh, firstLow := kagiPrices(state.First, options.PriceType)
		if high > firstHigh {
			next.Direction = models.KagiDirectionUp
			next.Extreme = high
			next.Current = models.KagiSegment{
				Direction: models.KagiDirectionUp,
				Start:     firstLow,
				End:       high,
				StartTime: state.First.Time,
				EndTime:   bar.Time,
			}
		} else if low < firstLow {
			next.Direction = models.KagiDirectionDown
			next.Extreme = low
			next.Current = models.KagiSegment{
				Direction: models.KagiDirectionDown,
				Start:     firstHigh,
				End:       low,
				StartTime: state.First.Time,
				EndTime:   bar.Time,
			}
		}

	case state.Direction == models.KagiDirectionUp:
		if high > state.Extreme {
			next.Extreme = high
			next.Current.End = high
			next.Current.EndTime = bar.Time
		} else if kagiIsReversal(state.Extreme, state.Extreme-low, options) {
			next = kagiReverse(next, state, low, bar)
		}

	case state.Direction == models.KagiDirectionDown:
		if low < state.Extreme {
			next.Extreme = low
			next.Current.End = low
			next.Current.EndTime = bar.Time
		} else if kagiIsReversal(state.Extreme, high-state.Extreme, options) {
			next = kagiReverse(next, state, high, bar)
		}
	}
	return next
}

func kagiReverse(next, state models.KagiState, price float64, bar models.Bar) models.KagiState {
	completed := state.Completed[:len(state.Completed):len(state.Completed)]
	next.Completed = append(completed, state.Current)
	next.Direction = state.Direction.Reverse()
	next.Extreme = price
	next.Current = models.KagiSegment{
		Direction: next.Direction,
		Start:     state.Extreme,
		End:       price,
		StartTime: state.Current.EndTime,
		EndTime:   bar.Time,
	}
	return next
}

// KagiRecompute builds the state for a whole bar history from scratch.
func KagiRecompute(bars []models.Bar, options models.KagiOptions) models.KagiState {
	state := models.KagiState{Status: models.KagiStatusUninitialized}
	for _, bar := range bars {
		state = KagiStep(state, bar, options)
	}
	return state
}

// KagiDisplay derives line thickness. A line turns yang when it rises above the start of
// the previous line (the last shoulder) and yin when it falls below it (the last waist);
// otherwise it keeps the kind of the line before it.
func KagiDisplay(segments []models.KagiSegment) []models.KagiDisplaySegment {
	display := make([]models.KagiDisplaySegment, len(segments))
	kind := models.KagiLineYang
	if len(segments) > 0 && segments[0].Direction == models.KagiDirectionDown {
		kind = models.KagiLineYin
	}
	for i, segment := range segments {
		d := models.KagiDisplaySegment{KagiSegment: segment, KindBefore: kind, KindAfter: kind}
		if i > 0 {
			previousStart := segments[i-1].Start
			switch {
			case segment.Direction == models.KagiDirectionUp && segment.End > previousStart:
				d.HasBreakpoint = true
				d.Breakpoint = previousStart
				d.KindAfter = models.KagiLineYang
			case segment.Direction == models.KagiDirectionDown && segment.End < previousStart:
				d.HasBreakpoint = true
				d.Breakpoint = previousStart
				d.KindAfter = models.KagiLineYin
			}
		}
		kind = d.KindAfter
		display[i] = d
	}
	return display
}

// KagiEngine keeps the Kagi state of one chart up to date with the bar store and owns the
// horizontal viewport. While the viewport is not pinned it follows the newest segment.
type KagiEngine struct {
	mutex      sync.Mutex
	options    models.KagiOptions
	state      models.KagiState
	beforeLast models.KagiState
	bars       []models.Bar
	width      int
	offset     int
	pinned     bool
}

func NewKagiEngine(options models.KagiOptions) (*KagiEngine, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	return &KagiEngine{
		options: options,
		state:   models.KagiState{Status: models.KagiStatusUninitialized},
		width:   1,
	}, nil
}

func (kagiEngine *KagiEngine) Options() models.KagiOptions {
	kagiEngine.mutex.Lock()
	defer kagiEngine.mutex.Unlock()
	return kagiEngine.options
}

func (kagiEngine *KagiEngine) State() models.KagiState {
	kagiEngine.mutex.Lock()
	defer kagiEngine.mutex.Unlock()
	return kagiEngine.state
}

// Reconfigure swaps the options and rebuilds everything from bars. Invalid options are
// rejected and the current state is kept.
func (kagiEngine *KagiEngine) Reconfigure(options models.KagiOptions, bars []models.Bar) error {
	if err := options.Validate(); err != nil {
		helpers.Logger.Warnln("kagi: " + err.Error())
		return err
	}
	kagiEngine.mutex.Lock()
	defer kagiEngine.mutex.Unlock()
	kagiEngine.options = options
	kagiEngine.offset = 0
	kagiEngine.pinned = false
	kagiEngine.recompute(bars)
	return nil
}

// Update brings the state in line with bars, the current stored series. New bars at the
// end are folded in one by one and a replaced last bar is re-applied to the state before
// it. Any other difference (trimmed or revised history) triggers a full recompute.
func (kagiEngine *KagiEngine) Update(bars []models.Bar) {
	kagiEngine.mutex.Lock()
	defer kagiEngine.mutex.Unlock()

	n := len(kagiEngine.bars)
	if n == 0 || len(bars) < n || !sameBars(bars[:n-1], kagiEngine.bars[:n-1]) {
		kagiEngine.recompute(bars)
		return
	}

	if !sameBar(bars[n-1], kagiEngine.bars[n-1]) {
		if !bars[n-1].Time.Equal(kagiEngine.bars[n-1].Time) {
			kagiEngine.recompute(bars)
			return
		}
		kagiEngine.state = KagiStep(kagiEngine.beforeLast, bars[n-1], kagiEngine.options)
	}
	for _, bar := range bars[n:] {
		kagiEngine.beforeLast = kagiEngine.state
		kagiEngine.state = KagiStep(kagiEngine.state, bar, kagiEngine.options)
	}
	kagiEngine.bars = append(kagiEngine.bars[:0:0], bars...)
}

func (kagiEngine *KagiEngine) recompute(bars []models.Bar) {
	state := models.KagiState{Status: models.KagiStatusUninitialized}
	beforeLast := state
	for _, bar := range bars {
		beforeLast = state
		state = KagiStep(state, bar, kagiEngine.options)
	}
	kagiEngine.state = state
	kagiEngine.beforeLast = beforeLast
	kagiEngine.bars = append(kagiEngine.bars[:0:0], bars...)
}

func sameBar(a, b models.Bar) bool {
	return a.Time.Equal(b.Time) && a.Open == b.Open && a.High == b.High &&
		a.Low == b.Low && a.Close == b.Close && a.Volume == b.Volume
}

func sameBars(a, b []models.Bar) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameBar(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (kagiEngine *KagiEngine) Segments() []models.KagiSegment {
	kagiEngine.mutex.Lock()
	defer kagiEngine.mutex.Unlock()
	return kagiEngine.state.Segments()
}

// SetViewportWidth sets how many segments fit on screen.
func (kagiEngine *KagiEngine) SetViewportWidth(width int) {
	if width < 1 {
		width = 1
	}
	kagiEngine.mutex.Lock()
	defer kagiEngine.mutex.Unlock()
	kagiEngine.width = width
}

// Scroll moves the viewport by n segments. Scrolling back to the right edge unpins the
// viewport so it follows new segments again.
func (kagiEngine *KagiEngine) Scroll(direction models.ScrollDirection, n int) models.KagiViewport {
	kagiEngine.mutex.Lock()
	defer kagiEngine.mutex.Unlock()

	count := len(kagiEngine.state.Segments())
	maxOffset := kagiMaxOffset(count, kagiEngine.width)
	offset := kagiEngine.currentOffset(maxOffset)
	switch direction {
	case models.ScrollLeft:
		offset -= n
	case models.ScrollRight:
		offset += n
	}
	offset = helpers.ClampInt(offset, 0, maxOffset)
	kagiEngine.offset = offset
	kagiEngine.pinned = offset < maxOffset
	return kagiViewport(offset, kagiEngine.width, count)
}

func (kagiEngine *KagiEngine) Viewport() models.KagiViewport {
	kagiEngine.mutex.Lock()
	defer kagiEngine.mutex.Unlock()
	count := len(kagiEngine.state.Segments())
	return kagiViewport(kagiEngine.currentOffset(kagiMaxOffset(count, kagiEngine.width)), kagiEngine.width, count)
}

// Visible returns the styled segments inside the viewport together with the viewport.
func (kagiEngine *KagiEngine) Visible() ([]models.KagiDisplaySegment, models.KagiViewport) {
	kagiEngine.mutex.Lock()
	defer kagiEngine.mutex.Unlock()
	segments := kagiEngine.state.Segments()
	count := len(segments)
	viewport := kagiViewport(kagiEngine.currentOffset(kagiMaxOffset(count, kagiEngine.width)), kagiEngine.width, count)
	display := KagiDisplay(segments)
	end := viewport.Offset + viewport.Width
	if end > count {
		end = count
	}
	return display[viewport.Offset:end], viewport
}

func (kagiEngine *KagiEngine) currentOffset(maxOffset int) int {
	if !kagiEngine.pinned {
		return maxOffset
	}
	return helpers.ClampInt(kagiEngine.offset, 0, maxOffset)
}

func kagiMaxOffset(count, width int) int {
	if count > width {
		return count - width
	}
	return 0
}

func kagiViewport(offset, width, count int) models.KagiViewport {
	return models.KagiViewport{
		Offset:   offset,
		Width:    width,
		Count:    count,
		HasLeft:  offset > 0,
		HasRight: offset+width < count,
	}
}
