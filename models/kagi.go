package models

import (
	"fmt"
	"math"
	"time"
)

type ReversalKind string

const (
	ReversalKindPercentage ReversalKind = "pct"
	ReversalKindAmount     ReversalKind = "amount"
)

type PriceType string

const (
	PriceTypeClose   PriceType = "close"
	PriceTypeHighLow PriceType = "high_low"
)

// KagiOptions parameterizes the reversal rule. For ReversalKindPercentage the value is a
// fraction of the current extreme (0.04 is 4%).
type KagiOptions struct {
	ReversalKind  ReversalKind
	ReversalValue float64
	PriceType     PriceType
}

func DefaultKagiOptions(timeFrame TimeFrame) KagiOptions {
	value := 0.04
	if timeFrame == TimeFrameDay1 {
		value = 0.01
	}
	return KagiOptions{
		ReversalKind:  ReversalKindPercentage,
		ReversalValue: value,
		PriceType:     PriceTypeClose,
	}
}

func (options KagiOptions) Validate() error {
	switch options.ReversalKind {
	case ReversalKindPercentage, ReversalKindAmount:
	default:
		return &ConfigurationError{Field: "reversal_type", Reason: fmt.Sprintf("unknown kind %q", options.ReversalKind)}
	}
	switch options.PriceType {
	case PriceTypeClose, PriceTypeHighLow:
	default:
		return &ConfigurationError{Field: "price_type", Reason: fmt.Sprintf("unknown price type %q", options.PriceType)}
	}
	if math.IsNaN(options.ReversalValue) || math.IsInf(options.ReversalValue, 0) || options.ReversalValue <= 0 {
		return &ConfigurationError{Field: "reversal_value", Reason: fmt.Sprintf("must be positive, got %v", options.ReversalValue)}
	}
	return nil
}

type KagiDirection string

const (
	KagiDirectionNone KagiDirection = ""
	KagiDirectionUp   KagiDirection = "up"
	KagiDirectionDown KagiDirection = "down"
)

func (direction KagiDirection) Reverse() KagiDirection {
	switch direction {
	case KagiDirectionUp:
		return KagiDirectionDown
	case KagiDirectionDown:
		return KagiDirectionUp
	}
	return KagiDirectionNone
}

// KagiSegment is one vertical Kagi line. Start is where the line begins (the previous
// line's extreme), End is this line's extreme so far.
type KagiSegment struct {
	Direction KagiDirection
	Start     float64
	End       float64
	StartTime time.Time
	EndTime   time.Time
}

type KagiStatus string

const (
	KagiStatusUninitialized KagiStatus = "uninitialized"
	KagiStatusTracking      KagiStatus = "tracking"
)

// KagiState is the full state of the reversal chart after a prefix of the bar stream.
// Completed holds finished lines; Current is the line being extended. Direction stays
// KagiDirectionNone until a bar moves away from the first bar.
type KagiState struct {
	Status    KagiStatus
	Direction KagiDirection
	Extreme   float64
	First     Bar
	Completed []KagiSegment
	Current   KagiSegment
	LastTime  time.Time
	BarCount  int
}

// Segments returns the completed lines followed by the current one, once a direction is
// known.
func (state KagiState) Segments() []KagiSegment {
	if state.Status != KagiStatusTracking || state.Direction == KagiDirectionNone {
		return append([]KagiSegment(nil), state.Completed...)
	}
	segments := make([]KagiSegment, 0, len(state.Completed)+1)
	segments = append(segments, state.Completed...)
	return append(segments, state.Current)
}

type KagiLineKind string

const (
	KagiLineYang KagiLineKind = "yang"
	KagiLineYin  KagiLineKind = "yin"
)

// KagiDisplaySegment is a segment plus the derived shoulder/waist styling. When
// HasBreakpoint is set the line switches from KindBefore to KindAfter at Breakpoint.
type KagiDisplaySegment struct {
	KagiSegment
	KindBefore    KagiLineKind
	KindAfter     KagiLineKind
	HasBreakpoint bool
	Breakpoint    float64
}

type KagiViewport struct {
	Offset   int
	Width    int
	Count    int
	HasLeft  bool
	HasRight bool
}

type ScrollDirection int

const (
	ScrollLeft ScrollDirection = iota
	ScrollRight
)
