package models

import "time"

type SessionState string

const (
	SessionStatePreMarket  SessionState = "pre-market"
	SessionStateRegular    SessionState = "regular"
	SessionStatePostMarket SessionState = "post-market"
	SessionStateClosed     SessionState = "closed"
)

// SessionWindow holds the boundaries of one trading day. A closed day has all boundaries
// zero. AlwaysOpen is set for instruments without sessions, in which case the boundaries
// cover the whole UTC day.
type SessionWindow struct {
	Date           time.Time
	PreMarketStart time.Time
	RegularStart   time.Time
	RegularEnd     time.Time
	PostMarketEnd  time.Time
	Closed         bool
	AlwaysOpen     bool
}

func (window SessionWindow) Start(includePrePost bool) time.Time {
	if includePrePost {
		return window.PreMarketStart
	}
	return window.RegularStart
}

func (window SessionWindow) End(includePrePost bool) time.Time {
	if includePrePost {
		return window.PostMarketEnd
	}
	return window.RegularEnd
}

// SessionHint tells the fetcher which slice of history the caller wants.
type SessionHint struct {
	Window         SessionWindow
	From           time.Time
	To             time.Time
	IncludePrePost bool
}
