package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tarkah/tickrs/helpers"
	"github.com/tarkah/tickrs/interfaces"
	"github.com/tarkah/tickrs/models"
)

const (
	resultBufferSize = 64
	// rate limits count as this many consecutive failures
	rateLimitedPenalty = 2
	maxBackoffExponent = 16
)

type AcquisitionConfig struct {
	UpdateInterval   time.Duration
	MaxBackoff       time.Duration
	NotFoundInterval time.Duration
	FetchTimeout     time.Duration
	IncludePrePost   bool
}

// FetchResult is what a polling unit reports after every fetch attempt.
type FetchResult struct {
	UnitID    uuid.UUID
	Ticker    models.Ticker
	TimeFrame models.TimeFrame
	Batch     models.BarBatch
	Err       error
	FetchedAt time.Time
}

type pollUnit struct {
	id        uuid.UUID
	ticker    models.Ticker
	cancel    context.CancelFunc
	done      chan struct{}
	wake      chan struct{}
	mutex     sync.Mutex
	timeFrame models.TimeFrame
}

func (unit *pollUnit) currentTimeFrame() models.TimeFrame {
	unit.mutex.Lock()
	defer unit.mutex.Unlock()
	return unit.timeFrame
}

// pollState is owned by the unit goroutine.
type pollState struct {
	failures    int
	notFound    bool
	lastSuccess map[models.TimeFrame]time.Time
}

// AcquisitionService runs one polling goroutine per open ticker. Units only talk to the
// store through the results channel; a single consumer applies results, so a slow or
// failing ticker never holds a lock another ticker needs.
type AcquisitionService struct {
	fetcher  interfaces.BarFetcher
	store    interfaces.BarStore
	calendar *CalendarService
	config   AcquisitionConfig
	clock    func() time.Time

	results chan FetchResult
	ctx     context.Context
	cancel  context.CancelFunc
	sinkWG  sync.WaitGroup

	mutex  sync.RWMutex
	units  map[string]*pollUnit
	status map[string]*models.TickerStatus

	prePostMutex   sync.RWMutex
	includePrePost bool
}

func NewAcquisitionService(fetcher interfaces.BarFetcher, store interfaces.BarStore, calendar *CalendarService,
	config AcquisitionConfig) *AcquisitionService {
	return &AcquisitionService{
		fetcher:        fetcher,
		store:          store,
		calendar:       calendar,
		config:         config,
		clock:          time.Now,
		results:        make(chan FetchResult, resultBufferSize),
		units:          map[string]*pollUnit{},
		status:         map[string]*models.TickerStatus{},
		includePrePost: config.IncludePrePost,
	}
}

// Start launches the result consumer. Units opened afterwards stop with ctx.
func (acquisitionService *AcquisitionService) Start(ctx context.Context) {
	acquisitionService.ctx, acquisitionService.cancel = context.WithCancel(ctx)
	acquisitionService.sinkWG.Add(1)
	go func() {
		defer acquisitionService.sinkWG.Done()
		acquisitionService.consume(acquisitionService.ctx)
	}()
}

// Stop cancels every unit and the consumer and waits for them to exit.
func (acquisitionService *AcquisitionService) Stop() {
	acquisitionService.mutex.RLock()
	tickers := make([]models.Ticker, 0, len(acquisitionService.units))
	for _, unit := range acquisitionService.units {
		tickers = append(tickers, unit.ticker)
	}
	acquisitionService.mutex.RUnlock()

	for _, ticker := range tickers {
		acquisitionService.Close(ticker)
	}
	if acquisitionService.cancel != nil {
		acquisitionService.cancel()
	}
	acquisitionService.sinkWG.Wait()
}

// Open starts polling ticker for timeFrame. Opening an already polled ticker only
// switches its timeframe.
func (acquisitionService *AcquisitionService) Open(ticker models.Ticker, timeFrame models.TimeFrame) {
	acquisitionService.mutex.Lock()
	if _, ok := acquisitionService.units[ticker.Symbol]; ok {
		acquisitionService.mutex.Unlock()
		acquisitionService.SetTimeFrame(ticker, timeFrame)
		return
	}

	parent := acquisitionService.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	unit := &pollUnit{
		id:        uuid.New(),
		ticker:    ticker,
		cancel:    cancel,
		done:      make(chan struct{}),
		wake:      make(chan struct{}, 1),
		timeFrame: timeFrame,
	}
	acquisitionService.units[ticker.Symbol] = unit
	acquisitionService.status[ticker.Symbol] = &models.TickerStatus{}
	acquisitionService.mutex.Unlock()

	helpers.Logger.Infoln(fmt.Sprintf("acquisition: start %s (%s) unit %s", ticker.Symbol, timeFrame, unit.id))
	go func() {
		defer close(unit.done)
		state := &pollState{lastSuccess: map[models.TimeFrame]time.Time{}}
		acquisitionService.monitor(ctx, unit, state)
	}()
}

// Close cancels the ticker's unit, waits for it to exit and releases its stored bars.
// Results the unit produced before it stopped are dropped by the consumer.
func (acquisitionService *AcquisitionService) Close(ticker models.Ticker) {
	acquisitionService.mutex.Lock()
	unit, ok := acquisitionService.units[ticker.Symbol]
	delete(acquisitionService.units, ticker.Symbol)
	delete(acquisitionService.status, ticker.Symbol)
	acquisitionService.mutex.Unlock()
	if !ok {
		return
	}

	unit.cancel()
	<-unit.done
	acquisitionService.store.Release(ticker)
	helpers.Logger.Infoln(fmt.Sprintf("acquisition: stopped %s unit %s", ticker.Symbol, unit.id))
}

// SetTimeFrame changes the timeframe a unit polls and wakes it up.
func (acquisitionService *AcquisitionService) SetTimeFrame(ticker models.Ticker, timeFrame models.TimeFrame) {
	acquisitionService.mutex.RLock()
	unit, ok := acquisitionService.units[ticker.Symbol]
	acquisitionService.mutex.RUnlock()
	if !ok {
		return
	}
	unit.mutex.Lock()
	unit.timeFrame = timeFrame
	unit.mutex.Unlock()
	acquisitionService.Refresh(ticker)
}

// Refresh makes the ticker's unit poll now instead of at its next tick.
func (acquisitionService *AcquisitionService) Refresh(ticker models.Ticker) {
	acquisitionService.mutex.RLock()
	unit, ok := acquisitionService.units[ticker.Symbol]
	acquisitionService.mutex.RUnlock()
	if !ok {
		return
	}
	select {
	case unit.wake <- struct{}{}:
	default:
	}
}

func (acquisitionService *AcquisitionService) SetIncludePrePost(includePrePost bool) {
	acquisitionService.prePostMutex.Lock()
	acquisitionService.includePrePost = includePrePost
	acquisitionService.prePostMutex.Unlock()

	acquisitionService.mutex.RLock()
	defer acquisitionService.mutex.RUnlock()
	for _, unit := range acquisitionService.units {
		select {
		case unit.wake <- struct{}{}:
		default:
		}
	}
}

func (acquisitionService *AcquisitionService) IncludePrePost() bool {
	acquisitionService.prePostMutex.RLock()
	defer acquisitionService.prePostMutex.RUnlock()
	return acquisitionService.includePrePost
}

func (acquisitionService *AcquisitionService) Status(ticker models.Ticker) models.TickerStatus {
	acquisitionService.mutex.RLock()
	defer acquisitionService.mutex.RUnlock()
	if status, ok := acquisitionService.status[ticker.Symbol]; ok {
		return *status
	}
	return models.TickerStatus{}
}

func (acquisitionService *AcquisitionService) IsPolling(ticker models.Ticker) bool {
	acquisitionService.mutex.RLock()
	defer acquisitionService.mutex.RUnlock()
	_, ok := acquisitionService.units[ticker.Symbol]
	return ok
}

func (acquisitionService *AcquisitionService) Tickers() []models.Ticker {
	acquisitionService.mutex.RLock()
	defer acquisitionService.mutex.RUnlock()
	tickers := make([]models.Ticker, 0, len(acquisitionService.units))
	for _, unit := range acquisitionService.units {
		tickers = append(tickers, unit.ticker)
	}
	return tickers
}

// monitor is the unit loop. A panic is logged and the loop restarts after a second.
func (acquisitionService *AcquisitionService) monitor(ctx context.Context, unit *pollUnit, state *pollState) {
	defer func() {
		if r := recover(); r != nil {
			helpers.Logger.Errorln(fmt.Sprintf("Recovered. Error on monitor (%s): %v", unit.ticker.Symbol, r))
			helpers.Logger.Errorln(string(debug.Stack()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			acquisitionService.monitor(ctx, unit, state)
		}
	}()

	for {
		wait := acquisitionService.poll(ctx, unit, state)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-unit.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// poll runs one iteration and returns how long to wait before the next one.
func (acquisitionService *AcquisitionService) poll(ctx context.Context, unit *pollUnit, state *pollState) time.Duration {
	timeFrame := unit.currentTimeFrame()
	now := acquisitionService.clock()

	if !acquisitionService.needsFetch(timeFrame, now, state) {
		return acquisitionService.config.UpdateInterval
	}

	hint := acquisitionService.sessionHint(unit.ticker, timeFrame, now)
	helpers.Logger.Traceln(fmt.Sprintf("acquisition: fetch %s (%s) %s - %s", unit.ticker.Symbol, timeFrame, hint.From.Format(time.RFC3339), hint.To.Format(time.RFC3339)))
	fetchCtx, cancel := context.WithTimeout(ctx, acquisitionService.config.FetchTimeout)
	batch, err := acquisitionService.fetcher.FetchBars(fetchCtx, unit.ticker, timeFrame, hint)
	cancel()
	if ctx.Err() != nil {
		return 0
	}

	result := FetchResult{
		UnitID:    unit.id,
		Ticker:    unit.ticker,
		TimeFrame: timeFrame,
		Batch:     batch,
		Err:       err,
		FetchedAt: acquisitionService.clock(),
	}
	select {
	case acquisitionService.results <- result:
	case <-ctx.Done():
		return 0
	}

	if err == nil {
		state.failures = 0
		state.notFound = false
		state.lastSuccess[timeFrame] = result.FetchedAt
		return acquisitionService.config.UpdateInterval
	}

	switch models.FetchErrorKindOf(err) {
	case models.FetchErrorNotFound:
		state.notFound = true
		return acquisitionService.config.NotFoundInterval
	case models.FetchErrorRateLimited:
		state.failures += rateLimitedPenalty
	default:
		state.failures++
	}
	return acquisitionService.Backoff(state.failures)
}

func (acquisitionService *AcquisitionService) needsFetch(timeFrame models.TimeFrame, now time.Time, state *pollState) bool {
	if timeFrame == models.TimeFrameDay1 || state.failures > 0 || state.notFound {
		return true
	}
	last, ok := state.lastSuccess[timeFrame]
	return !ok || now.Sub(last) >= timeFrame.RefreshInterval()
}

// Backoff is the wait after the given number of consecutive failures: the update
// interval doubled per failure, capped at MaxBackoff.
func (acquisitionService *AcquisitionService) Backoff(failures int) time.Duration {
	if failures > maxBackoffExponent {
		failures = maxBackoffExponent
	}
	wait := acquisitionService.config.UpdateInterval << uint(failures)
	if wait <= 0 || wait > acquisitionService.config.MaxBackoff {
		wait = acquisitionService.config.MaxBackoff
	}
	return wait
}

func (acquisitionService *AcquisitionService) sessionHint(ticker models.Ticker, timeFrame models.TimeFrame, now time.Time) models.SessionHint {
	includePrePost := acquisitionService.IncludePrePost() && timeFrame == models.TimeFrameDay1
	hint := models.SessionHint{To: now, IncludePrePost: includePrePost}
	if timeFrame == models.TimeFrameDay1 {
		hint.Window = acquisitionService.calendar.IntradaySession(now, ticker.Class, includePrePost)
		hint.From = hint.Window.Start(includePrePost)
		if end := hint.Window.End(includePrePost); !hint.Window.AlwaysOpen && end.Before(now) {
			hint.To = end
		}
		return hint
	}
	hint.From = now.Add(-timeFrame.Span())
	return hint
}

// consume applies unit results to the store and the status table until ctx is done.
func (acquisitionService *AcquisitionService) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-acquisitionService.results:
			acquisitionService.apply(result)
		}
	}
}

func (acquisitionService *AcquisitionService) apply(result FetchResult) {
	// the read lock keeps Close from releasing the ticker between the check and the merge
	acquisitionService.mutex.RLock()
	defer acquisitionService.mutex.RUnlock()

	unit, ok := acquisitionService.units[result.Ticker.Symbol]
	if !ok || unit.id != result.UnitID {
		return
	}
	status := acquisitionService.status[result.Ticker.Symbol]

	if result.Err == nil {
		acquisitionService.store.Merge(result.Ticker, result.TimeFrame, result.Batch)
		if status.Stale {
			helpers.Logger.Infoln(fmt.Sprintf("%s recovered", result.Ticker.Symbol))
		}
		*status = models.TickerStatus{LastSuccess: result.FetchedAt}
		return
	}

	kind := models.FetchErrorKindOf(result.Err)
	wasStale, wasNotFound := status.Stale, status.NotFound
	status.Stale = true
	status.Failures++
	status.LastError = result.Err.Error()

	switch kind {
	case models.FetchErrorMalformedResponse:
		helpers.Logger.Errorln("discarding batch: " + result.Err.Error())
	case models.FetchErrorNotFound:
		status.NotFound = true
		if !wasNotFound {
			helpers.Logger.Warnln(fmt.Sprintf("%s not found, polling every %s", result.Ticker.Symbol, acquisitionService.config.NotFoundInterval))
		}
	default:
		helpers.Logger.Debugln("fetch failed: " + result.Err.Error())
	}
	if !wasStale && kind != models.FetchErrorNotFound {
		helpers.Logger.Warnln(fmt.Sprintf("%s is stale: %s", result.Ticker.Symbol, result.Err.Error()))
	}
}
