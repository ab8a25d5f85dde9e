package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tarkah/tickrs/helpers"
	"github.com/tarkah/tickrs/models"
)

const (
	trimSchedule        = "*/30 * * * * *"
	staleReportSchedule = "0 */5 * * * *"
)

// HousekeepingService runs the periodic store maintenance: old bars are trimmed so the
// store does not grow without bound, and stale tickers are reported to the log.
type HousekeepingService struct {
	Cron        *cron.Cron
	store       *BarStoreService
	calendar    *CalendarService
	acquisition *AcquisitionService
	clock       func() time.Time
}

func NewHousekeepingService(store *BarStoreService, calendar *CalendarService, acquisition *AcquisitionService) *HousekeepingService {
	return &HousekeepingService{
		Cron:        cron.New(cron.WithSeconds()),
		store:       store,
		calendar:    calendar,
		acquisition: acquisition,
		clock:       time.Now,
	}
}

func (housekeepingService *HousekeepingService) RegisterAll() error {
	if _, err := housekeepingService.Cron.AddFunc(trimSchedule, func() { housekeepingService.TrimStore() }); err != nil {
		return fmt.Errorf("register trim task: %w", err)
	}
	if _, err := housekeepingService.Cron.AddFunc(staleReportSchedule, housekeepingService.ReportStale); err != nil {
		return fmt.Errorf("register stale report: %w", err)
	}
	return nil
}

func (housekeepingService *HousekeepingService) Start() {
	housekeepingService.Cron.Start()
	helpers.Logger.Infoln("housekeeping started")
}

func (housekeepingService *HousekeepingService) Stop() {
	<-housekeepingService.Cron.Stop().Done()
	helpers.Logger.Infoln("housekeeping stopped")
}

// TrimStore drops bars that fell out of every key's retention window and returns the
// number of bars dropped.
func (housekeepingService *HousekeepingService) TrimStore() int {
	now := housekeepingService.clock()
	dropped := 0
	for _, key := range housekeepingService.store.Keys() {
		series := housekeepingService.store.Read(key.Ticker, key.TimeFrame)
		from, ok := housekeepingService.RetentionStart(series, now)
		if !ok {
			continue
		}
		dropped += housekeepingService.store.Trim(key.Ticker, key.TimeFrame, from)
	}
	if dropped > 0 {
		helpers.Logger.Debugln(fmt.Sprintf("housekeeping: trimmed %d bars", dropped))
	}
	return dropped
}

// RetentionStart is the oldest bar time kept for a series. For an equity 1D series that is
// the start of the session of its newest bar, so a new day's chart drops yesterday's bars.
func (housekeepingService *HousekeepingService) RetentionStart(series models.BarSeries, now time.Time) (time.Time, bool) {
	if series.TimeFrame != models.TimeFrameDay1 {
		return now.Add(-series.TimeFrame.Retention()), true
	}
	if series.Ticker.IsCrypto() {
		return now.Add(-24 * time.Hour), true
	}
	last, ok := series.Last()
	if !ok {
		return time.Time{}, false
	}
	window := housekeepingService.calendar.SessionWindow(last.Time, series.Ticker.Class)
	if window.Closed {
		return time.Time{}, false
	}
	return window.PreMarketStart, true
}

// ReportStale logs every polled ticker whose last fetch failed.
func (housekeepingService *HousekeepingService) ReportStale() {
	for _, ticker := range housekeepingService.acquisition.Tickers() {
		status := housekeepingService.acquisition.Status(ticker)
		if !status.Stale {
			continue
		}
		since := "never"
		if !status.LastSuccess.IsZero() {
			since = status.LastSuccess.Format(time.RFC3339)
		}
		helpers.Logger.Infoln(fmt.Sprintf("%s stale (%d failures, last success %s): %s",
			ticker.Symbol, status.Failures, since, status.LastError))
	}
}
