package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/tarkah/tickrs/helpers"
	"github.com/tarkah/tickrs/interfaces"
	"github.com/tarkah/tickrs/models"
)

// KagiOptionsResolver returns the Kagi options configured for a timeframe.
type KagiOptionsResolver func(timeFrame models.TimeFrame) (models.KagiOptions, error)

type StockOptions struct {
	TimeFrame   models.TimeFrame
	ChartType   models.ChartType
	ShowVolumes bool
	KagiOptions KagiOptionsResolver
	// Portfolio is keyed by symbol.
	Portfolio   map[string]models.PortfolioItem
}

// StockService is one dashboard tab. It only reads the bar store; fetching belongs to the
// acquisition service, so switching chart types never triggers a fetch.
type StockService struct {
	mutex       sync.RWMutex
	ticker      models.Ticker
	timeFrame   models.TimeFrame
	chartType   models.ChartType
	showVolumes bool
	resolver    KagiOptionsResolver
	kagiEngine  *KagiEngine
	position    *models.PortfolioItem

	store        interfaces.BarStore
	acquisition  *AcquisitionService
	axisService  *AxisService
	chartService *ChartService
}

func NewStockService(ticker models.Ticker, options StockOptions, store interfaces.BarStore, acquisition *AcquisitionService,
	axisService *AxisService, chartService *ChartService) (*StockService, error) {
	resolver := options.KagiOptions
	if resolver == nil {
		resolver = func(timeFrame models.TimeFrame) (models.KagiOptions, error) {
			return models.DefaultKagiOptions(timeFrame), nil
		}
	}
	kagiOptions, err := resolver(options.TimeFrame)
	if err != nil {
		return nil, err
	}
	kagiEngine, err := NewKagiEngine(kagiOptions)
	if err != nil {
		return nil, err
	}

	var position *models.PortfolioItem
	if item, ok := options.Portfolio[ticker.Symbol]; ok {
		position = &item
	}

	return &StockService{
		ticker:       ticker,
		position:     position,
		timeFrame:    options.TimeFrame,
		chartType:    options.ChartType,
		showVolumes:  options.ShowVolumes,
		resolver:     resolver,
		kagiEngine:   kagiEngine,
		store:        store,
		acquisition:  acquisition,
		axisService:  axisService,
		chartService: chartService,
	}, nil
}

func (stockService *StockService) Ticker() models.Ticker {
	return stockService.ticker
}

func (stockService *StockService) TimeFrame() models.TimeFrame {
	stockService.mutex.RLock()
	defer stockService.mutex.RUnlock()
	return stockService.timeFrame
}

func (stockService *StockService) ChartType() models.ChartType {
	stockService.mutex.RLock()
	defer stockService.mutex.RUnlock()
	return stockService.chartType
}

// SetTimeFrame points the tab and its polling unit at a new timeframe. The Kagi engine
// is rebuilt with that timeframe's options from whatever the store already holds.
func (stockService *StockService) SetTimeFrame(timeFrame models.TimeFrame) {
	stockService.mutex.Lock()
	if stockService.timeFrame == timeFrame {
		stockService.mutex.Unlock()
		return
	}
	stockService.timeFrame = timeFrame
	stockService.mutex.Unlock()

	if stockService.acquisition != nil {
		stockService.acquisition.SetTimeFrame(stockService.ticker, timeFrame)
	}
	options, err := stockService.resolver(timeFrame)
	if err != nil {
		helpers.Logger.Errorln(err.Error())
		options = models.DefaultKagiOptions(timeFrame)
	}
	series := stockService.store.Read(stockService.ticker, timeFrame)
	if err := stockService.kagiEngine.Reconfigure(options, series.Bars); err != nil {
		helpers.Logger.Errorln(fmt.Sprintf("%s: keeping kagi options %+v: %s", stockService.ticker.Symbol, stockService.kagiEngine.Options(), err.Error()))
	}
}

func (stockService *StockService) NextTimeFrame() {
	stockService.SetTimeFrame(stockService.TimeFrame().Up())
}

func (stockService *StockService) PreviousTimeFrame() {
	stockService.SetTimeFrame(stockService.TimeFrame().Down())
}

func (stockService *StockService) SetChartType(chartType models.ChartType) {
	stockService.mutex.Lock()
	defer stockService.mutex.Unlock()
	stockService.chartType = chartType
}

func (stockService *StockService) NextChartType() {
	stockService.mutex.Lock()
	defer stockService.mutex.Unlock()
	stockService.chartType = stockService.chartType.Next()
}

func (stockService *StockService) SetShowVolumes(showVolumes bool) {
	stockService.mutex.Lock()
	defer stockService.mutex.Unlock()
	stockService.showVolumes = showVolumes
}

// ReconfigureKagi applies new Kagi options. Invalid options leave the chart unchanged.
func (stockService *StockService) ReconfigureKagi(options models.KagiOptions) error {
	series := stockService.store.Read(stockService.ticker, stockService.TimeFrame())
	return stockService.kagiEngine.Reconfigure(options, series.Bars)
}

func (stockService *StockService) KagiOptions() models.KagiOptions {
	return stockService.kagiEngine.Options()
}

func (stockService *StockService) ScrollKagi(direction models.ScrollDirection, n int) models.KagiViewport {
	return stockService.kagiEngine.Scroll(direction, n)
}

func (stockService *StockService) Status() models.TickerStatus {
	if stockService.acquisition == nil {
		return models.TickerStatus{}
	}
	return stockService.acquisition.Status(stockService.ticker)
}

func (stockService *StockService) includePrePost() bool {
	return stockService.acquisition != nil && stockService.acquisition.IncludePrePost()
}

// View renders the tab at now for a chart area width columns wide.
func (stockService *StockService) View(width int, now time.Time) models.ChartView {
	stockService.mutex.RLock()
	timeFrame, chartType, showVolumes := stockService.timeFrame, stockService.chartType, stockService.showVolumes
	stockService.mutex.RUnlock()

	series := stockService.store.Read(stockService.ticker, timeFrame)
	axis := stockService.axisService.Align(stockService.ticker, timeFrame, series.Meta.FirstTradeDate, now, stockService.includePrePost())
	view := stockService.chartService.Render(series, axis, chartType, width, showVolumes)

	if chartType == models.ChartTypeKagi {
		stockService.kagiEngine.Update(series.Bars)
		stockService.kagiEngine.SetViewportWidth(KagiSegmentsFit(width))
		view.KagiSegments, view.KagiViewport = stockService.kagiEngine.Visible()
		view.KagiLabels = stockService.chartService.KagiLabels(view.KagiSegments, timeFrame, axis.Location)
		view.MinPrice, view.MaxPrice = kagiRange(view.KagiSegments)
	}
	view.Summary = stockService.chartService.Summary(series)
	if stockService.position != nil && view.Summary.LastPrice > 0 {
		holding := stockService.position.Holding(view.Summary.LastPrice)
		view.Holding = &holding
	}
	view.Session = stockService.axisService.calendarService.SessionState(now, stockService.ticker.Class)
	view.Status = stockService.Status()
	return view
}

func kagiRange(segments []models.KagiDisplaySegment) (float64, float64) {
	values := make([]float64, 0, len(segments)*2)
	for _, segment := range segments {
		values = append(values, segment.Start, segment.End)
	}
	return helpers.MinMax(values)
}
