package services

import (
	"fmt"
	"sync"

	"github.com/tarkah/tickrs/interfaces"
	"github.com/tarkah/tickrs/models"
)

// MultiStockService holds the open tabs and which one is selected.
type MultiStockService struct {
	mutex          sync.RWMutex
	StockServices  []*StockService
	selected       int
	options        StockOptions
	includePrePost bool

	store        interfaces.BarStore
	acquisition  *AcquisitionService
	axisService  *AxisService
	chartService *ChartService
}

func NewMultiStockService(options StockOptions, store interfaces.BarStore, acquisition *AcquisitionService,
	axisService *AxisService, chartService *ChartService) *MultiStockService {
	mss := &MultiStockService{
		options:      options,
		store:        store,
		acquisition:  acquisition,
		axisService:  axisService,
		chartService: chartService,
	}
	if acquisition != nil {
		mss.includePrePost = acquisition.IncludePrePost()
	}
	return mss
}

// IsMonitoring reports whether a tab is open for ticker.
func (mss *MultiStockService) IsMonitoring(ticker models.Ticker) bool {
	mss.mutex.RLock()
	defer mss.mutex.RUnlock()
	return mss.indexOf(ticker) >= 0
}

func (mss *MultiStockService) indexOf(ticker models.Ticker) int {
	for i, stockService := range mss.StockServices {
		if stockService.Ticker().Symbol == ticker.Symbol {
			return i
		}
	}
	return -1
}

// Open adds a tab for ticker, selects it and starts polling. Opening a ticker twice
// selects the existing tab.
func (mss *MultiStockService) Open(ticker models.Ticker) error {
	if ticker.Symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	mss.mutex.Lock()
	defer mss.mutex.Unlock()
	if i := mss.indexOf(ticker); i >= 0 {
		mss.selected = i
		return nil
	}

	stockService, err := NewStockService(ticker, mss.options, mss.store, mss.acquisition, mss.axisService, mss.chartService)
	if err != nil {
		return err
	}
	mss.StockServices = append(mss.StockServices, stockService)
	mss.selected = len(mss.StockServices) - 1
	if mss.acquisition != nil {
		mss.acquisition.Open(ticker, mss.options.TimeFrame)
	}
	return nil
}

// Close removes the ticker's tab. Its polling unit is stopped and its stored bars and
// Kagi state are dropped.
func (mss *MultiStockService) Close(ticker models.Ticker) {
	mss.mutex.Lock()
	i := mss.indexOf(ticker)
	if i < 0 {
		mss.mutex.Unlock()
		return
	}
	mss.StockServices = append(mss.StockServices[:i:i], mss.StockServices[i+1:]...)
	if mss.selected >= len(mss.StockServices) && mss.selected > 0 {
		mss.selected = len(mss.StockServices) - 1
	}
	mss.mutex.Unlock()

	if mss.acquisition != nil {
		mss.acquisition.Close(ticker)
	} else {
		mss.store.Release(ticker)
	}
}

func (mss *MultiStockService) CloseSelected() {
	if selected := mss.Selected(); selected != nil {
		mss.Close(selected.Ticker())
	}
}

// Selected returns the selected tab, or nil when no tab is open.
func (mss *MultiStockService) Selected() *StockService {
	mss.mutex.RLock()
	defer mss.mutex.RUnlock()
	if len(mss.StockServices) == 0 {
		return nil
	}
	return mss.StockServices[mss.selected]
}

func (mss *MultiStockService) SelectedIndex() int {
	mss.mutex.RLock()
	defer mss.mutex.RUnlock()
	return mss.selected
}

func (mss *MultiStockService) Tabs() []*StockService {
	mss.mutex.RLock()
	defer mss.mutex.RUnlock()
	tabs := make([]*StockService, len(mss.StockServices))
	copy(tabs, mss.StockServices)
	return tabs
}

func (mss *MultiStockService) NextTab() {
	mss.moveSelection(1)
}

func (mss *MultiStockService) PreviousTab() {
	mss.moveSelection(-1)
}

func (mss *MultiStockService) moveSelection(step int) {
	mss.mutex.Lock()
	defer mss.mutex.Unlock()
	n := len(mss.StockServices)
	if n == 0 {
		return
	}
	mss.selected = ((mss.selected+step)%n + n) % n
}

// ToggleVolumes switches the volume pane for every tab.
func (mss *MultiStockService) ToggleVolumes() bool {
	mss.mutex.Lock()
	mss.options.ShowVolumes = !mss.options.ShowVolumes
	showVolumes := mss.options.ShowVolumes
	tabs := append([]*StockService(nil), mss.StockServices...)
	mss.mutex.Unlock()

	for _, stockService := range tabs {
		stockService.SetShowVolumes(showVolumes)
	}
	return showVolumes
}

func (mss *MultiStockService) IncludePrePost() bool {
	mss.mutex.RLock()
	defer mss.mutex.RUnlock()
	return mss.includePrePost
}

// TogglePrePost switches pre and post market data for 1D charts.
func (mss *MultiStockService) TogglePrePost() bool {
	mss.mutex.Lock()
	mss.includePrePost = !mss.includePrePost
	includePrePost := mss.includePrePost
	mss.mutex.Unlock()

	if mss.acquisition != nil {
		mss.acquisition.SetIncludePrePost(includePrePost)
	}
	return includePrePost
}
