package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarkah/tickrs/models"
	"github.com/tarkah/tickrs/tests/mocks"
)

func newTestTabs(store *BarStoreService, acquisition *AcquisitionService) *MultiStockService {
	calendar := NewCalendarService()
	return NewMultiStockService(StockOptions{TimeFrame: models.TimeFrameDay1, ChartType: models.ChartTypeLine},
		store, acquisition, NewAxisService(calendar), NewChartService())
}

func TestMultiStockTabs(t *testing.T) {
	store := NewBarStoreService()
	mss := newTestTabs(store, nil)
	assert.Nil(t, mss.Selected())
	mss.NextTab()

	assert.Error(t, mss.Open(models.ParseTicker("")))
	require.NoError(t, mss.Open(models.ParseTicker("AAPL")))
	require.NoError(t, mss.Open(models.ParseTicker("MSFT")))
	require.NoError(t, mss.Open(models.ParseTicker("BTC-USD")))
	assert.Equal(t, 2, mss.SelectedIndex())

	require.NoError(t, mss.Open(models.ParseTicker("AAPL")))
	assert.Len(t, mss.Tabs(), 3)
	assert.Equal(t, 0, mss.SelectedIndex())

	mss.PreviousTab()
	assert.Equal(t, "BTC-USD", mss.Selected().Ticker().Symbol)
	mss.NextTab()
	mss.NextTab()
	assert.Equal(t, "MSFT", mss.Selected().Ticker().Symbol)
	assert.True(t, mss.IsMonitoring(models.ParseTicker("BTC-USD")))
}

func TestMultiStockCloseReleasesBars(t *testing.T) {
	store := NewBarStoreService()
	mss := newTestTabs(store, nil)
	aapl, msft := models.ParseTicker("AAPL"), models.ParseTicker("MSFT")
	require.NoError(t, mss.Open(aapl))
	require.NoError(t, mss.Open(msft))
	store.Merge(aapl, models.TimeFrameDay1, models.BarBatch{Bars: minuteBars(0, 3, 100)})
	store.Merge(msft, models.TimeFrameDay1, models.BarBatch{Bars: minuteBars(0, 3, 100)})

	mss.CloseSelected()
	assert.False(t, mss.IsMonitoring(msft))
	assert.Equal(t, 0, mss.SelectedIndex())
	assert.Equal(t, []models.SeriesKey{{Ticker: aapl, TimeFrame: models.TimeFrameDay1}}, store.Keys())

	mss.Close(aapl)
	mss.Close(aapl)
	assert.Nil(t, mss.Selected())
	assert.Empty(t, store.Keys())
}

func TestMultiStockCloseStopsPolling(t *testing.T) {
	aapl := models.ParseTicker("AAPL")
	fetcher := mocks.NewFetcherMock().Respond(aapl.Symbol, batchOf(minuteBars(0, 3, 100)...))
	acquisition, store := newTestAcquisition(fetcher, 5*time.Millisecond)
	defer acquisition.Stop()

	mss := newTestTabs(store, acquisition)
	require.NoError(t, mss.Open(aapl))
	assert.Eventually(t, func() bool {
		return !store.Read(aapl, models.TimeFrameDay1).IsEmpty()
	}, time.Second, 5*time.Millisecond)

	mss.Close(aapl)
	assert.False(t, acquisition.IsPolling(aapl))
	assert.Empty(t, store.Keys())
}

func TestMultiStockToggles(t *testing.T) {
	acquisition := NewAcquisitionService(mocks.NewFetcherMock(), NewBarStoreService(), NewCalendarService(), AcquisitionConfig{})
	mss := newTestTabs(NewBarStoreService(), acquisition)

	assert.True(t, mss.TogglePrePost())
	assert.True(t, acquisition.IncludePrePost())
	assert.False(t, mss.TogglePrePost())

	assert.True(t, mss.ToggleVolumes())
	assert.False(t, mss.ToggleVolumes())
}
