package services

import (
	"sort"
	"sync"
	"time"

	"github.com/tarkah/tickrs/models"
)

type barStoreKey struct {
	symbol    string
	timeFrame models.TimeFrame
}

type barStoreEntry struct {
	mutex  sync.RWMutex
	series models.BarSeries
}

// BarStoreService caches bars per (ticker, timeframe). Each key has its own lock, the
// map lock is only held to find or create an entry. Stored slices are never modified in
// place: merge and trim build a new slice and swap it in, so a snapshot handed to a
// reader stays valid and complete.
type BarStoreService struct {
	mutex   sync.RWMutex
	entries map[barStoreKey]*barStoreEntry
	clock   func() time.Time
}

func NewBarStoreService() *BarStoreService {
	return &BarStoreService{
		entries: map[barStoreKey]*barStoreEntry{},
		clock:   time.Now,
	}
}

func (barStoreService *BarStoreService) entry(ticker models.Ticker, timeFrame models.TimeFrame, create bool) *barStoreEntry {
	key := barStoreKey{symbol: ticker.Symbol, timeFrame: timeFrame}

	barStoreService.mutex.RLock()
	e, ok := barStoreService.entries[key]
	barStoreService.mutex.RUnlock()
	if ok || !create {
		return e
	}

	barStoreService.mutex.Lock()
	defer barStoreService.mutex.Unlock()
	if e, ok = barStoreService.entries[key]; ok {
		return e
	}
	e = &barStoreEntry{series: models.EmptyBarSeries(ticker, timeFrame)}
	barStoreService.entries[key] = e
	return e
}

// Merge inserts the batch, replacing bars that share a timestamp. It returns the number
// of timestamps that were not stored before. Merging the same batch twice leaves the
// series as after the first merge.
func (barStoreService *BarStoreService) Merge(ticker models.Ticker, timeFrame models.TimeFrame, batch models.BarBatch) int {
	incoming := normalizeBars(batch.Bars)
	e := barStoreService.entry(ticker, timeFrame, true)

	e.mutex.Lock()
	defer e.mutex.Unlock()

	merged, added := mergeBars(e.series.Bars, incoming)
	series := e.series
	series.Bars = merged
	series.Meta = mergeMeta(series.Meta, batch.Meta)
	series.UpdatedAt = barStoreService.clock()
	e.series = series
	return added
}

// Trim drops every bar older than from and returns how many were dropped.
func (barStoreService *BarStoreService) Trim(ticker models.Ticker, timeFrame models.TimeFrame, from time.Time) int {
	e := barStoreService.entry(ticker, timeFrame, false)
	if e == nil {
		return 0
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	bars := e.series.Bars
	cut := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Time.Before(from)
	})
	if cut == 0 {
		return 0
	}
	kept := make([]models.Bar, len(bars)-cut)
	copy(kept, bars[cut:])
	e.series.Bars = kept
	return cut
}

// Read returns the current snapshot for the key, or an empty series when nothing has
// been stored. It never waits on a fetch.
func (barStoreService *BarStoreService) Read(ticker models.Ticker, timeFrame models.TimeFrame) models.BarSeries {
	e := barStoreService.entry(ticker, timeFrame, false)
	if e == nil {
		return models.EmptyBarSeries(ticker, timeFrame)
	}
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.series
}

// Release forgets every timeframe stored for the ticker.
func (barStoreService *BarStoreService) Release(ticker models.Ticker) {
	barStoreService.mutex.Lock()
	defer barStoreService.mutex.Unlock()
	for key := range barStoreService.entries {
		if key.symbol == ticker.Symbol {
			delete(barStoreService.entries, key)
		}
	}
}

// Keys lists the stored (ticker, timeframe) pairs.
func (barStoreService *BarStoreService) Keys() []models.SeriesKey {
	barStoreService.mutex.RLock()
	entries := make([]*barStoreEntry, 0, len(barStoreService.entries))
	for _, e := range barStoreService.entries {
		entries = append(entries, e)
	}
	barStoreService.mutex.RUnlock()

	keys := make([]models.SeriesKey, 0, len(entries))
	for _, e := range entries {
		e.mutex.RLock()
		keys = append(keys, models.SeriesKey{Ticker: e.series.Ticker, TimeFrame: e.series.TimeFrame})
		e.mutex.RUnlock()
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Ticker.Symbol != keys[j].Ticker.Symbol {
			return keys[i].Ticker.Symbol < keys[j].Ticker.Symbol
		}
		return keys[i].TimeFrame.Index() < keys[j].TimeFrame.Index()
	})
	return keys
}

// normalizeBars sorts a copy of bars by time and keeps the last bar of every timestamp.
func normalizeBars(bars []models.Bar) []models.Bar {
	sorted := make([]models.Bar, 0, len(bars))
	for _, bar := range bars {
		if bar.Time.IsZero() {
			continue
		}
		sorted = append(sorted, bar)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	unique := sorted[:0]
	for _, bar := range sorted {
		if n := len(unique); n > 0 && unique[n-1].Time.Equal(bar.Time) {
			unique[n-1] = bar
			continue
		}
		unique = append(unique, bar)
	}
	return unique
}

// mergeBars merges two strictly increasing slices into a new one; on equal timestamps the
// incoming bar wins.
func mergeBars(existing, incoming []models.Bar) ([]models.Bar, int) {
	merged := make([]models.Bar, 0, len(existing)+len(incoming))
	added := 0
	i, j := 0, 0
	for i < len(existing) && j < len(incoming) {
		switch {
		case existing[i].Time.Before(incoming[j].Time):
			merged = append(merged, existing[i])
			i++
		case incoming[j].Time.Before(existing[i].Time):
			merged = append(merged, incoming[j])
			added++
			j++
		default:
			merged = append(merged, incoming[j])
			i++
			j++
		}
	}
	merged = append(merged, existing[i:]...)
	added += len(incoming) - j
	merged = append(merged, incoming[j:]...)
	return merged, added
}

func mergeMeta(current, update models.ChartMeta) models.ChartMeta {
	if update.PreviousClose != 0 {
		current.PreviousClose = update.PreviousClose
	}
	if !update.FirstTradeDate.IsZero() {
		current.FirstTradeDate = update.FirstTradeDate
	}
	if update.Currency != "" {
		current.Currency = update.Currency
	}
	return current
}
