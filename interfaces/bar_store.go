package interfaces

import (
	"time"

	"github.com/tarkah/tickrs/models"
)

type BarStore interface {
	Merge(ticker models.Ticker, timeFrame models.TimeFrame, batch models.BarBatch) int
	Trim(ticker models.Ticker, timeFrame models.TimeFrame, from time.Time) int
	Read(ticker models.Ticker, timeFrame models.TimeFrame) models.BarSeries
	Release(ticker models.Ticker)
}
