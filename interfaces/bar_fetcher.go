package interfaces

import (
	"context"

	"github.com/tarkah/tickrs/models"
)

type BarFetcher interface {
	FetchBars(ctx context.Context, ticker models.Ticker, timeFrame models.TimeFrame,
		hint models.SessionHint) (models.BarBatch, error)
}
