package providers

import (
	"context"

	"github.com/tarkah/tickrs/interfaces"
	"github.com/tarkah/tickrs/models"
)

// ProviderService routes each ticker to the fetcher for its instrument class.
type ProviderService struct {
	equities interfaces.BarFetcher
	crypto   interfaces.BarFetcher
}

// NewProviderService serves crypto from crypto when set and from equities otherwise.
func NewProviderService(equities interfaces.BarFetcher, crypto interfaces.BarFetcher) *ProviderService {
	if crypto == nil {
		crypto = equities
	}
	return &ProviderService{equities: equities, crypto: crypto}
}

func (providerService *ProviderService) FetcherFor(ticker models.Ticker) interfaces.BarFetcher {
	if ticker.IsCrypto() {
		return providerService.crypto
	}
	return providerService.equities
}

func (providerService *ProviderService) FetchBars(ctx context.Context, ticker models.Ticker, timeFrame models.TimeFrame, hint models.SessionHint) (models.BarBatch, error) {
	return providerService.FetcherFor(ticker).FetchBars(ctx, ticker, timeFrame, hint)
}
