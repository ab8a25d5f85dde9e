package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarkah/tickrs/models"
	"github.com/tarkah/tickrs/tests/mocks"
)

func TestProviderRouting(t *testing.T) {
	equities, crypto := mocks.NewFetcherMock(), mocks.NewFetcherMock()
	providerService := NewProviderService(equities, crypto)

	_, err := providerService.FetchBars(context.Background(), models.ParseTicker("AAPL"), models.TimeFrameDay1, models.SessionHint{})
	require.NoError(t, err)
	_, err = providerService.FetchBars(context.Background(), models.ParseTicker("BTC-USD"), models.TimeFrameDay1, models.SessionHint{})
	require.NoError(t, err)

	assert.Equal(t, 1, equities.Calls("AAPL"))
	assert.Equal(t, 0, equities.Calls("BTC-USD"))
	assert.Equal(t, 1, crypto.Calls("BTC-USD"))
	assert.Equal(t, 1, crypto.TotalCalls())
}

func TestProviderWithoutCryptoFetcher(t *testing.T) {
	equities := mocks.NewFetcherMock()
	providerService := NewProviderService(equities, nil)

	_, err := providerService.FetchBars(context.Background(), models.ParseTicker("ETH-USD"), models.TimeFrameYear1, models.SessionHint{})
	require.NoError(t, err)
	assert.Equal(t, 1, equities.Calls("ETH-USD"))
	assert.Same(t, equities, providerService.FetcherFor(models.ParseTicker("ETH-USD")))
}
