package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarkah/tickrs/models"
)

const sampleConfig = `
symbols:
  - aapl
  - BTC-USD
  - symbol: MSTR
    class: equity
time_frame: 1y
chart_type: kagi
update_interval: 5s
max_backoff: 2m
enable_pre_post: true
show_volumes: true
show_x_labels: false
crypto_provider: binance
kagi_options:
  reversal_type: amount
  reversal_value: 3
  by_time_frame:
    1D:
      reversal_type: pct
      reversal_value: 0.02
      price_type: high_low
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Symbols, 3)
	assert.Equal(t, models.Ticker{Symbol: "AAPL", Class: models.InstrumentClassEquity}, cfg.Symbols[0])
	assert.Equal(t, models.Ticker{Symbol: "BTC-USD", Class: models.InstrumentClassCrypto}, cfg.Symbols[1])
	assert.Equal(t, "MSTR", cfg.Symbols[2].Symbol)
	assert.Equal(t, models.TimeFrameYear1, cfg.TimeFrame)
	assert.Equal(t, models.ChartTypeKagi, cfg.ChartType)
	assert.Equal(t, 5*time.Second, cfg.UpdateInterval)
	assert.Equal(t, 2*time.Minute, cfg.MaxBackoff)
	assert.Equal(t, DefaultNotFoundInterval, cfg.NotFoundInterval)
	assert.True(t, cfg.EnablePrePost)
	assert.True(t, cfg.ShowVolumes)
	assert.False(t, cfg.ShowXLabels)
	assert.Equal(t, CryptoProviderBinance, cfg.CryptoProvider)
	require.NoError(t, cfg.Validate())
}

func TestKagiOptionsFor(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	day, err := cfg.KagiOptionsFor(models.TimeFrameDay1)
	require.NoError(t, err)
	assert.Equal(t, models.KagiOptions{ReversalKind: models.ReversalKindPercentage, ReversalValue: 0.02, PriceType: models.PriceTypeHighLow}, day)

	year, err := cfg.KagiOptionsFor(models.TimeFrameYear1)
	require.NoError(t, err)
	assert.Equal(t, models.KagiOptions{ReversalKind: models.ReversalKindAmount, ReversalValue: 3, PriceType: models.PriceTypeClose}, year)

	assert.Equal(t, models.DefaultKagiOptions(models.TimeFrameWeek1), mustKagi(t, Default(), models.TimeFrameWeek1))
}

func mustKagi(t *testing.T, cfg *Config, timeFrame models.TimeFrame) models.KagiOptions {
	options, err := cfg.KagiOptionsFor(timeFrame)
	require.NoError(t, err)
	return options
}

func TestInvalidKagiOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, "kagi_options:\n  reversal_type: bricks\n"))
	require.NoError(t, err)

	var configurationError *models.ConfigurationError
	assert.ErrorAs(t, cfg.Validate(), &configurationError)
	assert.Equal(t, "reversal_type", configurationError.Field)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("symbols", "tsla, eth-usd,,")
	t.Setenv("timeFrame", "3m")
	t.Setenv("updateInterval", "2")
	t.Setenv("enablePrePost", "false")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, []models.Ticker{
		{Symbol: "TSLA", Class: models.InstrumentClassEquity},
		{Symbol: "ETH-USD", Class: models.InstrumentClassCrypto},
	}, cfg.Symbols)
	assert.Equal(t, models.TimeFrameMonth3, cfg.TimeFrame)
	assert.Equal(t, 2*time.Second, cfg.UpdateInterval)
	assert.False(t, cfg.EnablePrePost)

	t.Setenv("enablePrePost", "sometimes")
	_, err = Load(writeConfig(t, sampleConfig))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err, "an explicit path must exist")

	_, err = Load(writeConfig(t, "time_frame: 2D\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "symbols:\n  - [a, b]\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "symbols:\n  - symbol: AAPL\n    class: bond\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "update_interval: soon\n"))
	assert.Error(t, err)
}

func TestValidateClampsIntervals(t *testing.T) {
	cfg := Default()
	cfg.UpdateInterval = 100 * time.Millisecond
	cfg.MaxBackoff = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, MinUpdateInterval, cfg.UpdateInterval)
	assert.Equal(t, MinUpdateInterval, cfg.MaxBackoff)
	assert.Equal(t, DefaultNotFoundInterval, cfg.NotFoundInterval)

	cfg.CryptoProvider = "kraken"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.FetchTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestDurationFormats(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.SetUpdateInterval("1m30s"))
	assert.Equal(t, 90*time.Second, cfg.UpdateInterval)
	require.NoError(t, cfg.SetUpdateInterval("1.5"))
	assert.Equal(t, 1500*time.Millisecond, cfg.UpdateInterval)
	require.NoError(t, cfg.SetUpdateInterval("1d"))
	assert.Equal(t, 24*time.Hour, cfg.UpdateInterval)
}

func TestDisplayOptionsAndPortfolio(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
summary: true
hide_help: true
hide_prev_close: true
trunc_pre: true
portfolio:
  aapl:
    quantity: 10
    average_price: 150.5
  btc-usd:
    quantity: 0.25
`))
	require.NoError(t, err)
	assert.True(t, cfg.Summary)
	assert.True(t, cfg.HideHelp)
	assert.True(t, cfg.HidePrevClose)
	assert.False(t, cfg.HideToggle)
	assert.True(t, cfg.TruncPre)
	assert.Equal(t, map[string]models.PortfolioItem{
		"AAPL":    {Quantity: 10, AveragePrice: 150.5},
		"BTC-USD": {Quantity: 0.25},
	}, cfg.Portfolio)
	require.NoError(t, cfg.Validate())

	t.Setenv("hideToggle", "true")
	t.Setenv("summary", "false")
	cfg, err = Load(writeConfig(t, "summary: true\n"))
	require.NoError(t, err)
	assert.True(t, cfg.HideToggle)
	assert.False(t, cfg.Summary)

	cfg.Portfolio = map[string]models.PortfolioItem{"AAPL": {Quantity: -1, AveragePrice: 10}}
	var configurationError *models.ConfigurationError
	require.ErrorAs(t, cfg.Validate(), &configurationError)
	assert.Equal(t, "portfolio.AAPL", configurationError.Field)
}
