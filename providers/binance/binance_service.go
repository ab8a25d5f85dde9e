package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
	"github.com/tarkah/tickrs/models"
)

const (
	klinesLimit = 1000
	maxPages    = 20

	codeTooManyRequests = -1003
	codeInvalidSymbol   = -1121
	codeBadSymbol       = -1100
)

var quoteSuffixes = map[string]string{
	"-USD":  "USDT",
	"-USDT": "USDT",
	"-EUR":  "EUR",
	"-BTC":  "BTC",
}

// BinanceService fetches crypto bars from the Binance klines endpoint.
type BinanceService struct {
	binanceClient *binance.Client
}

func NewBinanceService(apiKey, apiSecret string, httpClient *http.Client) *BinanceService {
	client := binance.NewClient(apiKey, apiSecret)
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &BinanceService{binanceClient: client}
}

func (binanceService *BinanceService) SetBaseURL(baseURL string) {
	binanceService.binanceClient.BaseURL = baseURL
}

// Pair maps a dashboard symbol such as BTC-USD to the exchange pair BTCUSDT.
func Pair(symbol string) string {
	symbol = strings.ToUpper(symbol)
	for suffix, quote := range quoteSuffixes {
		if strings.HasSuffix(symbol, suffix) {
			return strings.TrimSuffix(symbol, suffix) + quote
		}
	}
	return strings.ReplaceAll(symbol, "-", "")
}

func klineInterval(timeFrame models.TimeFrame) string {
	if interval := timeFrame.Interval(); interval != "1wk" {
		return interval
	}
	return "1w"
}

// FetchBars pages through the klines of hint's window.
func (binanceService *BinanceService) FetchBars(ctx context.Context, ticker models.Ticker, timeFrame models.TimeFrame, hint models.SessionHint) (models.BarBatch, error) {
	pair := Pair(ticker.Symbol)
	start, end := hint.From.UnixMilli(), hint.To.UnixMilli()

	var bars []models.Bar
	for page := 0; page < maxPages && start <= end; page++ {
		klines, err := binanceService.binanceClient.NewKlinesService().Symbol(pair).
			Interval(klineInterval(timeFrame)).Limit(klinesLimit).StartTime(start).EndTime(end).Do(ctx)
		if err != nil {
			return models.BarBatch{}, classify(ticker.Symbol, err)
		}

		for _, k := range klines {
			candle, err := klineCandle(k, timeFrame.Granularity())
			if err != nil {
				return models.BarBatch{}, models.NewFetchError(models.FetchErrorMalformedResponse, ticker.Symbol, err)
			}
			bar := models.BarFromCandle(candle)
			if bar.HasPrice() {
				bars = append(bars, bar)
			}
		}

		if len(klines) < klinesLimit {
			break
		}
		start = klines[len(klines)-1].OpenTime + 1
	}
	return models.BarBatch{Bars: bars}, nil
}

func klineCandle(k *binance.Kline, granularity time.Duration) (*techan.Candle, error) {
	for _, field := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		if _, err := strconv.ParseFloat(field, 64); err != nil {
			return nil, fmt.Errorf("kline %d: %w", k.OpenTime, err)
		}
	}
	period := techan.NewTimePeriod(time.UnixMilli(k.OpenTime), granularity)
	candle := techan.NewCandle(period)
	candle.OpenPrice = big.NewFromString(k.Open)
	candle.ClosePrice = big.NewFromString(k.Close)
	candle.MaxPrice = big.NewFromString(k.High)
	candle.MinPrice = big.NewFromString(k.Low)
	candle.TradeCount = uint(k.TradeNum)
	candle.Volume = big.NewFromString(k.Volume)
	return candle, nil
}

func classify(symbol string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case codeInvalidSymbol, codeBadSymbol:
			return models.NewFetchError(models.FetchErrorNotFound, symbol, err)
		case codeTooManyRequests:
			return models.NewFetchError(models.FetchErrorRateLimited, symbol, err)
		}
	}
	return models.NewFetchError(models.FetchErrorNetwork, symbol, err)
}
