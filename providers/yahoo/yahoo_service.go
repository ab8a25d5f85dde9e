package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tarkah/tickrs/models"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// YahooService fetches bars from the Yahoo Finance chart API.
type YahooService struct {
	client  *http.Client
	baseURL string
}

func NewYahooService(client *http.Client) *YahooService {
	if client == nil {
		client = http.DefaultClient
	}
	return &YahooService{client: client, baseURL: DefaultBaseURL}
}

func (yahooService *YahooService) SetBaseURL(baseURL string) {
	yahooService.baseURL = baseURL
}

func (yahooService *YahooService) chartURL(ticker models.Ticker, timeFrame models.TimeFrame, hint models.SessionHint) string {
	params := url.Values{}
	params.Set("interval", timeFrame.Interval())
	params.Set("period1", strconv.FormatInt(hint.From.Unix(), 10))
	params.Set("period2", strconv.FormatInt(hint.To.Unix(), 10))
	params.Set("includePrePost", strconv.FormatBool(hint.IncludePrePost))
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", yahooService.baseURL, url.PathEscape(ticker.Symbol), params.Encode())
}

// FetchBars requests the bars of hint's window. Rows with null or zero prices are skipped.
func (yahooService *YahooService) FetchBars(ctx context.Context, ticker models.Ticker, timeFrame models.TimeFrame, hint models.SessionHint) (models.BarBatch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, yahooService.chartURL(ticker, timeFrame, hint), nil)
	if err != nil {
		return models.BarBatch{}, models.NewFetchError(models.FetchErrorMalformedResponse, ticker.Symbol, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := yahooService.client.Do(req)
	if err != nil {
		return models.BarBatch{}, models.NewFetchError(models.FetchErrorNetwork, ticker.Symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.BarBatch{}, models.NewFetchError(models.FetchErrorNetwork, ticker.Symbol, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.BarBatch{}, models.NewFetchError(models.FetchErrorNotFound, ticker.Symbol, chartError(body, resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.BarBatch{}, models.NewFetchError(models.FetchErrorRateLimited, ticker.Symbol, chartError(body, resp.StatusCode))
	case resp.StatusCode >= http.StatusBadRequest:
		return models.BarBatch{}, models.NewFetchError(models.FetchErrorNetwork, ticker.Symbol, chartError(body, resp.StatusCode))
	}

	batch, err := ParseChart(body)
	if err != nil {
		return models.BarBatch{}, models.NewFetchError(models.FetchErrorMalformedResponse, ticker.Symbol, err)
	}
	return batch, nil
}

func chartError(body []byte, status int) error {
	if description := gjson.GetBytes(body, "chart.error.description"); description.Exists() {
		return fmt.Errorf("status %d: %s", status, description.String())
	}
	return fmt.Errorf("status %d", status)
}

// ParseChart decodes a chart API response body. A response without timestamps is an
// empty batch; quote arrays that do not line up with the timestamps are malformed.
func ParseChart(body []byte) (models.BarBatch, error) {
	if !gjson.ValidBytes(body) {
		return models.BarBatch{}, errors.New("invalid json")
	}
	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		if description := gjson.GetBytes(body, "chart.error.description"); description.Exists() {
			return models.BarBatch{}, errors.New(description.String())
		}
		return models.BarBatch{}, errors.New("missing chart result")
	}

	meta := result.Get("meta")
	batch := models.BarBatch{Meta: models.ChartMeta{Currency: meta.Get("currency").String()}}
	if previousClose := meta.Get("previousClose"); previousClose.Exists() {
		batch.Meta.PreviousClose = previousClose.Float()
	} else {
		batch.Meta.PreviousClose = meta.Get("chartPreviousClose").Float()
	}
	if firstTrade := meta.Get("firstTradeDate"); firstTrade.Exists() && firstTrade.Type == gjson.Number {
		batch.Meta.FirstTradeDate = time.Unix(firstTrade.Int(), 0)
	}

	timestamps := result.Get("timestamp").Array()
	if len(timestamps) == 0 {
		return batch, nil
	}
	quote := result.Get("indicators.quote.0")
	if !quote.Exists() {
		return models.BarBatch{}, errors.New("missing quote indicators")
	}

	columns := map[string][]gjson.Result{}
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		column := quote.Get(name).Array()
		if len(column) != len(timestamps) {
			return models.BarBatch{}, fmt.Errorf("%s has %d entries for %d timestamps", name, len(column), len(timestamps))
		}
		columns[name] = column
	}

	batch.Bars = make([]models.Bar, 0, len(timestamps))
	for i, ts := range timestamps {
		if columns["close"][i].Type == gjson.Null {
			continue
		}
		bar := models.Bar{
			Time:   time.Unix(ts.Int(), 0),
			Open:   columns["open"][i].Float(),
			High:   columns["high"][i].Float(),
			Low:    columns["low"][i].Float(),
			Close:  columns["close"][i].Float(),
			Volume: columns["volume"][i].Float(),
		}
		if !bar.HasPrice() {
			continue
		}
		batch.Bars = append(batch.Bars, bar)
	}
	return batch, nil
}
