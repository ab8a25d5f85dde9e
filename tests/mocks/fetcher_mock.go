package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/tarkah/tickrs/models"
)

// FetchCall records one FetchBars invocation.
type FetchCall struct {
	Ticker    models.Ticker
	TimeFrame models.TimeFrame
	Hint      models.SessionHint
}

type scriptedResponse struct {
	batch models.BarBatch
	err   error
	delay time.Duration
	block bool
}

// FetcherMock answers FetchBars from per-symbol scripts. The last scripted response of a
// symbol repeats once its script is used up; unscripted symbols get an empty batch.
type FetcherMock struct {
	mutex   sync.Mutex
	scripts map[string][]scriptedResponse
	calls   []FetchCall
}

func NewFetcherMock() *FetcherMock {
	return &FetcherMock{scripts: map[string][]scriptedResponse{}}
}

func (fetcherMock *FetcherMock) push(symbol string, response scriptedResponse) *FetcherMock {
	fetcherMock.mutex.Lock()
	defer fetcherMock.mutex.Unlock()
	fetcherMock.scripts[symbol] = append(fetcherMock.scripts[symbol], response)
	return fetcherMock
}

func (fetcherMock *FetcherMock) Respond(symbol string, batch models.BarBatch) *FetcherMock {
	return fetcherMock.push(symbol, scriptedResponse{batch: batch})
}

func (fetcherMock *FetcherMock) Fail(symbol string, err error) *FetcherMock {
	return fetcherMock.push(symbol, scriptedResponse{err: err})
}

func (fetcherMock *FetcherMock) Delay(symbol string, delay time.Duration, batch models.BarBatch) *FetcherMock {
	return fetcherMock.push(symbol, scriptedResponse{batch: batch, delay: delay})
}

// Block makes fetches of symbol wait until their context is done.
func (fetcherMock *FetcherMock) Block(symbol string) *FetcherMock {
	return fetcherMock.push(symbol, scriptedResponse{block: true})
}

func (fetcherMock *FetcherMock) FetchBars(ctx context.Context, ticker models.Ticker, timeFrame models.TimeFrame, hint models.SessionHint) (models.BarBatch, error) {
	fetcherMock.mutex.Lock()
	fetcherMock.calls = append(fetcherMock.calls, FetchCall{Ticker: ticker, TimeFrame: timeFrame, Hint: hint})
	var response scriptedResponse
	if script := fetcherMock.scripts[ticker.Symbol]; len(script) > 0 {
		response = script[0]
		if len(script) > 1 {
			fetcherMock.scripts[ticker.Symbol] = script[1:]
		}
	}
	fetcherMock.mutex.Unlock()

	if response.block {
		<-ctx.Done()
		return models.BarBatch{}, models.NewFetchError(models.FetchErrorNetwork, ticker.Symbol, ctx.Err())
	}
	if response.delay > 0 {
		select {
		case <-time.After(response.delay):
		case <-ctx.Done():
			return models.BarBatch{}, models.NewFetchError(models.FetchErrorNetwork, ticker.Symbol, ctx.Err())
		}
	}
	return response.batch, response.err
}

func (fetcherMock *FetcherMock) Calls(symbol string) int {
	fetcherMock.mutex.Lock()
	defer fetcherMock.mutex.Unlock()
	count := 0
	for _, call := range fetcherMock.calls {
		if call.Ticker.Symbol == symbol {
			count++
		}
	}
	return count
}

func (fetcherMock *FetcherMock) TotalCalls() int {
	fetcherMock.mutex.Lock()
	defer fetcherMock.mutex.Unlock()
	return len(fetcherMock.calls)
}

func (fetcherMock *FetcherMock) LastCall(symbol string) (FetchCall, bool) {
	fetcherMock.mutex.Lock()
	defer fetcherMock.mutex.Unlock()
	for i := len(fetcherMock.calls) - 1; i >= 0; i-- {
		if fetcherMock.calls[i].Ticker.Symbol == symbol {
			return fetcherMock.calls[i], true
		}
	}
	return FetchCall{}, false
}
