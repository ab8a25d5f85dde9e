package models

import "strings"

type InstrumentClass string

const (
	InstrumentClassEquity InstrumentClass = "equity"
	InstrumentClassCrypto InstrumentClass = "crypto"
)

var cryptoQuoteSuffixes = []string{"-USD", "-USDT", "-EUR", "-BTC"}

type Ticker struct {
	Symbol string
	Class  InstrumentClass
}

func NewTicker(symbol string, class InstrumentClass) Ticker {
	return Ticker{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Class:  class,
	}
}

// ParseTicker infers the instrument class from the quote suffix of the symbol
func ParseTicker(symbol string) Ticker {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, suffix := range cryptoQuoteSuffixes {
		if strings.HasSuffix(symbol, suffix) {
			return NewTicker(symbol, InstrumentClassCrypto)
		}
	}
	return NewTicker(symbol, InstrumentClassEquity)
}

func (ticker Ticker) IsCrypto() bool {
	return ticker.Class == InstrumentClassCrypto
}

func (ticker Ticker) String() string {
	return ticker.Symbol
}
