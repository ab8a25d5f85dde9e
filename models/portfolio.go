package models

// PortfolioItem is a position held in one ticker.
type PortfolioItem struct {
	Quantity     float64
	AveragePrice float64
}

type Holding struct {
	Quantity      float64
	AveragePrice  float64
	Value         float64
	ProfitLoss    float64
	ProfitLossPct float64
}

// Holding values the position at price. The percentage is relative to the average price
// and is zero when no average price is known.
func (item PortfolioItem) Holding(price float64) Holding {
	holding := Holding{
		Quantity:     item.Quantity,
		AveragePrice: item.AveragePrice,
		Value:        item.Quantity * price,
	}
	holding.ProfitLoss = holding.Value - item.Quantity*item.AveragePrice
	if item.AveragePrice > 0 {
		holding.ProfitLossPct = (price/item.AveragePrice - 1) * 100
	}
	return holding
}
