package usage

import "math"

// CostEstimator converts token counts into the RUB figure stored on a dream
// entry. Rates come from configuration; the base currency is USD.
type CostEstimator struct {
	USDPerInput1K  float64
	USDPerOutput1K float64
	RubPerUSD      float64
}

// EstimateRub returns the call cost in RUB rounded to kopecks.
func (c CostEstimator) EstimateRub(tokensIn, tokensOut int) float64 {
	inUSD := float64(tokensIn) / 1000 * c.USDPerInput1K
	outUSD := float64(tokensOut) / 1000 * c.USDPerOutput1K
	return math.Round((inUSD+outUSD)*c.RubPerUSD*100) / 100
}
