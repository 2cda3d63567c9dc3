// Package scoring rates how tradeable a market currently is.
package scoring

import "math"

// Liquidity and volume saturate their component scores at these levels;
// deeper books stop adding confidence.
const (
	liquiditySaturationUSD = 50_000
	volumeSaturationUSD    = 100_000
)

// Confidence blends liquidity depth and 24h volume into a 0-100 score, then
// discounts it by recent volatility. A volatility of 0.2 or more halves the
// base score.
func Confidence(liquidityUSD, volume24hUSD, volatility float64) int {
	liqScore := math.Min(liquidityUSD/liquiditySaturationUSD, 1)
	volScore := math.Min(volume24hUSD/volumeSaturationUSD, 1)

	penalty := math.Min(volatility*5, 1)
	base := liqScore*0.5 + volScore*0.5

	return int(math.Round(base * (1 - 0.5*penalty) * 100))
}
