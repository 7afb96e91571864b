package versus

import (
	"math"
	"strings"
)

// symbolClass carries the per-class pip size fallback and price precision.
type symbolClass struct {
	pipFallback float64
	decimals    int
}

var (
	classJPY         = symbolClass{pipFallback: 0.01, decimals: 3}
	classCryptoMajor = symbolClass{pipFallback: 1.0, decimals: 2}
	classCryptoMinor = symbolClass{pipFallback: 0.01, decimals: 2}
	classMetal       = symbolClass{pipFallback: 0.01, decimals: 2}
	classDefault     = symbolClass{pipFallback: 0.0001, decimals: 5}
)

func classify(symbol string) symbolClass {
	s := strings.ToUpper(symbol)
	switch {
	case strings.Contains(s, "JPY"):
		return classJPY
	case strings.HasPrefix(s, "BTC"), strings.HasPrefix(s, "ETH"):
		return classCryptoMajor
	case strings.HasPrefix(s, "XRP"), strings.HasPrefix(s, "LTC"), strings.HasPrefix(s, "BCH"):
		return classCryptoMinor
	case strings.HasPrefix(s, "XAU"), strings.HasPrefix(s, "XAG"):
		return classMetal
	default:
		return classDefault
	}
}

// pipSize returns the price distance of one pip, preferring the agent's
// reported value over the class fallback.
func pipSize(symbol string, reported float64) float64 {
	if reported > 0 {
		return reported
	}
	return classify(symbol).pipFallback
}

// priceDecimals returns the rounding precision for prices of the symbol.
func priceDecimals(symbol string) int {
	return classify(symbol).decimals
}

// usdPerPip is the USD value of a one-pip move for the given lot size.
func usdPerPip(tickValue, pipValue, point, lots float64) float64 {
	return tickValue * (pipValue / point) * lots
}

// roundPips rounds a pip quantity to one decimal place.
func roundPips(p float64) float64 {
	return math.Round(p*10) / 10
}

// roundPrice rounds a price to the given number of decimals.
func roundPrice(p float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(p*scale) / scale
}

// halfLots splits a lot size in two, rounded to the broker's 0.01 step.
func halfLots(lots float64) float64 {
	return math.Round(lots/2*100) / 100
}
