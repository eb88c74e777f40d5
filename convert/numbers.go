package convert

import (
	"math"
)

func RoundFloat64(number float64, decimals int) float64 {
	return math.Round(number*math.Pow10(decimals)) / math.Pow10(decimals)
}

// FiveDecimals is the rounding used for MWh-denominated prices.
func FiveDecimals(number float64) float64 {
	return RoundFloat64(number, 5)
}

// SixDecimals is the rounding used for kWh-denominated prices.
func SixDecimals(number float64) float64 {
	return RoundFloat64(number, 6)
}
