package convert

import (
	"math"
)

func TwoDecimals(number float64) float64 {
	return RoundFloat64(number, 2)
}

func RoundFloat64(number float64, decimals int) float64 {
	return math.Round(number*math.Pow10(decimals)) / math.Pow10(decimals)
}

// MWh2CentsPerKwh converts a price per MWh to cents per kWh, rounded to 4 decimals.
func MWh2CentsPerKwh(pricePerMWh float64) float64 {
	return RoundFloat64(pricePerMWh/10, 4)
}

// CentsToEuros returns the cost in euros of kWh at a price in cents/kWh.
func CentsToEuros(kWh, centsPerKwh float64) float64 {
	return kWh * centsPerKwh / 100
}
