package types

import (
	"context"
	"time"
)

type EnergyPrice struct {
	Timestamp time.Time `json:"timestamp"` // Start of the slot
	Price     float64   `json:"price"`     // Spot price in cents/kWh excluding VAT
}

// EnergyPriceProvider returns day-ahead spot prices sorted by timestamp.
type EnergyPriceProvider interface {
	Name() string
	GetEnergyPrices(ctx context.Context, from, to time.Time) ([]EnergyPrice, error)
}
