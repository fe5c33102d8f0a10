package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/orinocoz/energymeter/spot"
	"github.com/orinocoz/energymeter/types"
)

type PriceStore interface {
	SaveEnergyPrices(ctx context.Context, prices []types.EnergyPrice) error
}

// PriceHistory is the persisted price series read back at startup.
type PriceHistory interface {
	GetEnergyPricesFrom(ctx context.Context, from time.Time) ([]types.EnergyPrice, error)
	LastEnergyPriceSave(ctx context.Context) (time.Time, error)
}

// SeedEnergyPrices installs the stored prices from from onwards into the
// cache, so they can be served while the providers are unreachable.
// The snapshot keeps the time the prices were saved as its update time.
func SeedEnergyPrices(ctx context.Context, logger *slog.Logger, cache *spot.Cache, history PriceHistory, from time.Time) {
	prices, err := history.GetEnergyPricesFrom(ctx, from)
	if err != nil {
		logger.Warn("failed to load price history", slog.Any("error", err))
		return
	}
	if len(prices) == 0 {
		return
	}
	updated, err := history.LastEnergyPriceSave(ctx)
	if err != nil {
		logger.Warn("failed to read price history age", slog.Any("error", err))
	}
	if updated.IsZero() {
		updated = prices[0].Timestamp
	}

	cache.Seed(spot.Snapshot{Prices: prices, Updated: updated, Provider: "database"})
	logger.Info("loaded price history", slog.Int("slots", len(prices)), slog.Time("updated", updated))
}

// NewEnergyPriceTask refreshes the price cache and keeps a copy of the
// prices in the database. When the cache does not cover the coming hours
// it refreshes immediately.
func NewEnergyPriceTask(logger *slog.Logger, cache *spot.Cache, store PriceStore, timeout time.Duration) func() {
	if needImmediateEnergyPriceUpdate(cache, time.Now()) {
		logger.Info("need an immediate update of energy prices")
		runEnergyPriceTask(logger, cache, store, timeout)
	} else {
		logger.Debug("no need for immediate update of energy prices")
	}

	return func() { runEnergyPriceTask(logger, cache, store, timeout) }
}

func runEnergyPriceTask(logger *slog.Logger, cache *spot.Cache, store PriceStore, timeout time.Duration) {
	logger.Debug("running energy price task...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	snap, err := cache.Refresh(ctx)
	if err != nil {
		logger.Error("energy price task error, fetching energy prices", slog.Any("error", err))
		return
	}
	if snap.Stale {
		logger.Warn("energy price task, providers failed, keeping previous prices", slog.Time("updated", snap.Updated))
		return
	}

	if err := store.SaveEnergyPrices(ctx, snap.Prices); err != nil {
		logger.Error("energy price task error, saving energy prices", slog.Any("error", err))
		return
	}

	logger.Info("energy price task done", slog.String("provider", snap.Provider), slog.Int("noOfSlotsUpdated", len(snap.Prices)))
}

// needImmediateEnergyPriceUpdate reports whether the cached prices end
// within the next 12 hours.
func needImmediateEnergyPriceUpdate(cache *spot.Cache, now time.Time) bool {
	snap, ok := cache.Current()
	if !ok || len(snap.Prices) == 0 {
		return true
	}
	last := snap.Prices[len(snap.Prices)-1].Timestamp
	return last.Before(now.Add(12 * time.Hour))
}
