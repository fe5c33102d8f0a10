package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/orinocoz/energymeter/calendar"
	"github.com/orinocoz/energymeter/elering"
	"github.com/orinocoz/energymeter/hours"
	"github.com/orinocoz/energymeter/nordpool"
	"github.com/orinocoz/energymeter/optimize"
	"github.com/orinocoz/energymeter/settings"
	"github.com/orinocoz/energymeter/spot"
	"github.com/orinocoz/energymeter/summary"
	"github.com/orinocoz/energymeter/tariff"
	"github.com/orinocoz/energymeter/types"
)

func main() {
	duration := flag.Float64("duration", 2, "window length in hours")
	mode := flag.String("mode", "consecutive", "consecutive or cheapest")
	resolution := flag.Int("resolution", 60, "slot length in minutes, 15 or 60")
	pkg := flag.String("package", "", "network package id, empty for spot only")
	area := flag.String("area", "ee", "bidding area")
	defaults := flag.String("defaults", "", "path to a tariff reference document")
	timezone := flag.String("tz", "Europe/Tallinn", "time zone for printed times")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		}),
	))

	if err := hours.SetGuiTimezone(*timezone); err != nil {
		slog.Error("bestwindow failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(*duration, *mode, *resolution, *pkg, *area, *defaults); err != nil {
		slog.Error("bestwindow failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(duration float64, modeStr string, resolution int, pkg, area, defaultsPath string) error {
	ref, err := tariff.LoadReference(defaultsPath)
	if err != nil {
		return err
	}
	engine := tariff.NewEngine(ref, calendar.NewResolver(ref.Location(), ref.Holidays))

	mode, err := optimize.ParseMode(modeStr)
	if err != nil {
		return err
	}
	s := settings.Defaults(ref, settings.Prefs{Resolution: resolution, DurationHours: duration, Mode: mode})
	s.Resolution = resolution
	s.DurationHours = duration
	s.Tariff.NetworkPackageID = tariff.String(pkg)
	if err := s.Validate(ref); err != nil {
		return err
	}

	cache := spot.NewCache([]types.EnergyPriceProvider{
		elering.New("", area),
		nordpool.New("", area),
	}, spot.WithWindow(spot.DayWindow(ref.Location(), 0, 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	snap, err := cache.Get(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	res := summary.Build(engine, s, snap, now)
	loc := hours.GuiLocation()

	fmt.Printf("%-17s %10s %10s\n", "slot", "spot", "total")
	for _, p := range res.Points {
		fmt.Printf("%-17s %10.3f %10.3f\n", p.Timestamp.In(loc).Format("2006-01-02 15:04"), p.Price, p.Display)
	}
	fmt.Println()

	if !res.BestWindow.IsValid() {
		fmt.Println("best window: not enough data")
		return nil
	}
	w := res.BestWindow.Value()
	fmt.Printf("best %s window of %gh: %s - %s, average %.3f c/kWh\n",
		w.Mode, duration, w.Start.In(loc).Format("Mon 15:04"), w.End.In(loc).Format("15:04"), w.AveragePrice)
	fmt.Println(w.Countdown)
	if res.Advice != "" {
		fmt.Printf("%s (%g kWh)\n", res.Advice, res.Costs.KWh)
	}
	return nil
}
