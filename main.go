package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/orinocoz/energymeter/calendar"
	"github.com/orinocoz/energymeter/config"
	"github.com/orinocoz/energymeter/database"
	"github.com/orinocoz/energymeter/elering"
	"github.com/orinocoz/energymeter/hours"
	"github.com/orinocoz/energymeter/logging"
	"github.com/orinocoz/energymeter/nordpool"
	"github.com/orinocoz/energymeter/optimize"
	"github.com/orinocoz/energymeter/publisher"
	"github.com/orinocoz/energymeter/settings"
	"github.com/orinocoz/energymeter/spot"
	"github.com/orinocoz/energymeter/summary"
	"github.com/orinocoz/energymeter/tariff"
	"github.com/orinocoz/energymeter/task"
	"github.com/orinocoz/energymeter/types"
	"github.com/orinocoz/energymeter/www"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := hours.SetGuiTimezone(cnfg.Gui.GetTimezone()); err != nil {
		panic(fmt.Sprintf("failed to set GUI timezone: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleLevel := new(slog.LevelVar)
	consoleLevel.Set(cnfg.Logging.GetConsoleLevel())
	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      consoleLevel,
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("energymeter is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	cnfg.Watch(func(c *config.AppConfig) {
		consoleLevel.Set(c.Logging.GetConsoleLevel())
		logger.Info("config reloaded", slog.String("consoleLevel", consoleLevel.Level().String()))
	})

	ref, err := tariff.LoadReference(cnfg.Tariff.GetDefaultsPath())
	if err != nil {
		panic(fmt.Sprintf("failed to load tariff reference: %v", err))
	}
	for _, p := range ref.Problems() {
		logger.Warn("tariff reference problem", slog.Any("error", p))
	}
	cal := calendar.NewResolver(ref.Location(), ref.Holidays)
	for _, s := range cal.Skipped() {
		logger.Warn("skipping holiday rule", slog.Any("error", s))
	}
	engine := tariff.NewEngine(ref, cal)

	energyPriceProviders := []types.EnergyPriceProvider{
		elering.New(cnfg.EnergyPrice.GetEleringURL(), cnfg.EnergyPrice.GetArea()), // Primary provider
	}
	if url := cnfg.EnergyPrice.GetNordpoolURL(); url != "" {
		energyPriceProviders = append(energyPriceProviders, nordpool.New(url, cnfg.EnergyPrice.GetArea())) // Secondary provider
	}

	window := spot.DayWindow(ref.Location(), cnfg.EnergyPrice.GetDaysBack(), cnfg.EnergyPrice.GetDaysAhead())
	cache := spot.NewCache(energyPriceProviders,
		spot.WithLogger(logger.With("module", "spot")),
		spot.WithTTL(cnfg.EnergyPrice.GetCacheTTL()),
		spot.WithTimeout(cnfg.EnergyPrice.GetTimeout()),
		spot.WithWindow(window))

	defer cache.Close()

	from, _ := window(time.Now())
	task.SeedEnergyPrices(ctx, logger.With("module", "spot"), cache, db, from)

	mode, err := optimize.ParseMode(cnfg.Tariff.GetMode())
	if err != nil {
		logger.Warn("invalid default mode, using consecutive", slog.Any("error", err))
		mode = optimize.ModeConsecutive
	}
	mgr := settings.NewManager(ctx, db, ref, settings.Prefs{
		Resolution:    cnfg.Tariff.GetResolution(),
		DurationHours: cnfg.Tariff.GetDurationHours(),
		Mode:          mode,
	})

	if cnfg.Mqtt.Enabled() {
		pub := publisher.New(publisher.Config{
			Host:     cnfg.Mqtt.Host,
			Port:     cnfg.Mqtt.GetPort(),
			Username: cnfg.Mqtt.Username,
			Password: cnfg.Mqtt.Password,
			ClientID: cnfg.Mqtt.GetClientID(),
			Topic:    cnfg.Mqtt.GetTopic(),
		})
		if err := pub.Connect(); err != nil {
			logger.Error("MQTT connection error", slog.Any("error", err))
		}
		defer pub.Disconnect()

		cache.OnRefresh(func(snap spot.Snapshot) {
			if err := pub.Publish(summary.Build(engine, mgr.Current(), snap, time.Now())); err != nil {
				logger.Error("failed to publish summary", slog.Any("error", err))
			}
		})
	}

	tasks := task.NewTasks(db, cache, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		if err := tasks.Run(); err != nil {
			panic(fmt.Sprintf("failed to schedule tasks: %v", err))
		}
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server := www.NewServer(cache, engine, mgr, db, cnfg.Api)
	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
	}
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}

	time.Sleep(2 * time.Second)
	os.Exit(1)
}
