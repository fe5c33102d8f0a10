package task

import (
	"context"
	"log/slog"
	"time"
)

type Maintainer interface {
	Backup(ctx context.Context) error
	PurgeBackups(ctx context.Context, retentionDays int) error
	PurgeLog(ctx context.Context, maxLogEntries int) error
	PurgeEnergyPrice(ctx context.Context, retentionDays int) error
}

type Retention struct {
	DataDays      int
	BackupDays    int
	MaxLogEntries int
}

func NewMaintenanceTask(logger *slog.Logger, db Maintainer, retention Retention) func() {
	return func() {
		logger.Debug("running maintenance task...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		if err := db.Backup(ctx); err != nil {
			logger.Error("database backup error", slog.Any("error", err))
		}

		if err := db.PurgeBackups(ctx, retention.BackupDays); err != nil {
			logger.Error("backup maintenance error", slog.Any("error", err))
		}

		if err := db.PurgeLog(ctx, retention.MaxLogEntries); err != nil {
			logger.Error("log maintenance error", slog.Any("error", err))
		}

		if err := db.PurgeEnergyPrice(ctx, retention.DataDays); err != nil {
			logger.Error("energy_price maintenance error", slog.Any("error", err))
		}

		logger.Info("maintenance task done")
	}
}
