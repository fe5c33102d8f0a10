package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/orinocoz/energymeter/config"
	"github.com/orinocoz/energymeter/database"
	"github.com/orinocoz/energymeter/spot"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	EnergyPriceTask func()
	MaintenanceTask func()
}

func NewTasks(db *database.Database, cache *spot.Cache, cnfg *config.AppConfig) *Tasks {
	logger := slog.Default().With("module", "tasks")
	return &Tasks{
		cron:            cron.New(),
		cnfg:            cnfg,
		EnergyPriceTask: NewEnergyPriceTask(logger.With(slog.String("task", "energy_price")), cache, db, 30*time.Second),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, Retention{
			DataDays:      cnfg.Database.GetDataRetentionDays(),
			BackupDays:    cnfg.Database.GetBackupRetentionDays(),
			MaxLogEntries: cnfg.Logging.GetDbMaxEntries(),
		}),
	}
}

func (t *Tasks) Run() error {
	if _, err := t.cron.AddFunc(t.cnfg.EnergyPrice.GetRunAt(), t.EnergyPriceTask); err != nil {
		return err
	}
	if _, err := t.cron.AddFunc(t.cnfg.Database.GetMaintenanceAt(), t.MaintenanceTask); err != nil {
		return err
	}
	t.cron.Start()
	return nil
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
