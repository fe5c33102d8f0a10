package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/orinocoz/energymeter/logging"
)

type AppConfigApi struct {
	Address string
	Port    int16
	// If not assigned, the server will serve embedded files.
	// If assigned, the server will serve static files from the directory.
	// This is useful for development.
	WwwDir *string `mapstructure:"www_dir"`
}

type AppConfigDatabase struct {
	Path string
	// How many days price history should be stored in database before it gets purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
	// When to run backup and purge, cron syntax, default: "30 2 * * *"
	MaintenanceAt *string `mapstructure:"maintenance_at"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 90
	}
	return *d.DataRetentionDays
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 30
	}
	return *d.BackupRetentionDays
}

func (d AppConfigDatabase) GetMaintenanceAt() string {
	if d.MaintenanceAt == nil {
		return "30 2 * * *"
	}
	return *d.MaintenanceAt
}

type AppConfigEnergyPrice struct {
	Area        *string `mapstructure:"area"`         // Bidding zone, default: "EE"
	RunAt       *string `mapstructure:"run_at"`       // Refresh schedule, cron syntax, default: "*/5 * * * *"
	CacheTTL    *string `mapstructure:"cache_ttl"`    // How long fetched prices are fresh, default: "5m"
	Timeout     *string `mapstructure:"timeout"`      // Timeout for one upstream request, default: "10s"
	EleringURL  *string `mapstructure:"elering_url"`  // Primary provider endpoint
	NordpoolURL *string `mapstructure:"nordpool_url"` // Secondary provider endpoint, empty string disables it
	DaysAhead   *int    `mapstructure:"days_ahead"`   // Days after today to request, default: 1
	DaysBack    *int    `mapstructure:"days_back"`    // Days before today to request, default: 1
}

func (e AppConfigEnergyPrice) GetArea() string {
	if e.Area == nil {
		return "EE"
	}
	return strings.ToUpper(*e.Area)
}

func (e AppConfigEnergyPrice) GetRunAt() string {
	if e.RunAt == nil {
		return "*/5 * * * *"
	}
	return *e.RunAt
}

func (e AppConfigEnergyPrice) GetCacheTTL() time.Duration {
	return durationOrDefault(e.CacheTTL, 5*time.Minute)
}

func (e AppConfigEnergyPrice) GetTimeout() time.Duration {
	return durationOrDefault(e.Timeout, 10*time.Second)
}

func (e AppConfigEnergyPrice) GetEleringURL() string {
	if e.EleringURL == nil {
		return "https://dashboard.elering.ee/api/nps/price"
	}
	return *e.EleringURL
}

func (e AppConfigEnergyPrice) GetNordpoolURL() string {
	if e.NordpoolURL == nil {
		return "https://dataportal-api.nordpoolgroup.com/api/DayAheadPrices"
	}
	return *e.NordpoolURL
}

func (e AppConfigEnergyPrice) GetDaysAhead() int {
	if e.DaysAhead == nil {
		return 1
	}
	return *e.DaysAhead
}

func (e AppConfigEnergyPrice) GetDaysBack() int {
	if e.DaysBack == nil {
		return 1
	}
	return *e.DaysBack
}

type AppConfigTariff struct {
	// External defaults document, the embedded one is used when not assigned
	DefaultsPath *string `mapstructure:"defaults_path"`
	// Resolution in minutes used when nothing is persisted: 15 or 60, default: 60
	Resolution *int `mapstructure:"resolution"`
	// Best window duration in hours used when nothing is persisted, default: 2
	DurationHours *float64 `mapstructure:"duration_hours"`
	// "consecutive" or "cheapest", default: "consecutive"
	Mode *string `mapstructure:"mode"`
}

func (t AppConfigTariff) GetDefaultsPath() string {
	if t.DefaultsPath == nil {
		return ""
	}
	return *t.DefaultsPath
}

func (t AppConfigTariff) GetResolution() int {
	if t.Resolution == nil {
		return 60
	}
	return *t.Resolution
}

func (t AppConfigTariff) GetDurationHours() float64 {
	if t.DurationHours == nil {
		return 2
	}
	return *t.DurationHours
}

func (t AppConfigTariff) GetMode() string {
	if t.Mode == nil {
		return "consecutive"
	}
	return *t.Mode
}

type AppConfigMqtt struct {
	Host     string
	Port     int16
	Username string
	Password string
	Topic    *string `mapstructure:"topic"`     // default: "energymeter/summary"
	ClientID *string `mapstructure:"client_id"` // default: "energymeter"
}

func (m AppConfigMqtt) Enabled() bool {
	return m.Host != ""
}

func (m AppConfigMqtt) GetPort() int16 {
	if m.Port == 0 {
		return 1883
	}
	return m.Port
}

func (m AppConfigMqtt) GetTopic() string {
	if m.Topic == nil {
		return "energymeter/summary"
	}
	return *m.Topic
}

func (m AppConfigMqtt) GetClientID() string {
	if m.ClientID == nil {
		return "energymeter"
	}
	return *m.ClientID
}

type AppConfigGui struct {
	// Timezone for displaying times in the GUI, default: Europe/Tallinn
	Timezone *string `mapstructure:"timezone"`
}

func (g AppConfigGui) GetTimezone() string {
	if g.Timezone == nil {
		return "Europe/Tallinn"
	}
	return *g.Timezone
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	return logging.LevelFromString(l.DbLevel)
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return logging.LogAttrFormatJSON
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	return logging.LevelFromString(l.ConsoleLevel)
}

type AppConfig struct {
	Api         AppConfigApi
	Database    AppConfigDatabase
	EnergyPrice AppConfigEnergyPrice `mapstructure:"energy_price"`
	Tariff      AppConfigTariff      `mapstructure:"tariff"`
	Mqtt        AppConfigMqtt        `mapstructure:"mqtt"`
	Gui         AppConfigGui         `mapstructure:"gui"`
	Logging     AppConfigLogging     `mapstructure:"logging"`

	v *viper.Viper
}

func Load(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("energymeter")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*AppConfig, error) {
	c := AppConfig{v: v}
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}
	return &c, nil
}

// Watch calls onChange with the re-read configuration every time the
// config file is written. Only settings that are safe to change at
// runtime (log levels) are expected to be applied by the callback.
func (c *AppConfig) Watch(onChange func(*AppConfig)) {
	if c.v == nil {
		return
	}
	var mu sync.Mutex
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		next, err := unmarshal(c.v)
		if err != nil {
			slog.Default().Warn("ignoring changed config file", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		onChange(next)
	})
	c.v.WatchConfig()
}

func durationOrDefault(str *string, def time.Duration) time.Duration {
	if str == nil {
		return def
	}
	d, err := time.ParseDuration(*str)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
