package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/angas/dayahead-go/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultCurrency       = "EUR"
	DefaultEnergyTax      = 0.09161            // EUR/kWh, NL energy tax
	DefaultSupplierMarkup = 0.0165289256198347 // EUR/kWh
	DefaultVAT            = 0.21
)

type AppConfigApi struct {
	Address string
	Port    int16
}

type AppConfigMarket struct {
	// Delivery areas to track, e.g. "NL", "SE3", "DK1"
	Areas []string `mapstructure:"areas"`
	// Currency for fetched prices, default: EUR
	Currency *string `mapstructure:"currency"`
	// Market timezone governing day rollover and the publication cutoff, default: Europe/Amsterdam
	Timezone *string `mapstructure:"timezone"`
}

func (m AppConfigMarket) GetCurrency() string {
	if m.Currency == nil {
		return DefaultCurrency
	}
	return *m.Currency
}

func (m AppConfigMarket) GetTimezone() string {
	if m.Timezone == nil {
		return "Europe/Amsterdam"
	}
	return *m.Timezone
}

// AppConfigConsumer holds consumer pricing settings. Unset fields fall back
// to the global consumer section, then to the package defaults.
type AppConfigConsumer struct {
	EnableKWh            *bool    `mapstructure:"enable_kwh"`
	EnableHourly         *bool    `mapstructure:"enable_hourly"`
	ConsumerPriceEnabled *bool    `mapstructure:"consumer_price_enabled"`
	EnergyTax            *float64 `mapstructure:"energy_tax"`       // per kWh
	SupplierMarkup       *float64 `mapstructure:"supplier_markup"`  // per kWh
	VAT                  *float64 `mapstructure:"vat"`              // fraction, e.g. 0.21
}

// AreaSettings is the fully resolved consumer configuration for one area.
type AreaSettings struct {
	EnableKWh            bool    `json:"enable_kwh"`
	EnableHourly         bool    `json:"enable_hourly"`
	ConsumerPriceEnabled bool    `json:"consumer_price_enabled"`
	EnergyTax            float64 `json:"energy_tax"`
	SupplierMarkup       float64 `json:"supplier_markup"`
	VAT                  float64 `json:"vat"`
}

type AppConfigMqtt struct {
	Enabled  bool
	Host     string
	Port     int16
	Username string
	Password string
	// Topic prefix for published price messages, default: "dayahead"
	TopicPrefix *string `mapstructure:"topic_prefix"`
}

func (m AppConfigMqtt) GetTopicPrefix() string {
	if m.TopicPrefix == nil {
		return "dayahead"
	}
	return *m.TopicPrefix
}

type AppConfigDatabase struct {
	Path string
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
	// How many days fetch audit rows should be stored, default: 90
	DataRetentionDays *int `mapstructure:"data_retention_days"`
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 90
	}
	return *d.BackupRetentionDays
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 90
	}
	return *d.DataRetentionDays
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
	Api      AppConfigApi
	Market   AppConfigMarket
	Consumer AppConfigConsumer `mapstructure:"consumer"`
	// Per-area overrides of the consumer section
	ConsumerSettings map[string]AppConfigConsumer `mapstructure:"consumer_settings"`
	Mqtt             AppConfigMqtt
	Database         AppConfigDatabase
	Logging          AppConfigLogging
}

// AreaSettings resolves the consumer configuration for one area: per-area
// value, then the global consumer section, then the package defaults.
func (c *AppConfig) AreaSettings(area string) AreaSettings {
	global := c.Consumer
	override, hasOverride := c.ConsumerSettings[area]

	pick := func(perArea, legacy *bool, def bool) bool {
		if hasOverride && perArea != nil {
			return *perArea
		}
		if legacy != nil {
			return *legacy
		}
		return def
	}
	pickF := func(perArea, legacy *float64, def float64) float64 {
		if hasOverride && perArea != nil {
			return *perArea
		}
		if legacy != nil {
			return *legacy
		}
		return def
	}

	return AreaSettings{
		EnableKWh:            pick(override.EnableKWh, global.EnableKWh, true),
		EnableHourly:         pick(override.EnableHourly, global.EnableHourly, true),
		ConsumerPriceEnabled: pick(override.ConsumerPriceEnabled, global.ConsumerPriceEnabled, true),
		EnergyTax:            pickF(override.EnergyTax, global.EnergyTax, DefaultEnergyTax),
		SupplierMarkup:       pickF(override.SupplierMarkup, global.SupplierMarkup, DefaultSupplierMarkup),
		VAT:                  pickF(override.VAT, global.VAT, DefaultVAT),
	}
}

func Load(path string) (*AppConfig, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath("config")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c AppConfig

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	if len(c.Market.Areas) == 0 {
		return nil, fmt.Errorf("config: market.areas must name at least one delivery area")
	}

	return &c, nil
}

// Watch re-reads the config file on change and hands the reloaded config to
// onChange. Errors during reload are reported to the previous config's
// consumers by simply not calling onChange.
func Watch(logger *slog.Logger, onChange func(*AppConfig)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file changed", slog.String("file", e.Name), slog.String("op", e.Op.String()))
		var c AppConfig
		if err := viper.Unmarshal(&c); err != nil {
			logger.Error("failed to reload config", slog.Any("error", err))
			return
		}
		if len(c.Market.Areas) == 0 {
			logger.Error("reloaded config has no delivery areas, keeping previous")
			return
		}
		onChange(&c)
	})
	viper.WatchConfig()
}
