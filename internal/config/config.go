package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ConfigFileName is the JSON file Load looks for in the config directory.
const ConfigFileName = "fightcore.cfg.json"

// DBConfig holds relational store settings.
type DBConfig struct {
	Type     string // "sqlite" or "postgres"
	Host     string
	Port     string
	Username string
	Password string
	Database string
	// SQLitePath is the database file; empty means an in-memory database.
	SQLitePath string
}

// WebsocketConfig holds the websocket broadcast target settings.
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// InfluxConfig holds the InfluxDB broadcast target settings.
type InfluxConfig struct {
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
}

// URL returns the server URL built from protocol, host and port.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// BroadcastConfig selects which publishers receive fight updates.
type BroadcastConfig struct {
	Targets   []string
	Websocket WebsocketConfig
	Influx    InfluxConfig
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level          string
	LogsDir        string
	GraylogEnabled bool
	GraylogAddress string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("db.type", "sqlite")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fightcore")
	viper.SetDefault("db.sqlite.path", "")

	viper.SetDefault("broadcast.targets", []string{"log"})
	viper.SetDefault("broadcast.websocket.url", "ws://localhost:5000/cable")
	viper.SetDefault("broadcast.websocket.secret", "")

	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "fightcore")
	viper.SetDefault("influx.bucket", "fight_state")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fightcore")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetDBConfig returns the relational store configuration.
func GetDBConfig() DBConfig {
	return DBConfig{
		Type:       viper.GetString("db.type"),
		Host:       viper.GetString("db.host"),
		Port:       viper.GetString("db.port"),
		Username:   viper.GetString("db.username"),
		Password:   viper.GetString("db.password"),
		Database:   viper.GetString("db.database"),
		SQLitePath: viper.GetString("db.sqlite.path"),
	}
}

// GetBroadcastConfig returns the broadcast configuration.
func GetBroadcastConfig() BroadcastConfig {
	return BroadcastConfig{
		Targets: viper.GetStringSlice("broadcast.targets"),
		Websocket: WebsocketConfig{
			URL:    viper.GetString("broadcast.websocket.url"),
			Secret: viper.GetString("broadcast.websocket.secret"),
		},
		Influx: InfluxConfig{
			Protocol: viper.GetString("influx.protocol"),
			Host:     viper.GetString("influx.host"),
			Port:     viper.GetString("influx.port"),
			Token:    viper.GetString("influx.token"),
			Org:      viper.GetString("influx.org"),
			Bucket:   viper.GetString("influx.bucket"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetLogConfig returns the logging configuration.
func GetLogConfig() LogConfig {
	return LogConfig{
		Level:          viper.GetString("logLevel"),
		LogsDir:        viper.GetString("logsDir"),
		GraylogEnabled: viper.GetBool("graylog.enabled"),
		GraylogAddress: viper.GetString("graylog.address"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
