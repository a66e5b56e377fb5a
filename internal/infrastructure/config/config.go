package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NOTECARD_"

// Config is the root configuration structure for the relay.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Hub      HubConfig      `yaml:"hub"`
	Upload   UploadConfig   `yaml:"upload"`
	Clock    ClockConfig    `yaml:"clock"`
	API      APIConfig      `yaml:"api"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig describes how to reach the Notecard.
type DeviceConfig struct {
	Transport       string `yaml:"transport"` // "serial" or "i2c"
	Endpoint        string `yaml:"endpoint"`  // serial device path or I2C bus name
	BaudRate        int    `yaml:"baud_rate"`
	I2CAddress      uint16 `yaml:"i2c_address"`
	ResponseTimeout int    `yaml:"response_timeout"` // seconds
	RetryInterval   int    `yaml:"retry_interval"`   // seconds between open attempts
}

// HubConfig is applied to the Notecard with hub.set at startup.
type HubConfig struct {
	Product        string `yaml:"product"`
	SerialNumber   string `yaml:"serial_number"`
	Mode           string `yaml:"mode"`
	Outbound       int    `yaml:"outbound"` // minutes
	Inbound        int    `yaml:"inbound"`  // minutes
	RestoreOnStart bool   `yaml:"restore_on_start"`
}

// UploadConfig controls batching and the flush schedule.
type UploadConfig struct {
	PeriodMinutes    float64 `yaml:"period_minutes"`
	PollInterval     int     `yaml:"poll_interval"` // seconds
	RetryBackoff     int     `yaml:"retry_backoff"` // seconds
	Notefile         string  `yaml:"notefile"`
	Compression      string  `yaml:"compression"` // zstd, lz4, none
	RequeueOnFailure bool    `yaml:"requeue_on_failure"`
}

// ClockConfig controls drift correction.
type ClockConfig struct {
	CorrectHost      bool    `yaml:"correct_host"`
	ThresholdSeconds float64 `yaml:"threshold_seconds"`
}

// APIConfig contains HTTP ingestion server settings.
type APIConfig struct {
	Host         string           `yaml:"host"`
	Port         int              `yaml:"port"`
	IngestPath   string           `yaml:"ingest_path"`
	MaxBodyBytes int64            `yaml:"max_body_bytes"`
	Timeouts     APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled        bool                `yaml:"enabled"`
	Broker         MQTTBrokerConfig    `yaml:"broker"`
	Auth           MQTTAuthConfig      `yaml:"auth"`
	QoS            int                 `yaml:"qos"`
	Reconnect      MQTTReconnectConfig `yaml:"reconnect"`
	IngestTopic    string              `yaml:"ingest_topic"`
	HealthTopic    string              `yaml:"health_topic"`
	HealthInterval int                 `yaml:"health_interval"` // seconds
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings for the reading mirror.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	Measurement   string `yaml:"measurement"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // milliseconds
}

// DatabaseConfig contains SQLite flush journal settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"` // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// LoadDotEnv loads KEY=value pairs from the given .env files into the
// process environment. Missing files are skipped; variables already set are
// not overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from a YAML file, applies environment
// overrides and validates the result.
//
// Environment variables use the NOTECARD_ prefix,
// for example NOTECARD_PRODUCT or NOTECARD_UPLOAD_PERIOD.
//
// Parameters:
//   - path: Path to the YAML configuration file. Empty means defaults only.
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Transport:       "serial",
			Endpoint:        "/dev/ttyUSB0",
			BaudRate:        9600,
			I2CAddress:      0x17,
			ResponseTimeout: 30,
			RetryInterval:   3,
		},
		Hub: HubConfig{
			Mode:     "continuous",
			Outbound: 360,
			Inbound:  360,
		},
		Upload: UploadConfig{
			PeriodMinutes:    0.5,
			PollInterval:     2,
			RetryBackoff:     3,
			Notefile:         "readings.qo",
			Compression:      "zstd",
			RequeueOnFailure: true,
		},
		Clock: ClockConfig{
			ThresholdSeconds: 10,
		},
		API: APIConfig{
			Host:         "localhost",
			Port:         5000,
			IngestPath:   "/minimon",
			MaxBodyBytes: 1 << 20,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "notecard-relay",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			IngestTopic:    "notecard/readings",
			HealthTopic:    "notecard/relay/health",
			HealthInterval: 30,
		},
		InfluxDB: InfluxDBConfig{
			Measurement:   "sensor_reading",
			BatchSize:     1000,
			FlushInterval: 1000,
		},
		Database: DatabaseConfig{
			Path:        "./data/notecard.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	var errs []string

	str := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	// Device and hub
	str("TRANSPORT", &cfg.Device.Transport)
	str("ENDPOINT", &cfg.Device.Endpoint)
	str("PRODUCT", &cfg.Hub.Product)
	str("SERIAL_NUMBER", &cfg.Hub.SerialNumber)

	// Upload
	if v := os.Getenv(EnvPrefix + "UPLOAD_PERIOD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%sUPLOAD_PERIOD: %v", EnvPrefix, err))
		} else {
			cfg.Upload.PeriodMinutes = f
		}
	}
	boolean("REQUEUE_ON_FAILURE", &cfg.Upload.RequeueOnFailure)
	boolean("CORRECT_CLOCK", &cfg.Clock.CorrectHost)

	// API
	str("API_HOST", &cfg.API.Host)
	integer("API_PORT", &cfg.API.Port)

	// MQTT
	boolean("MQTT_ENABLED", &cfg.MQTT.Enabled)
	str("MQTT_HOST", &cfg.MQTT.Broker.Host)
	str("MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	str("MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	// InfluxDB
	str("INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	// Database
	str("DATABASE_PATH", &cfg.Database.Path)

	// Logging
	str("LOG_LEVEL", &cfg.Logging.Level)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device
	switch c.Device.Transport {
	case "serial":
		if c.Device.Endpoint == "" {
			errs = append(errs, "device.endpoint is required for serial transport")
		}
		if c.Device.BaudRate <= 0 {
			errs = append(errs, "device.baud_rate must be positive")
		}
	case "i2c":
		if c.Device.I2CAddress == 0 || c.Device.I2CAddress > 0x7f {
			errs = append(errs, "device.i2c_address must be a 7-bit address")
		}
	default:
		errs = append(errs, fmt.Sprintf("device.transport %q must be serial or i2c", c.Device.Transport))
	}
	if c.Device.RetryInterval <= 0 {
		errs = append(errs, "device.retry_interval must be positive")
	}

	// Hub
	if c.Hub.Product == "" {
		errs = append(errs, "hub.product is required (set NOTECARD_PRODUCT environment variable)")
	}
	if c.Hub.Outbound < 0 || c.Hub.Inbound < 0 {
		errs = append(errs, "hub.outbound and hub.inbound must not be negative")
	}

	// Upload
	if c.Upload.PeriodMinutes <= 0 {
		errs = append(errs, "upload.period_minutes must be positive")
	}
	if c.Upload.PollInterval <= 0 || c.Upload.RetryBackoff <= 0 {
		errs = append(errs, "upload.poll_interval and upload.retry_backoff must be positive")
	}
	if c.Upload.Notefile == "" {
		errs = append(errs, "upload.notefile is required")
	}
	switch c.Upload.Compression {
	case "zstd", "lz4", "none":
	default:
		errs = append(errs, fmt.Sprintf("upload.compression %q must be zstd, lz4 or none", c.Upload.Compression))
	}

	// Clock
	if c.Clock.ThresholdSeconds <= 0 {
		errs = append(errs, "clock.threshold_seconds must be positive")
	}

	// API
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if !strings.HasPrefix(c.API.IngestPath, "/") {
		errs = append(errs, "api.ingest_path must start with /")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
	}

	// Database
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// UploadPeriod returns the upload period as a Duration.
func (c *Config) UploadPeriod() time.Duration {
	return time.Duration(c.Upload.PeriodMinutes * float64(time.Minute))
}

// PollInterval returns the scheduler poll interval as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Upload.PollInterval) * time.Second
}

// RetryBackoff returns the delay between failed flush cycles.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Upload.RetryBackoff) * time.Second
}

// OpenRetryInterval returns the delay between device open attempts.
func (c *Config) OpenRetryInterval() time.Duration {
	return time.Duration(c.Device.RetryInterval) * time.Second
}

// ResponseTimeout returns the per-transaction device timeout.
func (c *Config) ResponseTimeout() time.Duration {
	return time.Duration(c.Device.ResponseTimeout) * time.Second
}

// DriftThreshold returns the clock drift threshold as a Duration.
func (c *Config) DriftThreshold() time.Duration {
	return time.Duration(c.Clock.ThresholdSeconds * float64(time.Second))
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
