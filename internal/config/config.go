package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	EventBus  EventBusConfig
	Payment   PaymentConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RateLimitConfig struct {
	GeneralRPS   float64 // Requests per second for general endpoints
	GeneralBurst int     // Burst size for general endpoints
	DeviceRPS    float64 // Requests per second for unauthenticated device endpoints
	DeviceBurst  int
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int // seconds
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PresenceTTL time.Duration
}

type MQTTConfig struct {
	Broker             string
	ClientID           string
	Username           string
	Password           string
	CheckInTopic       string
	CommandTopicPrefix string
	QoS                byte
	Workers            int
	BufferSize         int
}

type EventBusConfig struct {
	Enabled bool
}

type PaymentConfig struct {
	InstallmentPeriodMonths int
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SQLITE_PATH", "device-finance.db")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("RATE_LIMIT_GENERAL_RPS", 20)
	viper.SetDefault("RATE_LIMIT_GENERAL_BURST", 40)
	viper.SetDefault("RATE_LIMIT_DEVICE_RPS", 2)
	viper.SetDefault("RATE_LIMIT_DEVICE_BURST", 5)
	viper.SetDefault("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "OPTIONS"})
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Request-ID"})
	viper.SetDefault("CORS_EXPOSED_HEADERS", []string{"X-Request-ID"})
	viper.SetDefault("CORS_MAX_AGE", 43200)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_PRESENCE_TTL", "5m")
	viper.SetDefault("MQTT_CLIENT_ID", "device-finance-backoffice")
	viper.SetDefault("MQTT_CHECKIN_TOPIC", "devices/+/checkin")
	viper.SetDefault("MQTT_COMMAND_TOPIC_PREFIX", "devices")
	viper.SetDefault("MQTT_QOS", 1)
	viper.SetDefault("MQTT_WORKERS", 4)
	viper.SetDefault("MQTT_BUFFER_SIZE", 256)
	viper.SetDefault("EVENT_BUS_ENABLED", true)
	viper.SetDefault("PAYMENT_INSTALLMENT_PERIOD_MONTHS", 1)
}

// Load reads configuration from the given .env style file (if present) and
// the process environment. An empty path means ".env" in the working directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ".env"
	}

	viper.SetConfigFile(path)
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(homeDir)
	}
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Printf("Warning: config file not found: %v. Falling back to environment variables only.", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port:        viper.GetString("SERVER_PORT"),
			Host:        viper.GetString("SERVER_HOST"),
			Environment: viper.GetString("ENVIRONMENT"),
		},
		Database: DatabaseConfig{
			Driver:     viper.GetString("DB_DRIVER"),
			Host:       viper.GetString("DB_HOST"),
			Port:       viper.GetString("DB_PORT"),
			User:       viper.GetString("DB_USER"),
			Password:   viper.GetString("DB_PASSWORD"),
			DBName:     viper.GetString("DB_NAME"),
			SSLMode:    viper.GetString("DB_SSLMODE"),
			SQLitePath: viper.GetString("DB_SQLITE_PATH"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		RateLimit: RateLimitConfig{
			GeneralRPS:   viper.GetFloat64("RATE_LIMIT_GENERAL_RPS"),
			GeneralBurst: viper.GetInt("RATE_LIMIT_GENERAL_BURST"),
			DeviceRPS:    viper.GetFloat64("RATE_LIMIT_DEVICE_RPS"),
			DeviceBurst:  viper.GetInt("RATE_LIMIT_DEVICE_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders:   viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
			ExposedHeaders:   viper.GetStringSlice("CORS_EXPOSED_HEADERS"),
			AllowCredentials: viper.GetBool("CORS_ALLOW_CREDENTIALS"),
			MaxAge:           viper.GetInt("CORS_MAX_AGE"),
		},
		Redis: RedisConfig{
			Addr:        viper.GetString("REDIS_ADDR"),
			Password:    viper.GetString("REDIS_PASSWORD"),
			DB:          viper.GetInt("REDIS_DB"),
			PresenceTTL: viper.GetDuration("REDIS_PRESENCE_TTL"),
		},
		MQTT: MQTTConfig{
			Broker:             viper.GetString("MQTT_BROKER"),
			ClientID:           viper.GetString("MQTT_CLIENT_ID"),
			Username:           viper.GetString("MQTT_USERNAME"),
			Password:           viper.GetString("MQTT_PASSWORD"),
			CheckInTopic:       viper.GetString("MQTT_CHECKIN_TOPIC"),
			CommandTopicPrefix: viper.GetString("MQTT_COMMAND_TOPIC_PREFIX"),
			QoS:                byte(viper.GetUint("MQTT_QOS")),
			Workers:            viper.GetInt("MQTT_WORKERS"),
			BufferSize:         viper.GetInt("MQTT_BUFFER_SIZE"),
		},
		EventBus: EventBusConfig{
			Enabled: viper.GetBool("EVENT_BUS_ENABLED"),
		},
		Payment: PaymentConfig{
			InstallmentPeriodMonths: viper.GetInt("PAYMENT_INSTALLMENT_PERIOD_MONTHS"),
		},
	}

	return config, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" {
			return errors.New("database configuration is missing: set DB_HOST and DB_NAME")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return errors.New("database configuration is missing: set DB_SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is missing: set JWT_SECRET")
	}
	if c.Payment.InstallmentPeriodMonths < 1 {
		return errors.New("PAYMENT_INSTALLMENT_PERIOD_MONTHS must be at least 1")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *MQTTConfig) Enabled() bool {
	return c.Broker != ""
}

func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}
