// Package config loads the storefront configuration from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig is populated by viper. Tags:
//   - mapstructure: env key
//   - default: value used when the key is missing
//   - required: "true" fails Load when the value is empty
type AppConfig struct {
	Environment     string        `mapstructure:"APP_ENV" default:"development"`
	LogLevel        string        `mapstructure:"LOG_LEVEL" default:"info"`
	HTTPPort        string        `mapstructure:"HTTP_PORT" default:"8080"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" default:"10s"`
	// StaffAPIKey guards the order fulfillment endpoints.
	StaffAPIKey string `mapstructure:"STAFF_API_KEY" required:"true"`

	Orders  OrdersDBConfig  `mapstructure:",squash"`
	Catalog CatalogDBConfig `mapstructure:",squash"`
	Cart    CartStoreConfig `mapstructure:",squash"`
	Outbox  OutboxConfig    `mapstructure:",squash"`
}

// OrdersDBConfig points at the Postgres database holding orders, payment
// methods and the outbox.
type OrdersDBConfig struct {
	Host           string `mapstructure:"DB_HOST" default:"localhost"`
	Port           int    `mapstructure:"DB_PORT" default:"5432"`
	User           string `mapstructure:"DB_USER" default:"postgres"`
	Password       string `mapstructure:"DB_PASSWORD" default:"postgres"`
	Name           string `mapstructure:"DB_NAME" default:"storefront"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH" default:"internal/orders/repository/migrations"`
}

// CatalogDBConfig points at the read-only SQLite catalog.
type CatalogDBConfig struct {
	Path           string `mapstructure:"CATALOG_DB_PATH" default:"catalog.db"`
	MigrationsPath string `mapstructure:"CATALOG_MIGRATIONS_PATH" default:"internal/catalog/repository/migrations"`
}

type CartStoreConfig struct {
	MongoURI      string `mapstructure:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDBName   string `mapstructure:"MONGO_DB_NAME" default:"storefront"`
	RedisAddr     string `mapstructure:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
}

type OutboxConfig struct {
	// KafkaBrokers is a comma separated list.
	KafkaBrokers string        `mapstructure:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic        string        `mapstructure:"OUTBOX_TOPIC" default:"order-events"`
	PollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL" default:"2s"`
	BatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE" default:"100"`
}

// Brokers splits KafkaBrokers, dropping empty entries.
func (c OutboxConfig) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Load reads .env from path (if present) and the process environment, which
// takes precedence.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg AppConfig

	if err := processTags(v, &cfg); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// processTags binds every key to the environment and registers defaults.
func processTags(v *viper.Viper, cfg interface{}) error {
	val := reflect.ValueOf(cfg)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
		if def := field.Tag.Get("default"); def != "" {
			v.SetDefault(key, def)
		}
	}
	return nil
}

func validateRequired(cfg interface{}) error {
	val := reflect.ValueOf(cfg)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("required") == "true" && val.Field(i).IsZero() {
			return fmt.Errorf("missing required configuration: %s", field.Tag.Get("mapstructure"))
		}
	}
	return nil
}
