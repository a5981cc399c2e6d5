// Package config предоставляет структуры и функции для загрузки конфигурации бота
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// DriverPostgres хранит данные в PostgreSQL.
	DriverPostgres = "postgres"
	// DriverMemory хранит данные в памяти процесса (для локального запуска и тестов).
	DriverMemory = "memory"
)

// Config общая структура для хранения настроек
type Config struct {
	Env             string `yaml:"env" env:"ENV" env-default:"local"`
	Log             `yaml:"log"`
	Bot             `yaml:"bot"`
	Storage         `yaml:"storage"`
	RedisConnection `yaml:"redis_connection"`
	RabbitMQ        `yaml:"rabbitmq"`
	Scheduler       `yaml:"scheduler"`
	HTTPServer      `yaml:"http_server"`
}

// Log структура для настройки логгера
type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	File  string `yaml:"file" env:"LOG_FILE"`
}

// Bot структура для настройки подключения к Telegram
type Bot struct {
	Token       string        `yaml:"token" env:"TELEGRAM_TOKEN" env-required:"true"`
	AdminIDs    []string      `yaml:"admin_ids" env:"ADMIN_IDS" env-separator:","`
	PollTimeout int           `yaml:"poll_timeout" env-default:"30"`
	SendTimeout time.Duration `yaml:"send_timeout" env-default:"10s"`
	RateLimit   float64       `yaml:"rate_limit" env-default:"25"`
	Workers     int           `yaml:"workers" env-default:"8"`
}

// Storage структура для настройки хранилища
type Storage struct {
	Driver                  string        `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	StorageConnectionString string        `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	QueryTimeout            time.Duration `yaml:"query_timeout" env-default:"5s"`
	MigrationsPath          string        `yaml:"migrations_path" env-default:"./migrations"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для настройки очереди уведомлений.
// Пустой URL означает отправку напоминаний напрямую, без очереди.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Scheduler структура для настройки планировщика напоминаний
type Scheduler struct {
	Interval time.Duration `yaml:"interval" env-default:"60s"`
}

// HTTPServer структура для настройки служебного сервера (health, metrics)
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// MustLoad загружает конфиг из файла CONFIG_PATH или, если переменная не задана,
// только из переменных окружения. Завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Fatalf("file: %s - does not exist", configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла path (переменные окружения имеют приоритет)
// или только из окружения, если path пустой.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, err
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Token == "" {
		return errors.New("bot token is required")
	}
	switch c.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.StorageConnectionString == "" {
			return errors.New("storage_connection_string is required for postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	if c.Interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	if c.Workers <= 0 {
		return errors.New("bot workers must be positive")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Bot:\n"+
			"  Admins: %d\n"+
			"  PollTimeout: %d\n"+
			"  SendTimeout: %s\n"+
			"Storage:\n"+
			"  Driver: %s\n"+
			"  QueryTimeout: %s\n"+
			"Redis: %s\n"+
			"RabbitMQ enabled: %t\n"+
			"Scheduler interval: %s\n"+
			"HTTPServer: %s\n",
		c.Env,
		len(c.AdminIDs),
		c.PollTimeout,
		c.SendTimeout,
		c.Driver,
		c.QueryTimeout,
		c.AddressRedis,
		c.RabbitMQURL != "",
		c.Interval,
		c.AddressHTTP,
	)
}
