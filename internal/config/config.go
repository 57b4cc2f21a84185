// Package config предоставляет структуры и функции для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Scheduler               `yaml:"scheduler"`
	Notification            `yaml:"notification"`
	SMTP                    `yaml:"smtp"`
	RabbitMQ                `yaml:"rabbitmq"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает кеш и блокировки планировщика.
type RedisConnection struct {
	RedisAddress     string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	RedisPassword    string        `yaml:"password" env:"REDIS_PASSWORD"`
	RedisUser        string        `yaml:"user"`
	RedisDB          int           `yaml:"db"`
	RedisMaxRetries  int           `yaml:"max_retries"`
	RedisDialTimeout time.Duration `yaml:"dial_timeout"`
	RedisTimeout     time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для проверки сессионного токена
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Scheduler настройки расписания уведомлений.
// Время задаётся в формате HH:MM в часовом поясе Timezone.
type Scheduler struct {
	Timezone    string        `yaml:"timezone" env:"SCHEDULER_TIMEZONE" env-default:"America/Sao_Paulo"`
	TasksAt     string        `yaml:"tasks_at" env-default:"09:00"`
	FinancialAt string        `yaml:"financial_at" env-default:"08:00"`
	ResetAt     string        `yaml:"reset_at" env-default:"00:00"`
	LockTTL     time.Duration `yaml:"lock_ttl" env-default:"10m"`
}

// Notification настройки отправки уведомлений
type Notification struct {
	Transport     string        `yaml:"transport" env:"NOTIFICATION_TRANSPORT" env-default:"smtp"` // smtp или amqp
	SendTimeout   time.Duration `yaml:"send_timeout" env-default:"10s"`
	Workers       int           `yaml:"workers" env-default:"4"`
	RatePerSecond float64       `yaml:"rate_per_second" env-default:"5"`
	RateBurst     int           `yaml:"rate_burst" env-default:"5"`
	FrontendURL   string        `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3001"`
	SenderName    string        `yaml:"sender_name" env-default:"Ali Software Jurídico"`
}

// SMTP параметры почтового сервера
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
}

// RabbitMQ параметры брокера для транспорта amqp
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// Location возвращает часовой пояс планировщика.
func (s Scheduler) Location() (*time.Location, error) {
	const op = "config.Location"
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return loc, nil
}

// Load читает конфиг по указанному пути, применяя значения по умолчанию и переменные окружения.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Transport != "smtp" && cfg.Transport != "amqp" {
		return nil, fmt.Errorf("%s: unknown notification transport %q", op, cfg.Transport)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}
