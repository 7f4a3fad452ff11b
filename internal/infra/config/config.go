package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Драйверы хранилища.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Бэкенды очереди ручных обновлений.
const (
	QueueBackendRedis    = "redis"
	QueueBackendRabbitMQ = "rabbitmq"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Store struct {
		Driver     string `envconfig:"STORE_DRIVER" default:"postgres"`
		PGDSN      string `envconfig:"PG_DSN"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"devfeed.db"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queues struct {
		Backend     string `envconfig:"QUEUE_BACKEND" default:"redis"`
		RabbitURL   string `envconfig:"RABBITMQ_URL"`
		Refresh     string `envconfig:"REFRESH_QUEUE_KEY" default:"refresh_jobs"`
		MaxAttempts int    `envconfig:"REFRESH_MAX_ATTEMPTS" default:"3"`
	} `envconfig:""`

	SourcesFile string `envconfig:"SOURCES_FILE"`

	Schedule struct {
		FetchInterval     time.Duration `envconfig:"FETCH_INTERVAL" default:"15m"`
		RetentionInterval time.Duration `envconfig:"RETENTION_INTERVAL" default:"6h"`
		FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`
		RunTimeout        time.Duration `envconfig:"RUN_TIMEOUT" default:"5m"`
		Parallelism       int           `envconfig:"FETCH_PARALLELISM" default:"4"`
		ViaQueue          bool          `envconfig:"SCHEDULE_VIA_QUEUE" default:"false"`
	} `envconfig:""`

	Providers struct {
		GitHubAPIURL string  `envconfig:"GITHUB_API_URL" default:"https://api.github.com"`
		GitHubToken  string  `envconfig:"GITHUB_TOKEN"`
		HNAPIURL     string  `envconfig:"HN_API_URL" default:"https://hacker-news.firebaseio.com"`
		RedditAPIURL string  `envconfig:"REDDIT_API_URL" default:"https://www.reddit.com"`
		UserAgent    string  `envconfig:"USER_AGENT" default:"devfeed/1.0"`
		RatePerSec   float64 `envconfig:"PROVIDER_RATE_PER_SEC" default:"5"`
	} `envconfig:""`

	Telegram struct {
		Token       string `envconfig:"TG_BOT_TOKEN"`
		AlertChatID int64  `envconfig:"TG_ALERT_CHAT_ID"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	if cfg.Schedule.Parallelism < 1 {
		cfg.Schedule.Parallelism = 1
	}
	if cfg.Queues.MaxAttempts < 1 {
		cfg.Queues.MaxAttempts = 1
	}
	return cfg, nil
}
