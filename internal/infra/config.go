package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации сервиса.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Gate       GateConfig       `mapstructure:"gate"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	MetricsPort  int           `mapstructure:"metrics_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GateConfig — настройки контура согласования.
// ApprovalURL обязателен: без него конструирование шлюза падает сразу,
// до первого approval-трафика (fail-fast, не fail-on-first-use).
type GateConfig struct {
	ApprovalURL    string        `mapstructure:"approval_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AgentName      string        `mapstructure:"agent_name"`
	ApproverEmails []string      `mapstructure:"approver_emails"`
	RefusalMessage string        `mapstructure:"refusal_message"`
}

// ResilienceConfig — опциональный внешний слой над approval-клиентом
// (retry/CB/rate-limit). Сам клиент по контракту никогда не ретраит.
type ResilienceConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Attempts      uint          `mapstructure:"attempts"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	RateBurst     int           `mapstructure:"rate_burst"`
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

// AuditConfig — стоки аудита. Zap-сток включен всегда; Postgres и Redis
// подключаются при наличии соответствующих настроек.
type AuditConfig struct {
	PostgresURL string `mapstructure:"postgres_url"`
	RedisStream bool   `mapstructure:"redis_stream"`
}

// RedisConfig описывает подключение к Redis (Streams-сток аудита).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит путь к RSA-ключу для проверки токенов агентов.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: GATE_APPROVAL_URL перекроет gate.approval_url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Ключ проверки токенов: либо PEM прямо в ENV (Docker/K8s),
	// либо файл по пути из конфига
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 150*time.Second) // дольше таймаута согласования
	v.SetDefault("gate.request_timeout", 120*time.Second)
	v.SetDefault("gate.agent_name", "oversight-demo")
	v.SetDefault("gate.refusal_message", "")
	v.SetDefault("resilience.enabled", false)
	v.SetDefault("resilience.attempts", 3)
	v.SetDefault("resilience.rate_per_second", 100)
	v.SetDefault("resilience.rate_burst", 20)
	v.SetDefault("resilience.cb_max_requests", 3)
	v.SetDefault("resilience.cb_interval", 5*time.Second)
	v.SetDefault("resilience.cb_timeout", 30*time.Second)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

// loadKeyResource — универсальный хелпер: сначала ENV, потом файл
func loadKeyResource(path string, envDataKey string) []byte {
	// Если ключ прилетел напрямую в ENV (Base64 или PEM)
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	// Иначе читаем файл по пути из конфига
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
