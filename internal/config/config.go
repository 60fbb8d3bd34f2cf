// Пакет config — конфигурация сервиса резервного копирования.
// Все параметры читаются из переменных окружения с префиксом MB_.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config — конфигурация сервиса.
type Config struct {
	// Port — порт HTTP-сервера (MB_PORT)
	Port int
	// UploadToken — статический bearer-токен записи (MB_UPLOAD_TOKEN)
	UploadToken string
	// DataDir — корневая директория хранения файлов (MB_DATA_DIR)
	DataDir string
	// DBPath — путь к JSON-документу реестра (MB_DB_PATH)
	DBPath string
	// MaxFileSize — максимальный размер одного файла в байтах
	// (MB_MAX_FILE_SIZE), 0 — без ограничения
	MaxFileSize int64
	// IOTimeout — таймаут одной дисковой записи (MB_IO_TIMEOUT)
	IOTimeout time.Duration
	// ReconcileInterval — период фоновой сверки (MB_RECONCILE_INTERVAL),
	// 0 отключает фоновый запуск
	ReconcileInterval time.Duration
	// ProtectReads — требовать аутентификацию на read-путях
	// (MB_PROTECT_READS)
	ProtectReads bool
	// ShutdownTimeout — таймаут graceful shutdown (MB_SHUTDOWN_TIMEOUT)
	ShutdownTimeout time.Duration
	// TLSCert, TLSKey — пути к сертификату и ключу (MB_TLS_CERT,
	// MB_TLS_KEY); пустые — сервер работает по HTTP
	TLSCert string
	TLSKey  string
	// LogLevel — уровень логирования: debug, info, warn, error
	// (MB_LOG_LEVEL)
	LogLevel string
	// LogFormat — формат логов: json или text (MB_LOG_FORMAT)
	LogFormat string
}

// New читает конфигурацию из переменных окружения.
func New() (*Config, error) {
	cfg := &Config{
		Port:              getEnvInt("MB_PORT", 3000),
		UploadToken:       getEnv("MB_UPLOAD_TOKEN", ""),
		DataDir:           getEnv("MB_DATA_DIR", ""),
		DBPath:            getEnv("MB_DB_PATH", "db.json"),
		MaxFileSize:       getEnvInt64("MB_MAX_FILE_SIZE", 1<<30),
		IOTimeout:         getEnvDuration("MB_IO_TIMEOUT", 30*time.Second),
		ReconcileInterval: getEnvDuration("MB_RECONCILE_INTERVAL", 6*time.Hour),
		ProtectReads:      getEnvBool("MB_PROTECT_READS", false),
		ShutdownTimeout:   getEnvDuration("MB_SHUTDOWN_TIMEOUT", 5*time.Second),
		TLSCert:           getEnv("MB_TLS_CERT", ""),
		TLSKey:            getEnv("MB_TLS_KEY", ""),
		LogLevel:          getEnv("MB_LOG_LEVEL", "info"),
		LogFormat:         getEnv("MB_LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет обязательные параметры.
func (c *Config) validate() error {
	if c.UploadToken == "" {
		return fmt.Errorf("MB_UPLOAD_TOKEN обязателен")
	}
	if c.DataDir == "" {
		return fmt.Errorf("MB_DATA_DIR обязателен")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("MB_PORT вне диапазона: %d", c.Port)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("MB_TLS_CERT и MB_TLS_KEY задаются только вместе")
	}
	return nil
}

// SetupLogger настраивает slog согласно конфигурации.
func (c *Config) SetupLogger() *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// --- Вспомогательные функции чтения переменных окружения ---

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
